package store

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/kernel/store/kvstore/btreedb"
)

type payload struct {
	Value string `json:"value"`
}

func newTestStore(t *testing.T) Client {
	engine, err := btreedb.New(nil)
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	return NewLocal(engine)
}

func mustCell(t *testing.T, id Id, schemaID uint32, value string) *Cell {
	c, err := NewCell(id, schemaID, &payload{Value: value})
	if err != nil {
		t.Fatalf("new cell: %v", err)
	}
	return c
}

func TestClientCrud(t *testing.T) {
	s := newTestStore(t)
	id := EncodeKey(7, []byte("alpha"))

	_, err := s.ReadCell(id)
	if errors.Cause(err) != ErrCellNotFound {
		t.Fatalf("Got %v expected %v", err, ErrCellNotFound)
	}

	version, err := s.WriteCell(mustCell(t, id, 7, "one"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if version != 1 {
		t.Errorf("Got version %d expected 1", version)
	}

	c, err := s.ReadCell(id)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var p payload
	if err = c.Unmarshal(&p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Value != "one" || c.SchemaID != 7 || c.Version != 1 {
		t.Errorf("Got %v/%d/%d expected one/7/1", p.Value, c.SchemaID, c.Version)
	}

	// versions bump monotonically on every overwrite
	version, err = s.WriteCell(mustCell(t, id, 7, "two"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if version != 2 {
		t.Errorf("Got version %d expected 2", version)
	}

	if err = s.RemoveCell(id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err = s.RemoveCell(id); errors.Cause(err) != ErrCellNotFound {
		t.Errorf("Got %v expected %v", err, ErrCellNotFound)
	}
}

func TestTxnReadYourWrites(t *testing.T) {
	s := newTestStore(t)
	id := EncodeKey(7, []byte("alpha"))

	err := s.Transaction(func(txn *Txn) error {
		if err := txn.Write(mustCell(t, id, 7, "pending")); err != nil {
			return err
		}
		c, err := txn.Read(id)
		if err != nil {
			return err
		}
		var p payload
		if err = c.Unmarshal(&p); err != nil {
			return err
		}
		if p.Value != "pending" {
			t.Errorf("Got %v expected pending", p.Value)
		}

		// a staged delete is observed by later reads too
		if err = txn.Remove(id); err != nil {
			return err
		}
		if _, err = txn.Read(id); errors.Cause(err) != ErrCellNotFound {
			t.Errorf("Got %v expected %v", err, ErrCellNotFound)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	if _, err = s.ReadCell(id); errors.Cause(err) != ErrCellNotFound {
		t.Errorf("Got %v expected %v", err, ErrCellNotFound)
	}
}

func TestTxnSnapshotIsolation(t *testing.T) {
	s := newTestStore(t)
	id := EncodeKey(7, []byte("alpha"))
	if _, err := s.WriteCell(mustCell(t, id, 7, "before")); err != nil {
		t.Fatalf("write: %v", err)
	}

	attempts := 0
	err := s.Transaction(func(txn *Txn) error {
		attempts++
		c, err := txn.Read(id)
		if err != nil {
			return err
		}
		var p payload
		if err = c.Unmarshal(&p); err != nil {
			return err
		}
		if attempts == 1 {
			if p.Value != "before" {
				t.Errorf("Got %v expected before", p.Value)
			}
			// interleave an external write so commit validation fails
			if _, err = s.WriteCell(mustCell(t, id, 7, "interleaved")); err != nil {
				return err
			}
		}
		return txn.Write(mustCell(t, id, 7, "after"))
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Got %d attempts expected 2", attempts)
	}

	c, err := s.ReadCell(id)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var p payload
	if err = c.Unmarshal(&p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Value != "after" {
		t.Errorf("Got %v expected after", p.Value)
	}
	// two external commits happened before the retried txn's own
	if c.Version != 3 {
		t.Errorf("Got version %d expected 3", c.Version)
	}
}

func TestTxnValidatesAbsence(t *testing.T) {
	s := newTestStore(t)
	id := EncodeKey(7, []byte("alpha"))

	attempts := 0
	err := s.Transaction(func(txn *Txn) error {
		attempts++
		_, err := txn.Read(id)
		if attempts == 1 {
			if errors.Cause(err) != ErrCellNotFound {
				t.Fatalf("Got %v expected %v", err, ErrCellNotFound)
			}
			// the cell appearing after the absence read must conflict
			if _, err = s.WriteCell(mustCell(t, id, 7, "sneaky")); err != nil {
				return err
			}
			return txn.Write(mustCell(t, id, 7, "mine"))
		}
		// the retry sees the interleaved cell and backs off
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Got %d attempts expected 2", attempts)
	}
}

func TestTxnDomainErrorNotRetried(t *testing.T) {
	s := newTestStore(t)
	boom := errors.New("boom")

	attempts := 0
	err := s.Transaction(func(txn *Txn) error {
		attempts++
		return boom
	})
	if errors.Cause(err) != boom {
		t.Errorf("Got %v expected %v", err, boom)
	}
	if attempts != 1 {
		t.Errorf("Got %d attempts expected 1", attempts)
	}
}

func TestTxnRemoveValidatesExistence(t *testing.T) {
	s := newTestStore(t)
	id := EncodeKey(7, []byte("missing"))

	err := s.Transaction(func(txn *Txn) error {
		return txn.Remove(id)
	})
	if errors.Cause(err) != ErrCellNotFound {
		t.Errorf("Got %v expected %v", err, ErrCellNotFound)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(errors.Wrap(ErrTxnConflict, "cell x")) {
		t.Errorf("Got false expected wrapped conflict to be retryable")
	}
	if IsRetryable(ErrCellNotFound) {
		t.Errorf("Got true expected not-found to be terminal")
	}
	if IsRetryable(nil) {
		t.Errorf("Got true expected nil to be terminal")
	}
}

func TestIdCodec(t *testing.T) {
	a := EncodeKey(9, []byte("key"))
	b := EncodeKey(9, []byte("key"))
	if a != b {
		t.Errorf("Got %v and %v expected deterministic encoding", a, b)
	}
	if a == EncodeKey(10, []byte("key")) {
		t.Errorf("Got identical ids across schemas expected distinct")
	}
	if a.High != 9 {
		t.Errorf("Got high %d expected schema id 9", a.High)
	}

	if !UnitId.IsUnit() || a.IsUnit() {
		t.Errorf("Got wrong unit classification for %v", a)
	}

	data, err := a.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) != 34 {
		t.Fatalf("Got %d bytes expected 34", len(data))
	}
	var back Id
	if err = back.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != a {
		t.Errorf("Got %v expected %v", back, a)
	}
	if err = back.UnmarshalJSON([]byte(`"short"`)); errors.Cause(err) != ErrBadCellData {
		t.Errorf("Got %v expected %v", err, ErrBadCellData)
	}
}

func TestNewIdUnique(t *testing.T) {
	seen := make(map[Id]bool)
	for i := 0; i < 1000; i++ {
		id := NewId(5)
		if id.High != 5 {
			t.Fatalf("Got high %d expected 5", id.High)
		}
		if seen[id] {
			t.Fatalf("Got duplicate id %v", id)
		}
		seen[id] = true
	}
}

func TestCellRecordCodec(t *testing.T) {
	id := EncodeKey(3, []byte("payload"))
	c := mustCell(t, id, 3, "hello")
	c.Version = 42

	rec := encodeCellRecord(c)
	if recordVersion(rec) != 42 {
		t.Errorf("Got %d expected 42", recordVersion(rec))
	}
	if recordVersion(nil) != 0 {
		t.Errorf("Got %d expected 0 for absent record", recordVersion(nil))
	}

	back, err := decodeCellRecord(id, rec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Version != 42 || back.SchemaID != 3 {
		t.Errorf("Got %d/%d expected 42/3", back.Version, back.SchemaID)
	}
	var p payload
	if err = back.Unmarshal(&p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Value != "hello" {
		t.Errorf("Got %v expected hello", p.Value)
	}

	if _, err = decodeCellRecord(id, []byte{1, 2, 3}); errors.Cause(err) != ErrBadCellData {
		t.Errorf("Got %v expected %v", err, ErrBadCellData)
	}
}
