package store

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/kernel/store/kvstore"
	"github.com/tiglabs/cellgraph/metrics"
	"github.com/tiglabs/cellgraph/util"
	"github.com/tiglabs/cellgraph/util/log"
)

// localStore is a Client over one kvstore engine with optimistic
// concurrency: transactions read a pinned snapshot, and commit validates
// every observed version under the commit mutex before applying writes.
type localStore struct {
	engine kvstore.KVStore
	retry  util.RetryOption

	// commitMu serializes commit validation and version bumps.
	commitMu sync.Mutex
	closed   bool
}

var _ Client = &localStore{}

// NewLocal opens a cell store client over the given engine.
func NewLocal(engine kvstore.KVStore) Client {
	return &localStore{
		engine: engine,
		retry:  util.DefaultRetryOption,
	}
}

// NewLocalWithRetries opens a client whose transactions re-run at most
// maxRetries times on conflict before aborting.
func NewLocalWithRetries(engine kvstore.KVStore, maxRetries int) Client {
	s := &localStore{
		engine: engine,
		retry:  util.DefaultRetryOption,
	}
	if maxRetries > 0 {
		s.retry.MaxRetries = maxRetries
	}
	return s
}

func (s *localStore) ReadCell(id Id) (*Cell, error) {
	rec, err := s.engine.Get(id.Bytes())
	if err != nil {
		return nil, errors.Wrapf(err, "read cell %v", id)
	}
	metrics.CellReads.Inc()
	if rec == nil {
		return nil, errors.Wrapf(ErrCellNotFound, "cell %v", id)
	}
	return decodeCellRecord(id, rec)
}

func (s *localStore) WriteCell(c *Cell) (uint64, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}

	cur, err := s.engine.Get(c.Id.Bytes())
	if err != nil {
		return 0, errors.Wrapf(err, "write cell %v", c.Id)
	}
	c.Version = recordVersion(cur) + 1
	if err = s.engine.Put(c.Id.Bytes(), encodeCellRecord(c)); err != nil {
		return 0, errors.Wrapf(err, "write cell %v", c.Id)
	}
	metrics.CellWrites.Inc()
	return c.Version, nil
}

func (s *localStore) RemoveCell(id Id) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	cur, err := s.engine.Get(id.Bytes())
	if err != nil {
		return errors.Wrapf(err, "remove cell %v", id)
	}
	if cur == nil {
		return errors.Wrapf(ErrCellNotFound, "cell %v", id)
	}
	return s.engine.Delete(id.Bytes())
}

// Transaction runs fn against a fresh snapshot, committing its buffered
// writes atomically. On commit conflict the whole closure is re-run with
// backoff; any other error from fn is terminal and returned as-is.
func (s *localStore) Transaction(fn func(txn *Txn) error) error {
	metrics.TxnTotal.Inc()

	retry := util.NewRetry(&util.RetryOption{
		MaxRetries:  s.retry.MaxRetries,
		InitBackoff: s.retry.InitBackoff,
		MaxBackoff:  s.retry.MaxBackoff,
	})
	for ok, n := retry.Next(); ok; ok, n = retry.Next() {
		txn, err := s.begin()
		if err != nil {
			return err
		}

		err = fn(txn)
		if err != nil {
			txn.discard()
			if IsRetryable(err) {
				metrics.TxnRetries.Inc()
				continue
			}
			return err
		}

		err = s.commit(txn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		metrics.TxnConflicts.Inc()
		if log.IsEnabledDebug() {
			log.Debug("txn conflicted at commit, attempt[%d]", n)
		}
	}
	return ErrTxnAborted
}

func (s *localStore) begin() (*Txn, error) {
	snap, err := s.engine.GetSnapshot()
	if err != nil {
		return nil, errors.Wrap(err, "begin txn")
	}
	return &Txn{
		store:  s,
		snap:   snap,
		reads:  make(map[Id]uint64),
		writes: make(map[Id]int),
	}, nil
}

func (s *localStore) commit(txn *Txn) error {
	defer txn.discard()

	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	// Validate every observed version against the live engine state.
	for id, version := range txn.reads {
		rec, err := s.engine.Get(id.Bytes())
		if err != nil {
			return errors.Wrapf(err, "validate cell %v", id)
		}
		if recordVersion(rec) != version {
			return errors.Wrapf(ErrTxnConflict, "cell %v", id)
		}
	}

	for _, op := range txn.order {
		if op.delete {
			if err := s.engine.Delete(op.id.Bytes()); err != nil {
				return errors.Wrapf(err, "apply delete %v", op.id)
			}
			continue
		}
		cur, err := s.engine.Get(op.id.Bytes())
		if err != nil {
			return errors.Wrapf(err, "apply write %v", op.id)
		}
		op.cell.Version = recordVersion(cur) + 1
		if err = s.engine.Put(op.id.Bytes(), encodeCellRecord(op.cell)); err != nil {
			return errors.Wrapf(err, "apply write %v", op.id)
		}
		metrics.CellWrites.Inc()
	}
	return nil
}

func (s *localStore) Close() error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.engine.Close()
}
