package store

import (
	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/kernel/store/kvstore"
	"github.com/tiglabs/cellgraph/metrics"
)

type txnOp struct {
	id     Id
	cell   *Cell // nil means delete
	delete bool
}

// Txn is one transaction attempt. All reads come from one engine
// snapshot; writes are buffered until commit. Read versions are tracked
// so commit can reject the transaction when any cell it observed moved
// underneath it — absence counts as version 0 and is validated too.
type Txn struct {
	store  *localStore
	snap   kvstore.Snapshot
	reads  map[Id]uint64
	writes map[Id]int // id -> index into order
	order  []txnOp
	done   bool
}

// Read returns the cell as of the transaction snapshot, observing the
// transaction's own pending writes first.
func (t *Txn) Read(id Id) (*Cell, error) {
	if t.done {
		return nil, ErrTxnClosed
	}
	if i, ok := t.writes[id]; ok {
		op := t.order[i]
		if op.delete {
			return nil, errors.Wrapf(ErrCellNotFound, "cell %v", id)
		}
		return op.cell, nil
	}

	rec, err := t.snap.Get(id.Bytes())
	if err != nil {
		return nil, errors.Wrapf(err, "txn read cell %v", id)
	}
	metrics.CellReads.Inc()
	if rec == nil {
		t.observe(id, 0)
		return nil, errors.Wrapf(ErrCellNotFound, "cell %v", id)
	}
	cell, err := decodeCellRecord(id, rec)
	if err != nil {
		return nil, err
	}
	t.observe(id, cell.Version)
	return cell, nil
}

// Write stages the cell for commit.
func (t *Txn) Write(c *Cell) error {
	if t.done {
		return ErrTxnClosed
	}
	t.stage(txnOp{id: c.Id, cell: c})
	return nil
}

// Remove stages deletion of the cell, validating it exists in this
// transaction's snapshot first.
func (t *Txn) Remove(id Id) error {
	if t.done {
		return ErrTxnClosed
	}
	if _, err := t.Read(id); err != nil {
		return err
	}
	t.stage(txnOp{id: id, delete: true})
	return nil
}

func (t *Txn) observe(id Id, version uint64) {
	if _, ok := t.reads[id]; !ok {
		t.reads[id] = version
	}
}

func (t *Txn) stage(op txnOp) {
	if i, ok := t.writes[op.id]; ok {
		t.order[i] = op
		return
	}
	t.writes[op.id] = len(t.order)
	t.order = append(t.order, op)
}

func (t *Txn) discard() {
	if t.done {
		return
	}
	t.done = true
	t.snap.Close()
}
