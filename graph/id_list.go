package graph

import (
	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/proto"
	"github.com/tiglabs/cellgraph/store"
)

// idList is a handle on the chained member list for one (owner vertex,
// direction, edge schema) key, bound to one transaction. Every read goes
// through the transaction snapshot, so one call always sees one
// consistent view of the whole chain.
type idList struct {
	txn      *store.Txn
	owner    *Vertex
	dir      Direction
	schemaID proto.SchemaID
}

func openIdList(txn *store.Txn, owner *Vertex, dir Direction, schemaID proto.SchemaID) *idList {
	return &idList{
		txn:      txn,
		owner:    owner,
		dir:      dir,
		schemaID: schemaID,
	}
}

// readSegment loads one segment cell; a dangling chain pointer is
// corruption, not a not-found.
func (l *idList) readSegment(id store.Id) (*idListSegment, error) {
	c, err := l.txn.Read(id)
	if err != nil {
		if errors.Cause(err) == store.ErrCellNotFound {
			return nil, errors.Wrapf(ErrListCorrupted, "segment %v of list (%v,%v,%d) missing",
				id, l.owner.Id, l.dir, l.schemaID)
		}
		return nil, err
	}
	seg := new(idListSegment)
	if err = c.Unmarshal(seg); err != nil {
		return nil, err
	}
	return seg, nil
}

func (l *idList) writeSegment(id store.Id, seg *idListSegment) error {
	c, err := store.NewCell(id, SchemaIdList, seg)
	if err != nil {
		return err
	}
	return l.txn.Write(c)
}

// headId resolves the head segment id through the owner's type list,
// without materializing anything. The second return reports whether a
// list exists for this schema at all.
func (l *idList) headId() (store.Id, bool, error) {
	handle := l.owner.adjHandle(l.dir)
	if handle.IsUnit() {
		return store.UnitId, false, nil
	}
	tlCell, err := l.txn.Read(handle)
	if err != nil {
		if errors.Cause(err) == store.ErrCellNotFound {
			return store.UnitId, false, errors.Wrapf(ErrListCorrupted,
				"type list %v of vertex %v missing", handle, l.owner.Id)
		}
		return store.UnitId, false, err
	}
	tl := new(typeList)
	if err = tlCell.Unmarshal(tl); err != nil {
		return store.UnitId, false, err
	}
	head, ok := tl.find(l.schemaID)
	return head, ok, nil
}

// all walks the segment chain and returns every member in append order.
// A list that was never materialized is empty, not an error.
func (l *idList) all() ([]store.Id, error) {
	head, ok, err := l.headId()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var members []store.Id
	next := head
	for !next.IsUnit() {
		seg, err := l.readSegment(next)
		if err != nil {
			return nil, err
		}
		members = append(members, seg.Ids...)
		next = seg.Next
	}
	return members, nil
}

// materialize makes sure the type list and this schema's head segment
// exist, creating them lazily inside the transaction, and returns the
// head id.
func (l *idList) materialize() (store.Id, error) {
	handle := l.owner.adjHandle(l.dir)
	head := listHeadId(l.owner.Id, l.dir, l.schemaID)

	if handle.IsUnit() {
		// first link on this (vertex, direction): create the type
		// list and point the vertex's hidden handle at it
		handle = typeListId(l.owner.Id, l.dir)
		tlCell, err := store.NewCell(handle, SchemaTypeList, &typeList{
			Schemas: []proto.SchemaID{l.schemaID},
			Heads:   []store.Id{head},
		})
		if err != nil {
			return store.UnitId, err
		}
		if err = l.txn.Write(tlCell); err != nil {
			return store.UnitId, err
		}

		l.owner.setAdjHandle(l.dir, handle)
		ownerCell, err := l.owner.toCell()
		if err != nil {
			return store.UnitId, err
		}
		if err = l.txn.Write(ownerCell); err != nil {
			return store.UnitId, err
		}
		return head, l.writeSegment(head, &idListSegment{})
	}

	tlCell, err := l.txn.Read(handle)
	if err != nil {
		if errors.Cause(err) == store.ErrCellNotFound {
			return store.UnitId, errors.Wrapf(ErrListCorrupted,
				"type list %v of vertex %v missing", handle, l.owner.Id)
		}
		return store.UnitId, err
	}
	tl := new(typeList)
	if err = tlCell.Unmarshal(tl); err != nil {
		return store.UnitId, err
	}
	if existing, ok := tl.find(l.schemaID); ok {
		return existing, nil
	}

	// first link of this edge schema: register a fresh head
	tl.Schemas = append(tl.Schemas, l.schemaID)
	tl.Heads = append(tl.Heads, head)
	newTlCell, err := store.NewCell(handle, SchemaTypeList, tl)
	if err != nil {
		return store.UnitId, err
	}
	if err = l.txn.Write(newTlCell); err != nil {
		return store.UnitId, err
	}
	return head, l.writeSegment(head, &idListSegment{})
}

// append adds the member id at the tail of the chain, allocating and
// linking a successor segment when the tail is at capacity.
func (l *idList) append(member store.Id) error {
	tailId, err := l.materialize()
	if err != nil {
		return err
	}

	tail, err := l.readSegment(tailId)
	if err != nil {
		return err
	}
	for !tail.Next.IsUnit() {
		tailId = tail.Next
		if tail, err = l.readSegment(tailId); err != nil {
			return err
		}
	}

	if len(tail.Ids) >= idListSegmentCapacity {
		succId := store.NewId(SchemaIdList)
		if err = l.writeSegment(succId, &idListSegment{Ids: []store.Id{member}}); err != nil {
			return err
		}
		tail.Next = succId
		return l.writeSegment(tailId, tail)
	}

	tail.Ids = append(tail.Ids, member)
	return l.writeSegment(tailId, tail)
}

// remove deletes the first occurrence of the member id, leaving the
// rest of the chain untouched. Emptied segments are not reclaimed.
func (l *idList) remove(member store.Id) error {
	head, ok, err := l.headId()
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(ErrIdNotFoundInList, "id %v in list (%v,%v,%d)",
			member, l.owner.Id, l.dir, l.schemaID)
	}

	segId := head
	for !segId.IsUnit() {
		seg, err := l.readSegment(segId)
		if err != nil {
			return err
		}
		for i, id := range seg.Ids {
			if id == member {
				seg.Ids = append(seg.Ids[:i], seg.Ids[i+1:]...)
				return l.writeSegment(segId, seg)
			}
		}
		segId = seg.Next
	}
	return errors.Wrapf(ErrIdNotFoundInList, "id %v in list (%v,%v,%d)",
		member, l.owner.Id, l.dir, l.schemaID)
}

// dropSegments removes every segment cell of an empty chain; only used
// by vertex removal once the list is known to have no members.
func (l *idList) dropSegments(head store.Id) error {
	segId := head
	for !segId.IsUnit() {
		seg, err := l.readSegment(segId)
		if err != nil {
			return err
		}
		if err = l.txn.Remove(segId); err != nil {
			return err
		}
		segId = seg.Next
	}
	return nil
}
