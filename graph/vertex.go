package graph

import (
	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/proto"
	"github.com/tiglabs/cellgraph/schema"
	"github.com/tiglabs/cellgraph/store"
)

// Vertex is the in-memory projection of one vertex cell. Data holds the
// user fields only; the adjacency handles live beside it and are never
// part of the user-visible map.
type Vertex struct {
	Id       store.Id
	SchemaID proto.SchemaID
	Data     map[string]interface{}

	adj adjacency
}

// newVertex builds an unsaved vertex with null adjacency handles.
func newVertex(id store.Id, schemaID proto.SchemaID, data map[string]interface{}) *Vertex {
	return &Vertex{
		Id:       id,
		SchemaID: schemaID,
		Data:     data,
	}
}

// adjHandle returns the handle of the given direction's type list.
func (v *Vertex) adjHandle(dir Direction) store.Id {
	switch dir {
	case Inbound:
		return v.adj.Inbound
	case Outbound:
		return v.adj.Outbound
	default:
		return v.adj.Undirected
	}
}

func (v *Vertex) setAdjHandle(dir Direction, id store.Id) {
	switch dir {
	case Inbound:
		v.adj.Inbound = id
	case Outbound:
		v.adj.Outbound = id
	default:
		v.adj.Undirected = id
	}
}

// cellToVertex reconstructs a vertex from its stored cell, splitting the
// adjacency handles out of the envelope.
func cellToVertex(c *store.Cell) (*Vertex, error) {
	env := new(vertexEnvelope)
	if err := c.Unmarshal(env); err != nil {
		return nil, err
	}
	v := newVertex(c.Id, c.SchemaID, env.Data)
	v.adj = env.Adj
	return v, nil
}

// toCell packs the vertex back into its persisted envelope.
func (v *Vertex) toCell() (*store.Cell, error) {
	return store.NewCell(v.Id, v.SchemaID, &vertexEnvelope{
		Data: v.Data,
		Adj:  v.adj,
	})
}

// vertexForWrite validates schema and data before a vertex is first
// persisted; no adjacency list exists yet at this point.
func vertexForWrite(schemas *schema.Container, schemaID proto.SchemaID, id store.Id, data map[string]interface{}) (*Vertex, error) {
	s, err := schemas.GetSchema(schemaID)
	if err != nil {
		return nil, err
	}
	if s.Kind != schema.KindVertex {
		return nil, errors.Wrapf(ErrSchemaNotVertex, "schema %d[%v]", s.ID, s.Name)
	}
	if data == nil {
		return nil, errors.Wrapf(ErrDataNotMap, "schema %d", schemaID)
	}
	if err = s.ConformData(data); err != nil {
		return nil, err
	}
	return newVertex(id, schemaID, data), nil
}

// txnReadVertex loads a vertex inside the transaction snapshot.
func txnReadVertex(txn *store.Txn, id store.Id) (*Vertex, error) {
	c, err := txn.Read(id)
	if err != nil {
		if errors.Cause(err) == store.ErrCellNotFound {
			return nil, errors.Wrapf(ErrVertexNotFound, "vertex %v", id)
		}
		return nil, err
	}
	return cellToVertex(c)
}

// txnUpdateVertex runs a read-modify-write closure against the vertex.
// The closure returning nil is an intentional no-op commit, not an
// error. The closure may run more than once on conflict and must not
// capture state that is unsafe to recompute.
func txnUpdateVertex(txn *store.Txn, id store.Id, update func(*Vertex) *Vertex) error {
	v, err := txnReadVertex(txn, id)
	if err != nil {
		return err
	}
	adj := v.adj
	replacement := update(v)
	if replacement == nil {
		return nil
	}
	// the closure only ever sees and returns user data; adjacency
	// handles are carried over untouched
	replacement.Id = id
	replacement.SchemaID = v.SchemaID
	replacement.adj = adj
	c, err := replacement.toCell()
	if err != nil {
		return err
	}
	return txn.Write(c)
}

// txnRemoveVertex deletes the vertex cell after validating existence.
// Removal is rejected while any adjacency list still has members; empty
// adjacency plumbing cells are reclaimed along with the vertex.
func txnRemoveVertex(txn *store.Txn, schemas *schema.Container, id store.Id) error {
	v, err := txnReadVertex(txn, id)
	if err != nil {
		return err
	}

	for _, dir := range []Direction{Inbound, Outbound, Undirected} {
		handle := v.adjHandle(dir)
		if handle.IsUnit() {
			continue
		}
		tlCell, err := txn.Read(handle)
		if err != nil {
			if errors.Cause(err) == store.ErrCellNotFound {
				return errors.Wrapf(ErrListCorrupted, "vertex %v %v type list missing", id, dir)
			}
			return err
		}
		tl := new(typeList)
		if err = tlCell.Unmarshal(tl); err != nil {
			return err
		}

		for i, schemaID := range tl.Schemas {
			list := openIdList(txn, v, dir, schemaID)
			members, err := list.all()
			if err != nil {
				return err
			}
			if len(members) != 0 {
				return errors.Wrapf(ErrVertexHasEdges, "vertex %v has %d %v edge(s) of schema %d",
					id, len(members), dir, schemaID)
			}
			if err = list.dropSegments(tl.Heads[i]); err != nil {
				return err
			}
		}
		if err = txn.Remove(handle); err != nil {
			return err
		}
	}

	return txn.Remove(id)
}
