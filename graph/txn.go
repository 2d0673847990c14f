package graph

import (
	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/proto"
	"github.com/tiglabs/cellgraph/schema"
	"github.com/tiglabs/cellgraph/store"
)

// GraphTransaction binds one active store transaction to the schema
// container. Its lifetime is scoped to exactly one invocation of the
// transactional closure; every method is a schema-validated composition
// over vertex, edge and id-list primitives against that transaction.
type GraphTransaction struct {
	txn     *store.Txn
	schemas *schema.Container
}

// NewVertex creates a vertex identified by (schema, key). It fails with
// ErrVertexExists when the identity is already taken; the existence read
// joins the transaction's read set, so a concurrent creation of the same
// identity conflicts at commit instead of silently overwriting.
func (t *GraphTransaction) NewVertex(schemaID proto.SchemaID, key proto.Key, data map[string]interface{}) (*Vertex, error) {
	id := store.EncodeKey(schemaID, key)
	v, err := vertexForWrite(t.schemas, schemaID, id, data)
	if err != nil {
		return nil, err
	}

	// only a verified absence may proceed to the write; an unreadable
	// existing record must surface, never be clobbered
	if _, err = t.txn.Read(id); err == nil {
		return nil, ErrVertexExists
	} else if errors.Cause(err) != store.ErrCellNotFound {
		return nil, err
	}

	c, err := v.toCell()
	if err != nil {
		return nil, err
	}
	if err = t.txn.Write(c); err != nil {
		return nil, err
	}
	return v, nil
}

// ReadVertex loads a vertex by cell id within the transaction snapshot.
func (t *GraphTransaction) ReadVertex(id store.Id) (*Vertex, error) {
	return txnReadVertex(t.txn, id)
}

// GetVertex loads a vertex by (schema, key).
func (t *GraphTransaction) GetVertex(schemaID proto.SchemaID, key proto.Key) (*Vertex, error) {
	return txnReadVertex(t.txn, store.EncodeKey(schemaID, key))
}

// UpdateVertex applies a read-modify-write closure to the vertex. The
// closure returning nil commits as an intentional no-op. Because the
// enclosing transaction may re-run, the closure must only capture state
// that is safe to recompute.
func (t *GraphTransaction) UpdateVertex(id store.Id, update func(*Vertex) *Vertex) error {
	return txnUpdateVertex(t.txn, id, update)
}

// UpdateVertexByKey is UpdateVertex addressed by (schema, key).
func (t *GraphTransaction) UpdateVertexByKey(schemaID proto.SchemaID, key proto.Key, update func(*Vertex) *Vertex) error {
	return txnUpdateVertex(t.txn, store.EncodeKey(schemaID, key), update)
}

// RemoveVertex deletes the vertex after validating existence. Removal is
// rejected with ErrVertexHasEdges while any adjacency list still has a
// member, so no dangling adjacency entry can be left behind.
func (t *GraphTransaction) RemoveVertex(id store.Id) error {
	return txnRemoveVertex(t.txn, t.schemas, id)
}

// RemoveVertexByKey is RemoveVertex addressed by (schema, key).
func (t *GraphTransaction) RemoveVertexByKey(schemaID proto.SchemaID, key proto.Key) error {
	return txnRemoveVertex(t.txn, t.schemas, store.EncodeKey(schemaID, key))
}

// Link relates the two vertices through the given edge schema. The body
// must be present exactly when the schema's attributes require one;
// violations are rejected before any storage interaction.
func (t *GraphTransaction) Link(schemaID proto.SchemaID, fromId, toId store.Id, body map[string]interface{}) (*Edge, error) {
	return txnLink(t.txn, t.schemas, schemaID, fromId, toId, body)
}

// Unlink removes the edge between the two vertices, including its body
// cell when the schema carries one.
func (t *GraphTransaction) Unlink(schemaID proto.SchemaID, fromId, toId store.Id) error {
	return txnUnlink(t.txn, t.schemas, schemaID, fromId, toId)
}

// Neighbourhoods lists the vertex's edges of one schema in one
// direction, resolving every member to a fully-typed edge. The first
// resolution failure aborts the whole call instead of returning a
// partial list.
func (t *GraphTransaction) Neighbourhoods(vertexId store.Id, schemaID proto.SchemaID, dir Direction) ([]*Edge, error) {
	return txnNeighbourhoods(t.txn, t.schemas, vertexId, schemaID, dir)
}
