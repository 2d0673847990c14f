// Package graph implements a transactional property graph over a
// versioned cell store: schema-classified vertices and edges, plus the
// chained adjacency lists that make single-hop neighbourhood queries
// possible without scans.
package graph

import (
	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/proto"
	"github.com/tiglabs/cellgraph/schema"
	"github.com/tiglabs/cellgraph/store"
	"github.com/tiglabs/cellgraph/util/log"
)

// Bootstrap registers the two reserved adjacency-list schemas with the
// catalog. It is idempotent and must run once at startup, before any
// Graph is constructed; it is deliberately not part of construction so
// opening many Graph handles stays side-effect free.
func Bootstrap(schemas *schema.Container) error {
	if err := schemas.Bootstrap(idListSchema()); err != nil {
		return errors.Wrap(err, "bootstrap id list schema")
	}
	if err := schemas.Bootstrap(typeListSchema()); err != nil {
		return errors.Wrap(err, "bootstrap type list schema")
	}
	log.Info("graph list schemas bootstrapped")
	return nil
}

// Graph is the facade over one cell store client and one schema
// container. It is safe for concurrent use.
type Graph struct {
	client  store.Client
	schemas *schema.Container
}

// NewGraph opens a graph over the client. The catalog must already have
// been bootstrapped; construction fails otherwise rather than mutating
// the catalog as a side effect.
func NewGraph(client store.Client, schemas *schema.Container) (*Graph, error) {
	for _, id := range []proto.SchemaID{SchemaIdList, SchemaTypeList} {
		kind, _, err := schemas.SchemaType(id)
		if err != nil || kind != schema.KindList {
			return nil, errors.Wrapf(ErrNotInitialized, "reserved schema %d", id)
		}
	}
	return &Graph{
		client:  client,
		schemas: schemas,
	}, nil
}

// DefineVertexSchema registers a user schema classified as a vertex
// schema.
func (g *Graph) DefineVertexSchema(s *schema.GraphSchema) error {
	s.Kind = schema.KindVertex
	s.Edge = nil
	return g.schemas.Register(s)
}

// DefineEdgeSchema registers a user schema classified as an edge schema
// with the given attributes.
func (g *Graph) DefineEdgeSchema(s *schema.GraphSchema, attrs schema.EdgeAttributes) error {
	s.Kind = schema.KindEdge
	s.Edge = &attrs
	return g.schemas.Register(s)
}

// Schema resolves a schema id to its full descriptor.
func (g *Graph) Schema(id proto.SchemaID) (*schema.GraphSchema, error) {
	return g.schemas.GetSchema(id)
}

// Transaction opens one store transaction, binds a GraphTransaction to
// it and invokes fn. The store's engine owns retry-on-conflict: fn MAY
// run more than once and must be free of non-idempotent external side
// effects. Domain errors returned by fn are terminal and never retried.
func (g *Graph) Transaction(fn func(*GraphTransaction) error) error {
	return g.client.Transaction(func(txn *store.Txn) error {
		return fn(&GraphTransaction{txn: txn, schemas: g.schemas})
	})
}

// Non-transactional single-vertex conveniences. Creation and removal
// still run through one transaction internally (create-if-absent needs
// the read validated at commit); plain reads go straight to the store.

// NewVertex creates a vertex identified by (schema, key).
func (g *Graph) NewVertex(schemaID proto.SchemaID, key proto.Key, data map[string]interface{}) (*Vertex, error) {
	var v *Vertex
	err := g.Transaction(func(t *GraphTransaction) error {
		var err error
		v, err = t.NewVertex(schemaID, key, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ReadVertex loads a vertex by cell id. A missing vertex is reported as
// ErrVertexNotFound, distinct from storage failures.
func (g *Graph) ReadVertex(id store.Id) (*Vertex, error) {
	c, err := g.client.ReadCell(id)
	if err != nil {
		if errors.Cause(err) == store.ErrCellNotFound {
			return nil, errors.Wrapf(ErrVertexNotFound, "vertex %v", id)
		}
		return nil, err
	}
	return cellToVertex(c)
}

// GetVertex loads a vertex by (schema, key).
func (g *Graph) GetVertex(schemaID proto.SchemaID, key proto.Key) (*Vertex, error) {
	return g.ReadVertex(store.EncodeKey(schemaID, key))
}

// UpdateVertex applies the read-modify-write closure inside its own
// transaction. See GraphTransaction.UpdateVertex for the closure
// contract.
func (g *Graph) UpdateVertex(id store.Id, update func(*Vertex) *Vertex) error {
	return g.Transaction(func(t *GraphTransaction) error {
		return t.UpdateVertex(id, update)
	})
}

// UpdateVertexByKey is UpdateVertex addressed by (schema, key).
func (g *Graph) UpdateVertexByKey(schemaID proto.SchemaID, key proto.Key, update func(*Vertex) *Vertex) error {
	return g.UpdateVertex(store.EncodeKey(schemaID, key), update)
}

// RemoveVertex removes a vertex by cell id.
func (g *Graph) RemoveVertex(id store.Id) error {
	return g.Transaction(func(t *GraphTransaction) error {
		return t.RemoveVertex(id)
	})
}

// RemoveVertexByKey removes a vertex by (schema, key).
func (g *Graph) RemoveVertexByKey(schemaID proto.SchemaID, key proto.Key) error {
	return g.RemoveVertex(store.EncodeKey(schemaID, key))
}

// Link relates two vertices inside one transaction.
func (g *Graph) Link(schemaID proto.SchemaID, fromId, toId store.Id, body map[string]interface{}) (*Edge, error) {
	var edge *Edge
	err := g.Transaction(func(t *GraphTransaction) error {
		var err error
		edge, err = t.Link(schemaID, fromId, toId, body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}

// Unlink removes the edge between two vertices inside one transaction.
func (g *Graph) Unlink(schemaID proto.SchemaID, fromId, toId store.Id) error {
	return g.Transaction(func(t *GraphTransaction) error {
		return t.Unlink(schemaID, fromId, toId)
	})
}

// Neighbourhoods lists one vertex's edges of one schema in one
// direction inside a read-only transaction.
func (g *Graph) Neighbourhoods(vertexId store.Id, schemaID proto.SchemaID, dir Direction) ([]*Edge, error) {
	var edges []*Edge
	err := g.Transaction(func(t *GraphTransaction) error {
		var err error
		edges, err = t.Neighbourhoods(vertexId, schemaID, dir)
		return err
	})
	if err != nil {
		return nil, err
	}
	return edges, nil
}
