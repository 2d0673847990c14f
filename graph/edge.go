package graph

import (
	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/metrics"
	"github.com/tiglabs/cellgraph/proto"
	"github.com/tiglabs/cellgraph/schema"
	"github.com/tiglabs/cellgraph/store"
)

// Edge is a relationship between two vertices. Body is nil for
// body-less schemas; CellId is the id of the backing data cell and the
// unit id when the edge has none.
type Edge struct {
	SchemaID proto.SchemaID
	Type     schema.EdgeType
	From     store.Id
	To       store.Id
	Body     map[string]interface{}
	CellId   store.Id
}

// resolveEdgeSchema resolves the schema id and rejects anything that is
// not an edge schema.
func resolveEdgeSchema(schemas *schema.Container, schemaID proto.SchemaID) (*schema.GraphSchema, error) {
	s, err := schemas.GetSchema(schemaID)
	if err != nil {
		return nil, err
	}
	if s.Kind != schema.KindEdge {
		return nil, errors.Wrapf(ErrSchemaNotEdge, "schema %d[%v]", s.ID, s.Name)
	}
	return s, nil
}

// checkBody enforces the body-presence invariant before any storage
// interaction happens.
func checkBody(s *schema.GraphSchema, body map[string]interface{}) error {
	if s.Edge.HasBody && body == nil {
		return errors.Wrapf(ErrBodyRequired, "schema %d[%v]", s.ID, s.Name)
	}
	if !s.Edge.HasBody && body != nil {
		return errors.Wrapf(ErrBodyShouldNotExisted, "schema %d[%v]", s.ID, s.Name)
	}
	return nil
}

// txnLink registers an edge between the two vertices inside the caller's
// transaction: the optional body cell write plus every list registration
// commit or abort together.
func txnLink(txn *store.Txn, schemas *schema.Container, schemaID proto.SchemaID,
	fromId, toId store.Id, body map[string]interface{}) (*Edge, error) {

	s, err := resolveEdgeSchema(schemas, schemaID)
	if err != nil {
		return nil, err
	}
	if err = checkBody(s, body); err != nil {
		return nil, err
	}

	from, err := txnReadVertex(txn, fromId)
	if err != nil {
		return nil, err
	}
	to := from
	if toId != fromId {
		if to, err = txnReadVertex(txn, toId); err != nil {
			return nil, err
		}
	}

	edge := &Edge{
		SchemaID: schemaID,
		Type:     s.Edge.Type,
		From:     fromId,
		To:       toId,
		Body:     body,
		CellId:   store.UnitId,
	}

	// body-less edges register the opposite endpoint id; bodied edges
	// register the body cell's id on both sides
	refAtFrom, refAtTo := toId, fromId
	if s.Edge.HasBody {
		edge.CellId = store.NewId(schemaID)
		bodyCell, err := store.NewCell(edge.CellId, schemaID, &edgeEnvelope{
			From: fromId,
			To:   toId,
			Data: body,
		})
		if err != nil {
			return nil, err
		}
		if err = txn.Write(bodyCell); err != nil {
			return nil, err
		}
		refAtFrom, refAtTo = edge.CellId, edge.CellId
	}

	if s.Edge.Type == schema.EdgeDirected {
		if err = openIdList(txn, from, Outbound, schemaID).append(refAtFrom); err != nil {
			return nil, err
		}
		if err = openIdList(txn, to, Inbound, schemaID).append(refAtTo); err != nil {
			return nil, err
		}
	} else {
		if err = openIdList(txn, from, Undirected, schemaID).append(refAtFrom); err != nil {
			return nil, err
		}
		// an undirected self loop has a single list; register once
		if fromId != toId {
			if err = openIdList(txn, to, Undirected, schemaID).append(refAtTo); err != nil {
				return nil, err
			}
		}
	}

	metrics.LinksTotal.Inc()
	return edge, nil
}

// resolveMember turns one adjacency list member into a fully-typed edge.
// Members are either the id of a bodied edge's data cell or, for
// body-less edges, the opposite endpoint's vertex id.
func resolveMember(txn *store.Txn, schemas *schema.Container, owner *Vertex,
	dir Direction, s *schema.GraphSchema, member store.Id) (*Edge, error) {

	c, err := txn.Read(member)
	if err != nil {
		if errors.Cause(err) == store.ErrCellNotFound {
			return nil, errors.Wrapf(ErrListCorrupted, "member %v of list (%v,%v,%d) missing",
				member, owner.Id, dir, s.ID)
		}
		return nil, err
	}

	if c.SchemaID == s.ID {
		env := new(edgeEnvelope)
		if err = c.Unmarshal(env); err != nil {
			return nil, err
		}
		return &Edge{
			SchemaID: s.ID,
			Type:     s.Edge.Type,
			From:     env.From,
			To:       env.To,
			Body:     env.Data,
			CellId:   member,
		}, nil
	}

	kind, _, err := schemas.SchemaType(c.SchemaID)
	if err != nil {
		return nil, err
	}
	if kind != schema.KindVertex {
		return nil, errors.Wrapf(ErrListCorrupted, "member %v of list (%v,%v,%d) is neither edge nor vertex",
			member, owner.Id, dir, s.ID)
	}

	edge := &Edge{
		SchemaID: s.ID,
		Type:     s.Edge.Type,
		From:     owner.Id,
		To:       member,
		CellId:   store.UnitId,
	}
	if dir == Inbound {
		edge.From, edge.To = member, owner.Id
	}
	return edge, nil
}

// txnNeighbourhoods lists every edge of the given schema in the given
// direction. Resolution is fail-fast: the first member that cannot be
// resolved aborts the whole call rather than returning a partial list.
func txnNeighbourhoods(txn *store.Txn, schemas *schema.Container,
	vertexId store.Id, schemaID proto.SchemaID, dir Direction) ([]*Edge, error) {

	s, err := resolveEdgeSchema(schemas, schemaID)
	if err != nil {
		return nil, err
	}
	v, err := txnReadVertex(txn, vertexId)
	if err != nil {
		return nil, err
	}

	members, err := openIdList(txn, v, dir, schemaID).all()
	if err != nil {
		return nil, err
	}

	edges := make([]*Edge, 0, len(members))
	for _, member := range members {
		edge, err := resolveMember(txn, schemas, v, dir, s, member)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// txnUnlink removes the edge between the two vertices: both list
// registrations and, for bodied edges, the data cell itself.
func txnUnlink(txn *store.Txn, schemas *schema.Container, schemaID proto.SchemaID,
	fromId, toId store.Id) error {

	s, err := resolveEdgeSchema(schemas, schemaID)
	if err != nil {
		return err
	}

	from, err := txnReadVertex(txn, fromId)
	if err != nil {
		return err
	}
	to := from
	if toId != fromId {
		if to, err = txnReadVertex(txn, toId); err != nil {
			return err
		}
	}

	dirAtFrom, dirAtTo := Outbound, Inbound
	if s.Edge.Type == schema.EdgeUndirected {
		dirAtFrom, dirAtTo = Undirected, Undirected
	}

	refAtFrom, refAtTo := toId, fromId
	if s.Edge.HasBody {
		edgeId, err := findEdgeCell(txn, from, dirAtFrom, s, toId)
		if err != nil {
			return err
		}
		if err = txn.Remove(edgeId); err != nil {
			return err
		}
		refAtFrom, refAtTo = edgeId, edgeId
	}

	if err = openIdList(txn, from, dirAtFrom, schemaID).remove(refAtFrom); err != nil {
		if errors.Cause(err) == ErrIdNotFoundInList {
			return errors.Wrapf(ErrEdgeNotFound, "%v -> %v schema %d", fromId, toId, schemaID)
		}
		return err
	}
	// an undirected self loop was registered once
	if fromId == toId && dirAtFrom == dirAtTo {
		return nil
	}
	if err = openIdList(txn, to, dirAtTo, schemaID).remove(refAtTo); err != nil {
		if errors.Cause(err) == ErrIdNotFoundInList {
			// half-registered edge: the two lists disagree
			return errors.Wrapf(ErrListCorrupted, "%v -> %v schema %d", fromId, toId, schemaID)
		}
		return err
	}
	return nil
}

// findEdgeCell scans the owner's list for the bodied edge whose envelope
// joins the two endpoints.
func findEdgeCell(txn *store.Txn, owner *Vertex, dir Direction,
	s *schema.GraphSchema, other store.Id) (store.Id, error) {

	members, err := openIdList(txn, owner, dir, s.ID).all()
	if err != nil {
		return store.UnitId, err
	}
	for _, member := range members {
		c, err := txn.Read(member)
		if err != nil {
			if errors.Cause(err) == store.ErrCellNotFound {
				return store.UnitId, errors.Wrapf(ErrListCorrupted,
					"member %v of list (%v,%v,%d) missing", member, owner.Id, dir, s.ID)
			}
			return store.UnitId, err
		}
		if c.SchemaID != s.ID {
			continue
		}
		env := new(edgeEnvelope)
		if err = c.Unmarshal(env); err != nil {
			return store.UnitId, err
		}
		if (env.From == owner.Id && env.To == other) ||
			(s.Edge.Type == schema.EdgeUndirected && env.From == other && env.To == owner.Id) {
			return member, nil
		}
	}
	return store.UnitId, errors.Wrapf(ErrEdgeNotFound, "%v -> %v schema %d", owner.Id, other, s.ID)
}
