package graph

import (
	"github.com/tiglabs/cellgraph/proto"
	"github.com/tiglabs/cellgraph/schema"
	"github.com/tiglabs/cellgraph/store"
)

// Reserved schema ids backing every adjacency list cell. They are
// bootstrapped once at startup (see Bootstrap) and never user-defined.
const (
	SchemaIdList   proto.SchemaID = 1 // generic chained list of ids
	SchemaTypeList proto.SchemaID = 2 // per (vertex, direction) list of per-edge-schema lists
)

// Direction selects which adjacency list an edge registers into.
type Direction int32

const (
	Inbound Direction = iota
	Outbound
	Undirected
)

func (d Direction) String() string {
	switch d {
	case Inbound:
		return "inbound"
	case Outbound:
		return "outbound"
	case Undirected:
		return "undirected"
	default:
		return "unknown"
	}
}

// idListSegmentCapacity is the fixed member budget of one list segment
// cell. Appends past it chain a successor segment transparently.
const idListSegmentCapacity = 128

// adjacency is the hidden part of a vertex cell: the head identifiers of
// the three per-direction type lists. Kept outside the user data map so
// no caller can ever observe or clobber them.
type adjacency struct {
	Inbound    store.Id `json:"in"`
	Outbound   store.Id `json:"out"`
	Undirected store.Id `json:"un"`
}

// vertexEnvelope is the persisted layout of a vertex cell.
type vertexEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Adj  adjacency              `json:"adj"`
}

// typeList is the persisted layout of a (vertex, direction) cell: which
// edge schemas have a list, and where each list's head segment lives.
type typeList struct {
	Schemas []proto.SchemaID `json:"schemas"`
	Heads   []store.Id       `json:"heads"`
}

func (tl *typeList) find(schemaID proto.SchemaID) (store.Id, bool) {
	for i, s := range tl.Schemas {
		if s == schemaID {
			return tl.Heads[i], true
		}
	}
	return store.UnitId, false
}

// idListSegment is the persisted layout of one list segment cell.
type idListSegment struct {
	Next store.Id   `json:"next"`
	Ids  []store.Id `json:"ids"`
}

// edgeEnvelope is the persisted layout of a bodied edge's data cell.
type edgeEnvelope struct {
	From store.Id               `json:"from"`
	To   store.Id               `json:"to"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// typeListId derives the deterministic id of the (owner, direction)
// type-list cell.
func typeListId(owner store.Id, dir Direction) store.Id {
	key := append(owner.Bytes(), byte(dir))
	return store.EncodeKey(SchemaTypeList, key)
}

// listHeadId derives the deterministic id of the head segment for
// (owner, direction, edge schema).
func listHeadId(owner store.Id, dir Direction, schemaID proto.SchemaID) store.Id {
	key := append(owner.Bytes(), byte(dir), byte(schemaID>>24), byte(schemaID>>16), byte(schemaID>>8), byte(schemaID))
	return store.EncodeKey(SchemaIdList, key)
}

// The two bootstrap descriptors. Field layouts are informational; list
// cells are only ever written by this package.
func idListSchema() *schema.GraphSchema {
	return &schema.GraphSchema{
		ID:   SchemaIdList,
		Name: "~cellgraph_id_list~",
		Kind: schema.KindList,
		Fields: []schema.Field{
			{Name: "next", Type: "id"},
			{Name: "ids", Type: "id_array"},
		},
	}
}

func typeListSchema() *schema.GraphSchema {
	return &schema.GraphSchema{
		ID:   SchemaTypeList,
		Name: "~cellgraph_type_id_list~",
		Kind: schema.KindList,
		Fields: []schema.Field{
			{Name: "schemas", Type: "u32_array"},
			{Name: "heads", Type: "id_array"},
		},
	}
}
