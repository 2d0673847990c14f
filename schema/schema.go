package schema

import (
	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/proto"
)

// schema error definitions
var (
	ErrSchemaExists   = errors.New("schema already exists")
	ErrSchemaNotFound = errors.New("schema not found")
	ErrInvalidSchema  = errors.New("invalid schema descriptor")
	ErrSchemaMismatch = errors.New("schema redefined with different descriptor")
)

// SchemaKind classifies what a schema's cells hold.
type SchemaKind int32

const (
	KindVertex SchemaKind = 1
	KindEdge   SchemaKind = 2
	// KindList marks the reserved adjacency-list schemas; cells of a
	// list schema are internal and never surface as graph entities.
	KindList SchemaKind = 3
)

// EdgeType fixes which adjacency lists a link registers into.
type EdgeType int32

const (
	EdgeDirected   EdgeType = 1
	EdgeUndirected EdgeType = 2
)

// EdgeAttributes is the schema-level descriptor of an edge schema.
type EdgeAttributes struct {
	Type    EdgeType `json:"type"`
	HasBody bool     `json:"has_body"`
}

// Field is one entry of a schema's layout. Only presence of
// non-nullable fields is enforced on write; values are free-form.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
}

// GraphSchema describes one vertex or edge schema. Descriptors are
// persisted in the catalog backend so every node sees the same
// classification and layout.
type GraphSchema struct {
	ID     proto.SchemaID  `json:"id"`
	Name   string          `json:"name"`
	Kind   SchemaKind      `json:"kind"`
	Edge   *EdgeAttributes `json:"edge,omitempty"`
	Fields []Field         `json:"fields,omitempty"`
}

func (s *GraphSchema) validate() error {
	if s == nil || s.ID == 0 {
		return errors.Wrap(ErrInvalidSchema, "zero schema id is reserved")
	}
	if s.Name == "" {
		return errors.Wrap(ErrInvalidSchema, "no schema name")
	}
	switch s.Kind {
	case KindVertex:
		if s.Edge != nil {
			return errors.Wrap(ErrInvalidSchema, "vertex schema carries edge attributes")
		}
	case KindEdge:
		if s.Edge == nil {
			return errors.Wrap(ErrInvalidSchema, "edge schema without edge attributes")
		}
		if s.Edge.Type != EdgeDirected && s.Edge.Type != EdgeUndirected {
			return errors.Wrap(ErrInvalidSchema, "unknown edge type")
		}
	case KindList:
		if s.Edge != nil {
			return errors.Wrap(ErrInvalidSchema, "list schema carries edge attributes")
		}
	default:
		return errors.Wrap(ErrInvalidSchema, "unknown schema kind")
	}
	return nil
}

// ConformData checks a user data map against the layout: every
// non-nullable field must be present.
func (s *GraphSchema) ConformData(data map[string]interface{}) error {
	for _, f := range s.Fields {
		if f.Nullable {
			continue
		}
		if _, ok := data[f.Name]; !ok {
			return errors.Wrapf(ErrInvalidSchema, "schema %v: missing field %v", s.Name, f.Name)
		}
	}
	return nil
}
