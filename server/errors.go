package server

import (
	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/graph"
	"github.com/tiglabs/cellgraph/schema"
	"github.com/tiglabs/cellgraph/store"
)

// graphd api error definitions
var (
	ErrSuc           = errors.New("success")
	ErrInternalError = errors.New("internal error")
	ErrParamError    = errors.New("param error")
)

// http response error code definitions
const (
	ERRCODE_SUCCESS = iota
	ERRCODE_INTERNAL_ERROR
	ERRCODE_PARAM_ERROR

	ERRCODE_SCHEMA_EXISTS
	ERRCODE_SCHEMA_NOTEXISTS
	ERRCODE_SCHEMA_INVALID
	ERRCODE_SCHEMA_NOT_VERTEX
	ERRCODE_SCHEMA_NOT_EDGE

	ERRCODE_VERTEX_EXISTS
	ERRCODE_VERTEX_NOTEXISTS
	ERRCODE_VERTEX_HAS_EDGES
	ERRCODE_DATA_NOT_MAP

	ERRCODE_BODY_REQUIRED
	ERRCODE_BODY_UNEXPECTED
	ERRCODE_EDGE_NOTEXISTS
	ERRCODE_LIST_CORRUPTED

	ERRCODE_TXN_ABORTED
)

var err2CodeMap = map[error]int32{
	ErrSuc:        ERRCODE_SUCCESS,
	ErrParamError: ERRCODE_PARAM_ERROR,

	schema.ErrSchemaExists:   ERRCODE_SCHEMA_EXISTS,
	schema.ErrSchemaNotFound: ERRCODE_SCHEMA_NOTEXISTS,
	schema.ErrInvalidSchema:  ERRCODE_SCHEMA_INVALID,
	schema.ErrSchemaMismatch: ERRCODE_SCHEMA_INVALID,

	graph.ErrSchemaNotVertex: ERRCODE_SCHEMA_NOT_VERTEX,
	graph.ErrSchemaNotEdge:   ERRCODE_SCHEMA_NOT_EDGE,

	graph.ErrVertexExists:   ERRCODE_VERTEX_EXISTS,
	graph.ErrVertexNotFound: ERRCODE_VERTEX_NOTEXISTS,
	graph.ErrVertexHasEdges: ERRCODE_VERTEX_HAS_EDGES,
	graph.ErrDataNotMap:     ERRCODE_DATA_NOT_MAP,

	graph.ErrBodyRequired:         ERRCODE_BODY_REQUIRED,
	graph.ErrBodyShouldNotExisted: ERRCODE_BODY_UNEXPECTED,
	graph.ErrEdgeNotFound:         ERRCODE_EDGE_NOTEXISTS,
	graph.ErrListCorrupted:        ERRCODE_LIST_CORRUPTED,

	store.ErrTxnAborted: ERRCODE_TXN_ABORTED,
}

// err2Code resolves a possibly wrapped domain error to its reply code.
func err2Code(err error) (int32, bool) {
	code, ok := err2CodeMap[errors.Cause(err)]
	return code, ok
}
