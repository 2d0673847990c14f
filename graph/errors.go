package graph

import "github.com/pkg/errors"

// Graph-level error taxonomy. Everything here is a domain error: the
// enclosing transaction must NOT be retried for any of them. Conflicts
// surface separately as store.ErrTxnConflict (see store.IsRetryable).
var (
	ErrSchemaNotVertex = errors.New("schema is not a vertex schema")
	ErrSchemaNotEdge   = errors.New("schema is not an edge schema")

	// body presence must match the edge schema's attributes, checked
	// before any storage interaction
	ErrBodyRequired         = errors.New("edge schema requires a body")
	ErrBodyShouldNotExisted = errors.New("edge schema does not carry a body")

	ErrVertexNotFound = errors.New("vertex does not exist")
	ErrVertexExists   = errors.New("vertex already exists")
	ErrDataNotMap     = errors.New("vertex data is not a map")

	// vertex removal is rejected while any adjacency list still has
	// members, so no dangling adjacency entry is ever left behind
	ErrVertexHasEdges = errors.New("vertex still participates in edges")

	ErrEdgeNotFound = errors.New("edge not found between the given vertices")

	// adjacency list domain errors, distinct from transaction aborts
	ErrIdNotFoundInList = errors.New("id not found in list")
	ErrListCorrupted    = errors.New("adjacency list corrupted")

	ErrNotInitialized = errors.New("graph schemas not bootstrapped")
)
