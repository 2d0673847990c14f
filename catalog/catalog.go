package catalog

import (
	"errors"

	"github.com/tiglabs/cellgraph/util/log"
)

// Path components under the backend root.
const (
	SchemasPath = "schemas"
)

var (
	// ErrNodeExists is returned by functions to specify the
	// requested resource already exists.
	ErrNodeExists = errors.New("node already exists")

	// ErrNoNode is returned by functions to specify the requested
	// resource does not exist.
	ErrNoNode = errors.New("node doesn't exist")

	// ErrBadVersion is returned by an update function that
	// failed to update the data because the version was different
	ErrBadVersion = errors.New("bad node version")

	// ErrTimeout is returned by functions that wait for a result
	// when the timeout value is reached.
	ErrTimeout = errors.New("deadline exceeded")

	// ErrInterrupted is returned by functions that wait for a result
	// when they are interrupted.
	ErrInterrupted = errors.New("interrupted")
)

// Version is an opaque object that encodes the backend version of a node.
type Version interface {
	String() string
}

// Backend is the persistence surface of the schema catalog. The
// implementation must give linearizable create/update semantics; the
// etcd3 backend does this with version-compare transactions.
type Backend interface {
	// Get returns the node contents and version, or ErrNoNode.
	Get(filePath string) ([]byte, Version, error)

	// Create writes the node only if it does not exist yet,
	// returning ErrNodeExists otherwise.
	Create(filePath string, contents []byte) (Version, error)

	// Update overwrites the node contents. A nil version is an
	// unconditional write; otherwise ErrBadVersion is returned when
	// the node moved since that version was read.
	Update(filePath string, contents []byte, version Version) (Version, error)

	// Delete removes the node, or returns ErrNoNode.
	Delete(filePath string, version Version) error

	// List returns the direct child names under dirPath, or
	// ErrNoNode when the directory is empty.
	List(dirPath string) ([]string, error)

	Close()
}

// Factory is a factory method to create Backend objects.
type Factory func(serverAddr, root string) (Backend, error)

var factories = make(map[string]Factory)

func RegisterFactory(name string, factory Factory) {
	if factories[name] != nil {
		log.Error("Duplicate catalog.Factory registration for %v", name)
	}
	factories[name] = factory
}

// Open creates a Backend through the registered factory.
func Open(implementation, serverAddrs, rootDir string) (Backend, error) {
	factory, ok := factories[implementation]
	if !ok {
		log.Error("invalid catalog implementation[%s]", implementation)
		return nil, ErrNoNode
	}

	backend, err := factory(serverAddrs, rootDir)
	if err != nil {
		log.Error("Fail to open %s catalog backend. err[%v]", implementation, err)
		return nil, err
	}
	return backend, nil
}
