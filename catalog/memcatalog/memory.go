// Package memcatalog implements catalog.Backend in process memory. It is
// the backend for tests and embedded single-node deployments; semantics
// mirror the etcd3 backend (create-if-absent, version-compare update).
package memcatalog

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/tiglabs/cellgraph/catalog"
)

type node struct {
	contents []byte
	version  int64
}

// MemVersion is the logical revision of a node.
type MemVersion int64

func (v MemVersion) String() string {
	return fmt.Sprintf("%v", int64(v))
}

type Server struct {
	mu       sync.Mutex
	root     string
	nodes    map[string]*node
	revision int64
}

var _ catalog.Backend = &Server{}

func NewServer(root string) *Server {
	return &Server{
		root:  root,
		nodes: make(map[string]*node),
	}
}

func (s *Server) Get(filePath string) ([]byte, catalog.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[path.Join(s.root, filePath)]
	if !ok {
		return nil, nil, catalog.ErrNoNode
	}
	return append([]byte(nil), n.contents...), MemVersion(n.version), nil
}

func (s *Server) Create(filePath string, contents []byte) (catalog.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodePath := path.Join(s.root, filePath)
	if _, ok := s.nodes[nodePath]; ok {
		return nil, catalog.ErrNodeExists
	}
	s.revision++
	s.nodes[nodePath] = &node{
		contents: append([]byte(nil), contents...),
		version:  s.revision,
	}
	return MemVersion(s.revision), nil
}

func (s *Server) Update(filePath string, contents []byte, version catalog.Version) (catalog.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodePath := path.Join(s.root, filePath)
	n, ok := s.nodes[nodePath]
	if !ok {
		n = &node{}
		s.nodes[nodePath] = n
	}
	if version != nil && n.version != int64(version.(MemVersion)) {
		return nil, catalog.ErrBadVersion
	}
	s.revision++
	n.contents = append([]byte(nil), contents...)
	n.version = s.revision
	return MemVersion(s.revision), nil
}

func (s *Server) Delete(filePath string, version catalog.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodePath := path.Join(s.root, filePath)
	n, ok := s.nodes[nodePath]
	if !ok {
		return catalog.ErrNoNode
	}
	if version != nil && n.version != int64(version.(MemVersion)) {
		return catalog.ErrBadVersion
	}
	delete(s.nodes, nodePath)
	return nil
}

func (s *Server) List(dirPath string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := path.Join(s.root, dirPath) + "/"

	seen := make(map[string]bool)
	var result []string
	for p := range s.nodes {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		child := p[len(prefix):]
		if i := strings.Index(child, "/"); i >= 0 {
			child = child[:i]
		}
		if !seen[child] {
			seen[child] = true
			result = append(result, child)
		}
	}
	if len(result) == 0 {
		return nil, catalog.ErrNoNode
	}
	sort.Strings(result)
	return result, nil
}

func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nil
}

func init() {
	catalog.RegisterFactory("memory", func(serverAddr, root string) (catalog.Backend, error) {
		return NewServer(root), nil
	})
}
