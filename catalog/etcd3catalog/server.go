/*
Package etcd3catalog implements catalog.Backend with etcd as the backend.

We follow these conventions within this package:

  - Call convertError(err) on any errors returned from the etcd client
    library. Functions defined in this package can be assumed to have
    already converted errors as necessary.
*/
package etcd3catalog

import (
	"strings"
	"time"

	"github.com/coreos/etcd/clientv3"
	"github.com/tiglabs/cellgraph/catalog"
)

const defaultDialTimeout = 5 * time.Second

// Server is the implementation of catalog.Backend for etcd.
type Server struct {
	cli  *clientv3.Client
	root string
}

// NewServer returns a new etcd3catalog.Server.
func NewServer(serverAddr, root string) (*Server, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   strings.Split(serverAddr, ","),
		DialTimeout: defaultDialTimeout,
	})
	if err != nil {
		return nil, convertError(err)
	}
	return &Server{
		cli:  cli,
		root: root,
	}, nil
}

// Close implements catalog.Backend.Close.
// It will nil out the client, so any attempt to re-use this server
// will panic.
func (s *Server) Close() {
	s.cli.Close()
	s.cli = nil
}

func init() {
	catalog.RegisterFactory("etcd3", func(serverAddr, root string) (catalog.Backend, error) {
		return NewServer(serverAddr, root)
	})
}
