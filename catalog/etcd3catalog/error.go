package etcd3catalog

import (
	"context"
	"errors"

	"github.com/coreos/etcd/etcdserver/api/v3rpc/rpctypes"
	"github.com/tiglabs/cellgraph/catalog"
)

// ErrBadResponse is returned from this package if the response from the
// etcd server does not contain the data that the API promises.
var ErrBadResponse = errors.New("etcd3: server returned a bad response")

// convertError converts an etcd client error into a catalog error.
func convertError(err error) error {
	switch err {
	case nil:
		return nil
	case rpctypes.ErrKeyNotFound:
		return catalog.ErrNoNode
	case context.Canceled:
		return catalog.ErrInterrupted
	case context.DeadlineExceeded:
		return catalog.ErrTimeout
	}
	return err
}
