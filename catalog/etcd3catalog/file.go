package etcd3catalog

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/coreos/etcd/clientv3"
	log "github.com/golang/glog"
	"github.com/tiglabs/cellgraph/catalog"
)

// EtcdVersion is the etcd mod revision of a node.
type EtcdVersion int64

func (v EtcdVersion) String() string {
	return fmt.Sprintf("%v", int64(v))
}

// Get is part of the catalog.Backend interface.
func (s *Server) Get(filePath string) ([]byte, catalog.Version, error) {
	nodePath := path.Join(s.root, filePath)
	resp, err := s.cli.Get(context.Background(), nodePath)
	if err != nil {
		return nil, nil, convertError(err)
	}
	if len(resp.Kvs) != 1 {
		return nil, nil, catalog.ErrNoNode
	}
	return resp.Kvs[0].Value, EtcdVersion(resp.Kvs[0].ModRevision), nil
}

// Create is part of the catalog.Backend interface.
func (s *Server) Create(filePath string, contents []byte) (catalog.Version, error) {
	nodePath := path.Join(s.root, filePath)
	txnResp, err := s.cli.Txn(context.Background()).
		If(clientv3.Compare(clientv3.Version(nodePath), "=", 0)).
		Then(clientv3.OpPut(nodePath, string(contents))).
		Commit()
	if err != nil {
		return nil, convertError(err)
	}
	if !txnResp.Succeeded {
		return nil, catalog.ErrNodeExists
	}
	return EtcdVersion(txnResp.Header.Revision), nil
}

// Update is part of the catalog.Backend interface.
func (s *Server) Update(filePath string, contents []byte, version catalog.Version) (catalog.Version, error) {
	nodePath := path.Join(s.root, filePath)
	if version == nil {
		resp, err := s.cli.Put(context.Background(), nodePath, string(contents))
		if err != nil {
			return nil, convertError(err)
		}
		return EtcdVersion(resp.Header.Revision), nil
	}

	txnResp, err := s.cli.Txn(context.Background()).
		If(clientv3.Compare(clientv3.ModRevision(nodePath), "=", int64(version.(EtcdVersion)))).
		Then(clientv3.OpPut(nodePath, string(contents))).
		Commit()
	if err != nil {
		return nil, convertError(err)
	}
	if !txnResp.Succeeded {
		log.Warningf("stale version %v updating %v", version, nodePath)
		return nil, catalog.ErrBadVersion
	}
	return EtcdVersion(txnResp.Header.Revision), nil
}

// Delete is part of the catalog.Backend interface.
func (s *Server) Delete(filePath string, version catalog.Version) error {
	nodePath := path.Join(s.root, filePath)
	if version == nil {
		resp, err := s.cli.Delete(context.Background(), nodePath)
		if err != nil {
			return convertError(err)
		}
		if resp.Deleted == 0 {
			return catalog.ErrNoNode
		}
		return nil
	}

	txnResp, err := s.cli.Txn(context.Background()).
		If(clientv3.Compare(clientv3.ModRevision(nodePath), "=", int64(version.(EtcdVersion)))).
		Then(clientv3.OpDelete(nodePath)).
		Commit()
	if err != nil {
		return convertError(err)
	}
	if !txnResp.Succeeded {
		return catalog.ErrBadVersion
	}
	return nil
}

// List is part of the catalog.Backend interface.
func (s *Server) List(dirPath string) ([]string, error) {
	nodePath := path.Join(s.root, dirPath) + "/"
	resp, err := s.cli.Get(context.Background(), nodePath,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend),
		clientv3.WithKeysOnly())
	if err != nil {
		return nil, convertError(err)
	}
	if len(resp.Kvs) == 0 {
		// No key starts with this prefix, means the directory
		// doesn't exist.
		return nil, catalog.ErrNoNode
	}

	prefixLen := len(nodePath)
	var result []string
	for _, ev := range resp.Kvs {
		p := string(ev.Key)

		// Remove the prefix, base path.
		if !strings.HasPrefix(p, nodePath) {
			return nil, ErrBadResponse
		}
		p = p[prefixLen:]

		// Keep only the part until the first '/'.
		if i := strings.Index(p, "/"); i >= 0 {
			p = p[:i]
		}

		// Remove duplicates, add to list.
		if len(result) == 0 || result[len(result)-1] != p {
			result = append(result, p)
		}
	}

	return result, nil
}
