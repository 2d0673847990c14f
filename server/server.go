// Package server assembles one graphd node: a storage engine, the cell
// store client over it, the catalog-backed schema container and the
// graph facade, exposed through the HTTP api server.
package server

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/catalog"
	_ "github.com/tiglabs/cellgraph/catalog/etcd3catalog"
	_ "github.com/tiglabs/cellgraph/catalog/memcatalog"
	"github.com/tiglabs/cellgraph/config"
	"github.com/tiglabs/cellgraph/graph"
	"github.com/tiglabs/cellgraph/kernel/store/kvstore"
	"github.com/tiglabs/cellgraph/kernel/store/kvstore/badgerdb"
	"github.com/tiglabs/cellgraph/kernel/store/kvstore/boltdb"
	"github.com/tiglabs/cellgraph/kernel/store/kvstore/btreedb"
	"github.com/tiglabs/cellgraph/schema"
	"github.com/tiglabs/cellgraph/store"
	"github.com/tiglabs/cellgraph/util/log"
)

type Server struct {
	config    *config.Config
	client    store.Client
	backend   catalog.Backend
	graph     *graph.Graph
	apiServer *ApiServer
}

func NewServer(cfg *config.Config) *Server {
	return &Server{config: cfg}
}

func (s *Server) Start() error {
	engine, err := openEngine(s.config)
	if err != nil {
		return errors.Wrap(err, "open storage engine")
	}
	s.client = store.NewLocalWithRetries(engine, int(s.config.StoreCfg.TxnMaxRetries))

	s.backend, err = catalog.Open(s.config.CatalogCfg.Backend,
		s.config.CatalogCfg.ServerAddrs, s.config.CatalogCfg.RootDir)
	if err != nil {
		return errors.Wrap(err, "open catalog backend")
	}

	schemas, err := schema.NewContainer(s.backend)
	if err != nil {
		return errors.Wrap(err, "open schema container")
	}
	if err = graph.Bootstrap(schemas); err != nil {
		return errors.Wrap(err, "bootstrap graph schemas")
	}
	if s.graph, err = graph.NewGraph(s.client, schemas); err != nil {
		return errors.Wrap(err, "open graph")
	}

	s.apiServer = NewApiServer(s.config, s.graph)
	if err = s.apiServer.Start(); err != nil {
		return errors.Wrap(err, "start api server")
	}

	log.Info("graphd server started. engine[%v] catalog[%v] http-port[%d]",
		s.config.StoreCfg.Engine, s.config.CatalogCfg.Backend, s.config.ServerCfg.HttpPort)
	return nil
}

func (s *Server) Close() error {
	if s.apiServer != nil {
		s.apiServer.Close()
		s.apiServer = nil
	}
	if s.backend != nil {
		s.backend.Close()
		s.backend = nil
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Error("close store client error[%v]", err)
		}
		s.client = nil
	}

	log.Info("graphd server closed")
	return nil
}

func openEngine(cfg *config.Config) (kvstore.KVStore, error) {
	switch cfg.StoreCfg.Engine {
	case config.CONFIG_ENGINE_BADGERDB:
		return badgerdb.New(&badgerdb.StoreConfig{
			Path: filepath.Join(cfg.ModuleCfg.DataPath, "badger"),
			Sync: true,
		})
	case config.CONFIG_ENGINE_BOLTDB:
		return boltdb.New(&boltdb.StoreConfig{
			Path: filepath.Join(cfg.ModuleCfg.DataPath, "cells.bolt"),
		})
	case config.CONFIG_ENGINE_BTREEDB:
		return btreedb.New(nil)
	default:
		return nil, errors.Errorf("unknown storage engine[%v]", cfg.StoreCfg.Engine)
	}
}
