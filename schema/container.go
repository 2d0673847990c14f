package schema

import (
	"bytes"
	"fmt"
	"path"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/catalog"
	"github.com/tiglabs/cellgraph/proto"
	"github.com/tiglabs/cellgraph/util/json"
	"github.com/tiglabs/cellgraph/util/log"
)

// Container caches schema descriptors from the catalog backend and is
// the resolution point consulted before every graph mutation. It is
// read-mostly and safe for concurrent use by many graph instances;
// registration is rare and administrator driven.
type Container struct {
	backend catalog.Backend

	mu      sync.RWMutex
	schemas map[proto.SchemaID]*GraphSchema
	names   map[string]proto.SchemaID
}

// NewContainer opens a container over the backend and loads every
// descriptor already present.
func NewContainer(backend catalog.Backend) (*Container, error) {
	c := &Container{
		backend: backend,
		schemas: make(map[proto.SchemaID]*GraphSchema),
		names:   make(map[string]proto.SchemaID),
	}
	if err := c.loadAll(); err != nil {
		return nil, err
	}
	return c, nil
}

func schemaPath(id proto.SchemaID) string {
	return path.Join(catalog.SchemasPath, fmt.Sprintf("%d", id))
}

func (c *Container) loadAll() error {
	names, err := c.backend.List(catalog.SchemasPath)
	if err == catalog.ErrNoNode {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "list schemas")
	}

	for _, name := range names {
		id, err := strconv.ParseUint(name, 10, 32)
		if err != nil {
			log.Warn("skip foreign node[%v] under schemas path", name)
			continue
		}
		if _, err = c.fetch(proto.SchemaID(id)); err != nil {
			return err
		}
	}
	log.Info("schema container loaded %d descriptors", len(c.schemas))
	return nil
}

// fetch reads one descriptor from the backend into the cache.
func (c *Container) fetch(id proto.SchemaID) (*GraphSchema, error) {
	contents, _, err := c.backend.Get(schemaPath(id))
	if err == catalog.ErrNoNode {
		return nil, errors.Wrapf(ErrSchemaNotFound, "schema %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get schema %d", id)
	}
	s := new(GraphSchema)
	if err = json.Unmarshal(contents, s); err != nil {
		return nil, errors.Wrapf(ErrInvalidSchema, "schema %d: %v", id, err)
	}

	c.mu.Lock()
	c.schemas[s.ID] = s
	c.names[s.Name] = s.ID
	c.mu.Unlock()
	return s, nil
}

// Register persists a new user schema. Duplicate ids or names are
// rejected with ErrSchemaExists.
func (c *Container) Register(s *GraphSchema) error {
	if err := s.validate(); err != nil {
		return err
	}

	c.mu.RLock()
	_, idTaken := c.schemas[s.ID]
	ownerID, nameTaken := c.names[s.Name]
	c.mu.RUnlock()
	if idTaken || (nameTaken && ownerID != s.ID) {
		return errors.Wrapf(ErrSchemaExists, "schema %d[%v]", s.ID, s.Name)
	}

	contents, err := json.Marshal(s)
	if err != nil {
		return errors.Wrapf(ErrInvalidSchema, "schema %d: %v", s.ID, err)
	}
	if _, err = c.backend.Create(schemaPath(s.ID), contents); err != nil {
		if err == catalog.ErrNodeExists {
			// lost the race against another registrar
			return errors.Wrapf(ErrSchemaExists, "schema %d[%v]", s.ID, s.Name)
		}
		return errors.Wrapf(err, "register schema %d", s.ID)
	}

	c.mu.Lock()
	c.schemas[s.ID] = s
	c.names[s.Name] = s.ID
	c.mu.Unlock()
	return nil
}

// Bootstrap upserts a built-in schema: a no-op when an identical
// descriptor is already present, ErrSchemaMismatch when the reserved id
// is taken by something else.
func (c *Container) Bootstrap(s *GraphSchema) error {
	if err := s.validate(); err != nil {
		return err
	}
	contents, err := json.Marshal(s)
	if err != nil {
		return errors.Wrapf(ErrInvalidSchema, "schema %d: %v", s.ID, err)
	}

	_, err = c.backend.Create(schemaPath(s.ID), contents)
	if err == catalog.ErrNodeExists {
		existing, _, gerr := c.backend.Get(schemaPath(s.ID))
		if gerr != nil {
			return errors.Wrapf(gerr, "bootstrap schema %d", s.ID)
		}
		if !bytes.Equal(existing, contents) {
			return errors.Wrapf(ErrSchemaMismatch, "schema %d[%v]", s.ID, s.Name)
		}
	} else if err != nil {
		return errors.Wrapf(err, "bootstrap schema %d", s.ID)
	}

	c.mu.Lock()
	c.schemas[s.ID] = s
	c.names[s.Name] = s.ID
	c.mu.Unlock()
	return nil
}

// GetSchema resolves a schema id to its full descriptor, consulting the
// backend on cache miss.
func (c *Container) GetSchema(id proto.SchemaID) (*GraphSchema, error) {
	c.mu.RLock()
	s, ok := c.schemas[id]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}
	return c.fetch(id)
}

// SchemaType resolves a schema id to its kind and, for edges, the edge
// attributes.
func (c *Container) SchemaType(id proto.SchemaID) (SchemaKind, *EdgeAttributes, error) {
	s, err := c.GetSchema(id)
	if err != nil {
		return 0, nil, err
	}
	return s.Kind, s.Edge, nil
}
