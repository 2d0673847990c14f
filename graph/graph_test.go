package graph

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/catalog/memcatalog"
	"github.com/tiglabs/cellgraph/kernel/store/kvstore"
	"github.com/tiglabs/cellgraph/kernel/store/kvstore/btreedb"
	"github.com/tiglabs/cellgraph/proto"
	"github.com/tiglabs/cellgraph/schema"
	"github.com/tiglabs/cellgraph/store"
)

const (
	schemaPerson proto.SchemaID = 100
	schemaFollow proto.SchemaID = 101 // directed, body-less
	schemaRated  proto.SchemaID = 102 // directed, bodied
	schemaFriend proto.SchemaID = 103 // undirected, body-less
)

func newTestGraph(t *testing.T) (*Graph, store.Client) {
	engine, err := btreedb.New(nil)
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	return newTestGraphOn(t, engine)
}

func newTestGraphOn(t *testing.T, engine kvstore.KVStore) (*Graph, store.Client) {
	client := store.NewLocal(engine)

	schemas, err := schema.NewContainer(memcatalog.NewServer("/cellgraph-test"))
	if err != nil {
		t.Fatalf("open schema container: %v", err)
	}
	if err = Bootstrap(schemas); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	g, err := NewGraph(client, schemas)
	if err != nil {
		t.Fatalf("open graph: %v", err)
	}

	if err = g.DefineVertexSchema(&schema.GraphSchema{
		ID:   schemaPerson,
		Name: "person",
		Fields: []schema.Field{
			{Name: "name", Type: "string"},
			{Name: "age", Type: "u64", Nullable: true},
		},
	}); err != nil {
		t.Fatalf("define person: %v", err)
	}
	if err = g.DefineEdgeSchema(&schema.GraphSchema{ID: schemaFollow, Name: "follow"},
		schema.EdgeAttributes{Type: schema.EdgeDirected}); err != nil {
		t.Fatalf("define follow: %v", err)
	}
	if err = g.DefineEdgeSchema(&schema.GraphSchema{ID: schemaRated, Name: "rated"},
		schema.EdgeAttributes{Type: schema.EdgeDirected, HasBody: true}); err != nil {
		t.Fatalf("define rated: %v", err)
	}
	if err = g.DefineEdgeSchema(&schema.GraphSchema{ID: schemaFriend, Name: "friend"},
		schema.EdgeAttributes{Type: schema.EdgeUndirected}); err != nil {
		t.Fatalf("define friend: %v", err)
	}
	return g, client
}

func mustVertex(t *testing.T, g *Graph, name string) *Vertex {
	v, err := g.NewVertex(schemaPerson, []byte(name), map[string]interface{}{"name": name})
	if err != nil {
		t.Fatalf("new vertex %v: %v", name, err)
	}
	return v
}

func TestBootstrapIdempotent(t *testing.T) {
	g, _ := newTestGraph(t)
	// a second bootstrap against the same catalog must be a no-op
	if err := Bootstrap(g.schemas); err != nil {
		t.Errorf("Got %v expected no error", err)
	}
}

func TestNewGraphRequiresBootstrap(t *testing.T) {
	engine, _ := btreedb.New(nil)
	client := store.NewLocal(engine)
	schemas, err := schema.NewContainer(memcatalog.NewServer("/cellgraph-test"))
	if err != nil {
		t.Fatalf("open schema container: %v", err)
	}
	_, err = NewGraph(client, schemas)
	if errors.Cause(err) != ErrNotInitialized {
		t.Errorf("Got %v expected %v", err, ErrNotInitialized)
	}
}

func TestVertexCrud(t *testing.T) {
	g, _ := newTestGraph(t)

	v := mustVertex(t, g, "alice")
	if v.Id != store.EncodeKey(schemaPerson, []byte("alice")) {
		t.Errorf("Got %v expected %v", v.Id, store.EncodeKey(schemaPerson, []byte("alice")))
	}

	got, err := g.GetVertex(schemaPerson, []byte("alice"))
	if err != nil {
		t.Fatalf("get vertex: %v", err)
	}
	if got.Data["name"] != "alice" {
		t.Errorf("Got %v expected alice", got.Data["name"])
	}
	if len(got.Data) != 1 {
		t.Errorf("Got %d user fields expected 1", len(got.Data))
	}

	// duplicate identity is rejected
	_, err = g.NewVertex(schemaPerson, []byte("alice"), map[string]interface{}{"name": "alice"})
	if errors.Cause(err) != ErrVertexExists {
		t.Errorf("Got %v expected %v", err, ErrVertexExists)
	}

	err = g.UpdateVertexByKey(schemaPerson, []byte("alice"), func(cur *Vertex) *Vertex {
		cur.Data["age"] = 30
		return cur
	})
	if err != nil {
		t.Fatalf("update vertex: %v", err)
	}
	got, err = g.ReadVertex(v.Id)
	if err != nil {
		t.Fatalf("read vertex: %v", err)
	}
	if fmt.Sprintf("%v", got.Data["age"]) != "30" {
		t.Errorf("Got %v expected 30", got.Data["age"])
	}

	// a nil replacement commits as a no-op
	err = g.UpdateVertex(v.Id, func(cur *Vertex) *Vertex { return nil })
	if err != nil {
		t.Fatalf("no-op update: %v", err)
	}

	if err = g.RemoveVertex(v.Id); err != nil {
		t.Fatalf("remove vertex: %v", err)
	}
	_, err = g.ReadVertex(v.Id)
	if errors.Cause(err) != ErrVertexNotFound {
		t.Errorf("Got %v expected %v", err, ErrVertexNotFound)
	}
	err = g.RemoveVertex(v.Id)
	if errors.Cause(err) != ErrVertexNotFound {
		t.Errorf("Got %v expected %v", err, ErrVertexNotFound)
	}
}

func TestVertexSchemaValidation(t *testing.T) {
	g, _ := newTestGraph(t)

	_, err := g.NewVertex(schemaFollow, []byte("x"), map[string]interface{}{})
	if errors.Cause(err) != ErrSchemaNotVertex {
		t.Errorf("Got %v expected %v", err, ErrSchemaNotVertex)
	}
	_, err = g.NewVertex(schemaPerson, []byte("x"), nil)
	if errors.Cause(err) != ErrDataNotMap {
		t.Errorf("Got %v expected %v", err, ErrDataNotMap)
	}
	// non-nullable field missing
	_, err = g.NewVertex(schemaPerson, []byte("x"), map[string]interface{}{"age": 1})
	if errors.Cause(err) != schema.ErrInvalidSchema {
		t.Errorf("Got %v expected %v", err, schema.ErrInvalidSchema)
	}
}

func TestNewVertexUnreadableCell(t *testing.T) {
	engine, err := btreedb.New(nil)
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	g, _ := newTestGraphOn(t, engine)

	// a record too short to carry the version and schema header
	id := store.EncodeKey(schemaPerson, []byte("alice"))
	if err = engine.Put(id.Bytes(), []byte{1, 2}); err != nil {
		t.Fatalf("put: %v", err)
	}

	_, err = g.NewVertex(schemaPerson, []byte("alice"), map[string]interface{}{"name": "alice"})
	if errors.Cause(err) != store.ErrBadCellData {
		t.Errorf("Got %v expected %v", err, store.ErrBadCellData)
	}

	// the unreadable record must survive untouched, never be clobbered
	raw, err := engine.Get(id.Bytes())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(raw) != 2 {
		t.Errorf("Got %d bytes expected the planted 2", len(raw))
	}
}

func TestDirectedLink(t *testing.T) {
	g, _ := newTestGraph(t)
	alice := mustVertex(t, g, "alice")
	bob := mustVertex(t, g, "bob")

	edge, err := g.Link(schemaFollow, alice.Id, bob.Id, nil)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if edge.From != alice.Id || edge.To != bob.Id {
		t.Errorf("Got %v -> %v expected %v -> %v", edge.From, edge.To, alice.Id, bob.Id)
	}
	if !edge.CellId.IsUnit() {
		t.Errorf("Got cell id %v expected unit for body-less edge", edge.CellId)
	}

	out, err := g.Neighbourhoods(alice.Id, schemaFollow, Outbound)
	if err != nil {
		t.Fatalf("outbound: %v", err)
	}
	if len(out) != 1 || out[0].From != alice.Id || out[0].To != bob.Id {
		t.Errorf("Got %v expected one alice->bob edge", out)
	}
	in, err := g.Neighbourhoods(bob.Id, schemaFollow, Inbound)
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if len(in) != 1 || in[0].From != alice.Id || in[0].To != bob.Id {
		t.Errorf("Got %v expected one alice->bob edge", in)
	}

	// a directed edge never shows up reversed or undirected
	if out, _ = g.Neighbourhoods(alice.Id, schemaFollow, Inbound); len(out) != 0 {
		t.Errorf("Got %d inbound edges at alice expected 0", len(out))
	}
	if out, _ = g.Neighbourhoods(bob.Id, schemaFollow, Outbound); len(out) != 0 {
		t.Errorf("Got %d outbound edges at bob expected 0", len(out))
	}
	if out, _ = g.Neighbourhoods(alice.Id, schemaFollow, Undirected); len(out) != 0 {
		t.Errorf("Got %d undirected edges at alice expected 0", len(out))
	}
}

func TestUndirectedLink(t *testing.T) {
	g, _ := newTestGraph(t)
	alice := mustVertex(t, g, "alice")
	bob := mustVertex(t, g, "bob")

	if _, err := g.Link(schemaFriend, alice.Id, bob.Id, nil); err != nil {
		t.Fatalf("link: %v", err)
	}

	for _, id := range []store.Id{alice.Id, bob.Id} {
		edges, err := g.Neighbourhoods(id, schemaFriend, Undirected)
		if err != nil {
			t.Fatalf("undirected at %v: %v", id, err)
		}
		if len(edges) != 1 {
			t.Fatalf("Got %d edges at %v expected 1", len(edges), id)
		}
		if edges[0].Type != schema.EdgeUndirected {
			t.Errorf("Got type %v expected %v", edges[0].Type, schema.EdgeUndirected)
		}
	}
}

func TestBodiedLink(t *testing.T) {
	g, _ := newTestGraph(t)
	alice := mustVertex(t, g, "alice")
	bob := mustVertex(t, g, "bob")

	edge, err := g.Link(schemaRated, alice.Id, bob.Id, map[string]interface{}{"stars": 5})
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if edge.CellId.IsUnit() {
		t.Fatalf("Got unit cell id expected a body cell")
	}

	out, err := g.Neighbourhoods(alice.Id, schemaRated, Outbound)
	if err != nil {
		t.Fatalf("outbound: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("Got %d edges expected 1", len(out))
	}
	if fmt.Sprintf("%v", out[0].Body["stars"]) != "5" {
		t.Errorf("Got %v expected 5", out[0].Body["stars"])
	}
	if out[0].CellId != edge.CellId {
		t.Errorf("Got %v expected %v", out[0].CellId, edge.CellId)
	}

	// both endpoints resolve to the same body cell
	in, err := g.Neighbourhoods(bob.Id, schemaRated, Inbound)
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if len(in) != 1 || in[0].CellId != edge.CellId {
		t.Errorf("Got %v expected body cell %v", in, edge.CellId)
	}
}

func TestLinkBodyValidation(t *testing.T) {
	g, _ := newTestGraph(t)
	alice := mustVertex(t, g, "alice")
	bob := mustVertex(t, g, "bob")

	_, err := g.Link(schemaRated, alice.Id, bob.Id, nil)
	if errors.Cause(err) != ErrBodyRequired {
		t.Errorf("Got %v expected %v", err, ErrBodyRequired)
	}
	_, err = g.Link(schemaFollow, alice.Id, bob.Id, map[string]interface{}{"x": 1})
	if errors.Cause(err) != ErrBodyShouldNotExisted {
		t.Errorf("Got %v expected %v", err, ErrBodyShouldNotExisted)
	}
	_, err = g.Link(schemaPerson, alice.Id, bob.Id, nil)
	if errors.Cause(err) != ErrSchemaNotEdge {
		t.Errorf("Got %v expected %v", err, ErrSchemaNotEdge)
	}

	// rejected links leave no partial registration behind
	for _, dir := range []Direction{Inbound, Outbound, Undirected} {
		edges, err := g.Neighbourhoods(alice.Id, schemaFollow, dir)
		if err != nil {
			t.Fatalf("neighbourhoods %v: %v", dir, err)
		}
		if len(edges) != 0 {
			t.Errorf("Got %d %v edges expected 0", len(edges), dir)
		}
	}
}

func TestLinkMissingEndpoint(t *testing.T) {
	g, _ := newTestGraph(t)
	alice := mustVertex(t, g, "alice")
	ghost := store.EncodeKey(schemaPerson, []byte("ghost"))

	_, err := g.Link(schemaFollow, alice.Id, ghost, nil)
	if errors.Cause(err) != ErrVertexNotFound {
		t.Errorf("Got %v expected %v", err, ErrVertexNotFound)
	}
	// the aborted link must not dirty alice's adjacency
	edges, err := g.Neighbourhoods(alice.Id, schemaFollow, Outbound)
	if err != nil {
		t.Fatalf("neighbourhoods: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("Got %d edges expected 0", len(edges))
	}
}

func TestSelfLoop(t *testing.T) {
	g, _ := newTestGraph(t)
	alice := mustVertex(t, g, "alice")

	if _, err := g.Link(schemaFollow, alice.Id, alice.Id, nil); err != nil {
		t.Fatalf("link: %v", err)
	}
	out, err := g.Neighbourhoods(alice.Id, schemaFollow, Outbound)
	if err != nil {
		t.Fatalf("outbound: %v", err)
	}
	in, err := g.Neighbourhoods(alice.Id, schemaFollow, Inbound)
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if len(out) != 1 || len(in) != 1 {
		t.Errorf("Got out=%d in=%d expected 1/1", len(out), len(in))
	}
}

func TestUndirectedSelfLoop(t *testing.T) {
	g, _ := newTestGraph(t)
	alice := mustVertex(t, g, "alice")

	if _, err := g.Link(schemaFriend, alice.Id, alice.Id, nil); err != nil {
		t.Fatalf("link: %v", err)
	}

	// both endpoints share one list, so one link registers exactly once
	edges, err := g.Neighbourhoods(alice.Id, schemaFriend, Undirected)
	if err != nil {
		t.Fatalf("undirected: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("Got %d edges expected 1", len(edges))
	}
	if edges[0].From != alice.Id || edges[0].To != alice.Id {
		t.Errorf("Got %v -> %v expected the loop at %v", edges[0].From, edges[0].To, alice.Id)
	}

	if err = g.Unlink(schemaFriend, alice.Id, alice.Id); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if edges, err = g.Neighbourhoods(alice.Id, schemaFriend, Undirected); err != nil {
		t.Fatalf("undirected: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("Got %d edges expected 0", len(edges))
	}
	err = g.Unlink(schemaFriend, alice.Id, alice.Id)
	if errors.Cause(err) != ErrEdgeNotFound {
		t.Errorf("Got %v expected %v", err, ErrEdgeNotFound)
	}
}

func TestUnlink(t *testing.T) {
	g, _ := newTestGraph(t)
	alice := mustVertex(t, g, "alice")
	bob := mustVertex(t, g, "bob")
	carol := mustVertex(t, g, "carol")

	if _, err := g.Link(schemaFollow, alice.Id, bob.Id, nil); err != nil {
		t.Fatalf("link: %v", err)
	}
	if _, err := g.Link(schemaFollow, alice.Id, carol.Id, nil); err != nil {
		t.Fatalf("link: %v", err)
	}

	if err := g.Unlink(schemaFollow, alice.Id, bob.Id); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	out, err := g.Neighbourhoods(alice.Id, schemaFollow, Outbound)
	if err != nil {
		t.Fatalf("outbound: %v", err)
	}
	if len(out) != 1 || out[0].To != carol.Id {
		t.Errorf("Got %v expected only alice->carol", out)
	}
	in, err := g.Neighbourhoods(bob.Id, schemaFollow, Inbound)
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if len(in) != 0 {
		t.Errorf("Got %d edges at bob expected 0", len(in))
	}

	err = g.Unlink(schemaFollow, alice.Id, bob.Id)
	if errors.Cause(err) != ErrEdgeNotFound {
		t.Errorf("Got %v expected %v", err, ErrEdgeNotFound)
	}
}

func TestUnlinkBodiedRemovesCell(t *testing.T) {
	g, client := newTestGraph(t)
	alice := mustVertex(t, g, "alice")
	bob := mustVertex(t, g, "bob")

	edge, err := g.Link(schemaRated, alice.Id, bob.Id, map[string]interface{}{"stars": 3})
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if err = g.Unlink(schemaRated, alice.Id, bob.Id); err != nil {
		t.Fatalf("unlink: %v", err)
	}

	if _, err = client.ReadCell(edge.CellId); errors.Cause(err) != store.ErrCellNotFound {
		t.Errorf("Got %v expected %v", err, store.ErrCellNotFound)
	}
}

func TestRemoveVertexRejectedWhileLinked(t *testing.T) {
	g, _ := newTestGraph(t)
	alice := mustVertex(t, g, "alice")
	bob := mustVertex(t, g, "bob")

	if _, err := g.Link(schemaFollow, alice.Id, bob.Id, nil); err != nil {
		t.Fatalf("link: %v", err)
	}

	err := g.RemoveVertex(alice.Id)
	if errors.Cause(err) != ErrVertexHasEdges {
		t.Errorf("Got %v expected %v", err, ErrVertexHasEdges)
	}
	err = g.RemoveVertex(bob.Id)
	if errors.Cause(err) != ErrVertexHasEdges {
		t.Errorf("Got %v expected %v", err, ErrVertexHasEdges)
	}

	if err = g.Unlink(schemaFollow, alice.Id, bob.Id); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if err = g.RemoveVertex(alice.Id); err != nil {
		t.Errorf("Got %v expected removal after unlink", err)
	}
	if err = g.RemoveVertex(bob.Id); err != nil {
		t.Errorf("Got %v expected removal after unlink", err)
	}
}

func TestConcurrentLinks(t *testing.T) {
	g, _ := newTestGraph(t)
	celebrity := mustVertex(t, g, "celebrity")

	const followers = 4
	fans := make([]*Vertex, followers)
	for i := range fans {
		fans[i] = mustVertex(t, g, fmt.Sprintf("fan-%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, followers)
	for i := 0; i < followers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Link(schemaFollow, fans[i].Id, celebrity.Id, nil)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("link %d: %v", i, err)
		}
	}

	in, err := g.Neighbourhoods(celebrity.Id, schemaFollow, Inbound)
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if len(in) != followers {
		t.Fatalf("Got %d edges expected %d", len(in), followers)
	}
	seen := make(map[store.Id]int)
	for _, e := range in {
		seen[e.From]++
	}
	for _, fan := range fans {
		if seen[fan.Id] != 1 {
			t.Errorf("Got %d registrations for %v expected 1", seen[fan.Id], fan.Id)
		}
	}
}

func TestTransactionAtomicity(t *testing.T) {
	g, _ := newTestGraph(t)
	alice := mustVertex(t, g, "alice")
	bob := mustVertex(t, g, "bob")
	boom := errors.New("boom")

	err := g.Transaction(func(t *GraphTransaction) error {
		if _, err := t.Link(schemaFollow, alice.Id, bob.Id, nil); err != nil {
			return err
		}
		return boom
	})
	if errors.Cause(err) != boom {
		t.Fatalf("Got %v expected %v", err, boom)
	}

	// the failed transaction must leave no trace
	out, err := g.Neighbourhoods(alice.Id, schemaFollow, Outbound)
	if err != nil {
		t.Fatalf("outbound: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Got %d edges expected 0", len(out))
	}
}

func TestMultipleEdgeSchemasPerVertex(t *testing.T) {
	g, _ := newTestGraph(t)
	alice := mustVertex(t, g, "alice")
	bob := mustVertex(t, g, "bob")

	if _, err := g.Link(schemaFollow, alice.Id, bob.Id, nil); err != nil {
		t.Fatalf("link follow: %v", err)
	}
	if _, err := g.Link(schemaRated, alice.Id, bob.Id, map[string]interface{}{"stars": 4}); err != nil {
		t.Fatalf("link rated: %v", err)
	}

	// lists of different edge schemas never bleed into each other
	follow, err := g.Neighbourhoods(alice.Id, schemaFollow, Outbound)
	if err != nil {
		t.Fatalf("follow: %v", err)
	}
	rated, err := g.Neighbourhoods(alice.Id, schemaRated, Outbound)
	if err != nil {
		t.Fatalf("rated: %v", err)
	}
	if len(follow) != 1 || len(rated) != 1 {
		t.Errorf("Got follow=%d rated=%d expected 1/1", len(follow), len(rated))
	}
	if follow[0].SchemaID != schemaFollow || rated[0].SchemaID != schemaRated {
		t.Errorf("Got schemas %d/%d expected %d/%d",
			follow[0].SchemaID, rated[0].SchemaID, schemaFollow, schemaRated)
	}
}
