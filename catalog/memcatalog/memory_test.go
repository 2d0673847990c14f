package memcatalog

import (
	"testing"

	"github.com/tiglabs/cellgraph/catalog"
)

func TestCreateGetDelete(t *testing.T) {
	s := NewServer("/root")

	if _, _, err := s.Get("a"); err != catalog.ErrNoNode {
		t.Errorf("Got %v expected %v", err, catalog.ErrNoNode)
	}

	v1, err := s.Create("a", []byte("one"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err = s.Create("a", []byte("dup")); err != catalog.ErrNodeExists {
		t.Errorf("Got %v expected %v", err, catalog.ErrNodeExists)
	}

	contents, v, err := s.Get("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(contents) != "one" {
		t.Errorf("Got %v expected one", string(contents))
	}
	if v.String() != v1.String() {
		t.Errorf("Got %v expected %v", v, v1)
	}

	if err = s.Delete("a", v); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err = s.Delete("a", nil); err != catalog.ErrNoNode {
		t.Errorf("Got %v expected %v", err, catalog.ErrNoNode)
	}
}

func TestVersionedUpdate(t *testing.T) {
	s := NewServer("/root")

	v1, err := s.Create("a", []byte("one"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	v2, err := s.Update("a", []byte("two"), v1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	// a stale version must be rejected
	if _, err = s.Update("a", []byte("three"), v1); err != catalog.ErrBadVersion {
		t.Errorf("Got %v expected %v", err, catalog.ErrBadVersion)
	}
	// unconditional update always applies
	if _, err = s.Update("a", []byte("four"), nil); err != nil {
		t.Fatalf("unconditional update: %v", err)
	}

	contents, _, err := s.Get("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(contents) != "four" {
		t.Errorf("Got %v expected four", string(contents))
	}

	if err = s.Delete("a", v2); err != catalog.ErrBadVersion {
		t.Errorf("Got %v expected %v", err, catalog.ErrBadVersion)
	}
}

func TestList(t *testing.T) {
	s := NewServer("/root")

	if _, err := s.List("dir"); err != catalog.ErrNoNode {
		t.Errorf("Got %v expected %v", err, catalog.ErrNoNode)
	}

	for _, p := range []string{"dir/b", "dir/a", "dir/a/nested", "other/c"} {
		if _, err := s.Create(p, []byte("x")); err != nil {
			t.Fatalf("create %v: %v", p, err)
		}
	}

	children, err := s.List("dir")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// sorted, deduplicated direct children only
	if len(children) != 2 || children[0] != "a" || children[1] != "b" {
		t.Errorf("Got %v expected [a b]", children)
	}
}

func TestFactoryRegistered(t *testing.T) {
	backend, err := catalog.Open("memory", "", "/root")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err = backend.Create("a", []byte("one")); err != nil {
		t.Errorf("Got %v expected working backend from factory", err)
	}
}
