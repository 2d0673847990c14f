package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	c := NewConfig("")

	if c.ModuleCfg.Role != CONFIG_ROLE_GRAPHD {
		t.Errorf("Got %v expected %v", c.ModuleCfg.Role, CONFIG_ROLE_GRAPHD)
	}
	if c.CatalogCfg.Backend != CONFIG_CATALOG_MEMORY {
		t.Errorf("Got %v expected %v", c.CatalogCfg.Backend, CONFIG_CATALOG_MEMORY)
	}
	if c.StoreCfg.Engine != CONFIG_ENGINE_BADGERDB {
		t.Errorf("Got %v expected %v", c.StoreCfg.Engine, CONFIG_ENGINE_BADGERDB)
	}
	if c.ServerCfg.HttpPort != 8817 {
		t.Errorf("Got %v expected 8817", c.ServerCfg.HttpPort)
	}
	if c.ServerCfg.ReadTimeout.Seconds() != 30 {
		t.Errorf("Got %v expected 30s", c.ServerCfg.ReadTimeout)
	}
}

func TestFileOverridesDefault(t *testing.T) {
	dir, err := ioutil.TempDir("", "graphd-config")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "graphd.toml")
	contents := `
[store]
engine = "btreedb"

[server]
http-port = 9900
`
	if err = ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c := NewConfig(path)
	if c.StoreCfg.Engine != CONFIG_ENGINE_BTREEDB {
		t.Errorf("Got %v expected %v", c.StoreCfg.Engine, CONFIG_ENGINE_BTREEDB)
	}
	if c.ServerCfg.HttpPort != 9900 {
		t.Errorf("Got %v expected 9900", c.ServerCfg.HttpPort)
	}
	// untouched sections keep their defaults
	if c.CatalogCfg.Backend != CONFIG_CATALOG_MEMORY {
		t.Errorf("Got %v expected %v", c.CatalogCfg.Backend, CONFIG_CATALOG_MEMORY)
	}
}

func TestInvalidConfigPanics(t *testing.T) {
	dir, err := ioutil.TempDir("", "graphd-config")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "graphd.toml")
	contents := `
[store]
engine = "rocksdb"
`
	if err = ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("Got no panic expected one for unknown engine")
		}
	}()
	NewConfig(path)
}
