package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tiglabs/cellgraph/util"
	"github.com/tiglabs/cellgraph/util/log"
)

const DEFAULT_GRAPHD_CONFIG = `
# Graphd Configuration.

[module]
name = "graphd"
role = "graphd"
version = "v1"
data-path = "/tmp/cellgraph/graphd/data"

[log]
log-path = "/tmp/cellgraph/graphd/log"
#debug, info, warn, error
level = "info"

[catalog]
#memory, etcd3
backend = "memory"
server-addrs = ""
root-dir = "/cellgraph"

[store]
#badgerdb, boltdb, btreedb
engine = "badgerdb"
txn-max-retries = 10

[server]
http-port = 8817
connection-limit = 1024
read-timeout = "30s"
write-timeout = "30s"
`

const (
	CONFIG_ROLE_GRAPHD = "graphd"

	CONFIG_LOG_LEVEL_DEBUG = "debug"
	CONFIG_LOG_LEVEL_INFO  = "info"
	CONFIG_LOG_LEVEL_WARN  = "warn"
	CONFIG_LOG_LEVEL_ERROR = "error"

	CONFIG_ENGINE_BADGERDB = "badgerdb"
	CONFIG_ENGINE_BOLTDB   = "boltdb"
	CONFIG_ENGINE_BTREEDB  = "btreedb"

	CONFIG_CATALOG_MEMORY = "memory"
	CONFIG_CATALOG_ETCD3  = "etcd3"
)

type Config struct {
	ModuleCfg  ModuleConfig  `toml:"module,omitempty" json:"module"`
	LogCfg     LogConfig     `toml:"log,omitempty" json:"log"`
	CatalogCfg CatalogConfig `toml:"catalog,omitempty" json:"catalog"`
	StoreCfg   StoreConfig   `toml:"store,omitempty" json:"store"`
	ServerCfg  ServerConfig  `toml:"server,omitempty" json:"server"`
}

func NewConfig(path string) *Config {
	c := new(Config)

	if _, err := toml.Decode(DEFAULT_GRAPHD_CONFIG, c); err != nil {
		log.Panic("fail to decode default config, err[%v]", err)
	}

	if len(path) != 0 {
		_, err := toml.DecodeFile(path, c)
		if err != nil {
			log.Panic("fail to decode config file[%v]. err[%v]", path, err)
		}
	}

	c.adjust()

	return c
}

func (c *Config) adjust() {
	c.ModuleCfg.adjust()
	c.LogCfg.adjust()
	c.CatalogCfg.adjust()
	c.StoreCfg.adjust()
	c.ServerCfg.adjust()
}

type ModuleConfig struct {
	Name     string `toml:"name,omitempty" json:"name"`
	Role     string `toml:"role,omitempty" json:"role"`
	Version  string `toml:"version,omitempty" json:"version"`
	DataPath string `toml:"data-path,omitempty" json:"data-path"`
}

func (cfg *ModuleConfig) adjust() {
	adjustString(&cfg.Name, "no module name")

	adjustString(&cfg.Role, "no role")
	if strings.Compare(cfg.Role, CONFIG_ROLE_GRAPHD) != 0 {
		log.Panic("invalid role[%v]", cfg.Role)
	}

	adjustString(&cfg.DataPath, "no data path")
	_, err := os.Stat(cfg.DataPath)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.DataPath, os.ModePerm); err != nil {
			log.Panic("fail to create data path[%v]. err[%v]", cfg.DataPath, err)
		}
	}
}

type LogConfig struct {
	LogPath string `toml:"log-path,omitempty" json:"log-path"`
	Level   string `toml:"level,omitempty" json:"level"`
}

func (c *LogConfig) adjust() {
	adjustString(&c.LogPath, "no log path")
	_, err := os.Stat(c.LogPath)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(c.LogPath, os.ModePerm); err != nil {
			log.Panic("fail to create log path[%v]. err[%v]", c.LogPath, err)
		}
	}

	adjustString(&c.Level, "no log level")
	c.Level = strings.ToLower(c.Level)
	switch c.Level {
	case CONFIG_LOG_LEVEL_DEBUG:
	case CONFIG_LOG_LEVEL_INFO:
	case CONFIG_LOG_LEVEL_WARN:
	case CONFIG_LOG_LEVEL_ERROR:
	default:
		log.Panic("Invalid log level[%v]", c.Level)
	}
}

type CatalogConfig struct {
	Backend     string `toml:"backend,omitempty" json:"backend"`
	ServerAddrs string `toml:"server-addrs,omitempty" json:"server-addrs"`
	RootDir     string `toml:"root-dir,omitempty" json:"root-dir"`
}

func (cfg *CatalogConfig) adjust() {
	adjustString(&cfg.Backend, "no catalog backend")
	cfg.Backend = strings.ToLower(cfg.Backend)
	switch cfg.Backend {
	case CONFIG_CATALOG_MEMORY:
	case CONFIG_CATALOG_ETCD3:
		if len(cfg.ServerAddrs) == 0 {
			log.Panic("etcd3 catalog backend needs server-addrs")
		}
	default:
		log.Panic("invalid catalog backend[%v]", cfg.Backend)
	}

	adjustString(&cfg.RootDir, "no catalog root dir")
}

type StoreConfig struct {
	Engine        string `toml:"engine,omitempty" json:"engine"`
	TxnMaxRetries uint32 `toml:"txn-max-retries,omitempty" json:"txn-max-retries"`
}

func (cfg *StoreConfig) adjust() {
	adjustString(&cfg.Engine, "no store engine")
	cfg.Engine = strings.ToLower(cfg.Engine)
	switch cfg.Engine {
	case CONFIG_ENGINE_BADGERDB:
	case CONFIG_ENGINE_BOLTDB:
	case CONFIG_ENGINE_BTREEDB:
	default:
		log.Panic("invalid store engine[%v]", cfg.Engine)
	}

	adjustUint32(&cfg.TxnMaxRetries, "no txn max retries")
}

type ServerConfig struct {
	HttpPort        uint32        `toml:"http-port,omitempty" json:"http-port"`
	ConnectionLimit uint32        `toml:"connection-limit,omitempty" json:"connection-limit"`
	ReadTimeout     util.Duration `toml:"read-timeout,omitempty" json:"read-timeout"`
	WriteTimeout    util.Duration `toml:"write-timeout,omitempty" json:"write-timeout"`
}

func (cfg *ServerConfig) adjust() {
	adjustUint32(&cfg.HttpPort, "no server http port")
	if cfg.HttpPort <= 1024 || cfg.HttpPort > 65535 {
		log.Panic("out of server http port %d", cfg.HttpPort)
	}

	adjustUint32(&cfg.ConnectionLimit, "no server connection limit")
	adjustDuration(&cfg.ReadTimeout, "no server read timeout")
	adjustDuration(&cfg.WriteTimeout, "no server write timeout")
}

func adjustString(v *string, errMsg string) {
	if len(*v) == 0 {
		log.Panic("Config adjust string error, %v", errMsg)
	}
}

func adjustUint32(v *uint32, errMsg string) {
	if *v == 0 {
		log.Panic("Config adjust uint32 error, %v", errMsg)
	}
}

func adjustDuration(v *util.Duration, errMsg string) {
	if v.Duration == 0 {
		log.Panic("Config adjust duration error, %v", errMsg)
	}
}
