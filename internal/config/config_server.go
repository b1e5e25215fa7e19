// Package config provides application configuration structures and helpers.
package config

import (
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// AssetsVersion is the version segment of the versioned static asset path.
	AssetsVersion = "1.0.0"
	// DefaultServiceName is the molecule's fully qualified name.
	DefaultServiceName = "dora.molecules.devgraph.ai"
)

// ServerConfig holds the configuration settings for the molecule server.
type ServerConfig struct {
	Addr          string // Listen address
	Logger        *zap.SugaredLogger
	BaseURL       string        // Public base URL used to build widget URLs
	ServiceName   string        // Molecule name, used in the versioned asset path
	HostOrigin    string        // Origin the widget talks to; empty means any
	DatabaseDsn   string        // Data Source Name for PostgreSQL; empty selects the mock dataset
	DatasetPath   string        // Optional JSON file seeding the mock dataset
	CacheSize     int           // Number of cached snapshots, 0 disables caching
	CacheTTL      time.Duration // Lifetime of a cached snapshot
	Key           string        // Key for request hash verification
	TrustedSubnet string        // CIDR, ex. "192.168.1.0/24"
	LogLevel      string        // debug, info, warn, error
}

// NewServerConfig creates and returns a new ServerConfig by parsing flags,
// an optional JSON file and environment variables, in increasing priority.
func NewServerConfig() *ServerConfig {
	// 0) defaults
	cfg := &ServerConfig{
		Addr:        "localhost:9000",
		BaseURL:     "http://localhost:9000",
		ServiceName: DefaultServiceName,
		CacheSize:   128,
		CacheTTL:    30 * time.Second,
		LogLevel:    "info",
	}

	// 1) flags
	fAddr := strFlag{v: cfg.Addr}
	fBase := strFlag{v: cfg.BaseURL}
	fName := strFlag{v: cfg.ServiceName}
	fCacheSize := intFlag{v: cfg.CacheSize}
	fCacheTTL := durationFlag{v: cfg.CacheTTL}
	fLevel := strFlag{v: cfg.LogLevel}
	var fOrigin, fDSN, fDataset, fKey, fTrustedSubnet strFlag
	var fConf strFlag // -c / -config

	flag.Var(&fAddr, "a", "HTTP server address")
	flag.Var(&fBase, "b", "public base URL of this server")
	flag.Var(&fName, "s", "molecule service name")
	flag.Var(&fOrigin, "o", "origin of the host page embedding the widget")
	flag.Var(&fDSN, "d", "DB connection string")
	flag.Var(&fDataset, "f", "path to JSON dataset for the mock source")
	flag.Var(&fCacheSize, "cache-size", "snapshot cache size (0 disables)")
	flag.Var(&fCacheTTL, "cache-ttl", "snapshot cache TTL")
	flag.Var(&fKey, "k", "Hash key string")
	flag.Var(&fTrustedSubnet, "t", "trusted subnet")
	flag.Var(&fLevel, "log-level", "log level")
	flag.Var(&fConf, "c", "Path to JSON config file")
	flag.Var(&fConf, "config", "Path to JSON config file (alias)")
	flag.Parse()

	cfg.Addr = fAddr.v
	cfg.BaseURL = fBase.v
	cfg.ServiceName = fName.v
	cfg.HostOrigin = fOrigin.v
	cfg.DatabaseDsn = fDSN.v
	cfg.DatasetPath = fDataset.v
	cfg.CacheSize = fCacheSize.v
	cfg.CacheTTL = fCacheTTL.v
	cfg.Key = fKey.v
	cfg.TrustedSubnet = fTrustedSubnet.v
	cfg.LogLevel = fLevel.v

	// 2) JSON, only for values not given as flags
	if fConf.v == "" {
		fConf.v = os.Getenv("CONFIG")
	}
	if fConf.v != "" {
		js, err := loadServerJSON(fConf.v)
		if err != nil {
			log.Printf("failed to load config file %q: %v", fConf.v, err)
		} else {
			applyServerJSON(cfg, js, serverFlagsSet{
				addr:    fAddr.set,
				base:    fBase.set,
				name:    fName.set,
				origin:  fOrigin.set,
				dsn:     fDSN.set,
				dataset: fDataset.set,
				size:    fCacheSize.set,
				ttl:     fCacheTTL.set,
				subnet:  fTrustedSubnet.set,
				level:   fLevel.set,
			})
		}
	}

	// 3) environment
	readServerEnvironment(cfg)

	cfg.Logger = newLogger(cfg.LogLevel)
	return cfg
}

type serverFlagsSet struct {
	addr, base, name, origin, dsn, dataset, size, ttl, subnet, level bool
}

func applyServerJSON(cfg *ServerConfig, js *serverJSON, set serverFlagsSet) {
	if js.Address != nil && !set.addr {
		cfg.Addr = *js.Address
	}
	if js.BaseURL != nil && !set.base {
		cfg.BaseURL = *js.BaseURL
	}
	if js.ServiceName != nil && !set.name {
		cfg.ServiceName = *js.ServiceName
	}
	if js.HostOrigin != nil && !set.origin {
		cfg.HostOrigin = *js.HostOrigin
	}
	if js.DatabaseDSN != nil && !set.dsn {
		cfg.DatabaseDsn = *js.DatabaseDSN
	}
	if js.DatasetPath != nil && !set.dataset {
		cfg.DatasetPath = *js.DatasetPath
	}
	if js.CacheSize != nil && !set.size {
		cfg.CacheSize = *js.CacheSize
	}
	if js.CacheTTL != nil && !set.ttl {
		if d, err := time.ParseDuration(*js.CacheTTL); err == nil {
			cfg.CacheTTL = d
		} else {
			log.Printf("invalid cache_ttl in config file: %v", err)
		}
	}
	if js.TrustedSubnet != nil && !set.subnet {
		cfg.TrustedSubnet = *js.TrustedSubnet
	}
	if js.LogLevel != nil && !set.level {
		cfg.LogLevel = *js.LogLevel
	}
}

func readServerEnvironment(cfg *ServerConfig) {
	if addr := os.Getenv("ADDRESS"); addr != "" {
		cfg.Addr = addr
	}

	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if name := os.Getenv("SERVICE_NAME"); name != "" {
		cfg.ServiceName = name
	}

	if origin := os.Getenv("HOST_ORIGIN"); origin != "" {
		cfg.HostOrigin = origin
	}

	if dbDsn := os.Getenv("DATABASE_DSN"); dbDsn != "" {
		cfg.DatabaseDsn = dbDsn
	}

	if dataset := os.Getenv("DATASET_PATH"); dataset != "" {
		cfg.DatasetPath = dataset
	}

	if sizeEnv := os.Getenv("CACHE_SIZE"); sizeEnv != "" {
		v, err := strconv.Atoi(sizeEnv)
		if err == nil {
			cfg.CacheSize = v
		} else {
			log.Printf("invalid CACHE_SIZE env var: %v", err)
		}
	}

	if ttlEnv := os.Getenv("CACHE_TTL"); ttlEnv != "" {
		v, err := time.ParseDuration(ttlEnv)
		if err == nil {
			cfg.CacheTTL = v
		} else {
			log.Printf("invalid CACHE_TTL env var: %v", err)
		}
	}

	if key := os.Getenv("KEY"); key != "" {
		cfg.Key = key
	}

	if trustedSubnet := os.Getenv("TRUSTED_SUBNET"); trustedSubnet != "" {
		cfg.TrustedSubnet = trustedSubnet
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
}

func newLogger(level string) *zap.SugaredLogger {
	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = []string{"stdout"}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		log.Printf("invalid log level %q, using info: %v", level, err)
		lvl = zapcore.InfoLevel
	}
	logCfg.Level = zap.NewAtomicLevelAt(lvl)

	return zap.Must(logCfg.Build()).Sugar()
}
