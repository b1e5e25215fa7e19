package config

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
)

// ClientConfig holds the configuration settings for doractl.
type ClientConfig struct {
	ServerAddr    string // Server address
	ClientTimeout int    // HTTP client timeout (in seconds)
	Key           string // Key for hash generation
}

// NewClientConfig creates and returns a new ClientConfig by parsing flags and environment variables.
// Positional arguments are left in flag.Args().
func NewClientConfig() *ClientConfig {
	cfg := &ClientConfig{
		ServerAddr:    "http://localhost:9000",
		ClientTimeout: 10,
	}

	var fAddr, fKey, fConf strFlag
	var fTO intFlag
	flag.Var(&fAddr, "a", "molecule server address (http:// is added when missing)")
	flag.Var(&fTO, "timeout", "client timeout (seconds)")
	flag.Var(&fKey, "k", "Hash key string")
	flag.Var(&fConf, "c", "Path to JSON config file")
	flag.Var(&fConf, "config", "Path to JSON config file (alias)")
	flag.Parse()

	if fAddr.set {
		cfg.ServerAddr = fAddr.v
	}
	if fTO.set {
		cfg.ClientTimeout = fTO.v
	}
	if fKey.set {
		cfg.Key = fKey.v
	}

	if fConf.v == "" {
		fConf.v = os.Getenv("CONFIG")
	}
	if fConf.v != "" {
		if js, err := loadClientJSON(fConf.v); err == nil {
			if js.Address != nil && !fAddr.set {
				cfg.ServerAddr = *js.Address
			}
			if js.ClientTimeout != nil && !fTO.set {
				cfg.ClientTimeout = *js.ClientTimeout
			}
		} else {
			log.Printf("failed to load config file %q: %v", fConf.v, err)
		}
	}

	readClientEnvironment(cfg)

	// normalize address
	if !strings.HasPrefix(cfg.ServerAddr, "http://") && !strings.HasPrefix(cfg.ServerAddr, "https://") {
		cfg.ServerAddr = "http://" + cfg.ServerAddr
	}
	cfg.ServerAddr = strings.TrimRight(cfg.ServerAddr, "/")
	return cfg
}

func readClientEnvironment(cfg *ClientConfig) {
	if addr := os.Getenv("ADDRESS"); addr != "" {
		cfg.ServerAddr = addr
	}

	if timeoutEnv := os.Getenv("CLIENT_TIMEOUT"); timeoutEnv != "" {
		v, err := strconv.Atoi(timeoutEnv)
		if err == nil {
			cfg.ClientTimeout = v
		} else {
			log.Printf("invalid CLIENT_TIMEOUT env var: %v", err)
		}
	}

	if key := os.Getenv("KEY"); key != "" {
		cfg.Key = key
	}
}
