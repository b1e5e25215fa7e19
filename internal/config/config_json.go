package config

import (
	"encoding/json"
	"os"
)

type serverJSON struct {
	Address       *string `json:"address"`
	BaseURL       *string `json:"base_url"`
	ServiceName   *string `json:"service_name"`
	HostOrigin    *string `json:"host_origin"`
	DatabaseDSN   *string `json:"database_dsn"`
	DatasetPath   *string `json:"dataset_path"`
	CacheSize     *int    `json:"cache_size"`
	CacheTTL      *string `json:"cache_ttl"` // "30s"
	TrustedSubnet *string `json:"trusted_subnet"`
	LogLevel      *string `json:"log_level"`
}

type clientJSON struct {
	Address       *string `json:"address"`
	ClientTimeout *int    `json:"client_timeout"`
}

func loadServerJSON(path string) (*serverJSON, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg serverJSON
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadClientJSON(path string) (*clientJSON, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c clientJSON
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
