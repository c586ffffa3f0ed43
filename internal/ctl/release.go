package ctl

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReleaseConfig is the YAML release definition passed to deployctl with -f.
type ReleaseConfig struct {
	APIURL      string `yaml:"api_url"`
	APIKey      string `yaml:"api_key"`
	Version     string `yaml:"version"`
	Image       string `yaml:"image"`
	Environment string `yaml:"environment"`
	SkipBackup  bool   `yaml:"skip_backup"`
	DryRun      bool   `yaml:"dry_run"`
}

// LoadRelease parses a release definition and resolves the API key from the
// file or the DEPLOYOPS_API_KEY environment variable.
func LoadRelease(path string) (*ReleaseConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read release definition: %w", err)
	}

	var cfg ReleaseConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse release definition: %w", err)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("DEPLOYOPS_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key: set api_key in the release definition or DEPLOYOPS_API_KEY env var")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "http://localhost:8090"
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("release definition missing version")
	}
	return &cfg, nil
}
