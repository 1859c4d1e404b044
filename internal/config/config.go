// Package config handles the top-level splitledger.yaml file, which points
// at the schema, merchant, and business-rule configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the expected name of the top-level config file.
const FileName = "splitledger.yaml"

// Config is the top-level configuration.
type Config struct {
	Paths   PathsConfig  `yaml:"paths"`
	Output  OutputConfig `yaml:"output"`
	ReviewF string       `yaml:"review_file,omitempty"`
}

// PathsConfig locates the rule files relative to the config directory.
type PathsConfig struct {
	Schemas   string `yaml:"schemas"`
	Merchants string `yaml:"merchants"`
	Rules     string `yaml:"rules"`
	Input     string `yaml:"input"`
}

// OutputConfig names the export files.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	Transactions string `yaml:"transactions"`
	Ledger       string `yaml:"ledger"`
	ReviewQueue  string `yaml:"review_queue"`
}

// Load reads a splitledger.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the conventional layout.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Schemas:   "schemas.yaml",
			Merchants: "merchants.yaml",
			Rules:     "rules.yaml",
			Input:     "exports",
		},
		Output: OutputConfig{
			Dir:          "out",
			Transactions: "transactions.csv",
			Ledger:       "ledger.csv",
			ReviewQueue:  "review_queue.csv",
		},
	}
}

// Resolve joins a configured relative path onto the config directory.
func Resolve(configDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(configDir, p)
}
