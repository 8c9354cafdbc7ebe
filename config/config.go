/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

// Package config loads tiered stack configuration from YAML. A document
// lists tiers in priority order, fastest first; Build turns the list
// into a store.Stack for one entity type.
//
// Settings reference environment variables with ${VAR} syntax, so
// secrets stay out of checked-in files. Pair with godotenv in
// development.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Tier kinds accepted in a stack document.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
	KindRedis  = "redis"
	KindDDB    = "dynamodb"
)

// TierConfig describes one tier in the stack.
type TierConfig struct {
	Kind string `yaml:"kind"`

	// Path is the database file for sqlite tiers.
	Path string `yaml:"path,omitempty"`

	// Addr and DB select the redis instance for redis tiers.
	Addr string `yaml:"addr,omitempty"`
	DB   int    `yaml:"db,omitempty"`

	// AWS settings for dynamodb tiers.
	Region    string `yaml:"region,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Table     string `yaml:"table,omitempty"`
}

// StackConfig is the top-level stack document.
type StackConfig struct {
	Tiers []TierConfig `yaml:"tiers"`
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(macro string) string {
		return os.Getenv(macro[2 : len(macro)-1])
	})
}

// Load reads and parses a stack document from a file.
func Load(path string) (*StackConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses a stack document and expands ${VAR} references.
func Parse(data []byte) (*StackConfig, error) {
	var cfg StackConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	for i := range cfg.Tiers {
		t := &cfg.Tiers[i]
		t.Path = expandEnv(t.Path)
		t.Addr = expandEnv(t.Addr)
		t.Region = expandEnv(t.Region)
		t.AccessKey = expandEnv(t.AccessKey)
		t.SecretKey = expandEnv(t.SecretKey)
		t.Table = expandEnv(t.Table)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks tier kinds and required per-kind settings.
func (c *StackConfig) Validate() error {
	if len(c.Tiers) == 0 {
		return fmt.Errorf("config lists no tiers")
	}

	for i, t := range c.Tiers {
		switch t.Kind {
		case KindMemory:
		case KindSQLite:
			if t.Path == "" {
				return fmt.Errorf("tier %d: sqlite tier requires path", i)
			}
		case KindRedis:
			if t.Addr == "" {
				return fmt.Errorf("tier %d: redis tier requires addr", i)
			}
		case KindDDB:
			if t.Region == "" || t.Table == "" {
				return fmt.Errorf("tier %d: dynamodb tier requires region and table", i)
			}
		default:
			return fmt.Errorf("tier %d: unknown tier kind %q", i, t.Kind)
		}
	}
	return nil
}
