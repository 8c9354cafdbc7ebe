/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scribd/Lucid-sub001/store"
	"github.com/scribd/Lucid-sub001/store/testmodels"
)

func TestParse(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		cfg, err := Parse([]byte(`
tiers:
  - kind: memory
  - kind: sqlite
    path: /tmp/lucid.db
  - kind: dynamodb
    region: us-east-1
    table: entities
`))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if len(cfg.Tiers) != 3 {
			t.Fatalf("expected 3 tiers, got %d", len(cfg.Tiers))
		}
		if cfg.Tiers[1].Path != "/tmp/lucid.db" {
			t.Errorf("sqlite path not parsed: %q", cfg.Tiers[1].Path)
		}
	})

	t.Run("env references expand", func(t *testing.T) {
		t.Setenv("LUCID_TEST_REDIS_ADDR", "cache.internal:6379")
		cfg, err := Parse([]byte(`
tiers:
  - kind: redis
    addr: ${LUCID_TEST_REDIS_ADDR}
`))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if cfg.Tiers[0].Addr != "cache.internal:6379" {
			t.Errorf("env reference not expanded: %q", cfg.Tiers[0].Addr)
		}
	})

	t.Run("unknown tier kind", func(t *testing.T) {
		_, err := Parse([]byte("tiers:\n  - kind: carrier-pigeon\n"))
		if err == nil || !strings.Contains(err.Error(), "unknown tier kind") {
			t.Errorf("expected an unknown-kind error, got %v", err)
		}
	})

	t.Run("missing required setting", func(t *testing.T) {
		_, err := Parse([]byte("tiers:\n  - kind: sqlite\n"))
		if err == nil || !strings.Contains(err.Error(), "requires path") {
			t.Errorf("expected a missing-path error, got %v", err)
		}
	})

	t.Run("no tiers", func(t *testing.T) {
		if _, err := Parse([]byte("tiers: []\n")); err == nil {
			t.Error("expected an error for an empty tier list")
		}
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack.yaml")
	if err := os.WriteFile(path, []byte("tiers:\n  - kind: memory\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.Tiers) != 1 || cfg.Tiers[0].Kind != KindMemory {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected a read error for a missing file")
	}
}

func TestBuildStack(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lucid.db")
	cfg := &StackConfig{Tiers: []TierConfig{
		{Kind: KindMemory},
		{Kind: KindSQLite, Path: dbPath},
	}}

	stack, err := BuildStack[testmodels.Document](cfg, testmodels.DocumentType)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if stack.Len() != 2 {
		t.Fatalf("expected 2 tiers, got %d", stack.Len())
	}
	if stack.Fastest().Level() != store.LevelMemory {
		t.Error("first configured tier should be the fastest")
	}
	if stack.Local().Len() != 2 || stack.Remote().Len() != 0 {
		t.Error("unexpected tier split")
	}
}
