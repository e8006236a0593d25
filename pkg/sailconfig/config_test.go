package sailconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quaddb/sail/pkg/isolation"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestLoadFillsDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sail.yaml")
	if err := os.WriteFile(path, []byte("default_isolation_level: snapshot\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DefaultIsolationLevel != isolation.Snapshot {
		t.Fatalf("expected overridden isolation level, got %v", cfg.DefaultIsolationLevel)
	}
	if cfg.AutoFlushBlockSize != defaultAutoFlushBlockSize {
		t.Fatalf("expected default auto-flush block size to be filled in, got %d", cfg.AutoFlushBlockSize)
	}
	if len(cfg.SupportedIsolationLevels) == 0 {
		t.Fatalf("expected default supported isolation levels to be filled in")
	}
}

func TestValidateRejectsUnrecognizedLevel(t *testing.T) {
	cfg := Default()
	cfg.DefaultIsolationLevel = isolation.Level("bogus")
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for unrecognized isolation level")
	}
}

func TestValidateRejectsNonPositiveAutoFlush(t *testing.T) {
	cfg := Default()
	cfg.AutoFlushBlockSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for non-positive auto_flush_block_size")
	}
}
