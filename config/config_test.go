package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Qdrant.Addr != "localhost:6334" {
		t.Errorf("qdrant addr = %q", cfg.Qdrant.Addr)
	}
	if cfg.Qdrant.Collection != "products" {
		t.Errorf("collection = %q", cfg.Qdrant.Collection)
	}
	if cfg.Ingest.BatchSize != 16 {
		t.Errorf("batch size = %d", cfg.Ingest.BatchSize)
	}
	if cfg.Ingest.CommitPause.Milliseconds() != 600 {
		t.Errorf("commit pause = %v", cfg.Ingest.CommitPause)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CATALOG_QDRANT_ADDR", "qdrant.internal:6334")
	t.Setenv("CATALOG_SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Qdrant.Addr != "qdrant.internal:6334" {
		t.Errorf("qdrant addr = %q", cfg.Qdrant.Addr)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
}

func TestLoadRejectsBadBatchSize(t *testing.T) {
	t.Setenv("CATALOG_INGEST_BATCH_SIZE", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error")
	}
}
