package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Storage.Backend != BackendSQLite || cfg.Storage.Key != "mindcareGameData" {
		t.Fatalf("storage=%+v, want sqlite/mindcareGameData", cfg.Storage)
	}
	if cfg.Retention.HistoryLimit != 100 || cfg.Retention.SampleMaxAgeDays != 90 {
		t.Fatalf("retention=%+v, want 100/90", cfg.Retention)
	}
	if p := cfg.GameParams(); p.BaseXP != 100 || p.GrowthRate != 1.15 || p.LevelUpCoins != 25 {
		t.Fatalf("game params=%+v", p)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestWriteFileThenLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Storage.Backend = BackendFile
	cfg.Storage.Dir = filepath.Join(dir, "kv")
	cfg.Storage.DBPath = filepath.Join(dir, "mindcare.db")
	cfg.Storage.QuotaBytes = 1024
	cfg.Retention.HistoryLimit = 50
	if err := WriteFile(path, cfg); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.Storage.Backend != BackendFile || got.Storage.Dir != cfg.Storage.Dir || got.Storage.QuotaBytes != 1024 {
		t.Fatalf("storage=%+v", got.Storage)
	}
	if got.Retention.HistoryLimit != 50 {
		t.Fatalf("history_limit=%d, want 50", got.Retention.HistoryLimit)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  backend: sqlite\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MINDCARE_STORAGE_BACKEND", "memory")
	t.Setenv("MINDCARE_STORAGE_KEY", "altKey")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Storage.Backend != BackendMemory || cfg.Storage.Key != "altKey" {
		t.Fatalf("storage=%+v, want env overrides", cfg.Storage)
	}
	if !filepath.IsAbs(cfg.Storage.DBPath) {
		t.Fatalf("db_path=%q, want resolved absolute path", cfg.Storage.DBPath)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "backend", yaml: "storage:\n  backend: redis\n", want: "存储后端"},
		{name: "history", yaml: "retention:\n  history_limit: 500\n", want: "history_limit"},
		{name: "key", yaml: "storage:\n  key: \"  \"\n", want: "storage.key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err=%v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mindcare.log")
	closer, err := SetupLogger(LoggerOptions{Level: "debug", Path: path, Component: "test"})
	if err != nil {
		t.Fatalf("SetupLogger error: %v", err)
	}
	if closer == nil {
		t.Fatalf("closer=nil, want log file")
	}
	defer closer.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
}
