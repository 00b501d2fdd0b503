package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yuqie6/mindcare/internal/eventbus"
	"github.com/yuqie6/mindcare/internal/pkg/config"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Backend = backend
	cfg.Storage.DBPath = filepath.Join(dir, "mindcare.db")
	cfg.Storage.Dir = filepath.Join(dir, "kv")
	return cfg
}

func TestNewCoreWithConfigBackends(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendFile, config.BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			c, err := NewCoreWithConfig(testConfig(t, backend))
			if err != nil {
				t.Fatalf("NewCoreWithConfig error: %v", err)
			}
			defer c.Close()

			ctx := context.Background()
			doc, err := c.Store.Load(ctx)
			if err != nil {
				t.Fatalf("Load error: %v", err)
			}
			if doc.Player.Level != 1 || !c.Store.Report().Fresh {
				t.Fatalf("level=%d fresh=%v, want fresh level 1", doc.Player.Level, c.Store.Report().Fresh)
			}
			raw, found, err := c.KV.Get(ctx, c.Cfg.Storage.Key)
			if err != nil || !found || len(raw) == 0 {
				t.Fatalf("stored document missing: found=%v err=%v", found, err)
			}
		})
	}
}

func TestNewCoreWithConfigSQLiteSurvivesReopen(t *testing.T) {
	cfg := testConfig(t, config.BackendSQLite)
	ctx := context.Background()

	c, err := NewCoreWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewCoreWithConfig error: %v", err)
	}
	if _, err := c.Store.AddXP(ctx, 115, "test"); err != nil {
		t.Fatalf("AddXP error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	c2, err := NewCoreWithConfig(cfg)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer c2.Close()
	doc, err := c2.Store.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if doc.Player.Level != 2 || doc.Player.CurrentXP != 15 {
		t.Fatalf("level=%d xp=%d, want 2/15", doc.Player.Level, doc.Player.CurrentXP)
	}
}

func TestNewCoreWithConfigRejectsInvalid(t *testing.T) {
	if _, err := NewCoreWithConfig(nil); err == nil {
		t.Fatalf("nil config accepted")
	}
	cfg := testConfig(t, "redis")
	if _, err := NewCoreWithConfig(cfg); err == nil {
		t.Fatalf("unknown backend accepted")
	}
}

func TestWatchForeignWritesPublishesEvent(t *testing.T) {
	cfg := testConfig(t, config.BackendFile)
	c, err := NewCoreWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewCoreWithConfig error: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := c.Store.Load(ctx); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	events := c.Hub.Subscribe(ctx, 4, eventbus.TypeForeignWrite)
	if err := c.WatchForeignWrites(ctx); err != nil {
		t.Fatalf("WatchForeignWrites error: %v", err)
	}

	path := filepath.Join(c.Files.Dir(), cfg.Storage.Key+".json")
	if err := os.WriteFile(path, []byte(`{"version":"1.0.0","player":{}}`), 0o644); err != nil {
		t.Fatalf("foreign write: %v", err)
	}

	select {
	case evt := <-events:
		if evt.Data["key"] != cfg.Storage.Key {
			t.Fatalf("event data=%v, want key %s", evt.Data, cfg.Storage.Key)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("foreign write not reported")
	}
}

func TestWatchForeignWritesRequiresFileBackend(t *testing.T) {
	c, err := NewCoreWithConfig(testConfig(t, config.BackendMemory))
	if err != nil {
		t.Fatalf("NewCoreWithConfig error: %v", err)
	}
	defer c.Close()
	if err := c.WatchForeignWrites(context.Background()); err == nil {
		t.Fatalf("memory backend watch should fail")
	}
}

func TestNewCoreLoadsConfigFileAndAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := testConfig(t, config.BackendFile)
	cfg.Storage.Key = "coreKey"
	cfg.App.LogPath = filepath.Join(dir, "logs", "mindcare.log")
	if err := config.WriteFile(path, cfg); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	c, err := NewCore(path)
	if err != nil {
		t.Fatalf("NewCore error: %v", err)
	}
	if c.Files == nil || c.Store.Key() != "coreKey" || c.LogCloser == nil {
		t.Fatalf("core=%+v, want file backend with key coreKey and log file", c)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	overridden, err := NewCore(path, func(cfg *config.Config) {
		cfg.Storage.Backend = config.BackendMemory
	})
	if err != nil {
		t.Fatalf("NewCore with override error: %v", err)
	}
	defer overridden.Close()
	if overridden.Files != nil || overridden.Cfg.Storage.Backend != config.BackendMemory {
		t.Fatalf("backend=%s, want memory override", overridden.Cfg.Storage.Backend)
	}
	if _, err := overridden.Store.Load(context.Background()); err != nil {
		t.Fatalf("Load error: %v", err)
	}
}
