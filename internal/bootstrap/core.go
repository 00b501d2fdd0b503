package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/yuqie6/mindcare/internal/eventbus"
	"github.com/yuqie6/mindcare/internal/gameconfig"
	"github.com/yuqie6/mindcare/internal/pkg/config"
	"github.com/yuqie6/mindcare/internal/repository"
	"github.com/yuqie6/mindcare/internal/service"
)

// Core 持有跨命令共享的核心依赖
type Core struct {
	Cfg       *config.Config
	DB        *repository.Database // 仅 sqlite 后端
	Files     *repository.FileKV   // 仅 file 后端
	KV        service.KV
	Hub       *eventbus.Hub
	Table     *gameconfig.Table
	Store     *service.Store
	Rewards   service.RewardPolicy
	LogCloser io.Closer
}

// NewCore 加载配置、设置日志并构建核心依赖（不加载存档）。
// overrides 在配置加载后依次执行，用于命令行参数覆盖配置。
func NewCore(cfgPath string, overrides ...func(*config.Config)) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}
	logCloser, _ := config.SetupLogger(config.LoggerOptions{
		Level:     cfg.App.LogLevel,
		Path:      cfg.App.LogPath,
		Component: filepath.Base(os.Args[0]),
	})

	c, err := NewCoreWithConfig(cfg)
	if err != nil {
		if logCloser != nil {
			_ = logCloser.Close()
		}
		return nil, err
	}
	c.LogCloser = logCloser
	return c, nil
}

// NewCoreWithConfig 按已有配置构建核心依赖，不设置日志
func NewCoreWithConfig(cfg *config.Config) (*Core, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg 不能为空")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Core{
		Cfg:   cfg,
		Hub:   eventbus.NewHub(),
		Table: gameconfig.New(cfg.GameParams()),
	}

	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		db, err := repository.NewDatabase(cfg.Storage.DBPath)
		if err != nil {
			return nil, err
		}
		if db.SafeMode {
			slog.Warn("数据库处于安全模式，存档只读", "reason", db.MigrationError)
		}
		c.DB = db
		c.KV = repository.NewKVRepository(db.DB, repository.KVOptions{
			QuotaBytes: cfg.Storage.QuotaBytes,
			ReadOnly:   db.SafeMode,
		})
	case config.BackendFile:
		files, err := repository.NewFileKV(cfg.Storage.Dir, cfg.Storage.QuotaBytes)
		if err != nil {
			return nil, err
		}
		c.Files = files
		c.KV = files
	case config.BackendMemory:
		c.KV = repository.NewMemoryKV(cfg.Storage.QuotaBytes)
	}

	c.Rewards = service.DefaultRewardPolicy{Table: c.Table}
	c.Store = service.NewStore(c.KV, service.StoreOptions{
		Key:          cfg.Storage.Key,
		HistoryLimit: cfg.Retention.HistoryLimit,
		SampleMaxAge: cfg.SampleMaxAge(),
		Table:        c.Table,
		Events:       c.Hub,
	})

	slog.Debug("核心依赖初始化完成", "backend", cfg.Storage.Backend, "key", cfg.Storage.Key)
	return c, nil
}

// WatchForeignWrites 监控其他会话对主存档的写入并转发为事件；仅 file 后端支持
func (c *Core) WatchForeignWrites(ctx context.Context) error {
	if c.Files == nil {
		return fmt.Errorf("当前存储后端 %s 不支持监控", c.Cfg.Storage.Backend)
	}
	return c.Files.Watch(ctx, c.Store.Key(), func(key string) {
		c.Hub.Publish(eventbus.Event{
			Type: eventbus.TypeForeignWrite,
			Data: map[string]any{"key": key},
		})
	})
}

// Close 关闭核心依赖资源
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	var dbErr error
	if c.DB != nil {
		dbErr = c.DB.Close()
	}
	if c.LogCloser != nil {
		_ = c.LogCloser.Close()
	}
	return dbErr
}
