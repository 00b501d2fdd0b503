package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/yuqie6/mindcare/internal/gameconfig"
)

// 存储后端
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Retention RetentionConfig `mapstructure:"retention"`
	Game      GameConfig      `mapstructure:"game"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Version  string `mapstructure:"version"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Backend    string `mapstructure:"backend"`
	DBPath     string `mapstructure:"db_path"`
	Dir        string `mapstructure:"dir"`
	Key        string `mapstructure:"key"`
	QuotaBytes int64  `mapstructure:"quota_bytes"` // <=0 不限制
}

// RetentionConfig 数据保留配置
type RetentionConfig struct {
	HistoryLimit     int `mapstructure:"history_limit"`
	SampleMaxAgeDays int `mapstructure:"sample_max_age_days"`
}

// GameConfig 经验曲线配置
type GameConfig struct {
	BaseXP       int     `mapstructure:"base_xp"`
	GrowthRate   float64 `mapstructure:"growth_rate"`
	LevelUpCoins int     `mapstructure:"level_up_coins"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 默认查找路径
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 支持环境变量
	v.SetEnvPrefix("MINDCARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("配置文件未找到，使用默认配置")
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		slog.Info("加载配置文件", "path", v.ConfigFileUsed())
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 处理相对路径
	cfg.Storage.DBPath = resolvePath(cfg.Storage.DBPath)
	cfg.Storage.Dir = resolvePath(cfg.Storage.Dir)
	cfg.App.LogPath = resolvePath(cfg.App.LogPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 默认配置（不读文件和环境变量，路径未解析）
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "mindcare")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_path", "")

	// Storage
	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.db_path", "./data/mindcare.db")
	v.SetDefault("storage.dir", "./data/kv")
	v.SetDefault("storage.key", "mindcareGameData")
	v.SetDefault("storage.quota_bytes", 5*1024*1024)

	// Retention
	v.SetDefault("retention.history_limit", 100)
	v.SetDefault("retention.sample_max_age_days", 90)

	// Game
	v.SetDefault("game.base_xp", gameconfig.DefaultBaseXP)
	v.SetDefault("game.growth_rate", gameconfig.DefaultGrowthRate)
	v.SetDefault("game.level_up_coins", gameconfig.DefaultLevelUpCoins)
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendFile, BackendMemory:
	default:
		return fmt.Errorf("配置无效: 未知的存储后端 %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return fmt.Errorf("配置无效: storage.key 不能为空")
	}
	if c.Retention.HistoryLimit <= 0 || c.Retention.HistoryLimit > 100 {
		return fmt.Errorf("配置无效: retention.history_limit 必须在 1-100 之间，当前 %d", c.Retention.HistoryLimit)
	}
	if c.Retention.SampleMaxAgeDays <= 0 {
		return fmt.Errorf("配置无效: retention.sample_max_age_days 必须为正数")
	}
	return nil
}

// GameParams 经验曲线参数
func (c *Config) GameParams() gameconfig.Params {
	return gameconfig.Params{
		BaseXP:       c.Game.BaseXP,
		GrowthRate:   c.Game.GrowthRate,
		LevelUpCoins: c.Game.LevelUpCoins,
	}
}

// SampleMaxAge 统计采样保留时长
func (c *Config) SampleMaxAge() time.Duration {
	return time.Duration(c.Retention.SampleMaxAgeDays) * 24 * time.Hour
}

// resolvePath 解析相对路径为绝对路径
func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	// 获取可执行文件目录
	exe, err := os.Executable()
	if err != nil {
		return path
	}

	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, path)
}

// LoggerOptions 日志选项
type LoggerOptions struct {
	Level     string
	Path      string // 为空时只输出到 stderr
	Component string
}

// SetupLogger 根据配置设置日志级别与输出；返回的 Closer 用于关闭日志文件（可能为 nil）。
// 日志写 stderr，stdout 留给命令输出。
func SetupLogger(opts LoggerOptions) (io.Closer, error) {
	var logLevel slog.Level
	switch strings.ToLower(opts.Level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	var closer io.Closer
	var openErr error
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			openErr = fmt.Errorf("创建日志目录失败: %w", err)
		} else if f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
			openErr = fmt.Errorf("打开日志文件失败: %w", err)
		} else {
			out = io.MultiWriter(os.Stderr, f)
			closer = f
		}
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	if opts.Component != "" {
		logger = logger.With("component", opts.Component)
	}
	slog.SetDefault(logger)

	if openErr != nil {
		slog.Warn("日志文件不可用，仅输出到终端", "error", openErr)
	}
	return closer, openErr
}
