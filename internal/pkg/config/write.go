package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

func DefaultConfigPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("获取可执行文件路径失败: %w", err)
	}
	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, "config", "config.yaml"), nil
}

func WriteFile(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("cfg 不能为空")
	}
	if path == "" {
		return fmt.Errorf("path 不能为空")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	payload := map[string]any{
		"app": map[string]any{
			"name":      cfg.App.Name,
			"version":   cfg.App.Version,
			"log_level": cfg.App.LogLevel,
			"log_path":  cfg.App.LogPath,
		},
		"storage": map[string]any{
			"backend":     cfg.Storage.Backend,
			"db_path":     cfg.Storage.DBPath,
			"dir":         cfg.Storage.Dir,
			"key":         cfg.Storage.Key,
			"quota_bytes": cfg.Storage.QuotaBytes,
		},
		"retention": map[string]any{
			"history_limit":       cfg.Retention.HistoryLimit,
			"sample_max_age_days": cfg.Retention.SampleMaxAgeDays,
		},
		"game": map[string]any{
			"base_xp":        cfg.Game.BaseXP,
			"growth_rate":    cfg.Game.GrowthRate,
			"level_up_coins": cfg.Game.LevelUpCoins,
		},
	}

	b, err := yaml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}
