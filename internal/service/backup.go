package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yuqie6/mindcare/internal/value"
)

// 备份中的时间戳格式（毫秒精度的 ISO-8601）
const backupTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// BackupKey 由标签得到备份键：<key>_backup 或 <key>_backup_<label>
func (s *Store) BackupKey(label string) string {
	if label == "" {
		return s.key + "_backup"
	}
	return s.key + "_backup_" + label
}

// Backup 将当前存档以 {timestamp, data} 写入备份键，返回该键。
// 同名备份会被覆盖并记录日志。
func (s *Store) Backup(ctx context.Context, label string) (string, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return "", err
	}
	rec, err := s.current()
	if err != nil {
		return "", err
	}
	key := s.BackupKey(label)
	if err := s.writeBackup(ctx, key, value.Object(rec), s.now()); err != nil {
		return "", err
	}
	slog.Info("备份已创建", "key", key)
	return key, nil
}

// Backups 列出当前存档派生的所有快照键（备份与损坏快照）
func (s *Store) Backups(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx, s.key+"_")
	if err != nil {
		return nil, fmt.Errorf("列出备份失败: %w", err)
	}
	return keys, nil
}

// ReadBackup 读取快照原文，用于人工恢复；不会自动恢复
func (s *Store) ReadBackup(ctx context.Context, key string) ([]byte, bool, error) {
	if !strings.HasPrefix(key, s.key+"_") {
		return nil, false, fmt.Errorf("%w: %s", ErrNotBackup, key)
	}
	return s.kv.Get(ctx, key)
}

func (s *Store) writeBackup(ctx context.Context, key string, data value.Value, now time.Time) error {
	if _, exists, err := s.kv.Get(ctx, key); err == nil && exists {
		slog.Warn("覆盖已有备份", "key", key)
	}
	envelope := value.Object(value.Record{
		"timestamp": value.String(now.Format(backupTimeLayout)),
		"data":      data,
	})
	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("写入备份 %s 失败: %w", key, err)
	}
	return nil
}

// snapshotCorrupted 原样保存无法解析的存档，失败时返回空串
func (s *Store) snapshotCorrupted(ctx context.Context, raw []byte, now time.Time) string {
	base := fmt.Sprintf("%s_corrupted_%d", s.key, now.UnixMilli())
	key := base
	for i := 1; ; i++ {
		_, exists, err := s.kv.Get(ctx, key)
		if err != nil || !exists {
			break
		}
		key = fmt.Sprintf("%s_%d", base, i)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		slog.Error("无法保存损坏存档的快照", "key", key, "error", err)
		return ""
	}
	slog.Warn("损坏存档已备份", "key", key)
	return key
}

// snapshotStored 在合并改写前以备份格式保存原存档：<key>_backup_<label>_<millis>。
// 用于版本高于当前程序或字段被修复的情况，失败时返回空串。
func (s *Store) snapshotStored(ctx context.Context, raw []byte, label string, now time.Time) string {
	stored, err := value.Parse(raw)
	if err != nil {
		return ""
	}
	key := fmt.Sprintf("%s_backup_%s_%d", s.key, label, now.UnixMilli())
	if err := s.writeBackup(ctx, key, stored, now); err != nil {
		slog.Error("无法保存原存档的快照", "key", key, "error", err)
		return ""
	}
	slog.Warn("原存档已备份", "key", key)
	return key
}
