package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/yuqie6/mindcare/internal/eventbus"
	"github.com/yuqie6/mindcare/internal/value"
)

// persist 同步写回主存档。
// 写入失败时清理旧数据并重试一次；仍失败则保留内存状态并返回 ErrNotPersisted。
func (s *Store) persist(ctx context.Context) error {
	data, err := s.encode()
	if err != nil {
		slog.Error("存档序列化失败", "key", s.key, "error", err)
		return err
	}

	err = s.kv.Set(ctx, s.key, data)
	if err == nil {
		return nil
	}
	slog.Warn("保存存档失败，清理旧数据后重试", "key", s.key, "size", len(data), "error", err)

	removed := s.sweep(s.now())
	slog.Info("旧数据清理完成", "removed", removed)

	data, encErr := s.encode()
	if encErr != nil {
		return encErr
	}
	if err = s.kv.Set(ctx, s.key, data); err == nil {
		return nil
	}

	slog.Error("保存存档失败，本次会话的修改只保存在内存中", "key", s.key, "error", err)
	s.publish(eventbus.TypePersistFailed, map[string]any{"error": err.Error()})
	return fmt.Errorf("%w: %w", ErrNotPersisted, err)
}

func (s *Store) encode() ([]byte, error) {
	s.doc.LastUpdated = s.now()
	rec, err := s.current()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(value.Object(rec))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	return data, nil
}
