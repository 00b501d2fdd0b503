package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/yuqie6/mindcare/internal/eventbus"
	"github.com/yuqie6/mindcare/internal/schema"
	"github.com/yuqie6/mindcare/internal/value"
)

// ExportDocument 导出当前存档（缩进 JSON）
func (s *Store) ExportDocument(ctx context.Context) (string, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return "", err
	}
	rec, err := s.current()
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(value.Object(rec), "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	return string(data), nil
}

// ImportDocument 导入存档。
// 内容必须是带 player 记录和 version 字符串的记录，否则返回 ErrInvalidImport 且当前状态不变。
// 替换前先写 pre_import 备份，备份失败只记录日志。
func (s *Store) ImportDocument(ctx context.Context, data string) error {
	parsed, err := value.Parse([]byte(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	rec, ok := parsed.AsRecord()
	if !ok {
		return fmt.Errorf("%w: 顶层不是记录", ErrInvalidImport)
	}
	if !rec["player"].IsRecord() {
		return fmt.Errorf("%w: 缺少 player", ErrInvalidImport)
	}
	if v, ok := rec["version"].AsString(); !ok || v == "" {
		return fmt.Errorf("%w: 缺少 version", ErrInvalidImport)
	}

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	merged, _ := value.Merge(value.Object(schema.DefaultsValue(s.now())), parsed).AsRecord()
	doc, err := schema.FromRecord(merged)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}

	if _, err := s.Backup(ctx, "pre_import"); err != nil {
		slog.Warn("导入前备份失败", "error", err)
	}

	s.doc, s.tree = doc, merged
	s.normalize()
	s.publish(eventbus.TypeDataImported, map[string]any{"playerId": doc.Player.ID})
	slog.Info("存档已导入", "player", doc.Player.ID)

	return s.persist(ctx)
}
