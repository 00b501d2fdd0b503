package repository

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/yuqie6/mindcare/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVOptions 键值仓储选项
type KVOptions struct {
	QuotaBytes int64 // 所有值的总字节上限，<=0 表示不限制
	ReadOnly   bool  // 安全模式下只读
}

// KVRepository 基于 SQLite 的键值仓储
type KVRepository struct {
	db   *gorm.DB
	opts KVOptions
}

// NewKVRepository 创建仓储
func NewKVRepository(db *gorm.DB, opts KVOptions) *KVRepository {
	return &KVRepository{db: db, opts: opts}
}

// Get 读取键，不存在时返回 (nil, false, nil)
func (r *KVRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry schema.KVEntry
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("读取键值失败: %w: %w", ErrBackendUnavailable, err)
	}
	return entry.Value, true, nil
}

// Set 写入键（存在则覆盖），超过配额返回 ErrCapacityExceeded
func (r *KVRepository) Set(ctx context.Context, key string, data []byte) error {
	if r.opts.ReadOnly {
		return fmt.Errorf("%w: 数据库处于安全模式", ErrBackendUnavailable)
	}
	size := int64(len(data))

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.opts.QuotaBytes > 0 {
			var used int64
			err := tx.Model(&schema.KVEntry{}).
				Where("key <> ?", key).
				Select("COALESCE(SUM(size), 0)").
				Scan(&used).Error
			if err != nil {
				return fmt.Errorf("统计存储用量失败: %w: %w", ErrBackendUnavailable, err)
			}
			if used+size > r.opts.QuotaBytes {
				return fmt.Errorf("%w: 已用 %d 字节，写入 %d 字节，配额 %d 字节",
					ErrCapacityExceeded, used, size, r.opts.QuotaBytes)
			}
		}

		entry := schema.KVEntry{Key: key, Value: data, Size: size}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).Create(&entry).Error
		if err != nil {
			return fmt.Errorf("写入键值失败: %w: %w", ErrBackendUnavailable, err)
		}
		return nil
	})
}

// Remove 删除键，不存在时不报错
func (r *KVRepository) Remove(ctx context.Context, key string) error {
	if r.opts.ReadOnly {
		return fmt.Errorf("%w: 数据库处于安全模式", ErrBackendUnavailable)
	}
	err := r.db.WithContext(ctx).Where("key = ?", key).Delete(&schema.KVEntry{}).Error
	if err != nil {
		return fmt.Errorf("删除键值失败: %w: %w", ErrBackendUnavailable, err)
	}
	return nil
}

// Keys 按前缀列出键（按字典序）
func (r *KVRepository) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Model(&schema.KVEntry{}).
		Where("substr(key, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix).
		Order("key").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("列出键失败: %w: %w", ErrBackendUnavailable, err)
	}
	return keys, nil
}

// Usage 当前总用量（字节）
func (r *KVRepository) Usage(ctx context.Context) (int64, error) {
	var used int64
	err := r.db.WithContext(ctx).
		Model(&schema.KVEntry{}).
		Select("COALESCE(SUM(size), 0)").
		Scan(&used).Error
	if err != nil {
		return 0, fmt.Errorf("统计存储用量失败: %w", err)
	}
	return used, nil
}
