package schema

import "time"

// KVEntry 键值存储中的一条记录
// 数据量级：个位数（主存档 + 若干备份）
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:200"`
	Value     []byte    `gorm:"type:blob;not null"`
	Size      int64     `gorm:"not null;default:0"` // len(Value)，用于配额统计
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (KVEntry) TableName() string {
	return "kv_entries"
}
