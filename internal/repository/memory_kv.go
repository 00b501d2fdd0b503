package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryKV 进程内键值存储，进程退出即丢失
type MemoryKV struct {
	mu    sync.Mutex
	data  map[string][]byte
	quota int64
}

// NewMemoryKV 创建内存存储，quotaBytes<=0 表示不限制
func NewMemoryKV(quotaBytes int64) *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte), quota: quotaBytes}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		var used int64
		for k, v := range m.data {
			if k != key {
				used += int64(len(v))
			}
		}
		if used+int64(len(data)) > m.quota {
			return fmt.Errorf("%w: 已用 %d 字节，写入 %d 字节，配额 %d 字节",
				ErrCapacityExceeded, used, len(data), m.quota)
		}
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryKV) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
