package service

import (
	"context"

	"github.com/yuqie6/mindcare/internal/eventbus"
)

// 存储/外部依赖的最小接口集合（ISP）

// KV 按键存取字节的持久化后端；键不存在时返回 (nil, false, nil)
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Publisher 进度事件的接收方
type Publisher interface {
	Publish(evt eventbus.Event)
}
