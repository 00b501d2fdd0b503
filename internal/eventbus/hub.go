package eventbus

import (
	"context"
	"sync"
	"time"
)

// 事件类型
const (
	TypeXPGained       = "xp_gained"
	TypeLevelUp        = "level_up"
	TypeStreakUpdated  = "streak_updated"
	TypeQuestAdded     = "quest_added"
	TypeQuestCompleted = "quest_completed"
	TypeActivityLogged = "activity_logged"
	TypeMiniGamePlayed = "minigame_played"
	TypeSkillUnlocked  = "skill_unlocked"
	TypeDataImported   = "data_imported"
	TypeDataCleared    = "data_cleared"
	TypeRecovered      = "recovered"
	TypePersistFailed  = "persist_failed"
	TypeForeignWrite   = "foreign_write"
)

type Event struct {
	Type      string         `json:"type"`
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

type subscriber struct {
	ch    chan Event
	types map[string]struct{} // 为空表示接收全部
}

type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]*subscriber
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]*subscriber)}
}

func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch, sub := range h.subs {
		if len(sub.types) > 0 {
			if _, ok := sub.types[evt.Type]; !ok {
				continue
			}
		}
		select {
		case ch <- evt:
		default:
			// 慢消费者直接丢弃，避免阻塞存档写入
		}
	}
}

// Subscribe 订阅事件，types 为空时接收全部类型；ctx 结束后通道关闭
func (h *Hub) Subscribe(ctx context.Context, buffer int, types ...string) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	sub := &subscriber{ch: ch}
	if len(types) > 0 {
		sub.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	h.mu.Lock()
	h.subs[ch] = sub
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}
