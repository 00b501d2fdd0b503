package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/yuqie6/mindcare/internal/eventbus"
	"github.com/yuqie6/mindcare/internal/value"
)

// ===== Fakes =====

type fakeKV struct {
	data    map[string][]byte
	getErr  error
	setErrs []error // 依次返回，用完后写入成功
	sets    int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, data []byte) error {
	f.sets++
	if len(f.setErrs) > 0 {
		err := f.setErrs[0]
		f.setErrs = f.setErrs[1:]
		if err != nil {
			return err
		}
	}
	f.data[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeKV) Remove(ctx context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingPublisher struct {
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(evt eventbus.Event) {
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) has(typ string) bool {
	for _, e := range p.events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

// ===== Helpers =====

var testStart = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *fakeKV, *fakeClock) {
	t.Helper()
	kv := newFakeKV()
	clk := &fakeClock{t: testStart}
	s := NewStore(kv, StoreOptions{Clock: clk.Now})
	return s, kv, clk
}

func loadedTestStore(t *testing.T) (*Store, *fakeKV, *fakeClock) {
	t.Helper()
	s, kv, clk := newTestStore(t)
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return s, kv, clk
}

// storedRecord 解析后端中的主存档
func storedRecord(t *testing.T, kv *fakeKV, key string) value.Value {
	t.Helper()
	raw, ok := kv.data[key]
	if !ok {
		t.Fatalf("key %s not stored", key)
	}
	v, err := value.Parse(raw)
	if err != nil {
		t.Fatalf("parse stored %s: %v", key, err)
	}
	return v
}

// withoutVolatile 去掉随时间或随机生成的字段，便于比较
func withoutVolatile(rec value.Record) value.Record {
	out := rec.Clone()
	delete(out, "lastUpdated")
	if p, ok := out["player"].AsRecord(); ok {
		delete(p, "id")
		delete(p, "joinDate")
		delete(p, "lastLogin")
		out["player"] = value.Object(p)
	}
	return out
}

func mustLookup(t *testing.T, v value.Value, path string) value.Value {
	t.Helper()
	p, err := value.ParsePath(path)
	if err != nil {
		t.Fatalf("ParsePath(%q): %v", path, err)
	}
	got, ok := v.Lookup(p)
	if !ok {
		t.Fatalf("path %s missing", path)
	}
	return got
}
