package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestFileKVRoundTripAndKeys(t *testing.T) {
	kv, err := NewFileKV(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFileKV error: %v", err)
	}
	ctx := context.Background()

	for _, k := range []string{"mindcareGameData", "mindcareGameData_backup", "a/b"} {
		if err := kv.Set(ctx, k, []byte(`{"k":"`+k+`"}`)); err != nil {
			t.Fatalf("Set %s error: %v", k, err)
		}
	}

	got, ok, err := kv.Get(ctx, "a/b")
	if err != nil || !ok || string(got) != `{"k":"a/b"}` {
		t.Fatalf("Get a/b = %s ok=%v err=%v", got, ok, err)
	}

	keys, err := kv.Keys(ctx, "mindcareGameData")
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	want := []string{"mindcareGameData", "mindcareGameData_backup"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys=%v, want %v", keys, want)
	}

	if err := kv.Remove(ctx, "a/b"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "a/b"); ok {
		t.Fatalf("a/b still present after Remove")
	}
}

func TestFileKVQuota(t *testing.T) {
	kv, err := NewFileKV(t.TempDir(), 8)
	if err != nil {
		t.Fatalf("NewFileKV error: %v", err)
	}
	ctx := context.Background()

	if err := kv.Set(ctx, "a", []byte("12345")); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := kv.Set(ctx, "b", []byte("12345")); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("err=%v, want ErrCapacityExceeded", err)
	}
	if err := kv.Set(ctx, "a", []byte("12345678")); err != nil {
		t.Fatalf("overwrite within quota error: %v", err)
	}
}

func TestFileKVWatchReportsForeignWritesOnly(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir, 0)
	if err != nil {
		t.Fatalf("NewFileKV error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	foreign := make(chan string, 8)
	if err := kv.Watch(ctx, "save", func(key string) { foreign <- key }); err != nil {
		t.Fatalf("Watch error: %v", err)
	}

	if err := kv.Set(ctx, "save", []byte(`{"own":true}`)); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	select {
	case k := <-foreign:
		t.Fatalf("own write reported as foreign: %s", k)
	case <-time.After(200 * time.Millisecond):
	}

	if err := os.WriteFile(filepath.Join(kv.Dir(), "save.json"), []byte(`{"own":false}`), 0o644); err != nil {
		t.Fatalf("foreign write error: %v", err)
	}
	select {
	case k := <-foreign:
		if k != "save" {
			t.Fatalf("key=%s, want save", k)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("foreign write not reported")
	}
}
