package repository

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const fileKVExt = ".json"

// FileKV 每个键一个文件的存储，写入时先写临时文件再 rename
type FileKV struct {
	dir   string
	quota int64

	mu     sync.Mutex
	hashes map[string][sha256.Size]byte // 本进程最后写入/已见到的内容摘要
}

// NewFileKV 创建文件存储，目录不存在时创建
func NewFileKV(dir string, quotaBytes int64) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("获取绝对路径失败: %w", err)
	}
	return &FileKV{
		dir:    abs,
		quota:  quotaBytes,
		hashes: make(map[string][sha256.Size]byte),
	}, nil
}

// Dir 存储目录
func (f *FileKV) Dir() string {
	return f.dir
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+fileKVExt)
}

func (f *FileKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("读取存档文件失败: %w: %w", ErrBackendUnavailable, err)
	}
	return data, true, nil
}

func (f *FileKV) Set(ctx context.Context, key string, data []byte) error {
	if f.quota > 0 {
		used, err := f.usageExcept(key)
		if err != nil {
			return err
		}
		if used+int64(len(data)) > f.quota {
			return fmt.Errorf("%w: 已用 %d 字节，写入 %d 字节，配额 %d 字节",
				ErrCapacityExceeded, used, len(data), f.quota)
		}
	}

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w: %w", ErrBackendUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("写入临时文件失败: %w: %w", ErrBackendUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("同步临时文件失败: %w: %w", ErrBackendUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("关闭临时文件失败: %w: %w", ErrBackendUnavailable, err)
	}

	f.mu.Lock()
	f.hashes[key] = sha256.Sum256(data)
	f.mu.Unlock()

	if err := os.Rename(tmpName, f.path(key)); err != nil {
		return fmt.Errorf("替换存档文件失败: %w: %w", ErrBackendUnavailable, err)
	}
	return nil
}

func (f *FileKV) Remove(ctx context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("删除存档文件失败: %w: %w", ErrBackendUnavailable, err)
	}
	f.mu.Lock()
	delete(f.hashes, key)
	f.mu.Unlock()
	return nil
}

func (f *FileKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("读取存储目录失败: %w: %w", ErrBackendUnavailable, err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileKVExt) || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, fileKVExt))
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *FileKV) usageExcept(key string) (int64, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("读取存储目录失败: %w: %w", ErrBackendUnavailable, err)
	}
	skip := filepath.Base(f.path(key))
	var used int64
	for _, e := range entries {
		if e.IsDir() || e.Name() == skip || !strings.HasSuffix(e.Name(), fileKVExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		used += info.Size()
	}
	return used, nil
}

// Watch 监控 key 对应的文件，其他进程写入时回调 onForeign。
// 多个会话同时写入时以最后写入为准，这里只负责发现并报告。
func (f *FileKV) Watch(ctx context.Context, key string, onForeign func(key string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监控器失败: %w", err)
	}
	if err := watcher.Add(f.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("添加监控目录失败: %w", err)
	}

	target := f.path(key)
	slog.Debug("开始监控存档文件", "path", target)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if f.markSeen(key, target) {
					slog.Warn("存档被其他会话修改，以最后写入为准", "key", key)
					if onForeign != nil {
						onForeign(key)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("文件监控出错", "error", err)
			}
		}
	}()
	return nil
}

// markSeen 记录文件当前内容，内容与已知摘要不同时返回 true
func (f *FileKV) markSeen(key, path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(data)

	f.mu.Lock()
	defer f.mu.Unlock()
	if known, ok := f.hashes[key]; ok && known == sum {
		return false
	}
	f.hashes[key] = sum
	return true
}
