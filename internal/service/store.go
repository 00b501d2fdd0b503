package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuqie6/mindcare/internal/eventbus"
	"github.com/yuqie6/mindcare/internal/gameconfig"
	"github.com/yuqie6/mindcare/internal/schema"
	"github.com/yuqie6/mindcare/internal/value"
)

const (
	// DefaultKey 主存档键
	DefaultKey = "mindcareGameData"
	// DefaultSampleMaxAge 写入失败清理时统计采样的保留时长
	DefaultSampleMaxAge = 90 * 24 * time.Hour
)

// StoreOptions 存档选项，零值字段使用默认值
type StoreOptions struct {
	Key          string
	HistoryLimit int // 不超过 schema.HistoryLimit
	SampleMaxAge time.Duration
	Table        *gameconfig.Table
	Events       Publisher
	Clock        func() time.Time
}

// LoadReport 最近一次加载的结果
type LoadReport struct {
	Fresh           bool // 首次使用，写入默认存档
	Reconciled      bool // 已有存档与默认结构合并
	Recovered       bool // 存档损坏，回退为默认存档
	CorruptedKey    string
	IncompatibleKey string
	Repaired        []string // 类型不符而被修复的字段路径
	RepairedKey     string   // 修复前原存档的快照键
	StoredVersion   string
	VersionStamped  bool // 存档版本号被改写为当前版本
}

// Store 单个玩家的存档。
// 内存中的存档是本会话的权威状态，每次修改后同步写回后端。
// Store 不是并发安全的，调用方需要自行串行化。
type Store struct {
	kv     KV
	table  *gameconfig.Table
	events Publisher
	clock  func() time.Time

	key          string
	historyLimit int
	sampleMaxAge time.Duration

	doc    *schema.Document
	tree   value.Record // 合并后的完整值树，保留类型化存档之外的字段
	loaded bool
	report LoadReport
}

// NewStore 创建存档，首次操作时自动加载
func NewStore(kv KV, opts StoreOptions) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.HistoryLimit <= 0 || opts.HistoryLimit > schema.HistoryLimit {
		opts.HistoryLimit = schema.HistoryLimit
	}
	if opts.SampleMaxAge <= 0 {
		opts.SampleMaxAge = DefaultSampleMaxAge
	}
	if opts.Table == nil {
		opts.Table = gameconfig.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Store{
		kv:           kv,
		table:        opts.Table,
		events:       opts.Events,
		clock:        opts.Clock,
		key:          opts.Key,
		historyLimit: opts.HistoryLimit,
		sampleMaxAge: opts.SampleMaxAge,
	}
}

// Key 主存档键
func (s *Store) Key() string {
	return s.key
}

// Table 游戏配置查表
func (s *Store) Table() *gameconfig.Table {
	return s.table
}

// Document 当前存档（只读），未加载时返回 nil
func (s *Store) Document() *schema.Document {
	return s.doc
}

// Report 最近一次加载的结果
func (s *Store) Report() LoadReport {
	return s.report
}

// Load 读取并合并存档。
// 键不存在时写入默认存档；内容无法解析或不是记录时先保存原文快照，再回退为默认存档。
// 返回 ErrNotPersisted 时存档已加载，只是没能写回。
func (s *Store) Load(ctx context.Context) (*schema.Document, error) {
	now := s.now()

	raw, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		slog.Error("读取存档失败", "key", s.key, "error", err)
		return nil, fmt.Errorf("读取存档失败: %w", err)
	}

	var report LoadReport
	if !found {
		report.Fresh = true
		s.resetTo(now)
		slog.Info("首次使用，创建默认存档", "key", s.key)
	} else {
		doc, tree, version, repaired, derr := decodeStored(raw, schema.DefaultsValue(now))
		if derr != nil {
			slog.Warn("存档损坏，回退为默认存档", "key", s.key, "error", derr)
			report.Recovered = true
			report.CorruptedKey = s.snapshotCorrupted(ctx, raw, now)
			s.resetTo(now)
		} else {
			report.Reconciled = true
			report.StoredVersion = version
			if versionMajor(version) > versionMajor(schema.Version) {
				report.IncompatibleKey = s.snapshotStored(ctx, raw, "incompatible", now)
			}
			if len(repaired) > 0 {
				slog.Warn("存档部分字段类型不符，已按默认值修复", "key", s.key, "fields", repaired)
				report.Repaired = repaired
				report.RepairedKey = s.snapshotStored(ctx, raw, "repaired", now)
			}
			if version != schema.Version {
				report.VersionStamped = true
				slog.Info("存档版本已更新", "from", version, "to", schema.Version)
			}
			doc.Version = schema.Version
			doc.Player.LastLogin = now
			s.doc, s.tree = doc, tree
			s.normalize()
		}
	}

	s.loaded = true
	s.report = report
	if report.Recovered {
		s.publish(eventbus.TypeRecovered, map[string]any{"backupKey": report.CorruptedKey})
	}

	if err := s.persist(ctx); err != nil {
		return s.doc, err
	}
	return s.doc, nil
}

// decodeStored 解析存档原文并与默认树合并。
// 只有无法解析或顶层不是记录才算损坏；个别字段类型不符时逐叶修复，返回被修复的路径。
func decodeStored(raw []byte, defaults value.Record) (*schema.Document, value.Record, string, []string, error) {
	stored, err := value.Parse(raw)
	if err != nil {
		return nil, nil, "", nil, err
	}
	merged, ok := value.Reconcile(value.Object(defaults), stored)
	if !ok {
		return nil, nil, "", nil, fmt.Errorf("存档顶层不是记录: %s", stored.Kind())
	}
	rec, _ := merged.AsRecord()
	tree, repaired := schema.Repair(rec, defaults)
	doc, err := schema.FromRecord(tree)
	if err != nil {
		return nil, nil, "", nil, fmt.Errorf("存档结构无法解码: %w", err)
	}
	version, _ := stored.Lookup(value.Path{"version"})
	v, _ := version.AsString()
	return doc, tree, v, repaired, nil
}

// versionMajor 取 "1.2.3" 的主版本号，无法解析时为 0
func versionMajor(v string) int {
	head, _, _ := strings.Cut(v, ".")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return n
}

// Save 写回当前存档
func (s *Store) Save(ctx context.Context) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	return s.persist(ctx)
}

// Get 按点分路径读取值，路径为空时返回整个存档
func (s *Store) Get(ctx context.Context, path string) (value.Value, bool, error) {
	p, err := value.ParsePath(path)
	if err != nil {
		return value.Value{}, false, err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return value.Value{}, false, err
	}
	rec, err := s.current()
	if err != nil {
		return value.Value{}, false, err
	}
	v, ok := value.Object(rec).Lookup(p)
	if !ok {
		return value.Value{}, false, nil
	}
	return v.Clone(), true, nil
}

// Set 按点分路径写入值，缺失的中间记录自动创建。
// 写入后存档必须仍能解码，否则返回 ErrInvalidValue 且不做任何修改。
func (s *Store) Set(ctx context.Context, path string, v value.Value) error {
	p, err := value.ParsePath(path)
	if err != nil {
		return err
	}
	if len(p) == 0 {
		return value.ErrEmptyPath
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	rec, err := s.current()
	if err != nil {
		return err
	}
	candidate := rec.Clone()
	if err := value.SetPath(candidate, p, v); err != nil {
		return err
	}
	if err := s.apply(candidate); err != nil {
		return err
	}
	return s.persist(ctx)
}

// ClearAll 备份后清空存档并恢复默认值；未确认时不做任何事
func (s *Store) ClearAll(ctx context.Context, confirmed bool) (bool, error) {
	if !confirmed {
		slog.Warn("清空存档需要确认")
		return false, nil
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}
	if _, err := s.Backup(ctx, "pre_clear"); err != nil {
		return false, fmt.Errorf("清空前备份失败，已取消: %w", err)
	}
	if err := s.kv.Remove(ctx, s.key); err != nil {
		return false, fmt.Errorf("删除存档失败: %w", err)
	}

	s.resetTo(s.now())
	s.publish(eventbus.TypeDataCleared, nil)
	slog.Info("存档已清空", "key", s.key)

	if err := s.persist(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// ResetSection 将一个顶层分区恢复为默认值，未知分区返回 false
func (s *Store) ResetSection(ctx context.Context, name string) (bool, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}
	section, ok := schema.DefaultsValue(s.now())[name]
	if !ok {
		return false, nil
	}
	rec, err := s.current()
	if err != nil {
		return false, err
	}
	candidate := rec.Clone()
	candidate[name] = section
	if err := s.apply(candidate); err != nil {
		return false, err
	}
	slog.Info("分区已重置", "section", name)
	return true, s.persist(ctx)
}

func (s *Store) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	if _, err := s.Load(ctx); err != nil && !errors.Is(err, ErrNotPersisted) {
		return err
	}
	return nil
}

func (s *Store) resetTo(now time.Time) {
	s.doc = schema.Defaults(now)
	s.tree = value.Record{}
}

// current 把类型化存档覆盖到值树上，返回完整的存档树（调用方修改前需要 Clone）
func (s *Store) current() (value.Record, error) {
	typed, err := schema.ToRecord(s.doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	merged, _ := value.Merge(value.Object(s.tree), value.Object(typed)).AsRecord()
	s.tree = merged
	return merged, nil
}

// apply 用完整的存档树替换当前状态
func (s *Store) apply(rec value.Record) error {
	doc, err := schema.FromRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	s.doc, s.tree = doc, rec
	s.normalize()
	return nil
}

func (s *Store) now() time.Time {
	return s.clock().UTC()
}

func (s *Store) publish(typ string, data map[string]any) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventbus.Event{Type: typ, Timestamp: s.now().UnixMilli(), Data: data})
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
