package schema

import (
	"time"

	"github.com/yuqie6/mindcare/internal/value"
)

// Document 单个玩家的完整存档，持久化为一条 JSON 记录
type Document struct {
	Version     string     `json:"version"`
	LastUpdated time.Time  `json:"lastUpdated"`
	Player      Player     `json:"player"`
	SkillTrees  SkillTrees `json:"skillTrees"`
	Avatar      Avatar     `json:"avatar"`
	Inventory   Inventory  `json:"inventory"`
	Quests      Quests     `json:"quests"`
	Activities  Activities `json:"activities"`
	MiniGames   MiniGames  `json:"miniGames"`
	Stats       Analytics  `json:"stats"`

	// 临床数据，结构由外部模块决定，这里原样保存
	Medications  []value.Value `json:"medications"`
	SessionNotes []value.Value `json:"sessionNotes"`
	SideEffects  []value.Value `json:"sideEffects"`

	Settings Settings `json:"settings"`
}

// Player 玩家档案
type Player struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Archetype *string     `json:"archetype"` // 引用 gameconfig 中的原型，可为空
	Level     int         `json:"level"`     // 1-100
	CurrentXP int         `json:"currentXP"` // 当前等级内累积的经验
	TotalXP   int         `json:"totalXP"`   // 历史总经验，只增不减
	Coins     int         `json:"coins"`
	JoinDate  time.Time   `json:"joinDate"`
	LastLogin time.Time   `json:"lastLogin"`
	Streak    Streak      `json:"streak"`
	Stats     PlayerStats `json:"stats"`
}

// Streak 连续打卡
type Streak struct {
	Current     int        `json:"current"`
	Longest     int        `json:"longest"`
	LastCheckin *time.Time `json:"lastCheckin"`
}

// PlayerStats 玩家累计计数
type PlayerStats struct {
	ActivitiesCompleted int `json:"activitiesCompleted"`
	QuestsCompleted     int `json:"questsCompleted"`
	MiniGamesPlayed     int `json:"miniGamesPlayed"`
	TotalPlayTime       int `json:"totalPlayTime"` // 分钟
	SessionsAttended    int `json:"sessionsAttended"`
}

// 技能树分支 ID
const (
	BranchEmotional   = "emotional"
	BranchSocial      = "social"
	BranchMindfulness = "mindfulness"
	BranchPhysical    = "physical"
)

// SkillTrees 四个固定分支的进度
type SkillTrees struct {
	Emotional   SkillTreeProgress `json:"emotional"`
	Social      SkillTreeProgress `json:"social"`
	Mindfulness SkillTreeProgress `json:"mindfulness"`
	Physical    SkillTreeProgress `json:"physical"`
}

// Branch 按 ID 取分支进度，未知 ID 返回 nil
func (t *SkillTrees) Branch(id string) *SkillTreeProgress {
	switch id {
	case BranchEmotional:
		return &t.Emotional
	case BranchSocial:
		return &t.Social
	case BranchMindfulness:
		return &t.Mindfulness
	case BranchPhysical:
		return &t.Physical
	default:
		return nil
	}
}

// Branches 全部分支 ID
func Branches() []string {
	return []string{BranchEmotional, BranchSocial, BranchMindfulness, BranchPhysical}
}

// SkillTreeProgress 单个分支的进度
type SkillTreeProgress struct {
	Level          int      `json:"level"`
	XP             int      `json:"xp"`
	UnlockedSkills []string `json:"unlockedSkills"` // 按解锁顺序，不重复
}

// Avatar 形象外观
type Avatar struct {
	BodyType    string        `json:"bodyType"`
	SkinTone    string        `json:"skinTone"`
	HairStyle   string        `json:"hairStyle"`
	HairColor   string        `json:"hairColor"`
	Outfit      string        `json:"outfit"`
	Accessories []string      `json:"accessories"`
	Unlocked    AvatarUnlocks `json:"unlocked"`
}

// AvatarUnlocks 已解锁的外观选项，只增不减
type AvatarUnlocks struct {
	HairStyles  []string `json:"hairStyles"`
	HairColors  []string `json:"hairColors"`
	Outfits     []string `json:"outfits"`
	Accessories []string `json:"accessories"`
}

// Category 按类别名取解锁列表，未知类别返回 nil
func (u *AvatarUnlocks) Category(name string) *[]string {
	switch name {
	case "hairStyles":
		return &u.HairStyles
	case "hairColors":
		return &u.HairColors
	case "outfits":
		return &u.Outfits
	case "accessories":
		return &u.Accessories
	default:
		return nil
	}
}

// Inventory 背包，四个集合都只追加
type Inventory struct {
	Items        []value.Value `json:"items"`
	Badges       []value.Value `json:"badges"`
	Achievements []value.Value `json:"achievements"`
	Cosmetics    []value.Value `json:"cosmetics"`
}

// Collection 按名称取集合，未知名称返回 nil
func (inv *Inventory) Collection(name string) *[]value.Value {
	switch name {
	case "items":
		return &inv.Items
	case "badges":
		return &inv.Badges
	case "achievements":
		return &inv.Achievements
	case "cosmetics":
		return &inv.Cosmetics
	default:
		return nil
	}
}

// 任务桶
const (
	BucketDaily     = "daily"
	BucketWeekly    = "weekly"
	BucketAvailable = "available"
	BucketCompleted = "completed"
)

// Quests 任务桶；同一任务实例静止时只存在于一个桶中
type Quests struct {
	Daily     []Quest `json:"daily"`
	Weekly    []Quest `json:"weekly"`
	Completed []Quest `json:"completed"`
	Available []Quest `json:"available"`
}

// Bucket 按名称取桶，未知名称返回 nil
func (q *Quests) Bucket(name string) *[]Quest {
	switch name {
	case BucketDaily:
		return &q.Daily
	case BucketWeekly:
		return &q.Weekly
	case BucketAvailable:
		return &q.Available
	case BucketCompleted:
		return &q.Completed
	default:
		return nil
	}
}

// BucketFor 新任务按类型入桶：daily/weekly/available 同名入桶，
// 其余类型（milestone 等）进入 available，因此完成任务时也能在 available 中找到它们
func (q *Quests) BucketFor(questType string) *[]Quest {
	switch questType {
	case BucketDaily, BucketWeekly, BucketAvailable:
		return q.Bucket(questType)
	default:
		return &q.Available
	}
}

// Quest 任务实例
type Quest struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Completed   bool         `json:"completed"`
	Progress    int          `json:"progress"`
	AddedAt     time.Time    `json:"addedAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	Extra       value.Record `json:"-"` // 调用方附带的字段（标题、奖励等）
}

func (q Quest) MarshalJSON() ([]byte, error) {
	type plain Quest
	return encodeWithExtra(plain(q), q.Extra)
}

func (q *Quest) UnmarshalJSON(data []byte) error {
	type plain Quest
	var p plain
	extra, err := decodeWithExtra(data, &p)
	if err != nil {
		return err
	}
	*q = Quest(p)
	q.Extra = extra
	return nil
}

// NewQuest 由调用方的任务描述构造任务，id/时间/状态字段以系统生成为准
func NewQuest(fields value.Record, id string, now time.Time) Quest {
	questType := BucketDaily
	if t, ok := fields["type"].AsString(); ok && t != "" {
		questType = t
	}
	q := Quest{
		ID:       id,
		Type:     questType,
		AddedAt:  now,
		Progress: 0,
	}
	q.Extra = stripKnown(fields, q)
	return q
}

// Activities 活动记录
type Activities struct {
	Completed []ActivityEntry `json:"completed"`
	Favorites []value.Value   `json:"favorites"`
	History   []ActivityEntry `json:"history"` // 最新在前，最多保留 HistoryLimit 条
}

// HistoryLimit 活动历史保留条数
const HistoryLimit = 100

// ActivityEntry 活动日志条目，调用方载荷平铺在同一层
type ActivityEntry struct {
	ID          string       `json:"id"`
	CompletedAt time.Time    `json:"completedAt"`
	Payload     value.Record `json:"-"`
}

func (e ActivityEntry) MarshalJSON() ([]byte, error) {
	type plain ActivityEntry
	return encodeWithExtra(plain(e), e.Payload)
}

func (e *ActivityEntry) UnmarshalJSON(data []byte) error {
	type plain ActivityEntry
	var p plain
	payload, err := decodeWithExtra(data, &p)
	if err != nil {
		return err
	}
	*e = ActivityEntry(p)
	e.Payload = payload
	return nil
}

// NewActivityEntry 构造活动日志条目
func NewActivityEntry(payload value.Record, id string, now time.Time) ActivityEntry {
	e := ActivityEntry{ID: id, CompletedAt: now}
	e.Payload = stripKnown(payload, e)
	return e
}

// Type 载荷中的活动类型（字符串 type 字段）
func (e ActivityEntry) Type() string {
	t, _ := e.Payload["type"].AsString()
	return t
}

// 小游戏 ID
const (
	GameBreathing   = "breathing"
	GameMoodMatcher = "moodmatcher"
	GameGratitude   = "gratitude"
)

// MiniGames 固定小游戏的统计
type MiniGames struct {
	Breathing   MiniGameStats `json:"breathing"`
	MoodMatcher MiniGameStats `json:"moodmatcher"`
	Gratitude   MiniGameStats `json:"gratitude"`
}

// Game 按 ID 取统计，未知 ID 返回 nil
func (m *MiniGames) Game(id string) *MiniGameStats {
	switch id {
	case GameBreathing:
		return &m.Breathing
	case GameMoodMatcher:
		return &m.MoodMatcher
	case GameGratitude:
		return &m.Gratitude
	default:
		return nil
	}
}

// MiniGameStats 单个小游戏统计
type MiniGameStats struct {
	Played     int        `json:"played"`
	BestScore  int        `json:"bestScore"`
	LastPlayed *time.Time `json:"lastPlayed"`
}

// 分析序列
const (
	SeriesMood   = "mood"
	SeriesEnergy = "energy"
	SeriesSleep  = "sleep"
)

// Analytics 统计与分析
type Analytics struct {
	MoodTracking      []Sample       `json:"moodTracking"`
	EnergyLevels      []Sample       `json:"energyLevels"`
	SleepQuality      []Sample       `json:"sleepQuality"`
	ActivityFrequency map[string]int `json:"activityFrequency"`
	SkillProgress     map[string]int `json:"skillProgress"`
	WeeklyReport      WeeklyReport   `json:"weeklyReport"`
}

// Series 按名称取采样序列，未知名称返回 nil
func (a *Analytics) Series(name string) *[]Sample {
	switch name {
	case SeriesMood:
		return &a.MoodTracking
	case SeriesEnergy:
		return &a.EnergyLevels
	case SeriesSleep:
		return &a.SleepQuality
	default:
		return nil
	}
}

// Sample 时间序列采样点 {date, value, ...}
// date 保留原始字符串，旧数据里可能不是 RFC3339；
// value 类型由写入方决定（数值或标签），放在 Extra 中原样保存
type Sample struct {
	Date  string       `json:"date"`
	Extra value.Record `json:"-"`
}

func (s Sample) MarshalJSON() ([]byte, error) {
	type plain Sample
	return encodeWithExtra(plain(s), s.Extra)
}

func (s *Sample) UnmarshalJSON(data []byte) error {
	type plain Sample
	var p plain
	extra, err := decodeWithExtra(data, &p)
	if err != nil {
		return err
	}
	*s = Sample(p)
	s.Extra = extra
	return nil
}

var sampleDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// Time 解析采样日期，无法解析时返回 false
func (s Sample) Time() (time.Time, bool) {
	for _, layout := range sampleDateLayouts {
		if t, err := time.Parse(layout, s.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Number 数值型采样值
func (s Sample) Number() (float64, bool) {
	return s.Extra["value"].AsNumber()
}

// NewSample 构造采样点，extra 中的 date/value 以参数为准
func NewSample(v float64, extra value.Record, now time.Time) Sample {
	s := Sample{Date: now.UTC().Format(time.RFC3339Nano)}
	s.Extra = stripKnown(extra, s)
	if s.Extra == nil {
		s.Extra = value.Record{}
	}
	s.Extra["value"] = value.Number(v)
	return s
}

// WeeklyReport 滚动周报
type WeeklyReport struct {
	ActivitiesCompleted int  `json:"activitiesCompleted"`
	XPEarned            int  `json:"xpEarned"`
	StreakMaintained    bool `json:"streakMaintained"`
}

// Settings 用户偏好
type Settings struct {
	Notifications bool            `json:"notifications"`
	SoundEffects  bool            `json:"soundEffects"`
	Animations    bool            `json:"animations"`
	Theme         string          `json:"theme"`
	Privacy       PrivacySettings `json:"privacy"`
}

// PrivacySettings 隐私开关
type PrivacySettings struct {
	ShareProgress bool `json:"shareProgress"`
	AnonymousData bool `json:"anonymousData"`
}
