package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yuqie6/mindcare/internal/value"
)

// Version 当前存档 schema 版本
const Version = "1.0.0"

// NewPlayerID 生成玩家 ID
func NewPlayerID() string {
	return "player_" + uuid.NewString()
}

// Defaults 返回规范的默认存档。除玩家 ID 与时间戳外结果确定，无副作用，
// 是“存档必须有哪些字段”的唯一来源。
func Defaults(now time.Time) *Document {
	now = now.UTC()
	return &Document{
		Version:     Version,
		LastUpdated: now,
		Player: Player{
			ID:        NewPlayerID(),
			Name:      "Adventurer",
			Level:     1,
			JoinDate:  now,
			LastLogin: now,
		},
		SkillTrees: SkillTrees{
			Emotional:   SkillTreeProgress{UnlockedSkills: []string{}},
			Social:      SkillTreeProgress{UnlockedSkills: []string{}},
			Mindfulness: SkillTreeProgress{UnlockedSkills: []string{}},
			Physical:    SkillTreeProgress{UnlockedSkills: []string{}},
		},
		Avatar: Avatar{
			BodyType:    "default",
			SkinTone:    "medium",
			HairStyle:   "short",
			HairColor:   "brown",
			Outfit:      "casual",
			Accessories: []string{},
			Unlocked: AvatarUnlocks{
				HairStyles:  []string{"short"},
				HairColors:  []string{"brown", "black"},
				Outfits:     []string{"casual"},
				Accessories: []string{},
			},
		},
		Inventory: Inventory{
			Items:        []value.Value{},
			Badges:       []value.Value{},
			Achievements: []value.Value{},
			Cosmetics:    []value.Value{},
		},
		Quests: Quests{
			Daily:     []Quest{},
			Weekly:    []Quest{},
			Completed: []Quest{},
			Available: []Quest{},
		},
		Activities: Activities{
			Completed: []ActivityEntry{},
			Favorites: []value.Value{},
			History:   []ActivityEntry{},
		},
		Stats: Analytics{
			MoodTracking:      []Sample{},
			EnergyLevels:      []Sample{},
			SleepQuality:      []Sample{},
			ActivityFrequency: map[string]int{},
			SkillProgress:     map[string]int{},
		},
		Medications:  []value.Value{},
		SessionNotes: []value.Value{},
		SideEffects:  []value.Value{},
		Settings: Settings{
			Notifications: true,
			SoundEffects:  true,
			Animations:    true,
			Theme:         "light",
			Privacy: PrivacySettings{
				ShareProgress: false,
				AnonymousData: true,
			},
		},
	}
}

// DefaultsValue 以值树形式返回默认存档，供合并使用
func DefaultsValue(now time.Time) value.Record {
	rec, err := ToRecord(Defaults(now))
	if err != nil {
		// 默认存档由本包构造，编码失败只可能是程序错误
		panic(fmt.Sprintf("schema: 默认存档编码失败: %v", err))
	}
	return rec
}

// Sections 可单独重置的顶层分区
func Sections() []string {
	return DefaultsValue(time.Time{}).Keys()
}

// ToRecord 将存档编码为值树
func ToRecord(doc *Document) (value.Record, error) {
	v, err := value.Of(doc)
	if err != nil {
		return nil, err
	}
	rec, ok := v.AsRecord()
	if !ok {
		return nil, fmt.Errorf("存档编码结果不是记录: %s", v.Kind())
	}
	return rec, nil
}

// FromRecord 将值树解码为存档
func FromRecord(rec value.Record) (*Document, error) {
	var doc Document
	if err := value.Decode(value.Object(rec), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
