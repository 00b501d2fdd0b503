package service

import (
	"strings"

	"github.com/yuqie6/mindcare/internal/gameconfig"
	"github.com/yuqie6/mindcare/internal/value"
)

// RewardPolicy 行为对应的奖励（可替换）
type RewardPolicy interface {
	ActivityXP(payload value.Record, streakDays int) int
	CheckinXP(streakDays int) int
	MiniGameXP(gameID string, streakDays int) int
	QuestCoins(questType string) int
}

// DefaultRewardPolicy 默认奖励：按活动规模取基础经验，再叠加连续打卡加成
type DefaultRewardPolicy struct {
	Table *gameconfig.Table
}

func (p DefaultRewardPolicy) table() *gameconfig.Table {
	if p.Table == nil {
		return gameconfig.Default()
	}
	return p.Table
}

// ActivityXP 载荷里有数值 xp 时以它为准（限制在 [0, majorChallenge]），
// 否则按 size 字段：quick / standard / major
func (p DefaultRewardPolicy) ActivityXP(payload value.Record, streakDays int) int {
	t := p.table()
	r := t.Rewards()

	if xp, ok := payload["xp"].AsNumber(); ok {
		return t.WithStreakBonus(clamp(int(xp), 0, r.MajorChallenge), streakDays)
	}

	base := r.StandardActivity
	size, _ := payload["size"].AsString()
	switch strings.ToLower(size) {
	case "quick":
		base = r.QuickActivity
	case "major", "challenge":
		base = r.MajorChallenge
	}
	return t.WithStreakBonus(base, streakDays)
}

// CheckinXP 每日打卡经验
func (p DefaultRewardPolicy) CheckinXP(streakDays int) int {
	t := p.table()
	return t.WithStreakBonus(t.Rewards().DailyCheckin, streakDays)
}

// MiniGameXP 小游戏经验，未知小游戏按通用奖励计
func (p DefaultRewardPolicy) MiniGameXP(gameID string, streakDays int) int {
	t := p.table()
	base := t.Rewards().MiniGame
	if g, ok := t.MiniGame(gameID); ok {
		base = g.XPReward
	}
	return t.WithStreakBonus(base, streakDays)
}

// QuestCoins 完成任务的金币
func (p DefaultRewardPolicy) QuestCoins(questType string) int {
	return p.table().QuestCoinReward(questType)
}

// clamp 将数值限制在指定范围内
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
