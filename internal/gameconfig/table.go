package gameconfig

import (
	"math"
)

const (
	// MaxLevel 玩家等级上限，到达后不再升级
	MaxLevel = 100

	DefaultBaseXP       = 100
	DefaultGrowthRate   = 1.15
	DefaultLevelUpCoins = 25
)

// Params 经验曲线与奖励参数
type Params struct {
	BaseXP       int
	GrowthRate   float64
	LevelUpCoins int
}

// DefaultParams 默认参数
func DefaultParams() Params {
	return Params{
		BaseXP:       DefaultBaseXP,
		GrowthRate:   DefaultGrowthRate,
		LevelUpCoins: DefaultLevelUpCoins,
	}
}

// Table 只读的游戏配置查表
type Table struct {
	thresholds   [MaxLevel]int
	levelUpCoins int
	rewards      XPRewards
}

// 任务完成的金币奖励
const (
	DailyQuestCoins      = 10
	WeeklyChallengeCoins = 50
)

// XPRewards 各类行为的经验奖励
type XPRewards struct {
	DailyCheckin      int
	QuickActivity     int
	StandardActivity  int
	MiniGame          int
	MajorChallenge    int
	StreakBonusPerDay float64
	MaxStreakBonus    float64
}

// New 按参数预计算经验阈值：threshold[n] = floor(base * growth^n)，n ∈ [0, 100)
func New(p Params) *Table {
	if p.BaseXP <= 0 {
		p.BaseXP = DefaultBaseXP
	}
	if p.GrowthRate < 1 {
		p.GrowthRate = DefaultGrowthRate
	}
	if p.LevelUpCoins < 0 {
		p.LevelUpCoins = 0
	}

	t := &Table{
		levelUpCoins: p.LevelUpCoins,
		rewards: XPRewards{
			DailyCheckin:      50,
			QuickActivity:     25,
			StandardActivity:  50,
			MiniGame:          75,
			MajorChallenge:    100,
			StreakBonusPerDay: 0.10,
			MaxStreakBonus:    0.50,
		},
	}
	for n := 0; n < MaxLevel; n++ {
		t.thresholds[n] = int(math.Floor(float64(p.BaseXP) * math.Pow(p.GrowthRate, float64(n))))
	}
	return t
}

// Default 使用默认参数的查表
func Default() *Table {
	return New(DefaultParams())
}

// XPThreshold 按下标 [0, 99] 查阈值，越界返回 0
func (t *Table) XPThreshold(index int) int {
	if index < 0 || index >= MaxLevel {
		return 0
	}
	return t.thresholds[index]
}

// ThresholdForLevel 从 level 升到 level+1 所需经验
func (t *Table) ThresholdForLevel(level int) int {
	return t.XPThreshold(level - 1)
}

// LevelUpCoinReward 每升一级奖励的金币
func (t *Table) LevelUpCoinReward() int {
	return t.levelUpCoins
}

// QuestCoinReward 完成任务的金币奖励：weekly 为周挑战，其余按每日任务计
func (t *Table) QuestCoinReward(questType string) int {
	if questType == "weekly" {
		return WeeklyChallengeCoins
	}
	return DailyQuestCoins
}

// Rewards 经验奖励表
func (t *Table) Rewards() XPRewards {
	return t.rewards
}

// WithStreakBonus 按连续打卡天数加成经验，每天 +10%，最多 +50%
func (t *Table) WithStreakBonus(base, streakDays int) int {
	if base <= 0 || streakDays <= 0 {
		return base
	}
	bonus := math.Min(float64(streakDays)*t.rewards.StreakBonusPerDay, t.rewards.MaxStreakBonus)
	return int(math.Floor(float64(base) * (1 + bonus)))
}

// LevelForCumulativeXP 累计经验对应的等级（从 0 级起），不超过 maxLevel
func (t *Table) LevelForCumulativeXP(xp, maxLevel int) int {
	level := 0
	for level < maxLevel && level < MaxLevel {
		need := t.thresholds[level]
		if xp < need {
			break
		}
		xp -= need
		level++
	}
	return level
}
