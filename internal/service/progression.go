package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/yuqie6/mindcare/internal/eventbus"
	"github.com/yuqie6/mindcare/internal/gameconfig"
	"github.com/yuqie6/mindcare/internal/schema"
	"github.com/yuqie6/mindcare/internal/value"
)

// XPResult 加经验后的结果
type XPResult struct {
	NewXP        int  `json:"newXP"`
	TotalXP      int  `json:"totalXP"`
	LeveledUp    bool `json:"leveledUp"`
	NewLevel     int  `json:"newLevel"`
	LevelsGained int  `json:"levelsGained"`
	CoinsAwarded int  `json:"coinsAwarded"`
}

// AddXP 增加经验并结算升级。
// 每升一级扣除当前等级阈值并奖励金币；达到等级上限后经验继续累积在 currentXP 中。
func (s *Store) AddXP(ctx context.Context, amount int, source string) (XPResult, error) {
	if amount < 0 {
		return XPResult{}, fmt.Errorf("%w: 经验不能为负: %d", ErrInvalidAmount, amount)
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return XPResult{}, err
	}

	p := &s.doc.Player
	p.CurrentXP += amount
	p.TotalXP += amount

	var res XPResult
	for p.Level < gameconfig.MaxLevel {
		need := s.table.ThresholdForLevel(p.Level)
		if need <= 0 || p.CurrentXP < need {
			break
		}
		p.CurrentXP -= need
		p.Level++
		p.Coins += s.table.LevelUpCoinReward()
		res.LevelsGained++
		res.CoinsAwarded += s.table.LevelUpCoinReward()
	}
	s.doc.Stats.WeeklyReport.XPEarned += amount

	res.NewXP = p.CurrentXP
	res.TotalXP = p.TotalXP
	res.NewLevel = p.Level
	res.LeveledUp = res.LevelsGained > 0

	s.publish(eventbus.TypeXPGained, map[string]any{"amount": amount, "source": source})
	if res.LeveledUp {
		slog.Info("玩家升级", "level", p.Level, "gained", res.LevelsGained)
		s.publish(eventbus.TypeLevelUp, map[string]any{
			"level":   p.Level,
			"coins":   res.CoinsAwarded,
			"message": s.table.LevelUpMessage(),
		})
	}

	return res, s.persist(ctx)
}

// CheckIn 每日打卡。
// 间隔按 24 小时整段计算而不是按自然日：同一段内重复打卡不做任何事，
// 相隔一段连续数加一，更久则重新从 1 开始。
func (s *Store) CheckIn(ctx context.Context) (schema.Streak, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return schema.Streak{}, err
	}

	now := s.now()
	st := &s.doc.Player.Streak
	if st.LastCheckin == nil {
		st.Current = 1
	} else {
		days := int(math.Floor(now.Sub(*st.LastCheckin).Hours() / 24))
		switch days {
		case 0:
			return *st, nil
		case 1:
			st.Current++
		default:
			st.Current = 1
		}
	}
	st.LastCheckin = &now
	st.Longest = max(st.Longest, st.Current)
	s.doc.Stats.WeeklyReport.StreakMaintained = st.Current > 1

	s.publish(eventbus.TypeStreakUpdated, map[string]any{"current": st.Current, "longest": st.Longest})
	return *st, s.persist(ctx)
}

// AddQuest 添加任务。type 缺省为 daily；daily/weekly/available 以外的类型放入 available
func (s *Store) AddQuest(ctx context.Context, fields value.Record) (schema.Quest, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return schema.Quest{}, err
	}

	q := schema.NewQuest(fields, newID("quest"), s.now())
	bucket := s.doc.Quests.BucketFor(q.Type)
	*bucket = append(*bucket, q)

	s.publish(eventbus.TypeQuestAdded, map[string]any{"id": q.ID, "type": q.Type})
	return q, s.persist(ctx)
}

// CompleteQuest 按 daily、weekly、available 的顺序查找任务，只完成第一个匹配项并移入 completed。
// 找不到时返回 nil，不写入。
func (s *Store) CompleteQuest(ctx context.Context, id string) (*schema.Quest, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	for _, name := range []string{schema.BucketDaily, schema.BucketWeekly, schema.BucketAvailable} {
		bucket := s.doc.Quests.Bucket(name)
		idx := slices.IndexFunc(*bucket, func(q schema.Quest) bool { return q.ID == id })
		if idx < 0 {
			continue
		}

		q := (*bucket)[idx]
		now := s.now()
		q.Completed = true
		q.CompletedAt = &now
		*bucket = slices.Delete(*bucket, idx, idx+1)
		s.doc.Quests.Completed = append(s.doc.Quests.Completed, q)
		s.doc.Player.Stats.QuestsCompleted++

		s.publish(eventbus.TypeQuestCompleted, map[string]any{"id": q.ID, "from": name})
		return &q, s.persist(ctx)
	}
	return nil, nil
}

// AddActivity 记录完成的活动：追加到 completed，插入 history 头部并截断
func (s *Store) AddActivity(ctx context.Context, payload value.Record) (schema.ActivityEntry, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return schema.ActivityEntry{}, err
	}

	entry := schema.NewActivityEntry(payload, newID("activity"), s.now())
	acts := &s.doc.Activities
	acts.Completed = append(acts.Completed, entry)
	acts.History = slices.Insert(acts.History, 0, entry)
	if len(acts.History) > s.historyLimit {
		acts.History = acts.History[:s.historyLimit]
	}

	s.doc.Player.Stats.ActivitiesCompleted++
	if t := entry.Type(); t != "" {
		s.doc.Stats.ActivityFrequency[t]++
	}
	s.doc.Stats.WeeklyReport.ActivitiesCompleted++

	s.publish(eventbus.TypeActivityLogged, map[string]any{"id": entry.ID, "type": entry.Type()})
	return entry, s.persist(ctx)
}
