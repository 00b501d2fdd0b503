package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/yuqie6/mindcare/internal/eventbus"
	"github.com/yuqie6/mindcare/internal/schema"
	"github.com/yuqie6/mindcare/internal/value"
)

// PlayerPatch 玩家档案的部分更新，nil 字段不修改
type PlayerPatch struct {
	Name             *string
	Archetype        *string // 空串表示清除
	Coins            *int
	TotalPlayTime    *int
	SessionsAttended *int
}

// UpdatePlayer 校验后更新玩家档案
func (s *Store) UpdatePlayer(ctx context.Context, patch PlayerPatch) (schema.Player, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return schema.Player{}, err
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return schema.Player{}, fmt.Errorf("%w: 名字不能为空", ErrInvalidValue)
	}
	if patch.Archetype != nil && *patch.Archetype != "" {
		if _, ok := s.table.Archetype(*patch.Archetype); !ok {
			return schema.Player{}, fmt.Errorf("%w: %s", ErrUnknownArchetype, *patch.Archetype)
		}
	}
	for _, n := range []*int{patch.Coins, patch.TotalPlayTime, patch.SessionsAttended} {
		if n != nil && *n < 0 {
			return schema.Player{}, fmt.Errorf("%w: %d", ErrInvalidAmount, *n)
		}
	}

	p := &s.doc.Player
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Archetype != nil {
		if *patch.Archetype == "" {
			p.Archetype = nil
		} else {
			a := *patch.Archetype
			p.Archetype = &a
		}
	}
	if patch.Coins != nil {
		p.Coins = *patch.Coins
	}
	if patch.TotalPlayTime != nil {
		p.Stats.TotalPlayTime = *patch.TotalPlayTime
	}
	if patch.SessionsAttended != nil {
		p.Stats.SessionsAttended = *patch.SessionsAttended
	}

	return *p, s.persist(ctx)
}

// RecordMiniGame 记录一局小游戏
func (s *Store) RecordMiniGame(ctx context.Context, id string, score int) (schema.MiniGameStats, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return schema.MiniGameStats{}, err
	}
	game := s.doc.MiniGames.Game(id)
	if game == nil {
		return schema.MiniGameStats{}, fmt.Errorf("%w: %s", ErrUnknownMiniGame, id)
	}

	now := s.now()
	game.Played++
	game.BestScore = max(game.BestScore, score)
	game.LastPlayed = &now
	s.doc.Player.Stats.MiniGamesPlayed++

	s.publish(eventbus.TypeMiniGamePlayed, map[string]any{"id": id, "score": score})
	return *game, s.persist(ctx)
}

// AddSkillXP 给技能分支加经验，分支等级按累计经验重新计算，不超过分支上限
func (s *Store) AddSkillXP(ctx context.Context, branch string, amount int) (schema.SkillTreeProgress, error) {
	if amount < 0 {
		return schema.SkillTreeProgress{}, fmt.Errorf("%w: 经验不能为负: %d", ErrInvalidAmount, amount)
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return schema.SkillTreeProgress{}, err
	}
	progress := s.doc.SkillTrees.Branch(branch)
	tree, ok := s.table.SkillTree(branch)
	if progress == nil || !ok {
		return schema.SkillTreeProgress{}, fmt.Errorf("%w: %s", ErrUnknownBranch, branch)
	}

	progress.XP += amount
	progress.Level = s.table.LevelForCumulativeXP(progress.XP, tree.MaxLevel)
	s.doc.Stats.SkillProgress[branch] = progress.Level

	return *progress, s.persist(ctx)
}

// UnlockSkill 解锁技能，已解锁时返回 false 且不写入
func (s *Store) UnlockSkill(ctx context.Context, branch, skillID string) (bool, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}
	progress := s.doc.SkillTrees.Branch(branch)
	tree, ok := s.table.SkillTree(branch)
	if progress == nil || !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownBranch, branch)
	}
	if !tree.HasSkill(skillID) {
		return false, fmt.Errorf("%w: %s/%s", ErrUnknownSkill, branch, skillID)
	}
	if slices.Contains(progress.UnlockedSkills, skillID) {
		return false, nil
	}

	progress.UnlockedSkills = append(progress.UnlockedSkills, skillID)
	s.publish(eventbus.TypeSkillUnlocked, map[string]any{"branch": branch, "skill": skillID})
	return true, s.persist(ctx)
}

// UnlockCosmetic 解锁外观选项，已解锁时返回 false 且不写入
func (s *Store) UnlockCosmetic(ctx context.Context, category, option string) (bool, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}
	unlocked := s.doc.Avatar.Unlocked.Category(category)
	if unlocked == nil {
		return false, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if option == "" {
		return false, fmt.Errorf("%w: 外观选项不能为空", ErrInvalidValue)
	}
	if slices.Contains(*unlocked, option) {
		return false, nil
	}
	*unlocked = append(*unlocked, option)
	return true, s.persist(ctx)
}

// AddToInventory 向背包集合追加一项
func (s *Store) AddToInventory(ctx context.Context, collection string, item value.Value) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	items := s.doc.Inventory.Collection(collection)
	if items == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	*items = append(*items, item.Clone())
	return s.persist(ctx)
}

// RecordSample 向 mood/energy/sleep 序列追加一个采样点
func (s *Store) RecordSample(ctx context.Context, series string, v float64, extra value.Record) (schema.Sample, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return schema.Sample{}, err
	}
	samples := s.doc.Stats.Series(series)
	if samples == nil {
		return schema.Sample{}, fmt.Errorf("%w: %s", ErrUnknownSeries, series)
	}
	sample := schema.NewSample(v, extra, s.now())
	*samples = append(*samples, sample)
	return sample, s.persist(ctx)
}
