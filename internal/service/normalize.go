package service

import (
	"github.com/yuqie6/mindcare/internal/gameconfig"
	"github.com/yuqie6/mindcare/internal/schema"
)

// normalize 修正解码后的越界数值并补齐空集合
func (s *Store) normalize() {
	d := s.doc

	p := &d.Player
	p.Level = min(max(p.Level, 1), gameconfig.MaxLevel)
	p.CurrentXP = max(p.CurrentXP, 0)
	p.TotalXP = max(p.TotalXP, 0)
	p.Coins = max(p.Coins, 0)
	p.Streak.Current = max(p.Streak.Current, 0)
	p.Streak.Longest = max(p.Streak.Longest, p.Streak.Current)
	if p.Archetype != nil && *p.Archetype == "" {
		p.Archetype = nil
	}
	ps := &p.Stats
	ps.ActivitiesCompleted = max(ps.ActivitiesCompleted, 0)
	ps.QuestsCompleted = max(ps.QuestsCompleted, 0)
	ps.MiniGamesPlayed = max(ps.MiniGamesPlayed, 0)
	ps.TotalPlayTime = max(ps.TotalPlayTime, 0)
	ps.SessionsAttended = max(ps.SessionsAttended, 0)

	for _, id := range schema.Branches() {
		b := d.SkillTrees.Branch(id)
		maxLevel := gameconfig.MaxLevel
		if tree, ok := s.table.SkillTree(id); ok {
			maxLevel = tree.MaxLevel
		}
		b.Level = min(max(b.Level, 0), maxLevel)
		b.XP = max(b.XP, 0)
		b.UnlockedSkills = dedupe(b.UnlockedSkills)
	}

	av := &d.Avatar
	av.Accessories = orEmpty(av.Accessories)
	for _, name := range []string{"hairStyles", "hairColors", "outfits", "accessories"} {
		c := av.Unlocked.Category(name)
		*c = dedupe(*c)
	}

	for _, name := range []string{"items", "badges", "achievements", "cosmetics"} {
		c := d.Inventory.Collection(name)
		*c = orEmpty(*c)
	}

	for _, name := range []string{schema.BucketDaily, schema.BucketWeekly, schema.BucketAvailable, schema.BucketCompleted} {
		b := d.Quests.Bucket(name)
		*b = orEmpty(*b)
	}

	acts := &d.Activities
	acts.Completed = orEmpty(acts.Completed)
	acts.Favorites = orEmpty(acts.Favorites)
	acts.History = orEmpty(acts.History)
	if len(acts.History) > s.historyLimit {
		acts.History = acts.History[:s.historyLimit]
	}

	for _, id := range []string{schema.GameBreathing, schema.GameMoodMatcher, schema.GameGratitude} {
		g := d.MiniGames.Game(id)
		g.Played = max(g.Played, 0)
	}

	st := &d.Stats
	for _, name := range []string{schema.SeriesMood, schema.SeriesEnergy, schema.SeriesSleep} {
		series := st.Series(name)
		*series = orEmpty(*series)
	}
	if st.ActivityFrequency == nil {
		st.ActivityFrequency = map[string]int{}
	}
	if st.SkillProgress == nil {
		st.SkillProgress = map[string]int{}
	}

	d.Medications = orEmpty(d.Medications)
	d.SessionNotes = orEmpty(d.SessionNotes)
	d.SideEffects = orEmpty(d.SideEffects)
}

// dedupe 去重并保留首次出现的顺序
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
