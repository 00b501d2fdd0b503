package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/yuqie6/mindcare/internal/eventbus"
	"github.com/yuqie6/mindcare/internal/schema"
	"github.com/yuqie6/mindcare/internal/value"
)

func TestAddXPSingleLevelUp(t *testing.T) {
	s, _, _ := loadedTestStore(t)

	res, err := s.AddXP(context.Background(), 115, "activity")
	if err != nil {
		t.Fatalf("AddXP error: %v", err)
	}
	if !res.LeveledUp || res.NewLevel != 2 || res.NewXP != 15 || res.TotalXP != 115 {
		t.Fatalf("res=%+v, want level 2 with 15 xp left", res)
	}
	if s.Document().Player.Coins != 25 {
		t.Fatalf("coins=%d, want 25", s.Document().Player.Coins)
	}
}

func TestAddXPMultipleLevelUps(t *testing.T) {
	events := &recordingPublisher{}
	clk := &fakeClock{t: testStart}
	s := NewStore(newFakeKV(), StoreOptions{Clock: clk.Now, Events: events})

	res, err := s.AddXP(context.Background(), 250, "activity")
	if err != nil {
		t.Fatalf("AddXP error: %v", err)
	}
	// 100 + 114 = 214，剩余 36
	if res.NewLevel != 3 || res.LevelsGained != 2 || res.NewXP != 36 {
		t.Fatalf("res=%+v, want level 3 with 36 xp left", res)
	}
	if res.CoinsAwarded != 2*s.Table().LevelUpCoinReward() || s.Document().Player.Coins != 50 {
		t.Fatalf("coins awarded=%d total=%d, want 50", res.CoinsAwarded, s.Document().Player.Coins)
	}
	if s.Document().Stats.WeeklyReport.XPEarned != 250 {
		t.Fatalf("weekly xp=%d, want 250", s.Document().Stats.WeeklyReport.XPEarned)
	}
	if !events.has(eventbus.TypeLevelUp) || !events.has(eventbus.TypeXPGained) {
		t.Fatalf("events=%+v, want xp_gained and level_up", events.events)
	}
}

func TestAddXPAtLevelCap(t *testing.T) {
	s, _, _ := loadedTestStore(t)
	ctx := context.Background()
	if err := s.Set(ctx, "player.level", value.Int(100)); err != nil {
		t.Fatalf("Set level error: %v", err)
	}

	res, err := s.AddXP(ctx, 1_000_000, "activity")
	if err != nil {
		t.Fatalf("AddXP error: %v", err)
	}
	if res.LeveledUp || res.NewLevel != 100 || res.NewXP != 1_000_000 {
		t.Fatalf("res=%+v, want level 100 with xp accumulated", res)
	}
	if s.Document().Player.Coins != 0 {
		t.Fatalf("coins=%d, want 0", s.Document().Player.Coins)
	}
}

func TestAddXPRejectsNegative(t *testing.T) {
	s, kv, _ := loadedTestStore(t)
	sets := kv.sets

	if _, err := s.AddXP(context.Background(), -5, "activity"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err=%v, want ErrInvalidAmount", err)
	}
	if kv.sets != sets || s.Document().Player.TotalXP != 0 {
		t.Fatalf("negative amount mutated state")
	}
}

func TestCheckInStreak(t *testing.T) {
	s, kv, clk := loadedTestStore(t)
	ctx := context.Background()

	st, err := s.CheckIn(ctx)
	if err != nil || st.Current != 1 || st.Longest != 1 || st.LastCheckin == nil {
		t.Fatalf("first check-in=%+v err=%v", st, err)
	}

	// 同一个 24 小时内：不变且不写入
	clk.Advance(23 * time.Hour)
	sets := kv.sets
	st, _ = s.CheckIn(ctx)
	if st.Current != 1 || !st.LastCheckin.Equal(testStart) || kv.sets != sets {
		t.Fatalf("same-window check-in=%+v sets=%d, want no-op", st, kv.sets-sets)
	}

	// 距上次打卡 24-48 小时：连续
	clk.Advance(2 * time.Hour)
	st, _ = s.CheckIn(ctx)
	if st.Current != 2 || st.Longest != 2 {
		t.Fatalf("next-day check-in=%+v, want current 2", st)
	}
	if !s.Document().Stats.WeeklyReport.StreakMaintained {
		t.Fatalf("streakMaintained=false, want true")
	}

	// 超过 48 小时：中断，longest 不变
	clk.Advance(49 * time.Hour)
	st, _ = s.CheckIn(ctx)
	if st.Current != 1 || st.Longest != 2 {
		t.Fatalf("broken streak=%+v, want current 1 longest 2", st)
	}
	if !st.LastCheckin.Equal(clk.Now()) {
		t.Fatalf("lastCheckin=%v, want %v", st.LastCheckin, clk.Now())
	}
}

func TestCheckInClockMovedBackwardResets(t *testing.T) {
	s, _, clk := loadedTestStore(t)
	ctx := context.Background()

	if _, err := s.CheckIn(ctx); err != nil {
		t.Fatalf("CheckIn error: %v", err)
	}
	clk.Advance(25 * time.Hour)
	if st, _ := s.CheckIn(ctx); st.Current != 2 {
		t.Fatalf("current=%d, want 2", st.Current)
	}

	clk.Advance(-2 * time.Hour)
	st, _ := s.CheckIn(ctx)
	if st.Current != 1 || st.Longest != 2 {
		t.Fatalf("after clock rollback=%+v, want reset to 1", st)
	}
}

func TestAddQuestBuckets(t *testing.T) {
	s, _, clk := loadedTestStore(t)
	ctx := context.Background()

	tests := []struct {
		fields   value.Record
		wantType string
		bucket   func(q *schema.Quests) []schema.Quest
	}{
		{fields: value.Record{"title": value.String("Walk")}, wantType: "daily", bucket: func(q *schema.Quests) []schema.Quest { return q.Daily }},
		{fields: value.Record{"type": value.String("weekly")}, wantType: "weekly", bucket: func(q *schema.Quests) []schema.Quest { return q.Weekly }},
		{fields: value.Record{"type": value.String("available")}, wantType: "available", bucket: func(q *schema.Quests) []schema.Quest { return q.Available }},
		{fields: value.Record{"type": value.String("milestone")}, wantType: "milestone", bucket: func(q *schema.Quests) []schema.Quest { return q.Available }},
	}

	for _, tt := range tests {
		q, err := s.AddQuest(ctx, tt.fields)
		if err != nil {
			t.Fatalf("AddQuest error: %v", err)
		}
		if q.Type != tt.wantType || q.Completed || q.Progress != 0 || !q.AddedAt.Equal(clk.Now()) {
			t.Fatalf("quest=%+v, want fresh %s quest", q, tt.wantType)
		}
		if !strings.HasPrefix(q.ID, "quest_") {
			t.Fatalf("id=%q, want quest_ prefix", q.ID)
		}
		bucket := tt.bucket(&s.Document().Quests)
		if len(bucket) == 0 || bucket[len(bucket)-1].ID != q.ID {
			t.Fatalf("quest %s (%s) not appended to expected bucket", q.ID, q.Type)
		}
	}

	if title, _ := s.Document().Quests.Daily[0].Extra["title"].AsString(); title != "Walk" {
		t.Fatalf("caller field title=%q, want Walk", title)
	}
}

func TestAddQuestIgnoresCallerSystemFields(t *testing.T) {
	s, _, _ := loadedTestStore(t)

	q, err := s.AddQuest(context.Background(), value.Record{
		"id":        value.String("mine"),
		"completed": value.Bool(true),
		"progress":  value.Int(7),
	})
	if err != nil {
		t.Fatalf("AddQuest error: %v", err)
	}
	if q.ID == "mine" || q.Completed || q.Progress != 0 || len(q.Extra) != 0 {
		t.Fatalf("quest=%+v, want system fields generated", q)
	}
}

func TestCompleteQuest(t *testing.T) {
	s, kv, _ := loadedTestStore(t)
	ctx := context.Background()

	q1, _ := s.AddQuest(ctx, value.Record{"title": value.String("a")})
	q2, _ := s.AddQuest(ctx, value.Record{"type": value.String("weekly")})

	done, err := s.CompleteQuest(ctx, q2.ID)
	if err != nil || done == nil {
		t.Fatalf("CompleteQuest done=%v err=%v", done, err)
	}
	if !done.Completed || done.CompletedAt == nil {
		t.Fatalf("done=%+v, want completed with timestamp", done)
	}
	quests := s.Document().Quests
	if len(quests.Weekly) != 0 || len(quests.Daily) != 1 || len(quests.Completed) != 1 || quests.Completed[0].ID != q2.ID {
		t.Fatalf("buckets daily=%d weekly=%d completed=%d", len(quests.Daily), len(quests.Weekly), len(quests.Completed))
	}
	if s.Document().Player.Stats.QuestsCompleted != 1 {
		t.Fatalf("questsCompleted=%d, want 1", s.Document().Player.Stats.QuestsCompleted)
	}

	before := s.Document().Quests
	sets := kv.sets
	for _, id := range []string{"quest_missing", q2.ID} {
		got, err := s.CompleteQuest(ctx, id)
		if got != nil || err != nil {
			t.Fatalf("CompleteQuest(%s)=%v err=%v, want absent", id, got, err)
		}
	}
	if kv.sets != sets || !reflect.DeepEqual(before, s.Document().Quests) {
		t.Fatalf("absent completion changed buckets or wrote")
	}
	if s.Document().Quests.Daily[0].ID != q1.ID {
		t.Fatalf("daily quest changed")
	}
}

func TestCompleteQuestTakesFirstMatchOnly(t *testing.T) {
	s, _, _ := loadedTestStore(t)
	ctx := context.Background()

	q, _ := s.AddQuest(ctx, value.Record{})
	dup := q
	dup.Type = "weekly"
	s.Document().Quests.Weekly = append(s.Document().Quests.Weekly, dup)

	if _, err := s.CompleteQuest(ctx, q.ID); err != nil {
		t.Fatalf("CompleteQuest error: %v", err)
	}
	quests := s.Document().Quests
	if len(quests.Daily) != 0 || len(quests.Weekly) != 1 || len(quests.Completed) != 1 {
		t.Fatalf("daily=%d weekly=%d completed=%d, want only daily copy completed",
			len(quests.Daily), len(quests.Weekly), len(quests.Completed))
	}
	if quests.Completed[0].Type != "daily" {
		t.Fatalf("completed type=%s, want daily", quests.Completed[0].Type)
	}
}

func TestAddActivityHistoryCap(t *testing.T) {
	s, kv, _ := loadedTestStore(t)
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		if _, err := s.AddActivity(ctx, value.Record{
			"type": value.String("breathing"),
			"n":    value.Int(i),
		}); err != nil {
			t.Fatalf("AddActivity %d error: %v", i, err)
		}
	}

	acts := s.Document().Activities
	if len(acts.History) != schema.HistoryLimit || len(acts.Completed) != 150 {
		t.Fatalf("history=%d completed=%d, want 100/150", len(acts.History), len(acts.Completed))
	}
	for i, e := range acts.History {
		n, _ := e.Payload["n"].AsInt()
		if n != 149-i {
			t.Fatalf("history[%d].n=%d, want %d", i, n, 149-i)
		}
		if !strings.HasPrefix(e.ID, "activity_") {
			t.Fatalf("history[%d].id=%q, want activity_ prefix", i, e.ID)
		}
	}

	doc := s.Document()
	if doc.Player.Stats.ActivitiesCompleted != 150 || doc.Stats.ActivityFrequency["breathing"] != 150 ||
		doc.Stats.WeeklyReport.ActivitiesCompleted != 150 {
		t.Fatalf("counters=%d/%d/%d, want 150", doc.Player.Stats.ActivitiesCompleted,
			doc.Stats.ActivityFrequency["breathing"], doc.Stats.WeeklyReport.ActivitiesCompleted)
	}

	history, _ := mustLookup(t, storedRecord(t, kv, DefaultKey), "activities.history").AsArray()
	if len(history) != schema.HistoryLimit {
		t.Fatalf("stored history=%d, want %d", len(history), schema.HistoryLimit)
	}
	if n, _ := mustLookup(t, history[0], "n").AsInt(); n != 149 {
		t.Fatalf("stored history[0].n=%d, want 149", n)
	}
}

func TestCompleteQuestFindsUnknownTypeInAvailable(t *testing.T) {
	s, _, _ := loadedTestStore(t)
	ctx := context.Background()

	q, err := s.AddQuest(ctx, value.Record{"type": value.String("milestone")})
	if err != nil {
		t.Fatalf("AddQuest error: %v", err)
	}
	done, err := s.CompleteQuest(ctx, q.ID)
	if err != nil || done == nil {
		t.Fatalf("CompleteQuest done=%v err=%v", done, err)
	}
	quests := s.Document().Quests
	if done.Type != "milestone" || len(quests.Available) != 0 || len(quests.Completed) != 1 {
		t.Fatalf("type=%s available=%d completed=%d, want milestone moved to completed",
			done.Type, len(quests.Available), len(quests.Completed))
	}
}
