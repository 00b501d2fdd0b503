package service

import (
	"testing"

	"github.com/yuqie6/mindcare/internal/value"
)

func TestDefaultRewardPolicyActivityXP(t *testing.T) {
	p := DefaultRewardPolicy{}

	tests := []struct {
		name    string
		payload value.Record
		streak  int
		want    int
	}{
		{name: "standard by default", payload: value.Record{}, want: 50},
		{name: "quick", payload: value.Record{"size": value.String("quick")}, want: 25},
		{name: "major", payload: value.Record{"size": value.String("Major")}, want: 100},
		{name: "explicit xp clamped", payload: value.Record{"xp": value.Int(500)}, want: 100},
		{name: "negative xp clamped", payload: value.Record{"xp": value.Int(-5)}, want: 0},
		{name: "streak bonus", payload: value.Record{}, streak: 2, want: 60},
		{name: "streak bonus capped", payload: value.Record{}, streak: 30, want: 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ActivityXP(tt.payload, tt.streak); got != tt.want {
				t.Fatalf("ActivityXP=%d, want %d", got, tt.want)
			}
		})
	}
}

func TestDefaultRewardPolicyOtherRewards(t *testing.T) {
	p := DefaultRewardPolicy{}

	if got := p.CheckinXP(0); got != 50 {
		t.Fatalf("CheckinXP(0)=%d, want 50", got)
	}
	if got := p.MiniGameXP("breathing", 0); got != 75 {
		t.Fatalf("MiniGameXP=%d, want 75", got)
	}
	if got := p.QuestCoins("weekly"); got != 50 {
		t.Fatalf("QuestCoins(weekly)=%d, want 50", got)
	}
	if got := p.QuestCoins("daily"); got != 10 {
		t.Fatalf("QuestCoins(daily)=%d, want 10", got)
	}
}
