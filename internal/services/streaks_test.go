package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentStreak(t *testing.T) {
	const today = "2024-03-15"
	tests := []struct {
		name  string
		dates []string
		want  int
	}{
		{name: "empty", dates: nil, want: 0},
		{name: "only today", dates: []string{today}, want: 1},
		{name: "three consecutive days", dates: []string{"2024-03-13", "2024-03-14", today}, want: 3},
		{name: "unsorted input", dates: []string{today, "2024-03-13", "2024-03-14"}, want: 3},
		{name: "today absent", dates: []string{"2024-03-13", "2024-03-14"}, want: 0},
		{name: "gap breaks the run", dates: []string{"2024-03-11", "2024-03-12", "2024-03-14", today}, want: 2},
		{name: "duplicates ignored", dates: []string{today, today, "2024-03-14", "2024-03-14"}, want: 2},
		{name: "invalid dates ignored", dates: []string{"yesterday", "2024-03-14", today}, want: 2},
		{name: "across a month boundary", dates: []string{"2024-02-28", "2024-02-29", "2024-03-01"}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CurrentStreak(tt.dates, today))
		})
	}

	assert.Equal(t, 3, CurrentStreak([]string{"2024-02-28", "2024-02-29", "2024-03-01"}, "2024-03-01"))
}

func TestNextSubjectStreak(t *testing.T) {
	const today = "2024-03-15"
	tests := []struct {
		name     string
		prev     int
		lastDate string
		want     int
	}{
		{name: "first activity", prev: 0, lastDate: "", want: 1},
		{name: "same day keeps the count", prev: 4, lastDate: today, want: 4},
		{name: "same day with no count", prev: 0, lastDate: today, want: 1},
		{name: "next day extends", prev: 4, lastDate: "2024-03-14", want: 5},
		{name: "two days later resets", prev: 4, lastDate: "2024-03-13", want: 1},
		{name: "long gap resets", prev: 9, lastDate: "2023-12-01", want: 1},
		{name: "unparseable last date resets", prev: 3, lastDate: "garbage", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextSubjectStreak(tt.prev, tt.lastDate, today))
		})
	}
}

func TestProgressService_SubjectStreaks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	complete := func(moduleID string) int {
		result, err := env.progress.RecordCompletion(ctx, testProfile, moduleID)
		require.NoError(t, err)
		return result.SubjectStreak
	}

	assert.Equal(t, 1, complete("science-1"))
	assert.Equal(t, 1, complete("science-2"), "same day must not advance the streak")

	env.clock.AddDays(1)
	assert.Equal(t, 2, complete("science-3"))

	env.clock.AddDays(2)
	assert.Equal(t, 1, complete("science-4"), "a missed day resets the streak")

	assert.Equal(t, 1, complete("maths-1"))

	streaks, err := env.progress.SubjectStreaks(ctx, testProfile)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"science": 1, "maths": 1}, streaks)
}

func TestProgressService_SubjectStreakBadge(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	var awarded []string
	for i := 1; i <= 5; i++ {
		result, err := env.progress.RecordCompletion(ctx, testProfile, fmt.Sprintf("technology-%d", i))
		require.NoError(t, err)
		awarded = append(awarded, result.NewBadges...)
		env.clock.AddDays(1)
	}
	assert.Contains(t, awarded, "technology_streak")
	assert.Contains(t, awarded, "streak_5")
}

func TestProgressService_RecordVisit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	first, err := env.progress.RecordVisit(ctx, testProfile)
	require.NoError(t, err)
	assert.Equal(t, 1, first.DailyStreak)
	assert.Equal(t, "2024-03-15", first.Today)

	second, err := env.progress.RecordVisit(ctx, testProfile)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-15"}, second.Dates)

	for i := 0; i < 9; i++ {
		env.clock.AddDays(1)
		_, err := env.progress.RecordVisit(ctx, testProfile)
		require.NoError(t, err)
	}

	streak, err := env.progress.CurrentDailyStreak(ctx, testProfile)
	require.NoError(t, err)
	assert.Equal(t, 10, streak)

	earned, err := env.badges.EarnedBadges(ctx, testProfile)
	require.NoError(t, err)
	ids := make([]string, 0, len(earned))
	for _, b := range earned {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"streak_5", "streak_10"}, ids)

	env.clock.AddDays(2)
	streak, err = env.progress.CurrentDailyStreak(ctx, testProfile)
	require.NoError(t, err)
	assert.Equal(t, 0, streak)

	earned, err = env.badges.EarnedBadges(ctx, testProfile)
	require.NoError(t, err)
	assert.Len(t, earned, 2, "badges are never revoked")
}
