package services

import (
	"context"
	"slices"
	"sort"

	"learnverse/internal/kvstore"
	contextutils "learnverse/internal/utils"
)

// profileState is the decoded progress of one profile
type profileState struct {
	CompletedModules  []string
	QuizScores        map[string]int
	PerfectQuizzes    []string
	DailyStreak       []string
	SubjectStreaks    map[string]int
	LastActivityDates map[string]string
	Badges            []string
	UnlockedSkills    []string
}

// loadState reads every progress key; absent keys decode to empty values
func loadState(ctx context.Context, r kvstore.Reader) (*profileState, error) {
	st := &profileState{
		CompletedModules:  []string{},
		QuizScores:        map[string]int{},
		PerfectQuizzes:    []string{},
		DailyStreak:       []string{},
		SubjectStreaks:    map[string]int{},
		LastActivityDates: map[string]string{},
		Badges:            []string{},
		UnlockedSkills:    []string{},
	}
	targets := []struct {
		key string
		dst interface{}
	}{
		{KeyCompletedModules, &st.CompletedModules},
		{KeyQuizScores, &st.QuizScores},
		{KeyPerfectQuizzes, &st.PerfectQuizzes},
		{KeyDailyStreak, &st.DailyStreak},
		{KeySubjectStreaks, &st.SubjectStreaks},
		{KeyLastActivityDates, &st.LastActivityDates},
		{KeyBadges, &st.Badges},
		{KeyUnlockedSkills, &st.UnlockedSkills},
	}
	for _, t := range targets {
		if _, err := kvstore.GetJSON(ctx, r, t.key, t.dst); err != nil {
			return nil, err
		}
	}
	st.normalize()
	return st, nil
}

// normalize replaces JSON nulls with empty values
func (st *profileState) normalize() {
	st.CompletedModules = nonNilStrings(st.CompletedModules)
	st.PerfectQuizzes = nonNilStrings(st.PerfectQuizzes)
	st.DailyStreak = nonNilStrings(st.DailyStreak)
	st.Badges = nonNilStrings(st.Badges)
	st.UnlockedSkills = nonNilStrings(st.UnlockedSkills)
	if st.QuizScores == nil {
		st.QuizScores = map[string]int{}
	}
	if st.SubjectStreaks == nil {
		st.SubjectStreaks = map[string]int{}
	}
	if st.LastActivityDates == nil {
		st.LastActivityDates = map[string]string{}
	}
}

func readStringList(ctx context.Context, r kvstore.Reader, key string) ([]string, error) {
	var out []string
	if _, err := kvstore.GetJSON(ctx, r, key, &out); err != nil {
		return nil, err
	}
	return nonNilStrings(out), nil
}

func readIntMap(ctx context.Context, r kvstore.Reader, key string) (map[string]int, error) {
	out := map[string]int{}
	if _, err := kvstore.GetJSON(ctx, r, key, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]int{}
	}
	return out, nil
}

// addDailyStreakDate appends date to the daily streak set unless present
func addDailyStreakDate(ctx context.Context, tx kvstore.Tx, date string) ([]string, error) {
	dates, err := readStringList(ctx, tx, KeyDailyStreak)
	if err != nil {
		return nil, err
	}
	if slices.Contains(dates, date) {
		return dates, nil
	}
	dates = append(dates, date)
	if err := kvstore.SetJSON(ctx, tx, KeyDailyStreak, dates); err != nil {
		return nil, err
	}
	return dates, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// missingFrom returns the items of want that are not in have, in want order
func missingFrom(want, have []string) []string {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	out := []string{}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			out = append(out, w)
		}
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	return slices.Equal(x, y)
}

func requireProfile(profileID string) error {
	if profileID == "" {
		return contextutils.InvalidInputf("profile id is required")
	}
	return nil
}
