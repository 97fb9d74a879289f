package services

import (
	"context"
	"sort"

	"learnverse/internal/kvstore"
	"learnverse/internal/models"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"
)

// CurrentStreak counts consecutive days ending today in a set of YYYY-MM-DD dates.
// Invalid and duplicate dates are ignored; the streak is 0 unless today is present.
func CurrentStreak(dates []string, today string) int {
	seen := make(map[string]struct{}, len(dates))
	uniq := make([]string, 0, len(dates))
	for _, d := range dates {
		if !contextutils.IsValidDate(d) {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		uniq = append(uniq, d)
	}
	// YYYY-MM-DD sorts chronologically as text
	sort.Sort(sort.Reverse(sort.StringSlice(uniq)))

	if len(uniq) == 0 || uniq[0] != today {
		return 0
	}
	count := 1
	for i := 0; i < len(uniq)-1; i++ {
		gap, err := contextutils.DaysBetween(uniq[i+1], uniq[i])
		if err != nil || gap != 1 {
			break
		}
		count++
	}
	return count
}

// NextSubjectStreak returns a subject's streak after activity today given the previous
// counter and the subject's last activity date.
func NextSubjectStreak(prev int, lastDate, today string) int {
	if lastDate == "" {
		return 1
	}
	if lastDate == today {
		return max(prev, 1)
	}
	gap, err := contextutils.DaysBetween(lastDate, today)
	if err == nil && gap == 1 {
		return prev + 1
	}
	return 1
}

// applySubjectActivity bumps the subject streak counter and stamps today as its last activity
func applySubjectActivity(ctx context.Context, tx kvstore.Tx, subject, today string) (int, error) {
	streaks, err := readIntMap(ctx, tx, KeySubjectStreaks)
	if err != nil {
		return 0, err
	}
	last, _, err := tx.Get(ctx, lastActivityKey(subject))
	if err != nil {
		return 0, err
	}
	next := NextSubjectStreak(streaks[subject], last, today)
	streaks[subject] = next
	if err := kvstore.SetJSON(ctx, tx, KeySubjectStreaks, streaks); err != nil {
		return 0, err
	}
	if err := tx.Set(ctx, lastActivityKey(subject), today); err != nil {
		return 0, err
	}
	return next, nil
}

// RecordVisit adds today to the daily streak and awards any badge it completes
func (s *ProgressService) RecordVisit(ctx context.Context, profileID string) (result0 *models.StreakSummary, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "RecordVisit", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	if err := requireProfile(profileID); err != nil {
		return nil, err
	}

	today := s.calendar.Today()
	var awarded []string
	err = s.backend.Namespace(profileID).Update(ctx, func(tx kvstore.Tx) error {
		if _, err := addDailyStreakDate(ctx, tx, today); err != nil {
			return err
		}
		var err error
		awarded, err = s.badges.awardInTx(ctx, tx, today)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.BadgesAwarded(ctx, len(awarded), "visit")
	return s.Streaks(ctx, profileID)
}

// CurrentDailyStreak returns the global streak as of today
func (s *ProgressService) CurrentDailyStreak(ctx context.Context, profileID string) (result0 int, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "CurrentDailyStreak", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	dates, err := readStringList(ctx, s.backend.Namespace(profileID), KeyDailyStreak)
	if err != nil {
		return 0, err
	}
	return CurrentStreak(dates, s.calendar.Today()), nil
}

// SubjectStreaks returns the per-subject streak counters
func (s *ProgressService) SubjectStreaks(ctx context.Context, profileID string) (result0 map[string]int, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "SubjectStreaks", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	return readIntMap(ctx, s.backend.Namespace(profileID), KeySubjectStreaks)
}

// DailyStreakDates returns the recorded visit dates
func (s *ProgressService) DailyStreakDates(ctx context.Context, profileID string) (result0 []string, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "DailyStreakDates", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	return readStringList(ctx, s.backend.Namespace(profileID), KeyDailyStreak)
}

// Streaks returns the global and per-subject streaks together
func (s *ProgressService) Streaks(ctx context.Context, profileID string) (result0 *models.StreakSummary, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "Streaks", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	store := s.backend.Namespace(profileID)
	dates, err := readStringList(ctx, store, KeyDailyStreak)
	if err != nil {
		return nil, err
	}
	subjects, err := readIntMap(ctx, store, KeySubjectStreaks)
	if err != nil {
		return nil, err
	}

	lastActivity := map[string]string{}
	keys, err := store.Keys(ctx, PrefixLastActivity)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		v, found, err := store.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if found {
			lastActivity[k[len(PrefixLastActivity):]] = v
		}
	}

	today := s.calendar.Today()
	sorted := append([]string(nil), dates...)
	sort.Strings(sorted)
	return &models.StreakSummary{
		DailyStreak:    CurrentStreak(dates, today),
		Dates:          nonNilStrings(sorted),
		SubjectStreaks: subjects,
		LastActivity:   lastActivity,
		Today:          today,
	}, nil
}
