package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"slices"
	"sort"
	"time"

	"learnverse/internal/catalog"
	"learnverse/internal/config"
	"learnverse/internal/kvstore"
	"learnverse/internal/models"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"
)

// Leaderboard score weights
const (
	pointsPerModule  = 100
	pointsPerBadge   = 50
	pointsPerPerfect = 25
	pointsPerDay     = 10
	pointsPerLevel   = 500

	weeklyChallengeCount = 3
	recentActivityDays   = 7
)

// InsightsServiceInterface defines leaderboard and performance queries
type InsightsServiceInterface interface {
	Leaderboard(ctx context.Context, profileID string) ([]models.LeaderboardEntry, error)
	Performance(ctx context.Context, profileID string) (*models.PerformanceSummary, error)
	WeeklyBadgeChallenges(ctx context.Context, profileID string) ([]models.BadgeChallenge, error)
}

// InsightsService derives read-only views from a profile's progress
type InsightsService struct {
	backend         kvstore.Backend
	catalog         *catalog.Catalog
	calendar        *Calendar
	xpPerModule     int
	defaultUserName string
	logger          *observability.Logger
}

// NewInsightsService creates a new InsightsService instance
func NewInsightsService(backend kvstore.Backend, cat *catalog.Catalog, calendar *Calendar, cfg *config.Config, logger *observability.Logger) *InsightsService {
	return &InsightsService{
		backend:         backend,
		catalog:         cat,
		calendar:        calendar,
		xpPerModule:     cfg.Progress.XPPerModule,
		defaultUserName: cfg.Progress.DefaultUserName,
		logger:          logger,
	}
}

// LeaderboardScore weighs modules, badges, perfect quizzes and the daily streak
func LeaderboardScore(modules, badges, perfect, streak int) int {
	return modules*pointsPerModule + badges*pointsPerBadge + perfect*pointsPerPerfect + streak*pointsPerDay
}

// LeaderboardLevel is one level per 500 points, starting at 1
func LeaderboardLevel(score int) int {
	return score/pointsPerLevel + 1
}

// Leaderboard ranks the profile among the catalog peers
func (s *InsightsService) Leaderboard(ctx context.Context, profileID string) (result0 []models.LeaderboardEntry, err error) {
	ctx, span := observability.TraceInsightsFunction(ctx, "Leaderboard", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	store := s.backend.Namespace(profileID)
	st, err := loadState(ctx, store)
	if err != nil {
		return nil, err
	}
	name, found, err := store.Get(ctx, KeyUserName)
	if err != nil {
		return nil, err
	}
	if !found || name == "" {
		name = s.defaultUserName
	}

	streak := CurrentStreak(st.DailyStreak, s.calendar.Today())
	score := LeaderboardScore(len(st.CompletedModules), len(st.Badges), len(st.PerfectQuizzes), streak)
	entries := []models.LeaderboardEntry{{
		Name:          name,
		Score:         score,
		Level:         LeaderboardLevel(score),
		Modules:       len(st.CompletedModules),
		Badges:        len(st.Badges),
		Perfect:       len(st.PerfectQuizzes),
		Streak:        streak,
		IsCurrentUser: true,
	}}
	for _, p := range s.catalog.Peers() {
		entries = append(entries, models.LeaderboardEntry{
			Name:    p.Name,
			Score:   p.Score,
			Level:   LeaderboardLevel(p.Score),
			Modules: p.Modules,
			Badges:  p.Badges,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Performance summarizes completion, scores and recent activity
func (s *InsightsService) Performance(ctx context.Context, profileID string) (result0 *models.PerformanceSummary, err error) {
	ctx, span := observability.TraceInsightsFunction(ctx, "Performance", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	st, err := loadState(ctx, s.backend.Namespace(profileID))
	if err != nil {
		return nil, err
	}

	totalModules := 0
	subjects := make([]models.SubjectProgress, 0, len(s.catalog.Subjects()))
	for _, subject := range s.catalog.Subjects() {
		totalModules += subject.ModuleCount
		completed := countInSubject(st.CompletedModules, subject.ID)

		var scores []int
		for moduleID, score := range st.QuizScores {
			if models.SubjectOf(moduleID) == subject.ID {
				scores = append(scores, score)
			}
		}
		subjects = append(subjects, models.SubjectProgress{
			SubjectID:      subject.ID,
			Name:           subject.Name,
			Color:          subject.Color,
			Completed:      completed,
			Total:          subject.ModuleCount,
			CompletionRate: percentOf(completed, subject.ModuleCount),
			AverageScore:   mean(scores),
		})
	}

	allScores := make([]int, 0, len(st.QuizScores))
	for _, score := range st.QuizScores {
		allScores = append(allScores, score)
	}

	return &models.PerformanceSummary{
		CompletedModules: len(st.CompletedModules),
		AverageScore:     mean(allScores),
		CompletionRate:   percentOf(len(st.CompletedModules), totalModules),
		PerfectRate:      percentOf(len(st.PerfectQuizzes), len(st.CompletedModules)),
		PerfectQuizzes:   len(st.PerfectQuizzes),
		DailyStreak:      CurrentStreak(st.DailyStreak, s.calendar.Today()),
		Subjects:         subjects,
		RecentActivity:   s.recentActivity(ctx, st.LastActivityDates),
	}, nil
}

// recentActivity counts completions per day over the last week, oldest first
func (s *InsightsService) recentActivity(ctx context.Context, lastActivity map[string]string) []models.ActivityDay {
	perDay := map[string]int{}
	for moduleID, ts := range lastActivity {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			s.logger.Debug(ctx, "Skipping unparseable activity timestamp", map[string]interface{}{"module_id": moduleID, "value": ts})
			continue
		}
		perDay[s.calendar.Date(t)]++
	}

	today := s.calendar.Today()
	days := make([]models.ActivityDay, 0, recentActivityDays)
	for i := recentActivityDays - 1; i >= 0; i-- {
		date, err := contextutils.AddDays(today, -i)
		if err != nil {
			continue
		}
		days = append(days, models.ActivityDay{Date: date, Modules: perDay[date]})
	}
	return days
}

// WeeklyBadgeChallenges picks up to three unearned badges for the ISO week.
// The pick is stable for a profile within a week.
func (s *InsightsService) WeeklyBadgeChallenges(ctx context.Context, profileID string) (result0 []models.BadgeChallenge, err error) {
	ctx, span := observability.TraceInsightsFunction(ctx, "WeeklyBadgeChallenges", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	st, err := loadState(ctx, s.backend.Namespace(profileID))
	if err != nil {
		return nil, err
	}

	var candidates []models.Badge
	for _, b := range s.catalog.Badges() {
		if b.IsSpecial() || slices.Contains(st.Badges, b.ID) {
			continue
		}
		candidates = append(candidates, b)
	}

	week := isoWeek(s.calendar.Now().In(s.calendar.Location()))
	rng := rand.New(rand.NewSource(weekSeed(profileID, week)))
	order := rng.Perm(len(candidates))

	today := s.calendar.Today()
	agg := Aggregates{
		CompletedModules: st.CompletedModules,
		PerfectQuizzes:   st.PerfectQuizzes,
		SubjectStreaks:   st.SubjectStreaks,
		DailyStreak:      CurrentStreak(st.DailyStreak, today),
		UnlockedSkills:   UnlockedSkills(s.catalog, st.CompletedModules, s.xpPerModule),
	}

	out := []models.BadgeChallenge{}
	for _, idx := range order {
		if len(out) == weeklyChallengeCount {
			break
		}
		b := candidates[idx]
		current, target := requirementProgress(b.Requirement, agg, s.catalog, s.xpPerModule)
		out = append(out, models.BadgeChallenge{
			Badge:    b,
			Week:     week,
			Current:  current,
			Target:   target,
			Progress: min(percentOf(current, target), 100),
		})
	}
	return out, nil
}

func isoWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func weekSeed(profileID, week string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(profileID + "|" + week))
	return int64(h.Sum64())
}

// percentOf returns part/whole as a rounded percentage; 0 when whole is 0
func percentOf(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(whole)))
}

func mean(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(values))))
}
