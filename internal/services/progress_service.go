package services

import (
	"context"
	"math"
	"slices"

	"learnverse/internal/catalog"
	"learnverse/internal/config"
	"learnverse/internal/kvstore"
	"learnverse/internal/models"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"
)

// activityTimestampLayout is how lastActivityDates values are written
const activityTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ProgressServiceInterface defines the progress ledger and streak operations
type ProgressServiceInterface interface {
	RecordCompletion(ctx context.Context, profileID, moduleID string) (*models.CompletionResult, error)
	RecordQuizScore(ctx context.Context, profileID, moduleID string, percent int) (*models.ScoreResult, error)
	CompletedModules(ctx context.Context, profileID string) ([]string, error)
	QuizScores(ctx context.Context, profileID string) (map[string]int, error)
	PerfectQuizzes(ctx context.Context, profileID string) ([]string, error)
	LastActivityDates(ctx context.Context, profileID string) (map[string]string, error)
	Snapshot(ctx context.Context, profileID string) (*models.ProgressSnapshot, error)
	RecordVisit(ctx context.Context, profileID string) (*models.StreakSummary, error)
	CurrentDailyStreak(ctx context.Context, profileID string) (int, error)
	SubjectStreaks(ctx context.Context, profileID string) (map[string]int, error)
	DailyStreakDates(ctx context.Context, profileID string) ([]string, error)
	Streaks(ctx context.Context, profileID string) (*models.StreakSummary, error)
}

// ProgressService records module completions, quiz scores and visits.
// Every event is one store transaction that also runs the badge award step.
type ProgressService struct {
	backend     kvstore.Backend
	catalog     *catalog.Catalog
	badges      *BadgeService
	calendar    *Calendar
	xpPerModule int
	logger      *observability.Logger
	metrics     *observability.ProgressMetrics
}

// NewProgressService creates a new ProgressService instance
func NewProgressService(backend kvstore.Backend, cat *catalog.Catalog, badges *BadgeService, calendar *Calendar, cfg *config.Config, logger *observability.Logger, metrics *observability.ProgressMetrics) *ProgressService {
	if backend == nil {
		panic("NewProgressService: backend is nil")
	}
	if badges == nil {
		panic("NewProgressService: badge service is nil")
	}
	return &ProgressService{
		backend:     backend,
		catalog:     cat,
		badges:      badges,
		calendar:    calendar,
		xpPerModule: cfg.Progress.XPPerModule,
		logger:      logger,
		metrics:     metrics,
	}
}

// ScorePercent converts a correct-answer count to a rounded percentage
func ScorePercent(correct, total int) (int, error) {
	if total <= 0 {
		return 0, contextutils.InvalidInputf("total questions must be positive, got %d", total)
	}
	if correct < 0 || correct > total {
		return 0, contextutils.InvalidInputf("correct answers %d out of range [0,%d]", correct, total)
	}
	return int(math.Round(float64(correct) * 100 / float64(total))), nil
}

// RecordCompletion marks a module completed. Completing a module twice changes nothing.
func (s *ProgressService) RecordCompletion(ctx context.Context, profileID, moduleID string) (result0 *models.CompletionResult, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "RecordCompletion",
		observability.AttributeProfileID(profileID),
		observability.AttributeModuleID(moduleID),
	)
	defer observability.FinishSpan(span, &err)

	if err := requireProfile(profileID); err != nil {
		return nil, err
	}
	if err := contextutils.ValidateModuleID(moduleID); err != nil {
		return nil, err
	}

	now := s.calendar.Now()
	today := s.calendar.Today()
	subject := models.SubjectOf(moduleID)
	result := &models.CompletionResult{ModuleID: moduleID, NewBadges: []string{}}

	err = s.backend.Namespace(profileID).Update(ctx, func(tx kvstore.Tx) error {
		completed, err := readStringList(ctx, tx, KeyCompletedModules)
		if err != nil {
			return err
		}
		if slices.Contains(completed, moduleID) {
			streaks, err := readIntMap(ctx, tx, KeySubjectStreaks)
			if err != nil {
				return err
			}
			result.SubjectStreak = streaks[subject]
			return nil
		}
		result.NewlyCompleted = true

		if err := kvstore.SetJSON(ctx, tx, KeyCompletedModules, append(completed, moduleID)); err != nil {
			return err
		}
		if result.SubjectStreak, err = applySubjectActivity(ctx, tx, subject, today); err != nil {
			return err
		}

		activity := map[string]string{}
		if _, err := kvstore.GetJSON(ctx, tx, KeyLastActivityDates, &activity); err != nil {
			return err
		}
		if activity == nil {
			activity = map[string]string{}
		}
		activity[moduleID] = now.UTC().Format(activityTimestampLayout)
		if err := kvstore.SetJSON(ctx, tx, KeyLastActivityDates, activity); err != nil {
			return err
		}

		if _, err := addDailyStreakDate(ctx, tx, today); err != nil {
			return err
		}
		awarded, err := s.badges.awardInTx(ctx, tx, today)
		if err != nil {
			return err
		}
		result.NewBadges = awarded
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.NewlyCompleted {
		s.metrics.ModuleCompleted(ctx, subject)
		s.metrics.BadgesAwarded(ctx, len(result.NewBadges), "completion")
		s.logger.Info(ctx, "Module completed", map[string]interface{}{
			"profile_id":     profileID,
			"module_id":      moduleID,
			"subject_streak": result.SubjectStreak,
			"new_badges":     result.NewBadges,
		})
	}
	return result, nil
}

// RecordQuizScore stores the latest score of a module. A perfect score is remembered
// even when a later score is lower.
func (s *ProgressService) RecordQuizScore(ctx context.Context, profileID, moduleID string, percent int) (result0 *models.ScoreResult, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "RecordQuizScore",
		observability.AttributeProfileID(profileID),
		observability.AttributeModuleID(moduleID),
	)
	defer observability.FinishSpan(span, &err)

	if err := requireProfile(profileID); err != nil {
		return nil, err
	}
	if err := contextutils.ValidateModuleID(moduleID); err != nil {
		return nil, err
	}
	if percent < 0 || percent > 100 {
		return nil, contextutils.InvalidInputf("score %d out of range [0,100]", percent)
	}

	var result *models.ScoreResult
	err = s.backend.Namespace(profileID).Update(ctx, func(tx kvstore.Tx) error {
		var err error
		result, err = s.applyScore(ctx, tx, moduleID, percent)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.QuizScored(ctx, models.SubjectOf(moduleID), result.Perfect)
	s.metrics.BadgesAwarded(ctx, len(result.NewBadges), "quiz")
	return result, nil
}

// applyScore writes a score and runs the award step inside the caller's transaction
func (s *ProgressService) applyScore(ctx context.Context, tx kvstore.Tx, moduleID string, percent int) (*models.ScoreResult, error) {
	scores, err := readIntMap(ctx, tx, KeyQuizScores)
	if err != nil {
		return nil, err
	}
	scores[moduleID] = percent
	if err := kvstore.SetJSON(ctx, tx, KeyQuizScores, scores); err != nil {
		return nil, err
	}

	result := &models.ScoreResult{ModuleID: moduleID, Percent: percent, Perfect: percent == 100}
	if result.Perfect {
		perfect, err := readStringList(ctx, tx, KeyPerfectQuizzes)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(perfect, moduleID) {
			if err := kvstore.SetJSON(ctx, tx, KeyPerfectQuizzes, append(perfect, moduleID)); err != nil {
				return nil, err
			}
		}
	}

	result.NewBadges, err = s.badges.awardInTx(ctx, tx, s.calendar.Today())
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CompletedModules returns the completed module ids in completion order
func (s *ProgressService) CompletedModules(ctx context.Context, profileID string) (result0 []string, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "CompletedModules", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	return readStringList(ctx, s.backend.Namespace(profileID), KeyCompletedModules)
}

// QuizScores returns the latest percentage per module
func (s *ProgressService) QuizScores(ctx context.Context, profileID string) (result0 map[string]int, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "QuizScores", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	return readIntMap(ctx, s.backend.Namespace(profileID), KeyQuizScores)
}

// PerfectQuizzes returns the modules that ever scored 100
func (s *ProgressService) PerfectQuizzes(ctx context.Context, profileID string) (result0 []string, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "PerfectQuizzes", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	return readStringList(ctx, s.backend.Namespace(profileID), KeyPerfectQuizzes)
}

// LastActivityDates returns the completion timestamp of every completed module
func (s *ProgressService) LastActivityDates(ctx context.Context, profileID string) (result0 map[string]string, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "LastActivityDates", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	out := map[string]string{}
	if _, err := kvstore.GetJSON(ctx, s.backend.Namespace(profileID), KeyLastActivityDates, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

// Snapshot reads the whole progress state of a profile
func (s *ProgressService) Snapshot(ctx context.Context, profileID string) (result0 *models.ProgressSnapshot, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "Snapshot", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	st, err := loadState(ctx, s.backend.Namespace(profileID))
	if err != nil {
		return nil, err
	}

	xp := make(map[string]int, len(s.catalog.Subjects()))
	for _, subject := range s.catalog.Subjects() {
		xp[subject.ID] = XP(st.CompletedModules, subject.ID, s.xpPerModule)
	}
	return &models.ProgressSnapshot{
		ProfileID:         profileID,
		CompletedModules:  st.CompletedModules,
		QuizScores:        st.QuizScores,
		PerfectQuizzes:    st.PerfectQuizzes,
		LastActivityDates: st.LastActivityDates,
		DailyStreak:       CurrentStreak(st.DailyStreak, s.calendar.Today()),
		SubjectStreaks:    st.SubjectStreaks,
		Badges:            st.Badges,
		UnlockedSkills:    st.UnlockedSkills,
		XP:                xp,
	}, nil
}
