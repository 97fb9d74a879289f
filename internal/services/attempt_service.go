package services

import (
	"context"
	"sort"

	"learnverse/internal/kvstore"
	"learnverse/internal/models"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"
)

// AttemptServiceInterface defines the quiz attempt log operations
type AttemptServiceInterface interface {
	RecordAttempt(ctx context.Context, profileID string, attempt models.QuizAttempt) (*models.QuizAttempt, error)
	NextAttemptNumber(ctx context.Context, profileID, moduleID string) (int, error)
	GetAttempt(ctx context.Context, profileID, moduleID string, attemptNumber int) (*models.QuizAttempt, bool, error)
	GetAttempts(ctx context.Context, profileID, moduleID string) ([]models.QuizAttempt, error)
	GetAllAttempts(ctx context.Context, profileID string) ([]models.QuizAttempt, error)
}

// AttemptService appends quiz attempts to the per-module log
type AttemptService struct {
	backend  kvstore.Backend
	progress *ProgressService
	logger   *observability.Logger
	metrics  *observability.ProgressMetrics
}

// NewAttemptService creates a new AttemptService instance
func NewAttemptService(backend kvstore.Backend, progress *ProgressService, logger *observability.Logger, metrics *observability.ProgressMetrics) *AttemptService {
	return &AttemptService{backend: backend, progress: progress, logger: logger, metrics: metrics}
}

// RecordAttempt numbers and stores an attempt and records its score in the ledger.
// Caller supplied attempt numbers and version ids are ignored.
func (s *AttemptService) RecordAttempt(ctx context.Context, profileID string, attempt models.QuizAttempt) (result0 *models.QuizAttempt, err error) {
	ctx, span := observability.TraceAttemptFunction(ctx, "RecordAttempt",
		observability.AttributeProfileID(profileID),
		observability.AttributeModuleID(attempt.ModuleID),
	)
	defer observability.FinishSpan(span, &err)

	if err := requireProfile(profileID); err != nil {
		return nil, err
	}
	if attempt.StartTime.IsZero() || attempt.EndTime.IsZero() {
		return nil, contextutils.InvalidInputf("attempt start and end times are required")
	}
	if err := contextutils.ValidateStruct(attempt); err != nil {
		return nil, err
	}
	percent, err := ScorePercent(attempt.Score, attempt.TotalQuestions)
	if err != nil {
		return nil, err
	}

	attempt.StartTime = attempt.StartTime.UTC().Round(0)
	attempt.EndTime = attempt.EndTime.UTC().Round(0)
	if attempt.Responses == nil {
		attempt.Responses = []models.AttemptResponse{}
	}
	if attempt.Questions == nil {
		attempt.Questions = []models.AttemptQuestion{}
	}

	var score *models.ScoreResult
	err = s.backend.Namespace(profileID).Update(ctx, func(tx kvstore.Tx) error {
		attempts, err := readAttempts(ctx, tx, attempt.ModuleID)
		if err != nil {
			return err
		}
		attempt.AttemptNumber = len(attempts) + 1
		attempt.VersionID = models.AttemptVersionID(attempt.ModuleID, attempt.AttemptNumber)
		if err := kvstore.SetJSON(ctx, tx, attemptsKey(attempt.ModuleID), append(attempts, attempt)); err != nil {
			return err
		}
		score, err = s.progress.applyScore(ctx, tx, attempt.ModuleID, percent)
		return err
	})
	if err != nil {
		return nil, err
	}

	subject := models.SubjectOf(attempt.ModuleID)
	s.metrics.AttemptRecorded(ctx, subject)
	s.metrics.QuizScored(ctx, subject, score.Perfect)
	s.metrics.BadgesAwarded(ctx, len(score.NewBadges), "attempt")
	s.logger.Info(ctx, "Quiz attempt recorded", map[string]interface{}{
		"profile_id":     profileID,
		"module_id":      attempt.ModuleID,
		"attempt_number": attempt.AttemptNumber,
		"percent":        percent,
	})
	return &attempt, nil
}

// NextAttemptNumber returns the number the next attempt of a module will get
func (s *AttemptService) NextAttemptNumber(ctx context.Context, profileID, moduleID string) (result0 int, err error) {
	ctx, span := observability.TraceAttemptFunction(ctx, "NextAttemptNumber",
		observability.AttributeProfileID(profileID),
		observability.AttributeModuleID(moduleID),
	)
	defer observability.FinishSpan(span, &err)

	if err := contextutils.ValidateModuleID(moduleID); err != nil {
		return 0, err
	}
	attempts, err := readAttempts(ctx, s.backend.Namespace(profileID), moduleID)
	if err != nil {
		return 0, err
	}
	return len(attempts) + 1, nil
}

// GetAttempt returns one attempt; found is false when it does not exist
func (s *AttemptService) GetAttempt(ctx context.Context, profileID, moduleID string, attemptNumber int) (result0 *models.QuizAttempt, found bool, err error) {
	ctx, span := observability.TraceAttemptFunction(ctx, "GetAttempt",
		observability.AttributeProfileID(profileID),
		observability.AttributeModuleID(moduleID),
		observability.AttributeAttemptNumber(attemptNumber),
	)
	defer observability.FinishSpan(span, &err)

	if err := contextutils.ValidateModuleID(moduleID); err != nil {
		return nil, false, err
	}
	attempts, err := readAttempts(ctx, s.backend.Namespace(profileID), moduleID)
	if err != nil {
		return nil, false, err
	}
	for i := range attempts {
		if attempts[i].AttemptNumber == attemptNumber {
			return &attempts[i], true, nil
		}
	}
	return nil, false, nil
}

// GetAttempts returns a module's attempts in attempt order
func (s *AttemptService) GetAttempts(ctx context.Context, profileID, moduleID string) (result0 []models.QuizAttempt, err error) {
	ctx, span := observability.TraceAttemptFunction(ctx, "GetAttempts",
		observability.AttributeProfileID(profileID),
		observability.AttributeModuleID(moduleID),
	)
	defer observability.FinishSpan(span, &err)

	if err := contextutils.ValidateModuleID(moduleID); err != nil {
		return nil, err
	}
	return readAttempts(ctx, s.backend.Namespace(profileID), moduleID)
}

// GetAllAttempts returns every attempt of the profile, newest first
func (s *AttemptService) GetAllAttempts(ctx context.Context, profileID string) (result0 []models.QuizAttempt, err error) {
	ctx, span := observability.TraceAttemptFunction(ctx, "GetAllAttempts", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	store := s.backend.Namespace(profileID)
	keys, err := store.Keys(ctx, PrefixQuizAttempts)
	if err != nil {
		return nil, err
	}

	all := []models.QuizAttempt{}
	for _, key := range keys {
		moduleID, ok := moduleFromAttemptsKey(key)
		if !ok {
			continue
		}
		attempts, err := readAttempts(ctx, store, moduleID)
		if err != nil {
			return nil, err
		}
		all = append(all, attempts...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.After(b.StartTime)
		}
		if a.ModuleID != b.ModuleID {
			return a.ModuleID < b.ModuleID
		}
		return a.AttemptNumber < b.AttemptNumber
	})
	return all, nil
}

func readAttempts(ctx context.Context, r kvstore.Reader, moduleID string) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	if _, err := kvstore.GetJSON(ctx, r, attemptsKey(moduleID), &attempts); err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []models.QuizAttempt{}
	}
	return attempts, nil
}
