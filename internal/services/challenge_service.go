package services

import (
	"context"

	"learnverse/internal/catalog"
	"learnverse/internal/kvstore"
	"learnverse/internal/models"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"
)

const secondsPerDay = 24 * 60 * 60

// ChallengeServiceInterface defines the daily challenge operations
type ChallengeServiceInterface interface {
	TodayChallenge(ctx context.Context, profileID string) (*models.ChallengeStatus, error)
	SubmitChallenge(ctx context.Context, profileID string, answerIndex int) (*models.ChallengeResult, error)
}

// ChallengeService serves one catalog question per day and records the answer
type ChallengeService struct {
	backend  kvstore.Backend
	catalog  *catalog.Catalog
	badges   *BadgeService
	calendar *Calendar
	logger   *observability.Logger
	metrics  *observability.ProgressMetrics
}

// NewChallengeService creates a new ChallengeService instance
func NewChallengeService(backend kvstore.Backend, cat *catalog.Catalog, badges *BadgeService, calendar *Calendar, logger *observability.Logger, metrics *observability.ProgressMetrics) *ChallengeService {
	return &ChallengeService{backend: backend, catalog: cat, badges: badges, calendar: calendar, logger: logger, metrics: metrics}
}

// challengeFor picks the question of a date; every profile gets the same one
func (s *ChallengeService) challengeFor(date string) (models.Challenge, error) {
	challenges := s.catalog.Challenges()
	if len(challenges) == 0 {
		return models.Challenge{}, contextutils.NotFoundf("no daily challenges in the catalog")
	}
	t, err := contextutils.ParseDate(date)
	if err != nil {
		return models.Challenge{}, err
	}
	days := int(t.Unix() / secondsPerDay)
	idx := days % len(challenges)
	if idx < 0 {
		idx += len(challenges)
	}
	return challenges[idx], nil
}

func readChallengeResults(ctx context.Context, r kvstore.Reader) (map[string]bool, error) {
	results := map[string]bool{}
	if _, err := kvstore.GetJSON(ctx, r, KeyCompletedChallenges, &results); err != nil {
		return nil, err
	}
	if results == nil {
		results = map[string]bool{}
	}
	return results, nil
}

// TodayChallenge returns today's question and whether it was answered
func (s *ChallengeService) TodayChallenge(ctx context.Context, profileID string) (result0 *models.ChallengeStatus, err error) {
	ctx, span := observability.TraceProfileFunction(ctx, "TodayChallenge", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	today := s.calendar.Today()
	challenge, err := s.challengeFor(today)
	if err != nil {
		return nil, err
	}
	results, err := readChallengeResults(ctx, s.backend.Namespace(profileID))
	if err != nil {
		return nil, err
	}

	status := &models.ChallengeStatus{Date: today, Challenge: challenge}
	if correct, ok := results[today]; ok {
		status.Answered = true
		status.Correct = &correct
	}
	return status, nil
}

// SubmitChallenge records today's answer. Only the first answer of a day counts.
func (s *ChallengeService) SubmitChallenge(ctx context.Context, profileID string, answerIndex int) (result0 *models.ChallengeResult, err error) {
	ctx, span := observability.TraceProfileFunction(ctx, "SubmitChallenge", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	if err := requireProfile(profileID); err != nil {
		return nil, err
	}
	today := s.calendar.Today()
	challenge, err := s.challengeFor(today)
	if err != nil {
		return nil, err
	}
	if answerIndex < 0 || answerIndex >= len(challenge.Options) {
		return nil, contextutils.InvalidInputf("answer %d out of range [0,%d)", answerIndex, len(challenge.Options))
	}

	result := &models.ChallengeResult{
		Date:          today,
		Correct:       answerIndex == challenge.CorrectAnswer,
		CorrectAnswer: challenge.CorrectAnswer,
		NewBadges:     []string{},
	}
	err = s.backend.Namespace(profileID).Update(ctx, func(tx kvstore.Tx) error {
		results, err := readChallengeResults(ctx, tx)
		if err != nil {
			return err
		}
		if _, done := results[today]; done {
			return contextutils.WrapErrorf(contextutils.ErrConflict, "daily challenge for %s already answered", today)
		}
		results[today] = result.Correct
		if err := kvstore.SetJSON(ctx, tx, KeyCompletedChallenges, results); err != nil {
			return err
		}

		dates, err := readStringList(ctx, tx, KeyDailyStreak)
		if err != nil {
			return err
		}
		if result.Correct {
			if dates, err = addDailyStreakDate(ctx, tx, today); err != nil {
				return err
			}
			if result.NewBadges, err = s.badges.awardInTx(ctx, tx, today); err != nil {
				return err
			}
		}
		result.DailyStreak = CurrentStreak(dates, today)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ChallengeSubmitted(ctx, result.Correct)
	s.metrics.BadgesAwarded(ctx, len(result.NewBadges), "challenge")
	s.logger.Info(ctx, "Daily challenge answered", map[string]interface{}{
		"profile_id": profileID,
		"date":       today,
		"correct":    result.Correct,
	})
	return result, nil
}
