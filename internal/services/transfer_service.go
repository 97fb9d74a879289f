package services

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"strings"

	"learnverse/internal/config"
	"learnverse/internal/kvstore"
	"learnverse/internal/models"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"
)

// rawKeys hold plain strings rather than JSON
var rawKeys = map[string]bool{
	KeyUserName:         true,
	KeyTheme:            true,
	KeyStudyTimerCycles: true,
}

// TransferServiceInterface defines profile export and import
type TransferServiceInterface interface {
	Export(ctx context.Context, profileID string) (*models.ProfileDocument, error)
	Import(ctx context.Context, profileID string, entries map[string]string, replace bool) (*models.ImportResult, error)
}

// TransferService moves whole profiles in and out of the store
type TransferService struct {
	backend  kvstore.Backend
	badges   *BadgeService
	schemas  *SchemaLoader
	calendar *Calendar
	cfg      *config.Config
	logger   *observability.Logger
}

// NewTransferService creates a new TransferService instance
func NewTransferService(backend kvstore.Backend, badges *BadgeService, schemas *SchemaLoader, calendar *Calendar, cfg *config.Config, logger *observability.Logger) *TransferService {
	return &TransferService{backend: backend, badges: badges, schemas: schemas, calendar: calendar, cfg: cfg, logger: logger}
}

// Export returns every key of the profile as a versioned document
func (s *TransferService) Export(ctx context.Context, profileID string) (result0 *models.ProfileDocument, err error) {
	ctx, span := observability.TraceProfileFunction(ctx, "Export", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	if err := requireProfile(profileID); err != nil {
		return nil, err
	}
	store := s.backend.Namespace(profileID)
	keys, err := store.Keys(ctx, "")
	if err != nil {
		return nil, err
	}

	doc := &models.ProfileDocument{
		Version:    models.ProfileDocumentVersion,
		ProfileID:  profileID,
		ExportedAt: s.calendar.Now().UTC(),
		Entries:    make(map[string]string, len(keys)),
	}
	for _, key := range keys {
		value, found, err := store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if found {
			doc.Entries[key] = value
		}
	}
	return doc, nil
}

// schemaFor maps a store key to the schema validating its value
func schemaFor(key string) (string, bool) {
	switch {
	case strings.HasPrefix(key, PrefixLastActivity):
		return "lastActivity", contextutils.IsValidModuleID(strings.TrimPrefix(key, PrefixLastActivity))
	case strings.HasPrefix(key, PrefixQuizAttempts):
		return "quizAttempts", contextutils.IsValidModuleID(strings.TrimPrefix(key, PrefixQuizAttempts))
	}
	switch key {
	case KeyCompletedModules, KeyQuizScores, KeyPerfectQuizzes, KeyDailyStreak, KeySubjectStreaks,
		KeyLastActivityDates, KeyBadges, KeyUnlockedSkills, KeyCompletedChallenges,
		KeyUserName, KeyTheme, KeyStudyTimerCycles:
		return key, true
	}
	return "", false
}

// validateEntry checks one imported key and value
func (s *TransferService) validateEntry(key, value string) error {
	schemaName, ok := schemaFor(key)
	if !ok {
		return contextutils.InvalidInputf("unknown key %q", key)
	}

	document := []byte(value)
	if rawKeys[key] || strings.HasPrefix(key, PrefixLastActivity) {
		document, _ = json.Marshal(value)
	}
	if err := s.schemas.ValidateJSON(document, schemaName); err != nil {
		return contextutils.WrapErrorf(err, "key %s", key)
	}

	if key == KeyTheme && !s.cfg.HasTheme(value) {
		return contextutils.InvalidInputf("unknown theme %q", value)
	}
	if key == KeyUserName && len([]rune(value)) > maxUserNameLength {
		return contextutils.InvalidInputf("user name must be 1 to %d characters", maxUserNameLength)
	}
	return nil
}

// Import writes a browser storage dump into the profile in one transaction and then
// reconciles its badges. With replace set, keys missing from entries are deleted.
func (s *TransferService) Import(ctx context.Context, profileID string, entries map[string]string, replace bool) (result0 *models.ImportResult, err error) {
	ctx, span := observability.TraceProfileFunction(ctx, "Import", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	if err := requireProfile(profileID); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var problems []error
	for _, key := range keys {
		if err := s.validateEntry(key, entries[key]); err != nil {
			problems = append(problems, err)
		}
	}
	if len(problems) > 0 {
		details := make([]string, 0, len(problems))
		for _, p := range problems {
			details = append(details, p.Error())
		}
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			"Import rejected", strings.Join(details, "; "), problems[0])
	}

	var normalized []string
	err = s.backend.Namespace(profileID).Update(ctx, func(tx kvstore.Tx) error {
		if replace {
			existing, err := tx.Keys(ctx, "")
			if err != nil {
				return err
			}
			for _, key := range existing {
				if _, keep := entries[key]; keep {
					continue
				}
				if err := tx.Delete(ctx, key); err != nil {
					return err
				}
			}
		}
		for _, key := range keys {
			if err := tx.Set(ctx, key, entries[key]); err != nil {
				return err
			}
		}
		if _, ok := entries[KeyQuizScores]; !ok {
			return nil
		}
		var scaleErr error
		normalized, scaleErr = normalizeImportedScores(ctx, tx)
		return scaleErr
	})
	if err != nil {
		return nil, err
	}

	report, err := s.badges.Reconcile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Profile imported", map[string]interface{}{
		"profile_id": profileID,
		"keys":       len(keys),
		"replace":    replace,
		"added":      report.Added,
		"removed":    report.Removed,
		"normalized": normalized,
	})
	return &models.ImportResult{ProfileID: profileID, Keys: keys, NormalizedScores: normalized, Reconcile: *report}, nil
}

// normalizeImportedScores converts browser quiz scores to percentages. The web client
// stores the raw correct count, so a score equal to the last attempt's count is
// rescaled by that attempt's question total. A rescaled 100 is remembered as perfect.
func normalizeImportedScores(ctx context.Context, tx kvstore.Tx) ([]string, error) {
	scores, err := readIntMap(ctx, tx, KeyQuizScores)
	if err != nil {
		return nil, err
	}
	perfect, err := readStringList(ctx, tx, KeyPerfectQuizzes)
	if err != nil {
		return nil, err
	}

	moduleIDs := make([]string, 0, len(scores))
	for moduleID := range scores {
		moduleIDs = append(moduleIDs, moduleID)
	}
	sort.Strings(moduleIDs)

	var normalized []string
	perfectChanged := false
	for _, moduleID := range moduleIDs {
		attempts, err := readAttempts(ctx, tx, moduleID)
		if err != nil {
			return nil, err
		}
		if len(attempts) == 0 {
			continue
		}
		last := attempts[len(attempts)-1]
		if scores[moduleID] != last.Score {
			continue
		}
		percent, err := ScorePercent(last.Score, last.TotalQuestions)
		if err != nil || percent == last.Score {
			continue
		}
		scores[moduleID] = percent
		normalized = append(normalized, moduleID)
		if percent == 100 && !slices.Contains(perfect, moduleID) {
			perfect = append(perfect, moduleID)
			perfectChanged = true
		}
	}
	if len(normalized) == 0 {
		return nil, nil
	}
	if err := kvstore.SetJSON(ctx, tx, KeyQuizScores, scores); err != nil {
		return nil, err
	}
	if perfectChanged {
		if err := kvstore.SetJSON(ctx, tx, KeyPerfectQuizzes, perfect); err != nil {
			return nil, err
		}
	}
	return normalized, nil
}
