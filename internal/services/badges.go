package services

import (
	"context"
	"errors"
	"slices"

	"learnverse/internal/catalog"
	"learnverse/internal/config"
	"learnverse/internal/kvstore"
	"learnverse/internal/models"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"
)

// Aggregates is the progress a badge requirement is checked against
type Aggregates struct {
	CompletedModules []string
	PerfectQuizzes   []string
	SubjectStreaks   map[string]int
	DailyStreak      int
	UnlockedSkills   []string
}

// Evaluate returns the ids of every badge whose requirement holds, in catalog order.
// Special badges are never satisfied here.
func Evaluate(badges []models.Badge, agg Aggregates) []string {
	earned := []string{}
	for _, b := range badges {
		if requirementMet(b.Requirement, agg) {
			earned = append(earned, b.ID)
		}
	}
	return earned
}

func requirementMet(req models.Requirement, agg Aggregates) bool {
	switch req.Type {
	case models.RequirementModulesCompleted:
		n, ok := req.Value.Int()
		return ok && countInSubject(agg.CompletedModules, req.SubjectID) >= n
	case models.RequirementQuizScore:
		n, ok := req.Value.Int()
		return ok && countInSubject(agg.PerfectQuizzes, req.SubjectID) >= n
	case models.RequirementStreak:
		n, ok := req.Value.Int()
		return ok && req.SubjectID != "" && agg.SubjectStreaks[req.SubjectID] >= n
	case models.RequirementDailyStreak:
		n, ok := req.Value.Int()
		return ok && agg.DailyStreak >= n
	case models.RequirementSkillUnlocked:
		return slices.Contains(agg.UnlockedSkills, req.Value.String())
	default:
		return false
	}
}

// requirementProgress returns how far the aggregates are toward a requirement
func requirementProgress(req models.Requirement, agg Aggregates, c *catalog.Catalog, xpPerModule int) (current, target int) {
	switch req.Type {
	case models.RequirementModulesCompleted:
		target, _ = req.Value.Int()
		current = countInSubject(agg.CompletedModules, req.SubjectID)
	case models.RequirementQuizScore:
		target, _ = req.Value.Int()
		current = countInSubject(agg.PerfectQuizzes, req.SubjectID)
	case models.RequirementStreak:
		target, _ = req.Value.Int()
		current = agg.SubjectStreaks[req.SubjectID]
	case models.RequirementDailyStreak:
		target, _ = req.Value.Int()
		current = agg.DailyStreak
	case models.RequirementSkillUnlocked:
		if node, ok := c.SkillNode(req.Value.String()); ok {
			target = node.XPRequired
			current = XP(agg.CompletedModules, req.SubjectID, xpPerModule)
		}
	}
	return min(current, target), target
}

// countInSubject counts module ids of a subject; an empty subject counts all
func countInSubject(moduleIDs []string, subject string) int {
	if subject == "" {
		return len(moduleIDs)
	}
	n := 0
	for _, id := range moduleIDs {
		if models.SubjectOf(id) == subject {
			n++
		}
	}
	return n
}

// BadgeServiceInterface defines badge and skill operations
type BadgeServiceInterface interface {
	AwardBadge(ctx context.Context, profileID, badgeID string) (bool, error)
	Reconcile(ctx context.Context, profileID string) (*models.ReconcileReport, error)
	ReconcileAll(ctx context.Context) ([]models.ReconcileReport, error)
	EarnedBadges(ctx context.Context, profileID string) ([]models.Badge, error)
	BadgeProgress(ctx context.Context, profileID, subjectID string) ([]models.BadgeStatus, error)
	GetBadge(ctx context.Context, profileID, badgeID string) (*models.BadgeStatus, error)
	SkillTree(ctx context.Context, profileID, subjectID string) (*models.SkillTreeView, error)
}

// BadgeService owns the persisted badge list of every profile.
// The list only grows, except when Reconcile drops ids missing from the catalog.
type BadgeService struct {
	backend     kvstore.Backend
	catalog     *catalog.Catalog
	calendar    *Calendar
	xpPerModule int
	logger      *observability.Logger
	metrics     *observability.ProgressMetrics
}

// NewBadgeService creates a new BadgeService instance
func NewBadgeService(backend kvstore.Backend, cat *catalog.Catalog, calendar *Calendar, cfg *config.Config, logger *observability.Logger, metrics *observability.ProgressMetrics) *BadgeService {
	if backend == nil {
		panic("NewBadgeService: backend is nil")
	}
	if cat == nil {
		panic("NewBadgeService: catalog is nil")
	}
	return &BadgeService{
		backend:     backend,
		catalog:     cat,
		calendar:    calendar,
		xpPerModule: cfg.Progress.XPPerModule,
		logger:      logger,
		metrics:     metrics,
	}
}

// aggregates derives the evaluator input from a profile state
func (s *BadgeService) aggregates(st *profileState, today string) Aggregates {
	return Aggregates{
		CompletedModules: st.CompletedModules,
		PerfectQuizzes:   st.PerfectQuizzes,
		SubjectStreaks:   st.SubjectStreaks,
		DailyStreak:      CurrentStreak(st.DailyStreak, today),
		UnlockedSkills:   UnlockedSkills(s.catalog, st.CompletedModules, s.xpPerModule),
	}
}

// awardInTx refreshes unlockedSkills and adds every newly satisfied badge.
// It runs inside the transaction of the event that changed the progress.
func (s *BadgeService) awardInTx(ctx context.Context, tx kvstore.Tx, today string) ([]string, error) {
	st, err := loadState(ctx, tx)
	if err != nil {
		return nil, err
	}
	agg := s.aggregates(st, today)

	if !sameSet(agg.UnlockedSkills, st.UnlockedSkills) {
		if err := kvstore.SetJSON(ctx, tx, KeyUnlockedSkills, agg.UnlockedSkills); err != nil {
			return nil, err
		}
	}

	added := missingFrom(Evaluate(s.catalog.Badges(), agg), st.Badges)
	if len(added) == 0 {
		return added, nil
	}
	if err := kvstore.SetJSON(ctx, tx, KeyBadges, append(st.Badges, added...)); err != nil {
		return nil, err
	}
	return added, nil
}

// AwardBadge grants a special badge. Only special badges can be awarded by hand.
func (s *BadgeService) AwardBadge(ctx context.Context, profileID, badgeID string) (result0 bool, err error) {
	ctx, span := observability.TraceBadgeFunction(ctx, "AwardBadge",
		observability.AttributeProfileID(profileID),
		observability.AttributeBadgeID(badgeID),
	)
	defer observability.FinishSpan(span, &err)

	if err := requireProfile(profileID); err != nil {
		return false, err
	}
	badge, ok := s.catalog.Badge(badgeID)
	if !ok {
		return false, contextutils.NotFoundf("unknown badge %q", badgeID)
	}
	if !badge.IsSpecial() {
		return false, contextutils.InvalidInputf("badge %q is earned from progress and cannot be awarded", badgeID)
	}

	awarded := false
	err = s.backend.Namespace(profileID).Update(ctx, func(tx kvstore.Tx) error {
		badges, err := readStringList(ctx, tx, KeyBadges)
		if err != nil {
			return err
		}
		if slices.Contains(badges, badgeID) {
			return nil
		}
		awarded = true
		return kvstore.SetJSON(ctx, tx, KeyBadges, append(badges, badgeID))
	})
	if err != nil {
		return false, err
	}
	if awarded {
		s.metrics.BadgesAwarded(ctx, 1, "manual")
		s.logger.Info(ctx, "Special badge awarded", map[string]interface{}{"profile_id": profileID, "badge_id": badgeID})
	}
	return awarded, nil
}

// Reconcile repairs a profile's badge list: ids unknown to the catalog are dropped,
// derivable badges that are missing are added and unlockedSkills is rewritten.
func (s *BadgeService) Reconcile(ctx context.Context, profileID string) (result0 *models.ReconcileReport, err error) {
	ctx, span := observability.TraceBadgeFunction(ctx, "Reconcile", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	if err := requireProfile(profileID); err != nil {
		return nil, err
	}

	today := s.calendar.Today()
	report := &models.ReconcileReport{ProfileID: profileID, Added: []string{}, Removed: []string{}}
	err = s.backend.Namespace(profileID).Update(ctx, func(tx kvstore.Tx) error {
		st, err := loadState(ctx, tx)
		if err != nil {
			return err
		}

		kept := []string{}
		for _, id := range st.Badges {
			if _, ok := s.catalog.Badge(id); !ok || slices.Contains(kept, id) {
				report.Removed = append(report.Removed, id)
				continue
			}
			kept = append(kept, id)
		}

		agg := s.aggregates(st, today)
		report.Added = missingFrom(Evaluate(s.catalog.Badges(), agg), kept)
		report.UnlockedSkills = agg.UnlockedSkills

		if !sameSet(agg.UnlockedSkills, st.UnlockedSkills) {
			if err := kvstore.SetJSON(ctx, tx, KeyUnlockedSkills, agg.UnlockedSkills); err != nil {
				return err
			}
		}
		if report.Changed() {
			return kvstore.SetJSON(ctx, tx, KeyBadges, append(kept, report.Added...))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(report.Removed) > 0 {
		s.logger.Warn(ctx, "Dropped badge ids that are not in the catalog", map[string]interface{}{
			"profile_id": profileID,
			"removed":    report.Removed,
		})
	}
	s.metrics.BadgesAwarded(ctx, len(report.Added), "reconcile")
	return report, nil
}

// ReconcileAll reconciles every stored profile. It keeps going past failures and
// returns them joined.
func (s *BadgeService) ReconcileAll(ctx context.Context) (result0 []models.ReconcileReport, err error) {
	ctx, span := observability.TraceBadgeFunction(ctx, "ReconcileAll")
	defer observability.FinishSpan(span, &err)

	profiles, err := s.backend.Namespaces(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]models.ReconcileReport, 0, len(profiles))
	var errs []error
	for _, id := range profiles {
		report, err := s.Reconcile(ctx, id)
		if err != nil {
			s.logger.Error(ctx, "Failed to reconcile profile", err, map[string]interface{}{"profile_id": id})
			errs = append(errs, contextutils.WrapErrorf(err, "reconcile %s", id))
			continue
		}
		reports = append(reports, *report)
	}

	changed := 0
	for _, r := range reports {
		if r.Changed() {
			changed++
		}
	}
	s.logger.Info(ctx, "Badge reconcile finished", map[string]interface{}{
		"profiles": len(profiles),
		"changed":  changed,
		"failed":   len(errs),
	})
	return reports, errors.Join(errs...)
}

// EarnedBadges returns the catalog entries of the profile's badges in award order
func (s *BadgeService) EarnedBadges(ctx context.Context, profileID string) (result0 []models.Badge, err error) {
	ctx, span := observability.TraceBadgeFunction(ctx, "EarnedBadges", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	ids, err := readStringList(ctx, s.backend.Namespace(profileID), KeyBadges)
	if err != nil {
		return nil, err
	}
	out := []models.Badge{}
	for _, id := range ids {
		if b, ok := s.catalog.Badge(id); ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// BadgeProgress returns catalog badges with earned flags, optionally for one subject
func (s *BadgeService) BadgeProgress(ctx context.Context, profileID, subjectID string) (result0 []models.BadgeStatus, err error) {
	ctx, span := observability.TraceBadgeFunction(ctx, "BadgeProgress",
		observability.AttributeProfileID(profileID),
		observability.AttributeSubject(subjectID),
	)
	defer observability.FinishSpan(span, &err)

	badges := s.catalog.Badges()
	if subjectID != "" {
		if _, ok := s.catalog.Subject(subjectID); !ok {
			return nil, contextutils.NotFoundf("unknown subject %q", subjectID)
		}
		badges = s.catalog.BadgesBySubject(subjectID)
	}

	earned, err := readStringList(ctx, s.backend.Namespace(profileID), KeyBadges)
	if err != nil {
		return nil, err
	}
	out := make([]models.BadgeStatus, 0, len(badges))
	for _, b := range badges {
		out = append(out, models.BadgeStatus{Badge: b, Earned: slices.Contains(earned, b.ID)})
	}
	return out, nil
}

// GetBadge returns one badge with the profile's earned flag
func (s *BadgeService) GetBadge(ctx context.Context, profileID, badgeID string) (result0 *models.BadgeStatus, err error) {
	ctx, span := observability.TraceBadgeFunction(ctx, "GetBadge",
		observability.AttributeProfileID(profileID),
		observability.AttributeBadgeID(badgeID),
	)
	defer observability.FinishSpan(span, &err)

	b, ok := s.catalog.Badge(badgeID)
	if !ok {
		return nil, contextutils.NotFoundf("unknown badge %q", badgeID)
	}
	earned, err := readStringList(ctx, s.backend.Namespace(profileID), KeyBadges)
	if err != nil {
		return nil, err
	}
	return &models.BadgeStatus{Badge: b, Earned: slices.Contains(earned, badgeID)}, nil
}
