package services

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"learnverse/internal/config"
	"learnverse/internal/kvstore"
	"learnverse/internal/models"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"
)

const maxUserNameLength = 40

// ProfileServiceInterface defines the profile settings operations
type ProfileServiceInterface interface {
	GetProfile(ctx context.Context, profileID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profileID string, update models.ProfileUpdate) (*models.Profile, error)
	IncrementStudyCycles(ctx context.Context, profileID string) (int, error)
	ListProfiles(ctx context.Context) ([]string, error)
}

// ProfileService manages the learner's display name, theme and study timer counter
type ProfileService struct {
	backend kvstore.Backend
	cfg     *config.Config
	logger  *observability.Logger
}

// NewProfileService creates a new ProfileService instance
func NewProfileService(backend kvstore.Backend, cfg *config.Config, logger *observability.Logger) *ProfileService {
	return &ProfileService{backend: backend, cfg: cfg, logger: logger}
}

// GetProfile returns the profile settings with defaults filled in
func (s *ProfileService) GetProfile(ctx context.Context, profileID string) (result0 *models.Profile, err error) {
	ctx, span := observability.TraceProfileFunction(ctx, "GetProfile", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	return s.readProfile(ctx, s.backend.Namespace(profileID), profileID)
}

func (s *ProfileService) readProfile(ctx context.Context, r kvstore.Reader, profileID string) (*models.Profile, error) {
	p := &models.Profile{
		ProfileID: profileID,
		UserName:  s.cfg.Progress.DefaultUserName,
		Theme:     s.cfg.Progress.Themes[0],
	}
	if name, found, err := r.Get(ctx, KeyUserName); err != nil {
		return nil, err
	} else if found && name != "" {
		p.UserName = name
	}
	if theme, found, err := r.Get(ctx, KeyTheme); err != nil {
		return nil, err
	} else if found && s.cfg.HasTheme(theme) {
		p.Theme = theme
	}
	cycles, err := readCycles(ctx, r)
	if err != nil {
		return nil, err
	}
	p.StudyTimerCycles = cycles
	return p, nil
}

// UpdateProfile applies the non-nil fields of update
func (s *ProfileService) UpdateProfile(ctx context.Context, profileID string, update models.ProfileUpdate) (result0 *models.Profile, err error) {
	ctx, span := observability.TraceProfileFunction(ctx, "UpdateProfile", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	if err := requireProfile(profileID); err != nil {
		return nil, err
	}
	if update.UserName != nil {
		name := strings.TrimSpace(*update.UserName)
		if name == "" || utf8.RuneCountInString(name) > maxUserNameLength {
			return nil, contextutils.InvalidInputf("user name must be 1 to %d characters", maxUserNameLength)
		}
		update.UserName = &name
	}
	if update.Theme != nil && !s.cfg.HasTheme(*update.Theme) {
		return nil, contextutils.InvalidInputf("unknown theme %q", *update.Theme)
	}

	var profile *models.Profile
	err = s.backend.Namespace(profileID).Update(ctx, func(tx kvstore.Tx) error {
		if update.UserName != nil {
			if err := tx.Set(ctx, KeyUserName, *update.UserName); err != nil {
				return err
			}
		}
		if update.Theme != nil {
			if err := tx.Set(ctx, KeyTheme, *update.Theme); err != nil {
				return err
			}
		}
		var err error
		profile, err = s.readProfile(ctx, tx, profileID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// IncrementStudyCycles counts one finished study timer cycle and returns the new total
func (s *ProfileService) IncrementStudyCycles(ctx context.Context, profileID string) (result0 int, err error) {
	ctx, span := observability.TraceProfileFunction(ctx, "IncrementStudyCycles", observability.AttributeProfileID(profileID))
	defer observability.FinishSpan(span, &err)

	if err := requireProfile(profileID); err != nil {
		return 0, err
	}
	var cycles int
	err = s.backend.Namespace(profileID).Update(ctx, func(tx kvstore.Tx) error {
		n, err := readCycles(ctx, tx)
		if err != nil {
			return err
		}
		cycles = n + 1
		return tx.Set(ctx, KeyStudyTimerCycles, strconv.Itoa(cycles))
	})
	if err != nil {
		return 0, err
	}
	return cycles, nil
}

// ListProfiles returns the ids of every profile with stored data
func (s *ProfileService) ListProfiles(ctx context.Context) (result0 []string, err error) {
	ctx, span := observability.TraceProfileFunction(ctx, "ListProfiles")
	defer observability.FinishSpan(span, &err)

	return s.backend.Namespaces(ctx)
}

func readCycles(ctx context.Context, r kvstore.Reader) (int, error) {
	raw, found, err := r.Get(ctx, KeyStudyTimerCycles)
	if err != nil || !found {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, kvstore.CorruptRecordError(KeyStudyTimerCycles, err)
	}
	return n, nil
}
