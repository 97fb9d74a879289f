package services

import (
	"context"
	"fmt"
	"testing"

	"learnverse/internal/catalog"
	"learnverse/internal/kvstore"
	"learnverse/internal/models"
	contextutils "learnverse/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modules(subject string, n int) []string {
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, fmt.Sprintf("%s-%d", subject, i))
	}
	return out
}

func TestEvaluate(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	t.Run("Should award the ten module science badge at exactly ten", func(t *testing.T) {
		earned := Evaluate(cat.Badges(), Aggregates{CompletedModules: modules("science", 10)})
		assert.Contains(t, earned, "science_explorer")

		earned = Evaluate(cat.Badges(), Aggregates{CompletedModules: modules("science", 9)})
		assert.NotContains(t, earned, "science_explorer")
		assert.Contains(t, earned, "science_beginner")
	})

	t.Run("Should only count modules of the badge subject", func(t *testing.T) {
		earned := Evaluate(cat.Badges(), Aggregates{CompletedModules: modules("maths", 10)})
		assert.NotContains(t, earned, "science_beginner")
		assert.Contains(t, earned, "maths_explorer")
	})

	t.Run("Should not treat a subject prefix as the subject", func(t *testing.T) {
		earned := Evaluate(cat.Badges(), Aggregates{CompletedModules: []string{"sciencefiction-1"}})
		assert.NotContains(t, earned, "science_beginner")
	})

	t.Run("Should never award special badges", func(t *testing.T) {
		agg := Aggregates{
			CompletedModules: modules("english", 100),
			PerfectQuizzes:   modules("english", 100),
			SubjectStreaks:   map[string]int{"english": 100},
			DailyStreak:      100,
			UnlockedSkills:   []string{"english-master"},
		}
		earned := Evaluate(cat.Badges(), agg)
		assert.NotContains(t, earned, "english_special")
		assert.Contains(t, earned, "english_champion")
		assert.Contains(t, earned, "english_skill")
		assert.Contains(t, earned, "english_streak")
		assert.Contains(t, earned, "english_perfect")
		assert.Contains(t, earned, "streak_10")
	})

	t.Run("Should follow catalog order", func(t *testing.T) {
		earned := Evaluate(cat.Badges(), Aggregates{CompletedModules: append(modules("maths", 1), modules("english", 1)...)})
		assert.Equal(t, []string{"english_beginner", "maths_beginner"}, earned)
	})

	t.Run("Should return an empty list for no progress", func(t *testing.T) {
		earned := Evaluate(cat.Badges(), Aggregates{})
		assert.NotNil(t, earned)
		assert.Empty(t, earned)
	})

	t.Run("Should count all modules when the badge has no subject", func(t *testing.T) {
		badges := []models.Badge{{
			ID: "any_three",
			Requirement: models.Requirement{
				Type:  models.RequirementModulesCompleted,
				Value: models.NewThreshold(3),
			},
		}}
		assert.Empty(t, Evaluate(badges, Aggregates{CompletedModules: []string{"a-1", "b-1"}}))
		assert.Equal(t, []string{"any_three"}, Evaluate(badges, Aggregates{CompletedModules: []string{"a-1", "b-1", "c-1"}}))
	})
}

func TestBadgeService_AwardBadge(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	awarded, err := env.badges.AwardBadge(ctx, testProfile, "science_special")
	require.NoError(t, err)
	assert.True(t, awarded)

	awarded, err = env.badges.AwardBadge(ctx, testProfile, "science_special")
	require.NoError(t, err)
	assert.False(t, awarded)

	_, err = env.badges.AwardBadge(ctx, testProfile, "science_beginner")
	assert.ErrorIs(t, err, contextutils.ErrInvalidInput)

	_, err = env.badges.AwardBadge(ctx, testProfile, "no_such_badge")
	assert.ErrorIs(t, err, contextutils.ErrRecordNotFound)

	status, err := env.badges.GetBadge(ctx, testProfile, "science_special")
	require.NoError(t, err)
	assert.True(t, status.Earned)

	status, err = env.badges.GetBadge(ctx, testProfile, "science_beginner")
	require.NoError(t, err)
	assert.False(t, status.Earned)
}

func TestBadgeService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("Should drop unknown ids and add derivable badges", func(t *testing.T) {
		env := newTestEnv(t)
		store := env.backend.Namespace(testProfile)
		require.NoError(t, store.Update(ctx, func(tx kvstore.Tx) error {
			if err := kvstore.SetJSON(ctx, tx, KeyCompletedModules, modules("science", 10)); err != nil {
				return err
			}
			return kvstore.SetJSON(ctx, tx, KeyBadges, []string{"retired_badge", "science_special", "science_beginner"})
		}))

		report, err := env.badges.Reconcile(ctx, testProfile)
		require.NoError(t, err)
		assert.Equal(t, []string{"retired_badge"}, report.Removed)
		assert.Equal(t, []string{"science_explorer"}, report.Added)
		assert.Contains(t, report.UnlockedSkills, "science-advanced")
		assert.NotContains(t, report.UnlockedSkills, "science-master")

		badges, err := readStringList(ctx, store, KeyBadges)
		require.NoError(t, err)
		assert.Equal(t, []string{"science_special", "science_beginner", "science_explorer"}, badges)

		skills, err := readStringList(ctx, store, KeyUnlockedSkills)
		require.NoError(t, err)
		assert.Equal(t, report.UnlockedSkills, skills)

		again, err := env.badges.Reconcile(ctx, testProfile)
		require.NoError(t, err)
		assert.False(t, again.Changed())
	})

	t.Run("Should reconcile every profile", func(t *testing.T) {
		env := newTestEnv(t)
		for _, id := range []string{"a", "b"} {
			require.NoError(t, kvstore.SetJSON(ctx, env.backend.Namespace(id), KeyCompletedModules, modules("arts", 1)))
		}
		require.NoError(t, env.backend.Namespace("c").Set(ctx, KeyBadges, "broken"))

		reports, err := env.badges.ReconcileAll(ctx)
		assert.ErrorIs(t, err, contextutils.ErrCorruptRecord)
		require.Len(t, reports, 2)
		for _, r := range reports {
			assert.Equal(t, []string{"arts_beginner"}, r.Added)
		}
	})
}

func TestBadgeService_BadgeProgress(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.progress.RecordCompletion(ctx, testProfile, "reasoning-1")
	require.NoError(t, err)

	all, err := env.badges.BadgeProgress(ctx, testProfile, "")
	require.NoError(t, err)
	assert.Len(t, all, len(env.catalog.Badges()))

	reasoning, err := env.badges.BadgeProgress(ctx, testProfile, "reasoning")
	require.NoError(t, err)
	require.Len(t, reasoning, 9)
	earned := 0
	for _, b := range reasoning {
		assert.NotEqual(t, "reasoning_special", b.ID)
		if b.Earned {
			earned++
			assert.Equal(t, "reasoning_beginner", b.ID)
		}
	}
	assert.Equal(t, 1, earned)

	_, err = env.badges.BadgeProgress(ctx, testProfile, "alchemy")
	assert.ErrorIs(t, err, contextutils.ErrRecordNotFound)
}

func TestSkills(t *testing.T) {
	ctx := context.Background()
	cat, err := catalog.Default()
	require.NoError(t, err)

	assert.Equal(t, 300, XP(append(modules("maths", 3), modules("arts", 2)...), "maths", 100))

	unlocked := UnlockedSkills(cat, modules("maths", 7), 100)
	assert.Contains(t, unlocked, "maths-advanced")
	assert.NotContains(t, unlocked, "maths-master")
	assert.Contains(t, unlocked, "english-basics", "zero XP nodes are always unlocked")

	env := newTestEnv(t)
	for _, id := range modules("maths", 3) {
		_, err := env.progress.RecordCompletion(ctx, testProfile, id)
		require.NoError(t, err)
	}
	tree, err := env.badges.SkillTree(ctx, testProfile, "maths")
	require.NoError(t, err)
	assert.Equal(t, 300, tree.XP)
	require.Len(t, tree.Nodes, 5)
	unlockedCount := 0
	for _, n := range tree.Nodes {
		if n.Unlocked {
			unlockedCount++
		}
	}
	assert.Equal(t, 3, unlockedCount)

	_, err = env.badges.SkillTree(ctx, testProfile, "alchemy")
	assert.ErrorIs(t, err, contextutils.ErrRecordNotFound)
}
