package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSubjectOf(t *testing.T) {
	tests := []struct {
		moduleID string
		expected string
	}{
		{"maths-2", "maths"},
		{"science-10", "science"},
		{"history", "history"},
		{"arts-intro-1", "arts"},
	}
	for _, tt := range tests {
		t.Run(tt.moduleID, func(t *testing.T) {
			assert.Equal(t, tt.expected, SubjectOf(tt.moduleID))
		})
	}
}

func TestAttemptVersionID(t *testing.T) {
	assert.Equal(t, "maths_Module2_Attempt1", AttemptVersionID("maths-2", 1))
	assert.Equal(t, "science_Module10_Attempt3", AttemptVersionID("science-10", 3))
	assert.Equal(t, "history_Modulehistory_Attempt1", AttemptVersionID("history", 1))
}

func TestReconcileReport_Changed(t *testing.T) {
	assert.False(t, ReconcileReport{}.Changed())
	assert.False(t, ReconcileReport{UnlockedSkills: []string{"algebra"}}.Changed())
	assert.True(t, ReconcileReport{Added: []string{"science_beginner"}}.Changed())
	assert.True(t, ReconcileReport{Removed: []string{"ghost"}}.Changed())
}

func TestBadge_IsSpecial(t *testing.T) {
	assert.True(t, Badge{Requirement: Requirement{Type: RequirementSpecial}}.IsSpecial())
	assert.False(t, Badge{Requirement: Requirement{Type: RequirementStreak}}.IsSpecial())
}

func TestIsValidRequirementType(t *testing.T) {
	assert.True(t, IsValidRequirementType(RequirementSkillUnlocked))
	assert.False(t, IsValidRequirementType("karma"))
}

func TestRequirementValue(t *testing.T) {
	t.Run("threshold round trips as a number", func(t *testing.T) {
		raw, err := json.Marshal(NewThreshold(5))
		require.NoError(t, err)
		assert.Equal(t, "5", string(raw))

		var v RequirementValue
		require.NoError(t, json.Unmarshal(raw, &v))
		n, ok := v.Int()
		assert.True(t, ok)
		assert.Equal(t, 5, n)
	})

	t.Run("target stays a string", func(t *testing.T) {
		raw, err := json.Marshal(NewTarget("algebra"))
		require.NoError(t, err)
		assert.Equal(t, `"algebra"`, string(raw))

		_, ok := NewTarget("algebra").Int()
		assert.False(t, ok)
	})

	t.Run("yaml scalar", func(t *testing.T) {
		var req Requirement
		require.NoError(t, yaml.Unmarshal([]byte("type: streak\nvalue: 7\nsubject_id: maths\n"), &req))
		assert.Equal(t, "7", req.Value.String())
		assert.Equal(t, "maths", req.SubjectID)
	})

	t.Run("yaml rejects a list", func(t *testing.T) {
		var req Requirement
		err := yaml.Unmarshal([]byte("type: streak\nvalue: [1, 2]\n"), &req)
		assert.Error(t, err)
	})
}

func TestChallenge_HidesAnswer(t *testing.T) {
	raw, err := json.Marshal(Challenge{Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: 1, Subject: "maths"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "correct")
}
