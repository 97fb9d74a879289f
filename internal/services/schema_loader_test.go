package services

import (
	"testing"

	contextutils "learnverse/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaLoader_ProfileKeys(t *testing.T) {
	sl, err := LoadProfileKeySchemas()
	require.NoError(t, err)

	for _, name := range []string{
		KeyCompletedModules, KeyQuizScores, KeyPerfectQuizzes, KeyDailyStreak, KeySubjectStreaks,
		KeyLastActivityDates, KeyBadges, KeyUnlockedSkills, KeyCompletedChallenges,
		KeyUserName, KeyTheme, KeyStudyTimerCycles, "lastActivity", "quizAttempts",
	} {
		assert.True(t, sl.Has(name), name)
	}

	assert.NoError(t, sl.ValidateJSON([]byte(`{"maths-1": 90}`), KeyQuizScores))
	assert.ErrorIs(t, sl.ValidateJSON([]byte(`{"maths 1": 90}`), KeyQuizScores), contextutils.ErrValidationFailed)
	assert.NoError(t, sl.ValidateData([]string{"2024-01-31"}, KeyDailyStreak))
}

func TestSchemaLoader_Nullable(t *testing.T) {
	sl := NewSchemaLoader()
	require.NoError(t, sl.LoadSchemas([]byte(`
schemas:
  Name:
    type: string
  Holder:
    type: object
    properties:
      count:
        type: integer
        nullable: true
      name:
        $ref: "#/components/schemas/Name"
        nullable: true
`)))

	assert.NoError(t, sl.ValidateJSON([]byte(`{"count": null, "name": null}`), "Holder"))
	assert.NoError(t, sl.ValidateJSON([]byte(`{"count": 3, "name": "x"}`), "Holder"))
	assert.Error(t, sl.ValidateJSON([]byte(`{"count": "3"}`), "Holder"))
}

func TestSchemaLoader_Errors(t *testing.T) {
	sl := NewSchemaLoader()
	assert.Error(t, sl.LoadSchemas([]byte(`other: {}`)))
	assert.Error(t, sl.LoadSchemas([]byte(`schemas: [unclosed`)))
	assert.Error(t, sl.ValidateJSON([]byte(`{}`), "Missing"))
}
