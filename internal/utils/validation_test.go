package contextutils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidModuleID(t *testing.T) {
	assert.True(t, IsValidModuleID("science-1"))
	assert.True(t, IsValidModuleID("maths-algebra_2"))
	assert.True(t, IsValidModuleID("reasoning"))
	assert.True(t, IsValidModuleID("v1.2-intro"))

	assert.False(t, IsValidModuleID(""))
	assert.False(t, IsValidModuleID("-science"))
	assert.False(t, IsValidModuleID("science 1"))
	assert.False(t, IsValidModuleID("science/1"))
	assert.False(t, IsValidModuleID(strings.Repeat("a", 129)))
}

func TestValidateModuleID(t *testing.T) {
	require.NoError(t, ValidateModuleID("english-3"))
	assert.ErrorIs(t, ValidateModuleID("bad id"), ErrInvalidInput)
}

func TestValidateStruct(t *testing.T) {
	type payload struct {
		ModuleID string `validate:"required,moduleid"`
		Day      string `validate:"omitempty,isodate"`
		Score    int    `validate:"min=0,max=100"`
	}

	require.NoError(t, ValidateStruct(payload{ModuleID: "arts-2", Day: "2025-01-01", Score: 100}))

	err := ValidateStruct(payload{ModuleID: "arts 2", Day: "01/01/2025", Score: 101})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "ModuleID failed moduleid")
	assert.Contains(t, err.Error(), "Day failed isodate")
	assert.Contains(t, err.Error(), "Score failed max")
}
