package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_DefaultValues(t *testing.T) {
	assert.Equal(t, "dev", Version)
	assert.Equal(t, "dev", Commit)
	assert.Equal(t, "unknown", BuildTime)
}

func TestGet(t *testing.T) {
	info := Get("learnverse-server")
	assert.Equal(t, "learnverse-server", info.Service)
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, Commit, info.Commit)
	assert.Equal(t, BuildTime, info.BuildTime)
}

func TestInfo_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(Get("adm"))
	require.NoError(t, err)

	var fields map[string]string
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, map[string]string{
		"service":   "adm",
		"version":   "dev",
		"commit":    "dev",
		"buildTime": "unknown",
	}, fields)
}
