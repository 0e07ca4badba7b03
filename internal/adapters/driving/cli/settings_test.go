package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

func TestSettingsCmd_Annotations(t *testing.T) {
	for _, cmd := range []struct {
		name string
		ann  map[string]string
	}{
		{"settings", settingsCmd.Annotations},
		{"show", settingsShowCmd.Annotations},
		{"set", settingsSetCmd.Annotations},
		{"check", settingsCheckCmd.Annotations},
	} {
		assert.Contains(t, cmd.ann, annotationSettingsOnly, cmd.name)
	}
}

func TestSettingsShow_Defaults(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "settings")
	require.NoError(t, err)

	assert.Contains(t, out, "Config file: :memory:")
	assert.Contains(t, out, "No settings stored, using defaults.")
	assert.Contains(t, out, "Status: ok (llm not configured, embedding hashing/hashing-512)")
}

func TestSettingsShow_StoredAndInvalid(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, mocks.Store.Set("llm.api_key", "sk-test-1234567890"))
	require.NoError(t, mocks.Store.Set("chunking.size", 0))

	out, err := execute(t, "", "settings", "show")
	require.NoError(t, err)

	assert.Contains(t, out, "sk-t...7890")
	assert.NotContains(t, out, "sk-test-1234567890")
	assert.Less(t, strings.Index(out, "chunking.size"), strings.Index(out, "llm.api_key"), "keys are sorted")
	assert.Contains(t, out, "Status: invalid")
}

func TestSettingsSet(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "settings", "set", "chunking.size", "600")
	require.NoError(t, err)
	assert.Contains(t, out, "Set chunking.size = 600")
	assert.Equal(t, 600, mocks.Store.GetInt("chunking.size"))
}

func TestSettingsSet_SecretFromStdin(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "sk-secret-abcdefgh\n", "settings", "set", "llm.api_key")
	require.NoError(t, err)

	assert.Equal(t, "sk-secret-abcdefgh", mocks.Store.GetString("llm.api_key"))
	assert.Contains(t, out, "Set llm.api_key = sk-s...efgh")
	assert.NotContains(t, out, "sk-secret-abcdefgh")
}

func TestSettingsSet_Invalid(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "", "settings", "set", "search.mode", "hybrid")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = execute(t, "", "settings", "set", "chunking.overlap", "5000")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestSettingsKeys(t *testing.T) {
	SetServices(nil)

	out, err := execute(t, "", "settings", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "chunking.size\n")
	assert.Contains(t, out, "llm.provider\n")
}

func TestSettingsCheck(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "settings", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "providers are reachable")

	require.NoError(t, mocks.Store.Set("chunking.size", 0))
	_, err = execute(t, "", "settings", "check")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestReadSecret(t *testing.T) {
	assert.Equal(t, "abc", readSecret(strings.NewReader("  abc  \nrest")))
	assert.Empty(t, readSecret(strings.NewReader("")))
}
