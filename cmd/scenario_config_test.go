package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FuShang114/mooncell-admission-sim/sim/workload"
)

func TestLoadScenarios(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	content := `scenarios:
  custom_burst:
    duration_sec: 90
    base_lambda: 60
    burst_lambda: 180
    bursts:
      - { from: 20, to: 40 }
      - { from: 50, to: 70, lambda: 250 }
    token_profile: token_heavy
    node_profile: tpm_tight
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	scenarios, err := LoadScenarios(path)
	require.NoError(t, err)

	s, ok := scenarios["custom_burst"]
	require.True(t, ok)
	assert.Equal(t, "custom_burst", s.Name) // defaulted from the map key
	assert.Equal(t, 90, s.DurationSec)
	assert.Equal(t, workload.ProfileTokenHeavy, s.Profile)
	require.Len(t, s.Bursts, 2)
	assert.Equal(t, 250, s.Bursts[1].Lambda)
}

func TestLoadScenarios_MissingFile(t *testing.T) {
	_, err := LoadScenarios("/nonexistent/scenarios.yaml")
	assert.Error(t, err)
}

func TestResolveScenario_Presets(t *testing.T) {
	for _, name := range []string{"balanced_steady", "mixed_bursty", "token_heavy", "long_context"} {
		s, err := resolveScenario(name, "")
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name)
		assert.Equal(t, 180, s.DurationSec)
		assert.Positive(t, s.BaseLambda)
	}

	_, err := resolveScenario("no_such_scenario", "")
	assert.Error(t, err)
}

func TestSweepDurationDefault(t *testing.T) {
	flag := sweepCmd.Flags().Lookup("duration")
	require.NotNil(t, flag)
	assert.Equal(t, "180", flag.DefValue)
}

func TestResolveScenario_FileOverridesPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	content := `scenarios:
  mixed_bursty:
    duration_sec: 33
    base_lambda: 10
    burst_lambda: 20
    token_profile: short
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := resolveScenario("mixed_bursty", path)
	require.NoError(t, err)
	assert.Equal(t, 33, s.DurationSec)

	// Names absent from the file still fall back to the presets.
	s, err = resolveScenario("token_heavy", path)
	require.NoError(t, err)
	assert.Equal(t, 180, s.DurationSec)
}
