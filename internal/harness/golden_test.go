package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// First run with -update to create golden files:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	for _, name := range []string{"orientation_com", "record_lifecycle", "partitions"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("..", "..", "testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			require.Equal(t, name, s.Name)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Events, len(s.Events))
		})
	}
}

func TestGoldenJSON_IsDeterministic(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := goldenJSON(s.Name, first)
	require.NoError(t, err)
	b, err := goldenJSON(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
