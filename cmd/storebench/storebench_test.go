package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenarioDefaults(t *testing.T) {
	s, err := loadScenario("")
	require.NoError(t, err)
	assert.Equal(t, defaultScenario(), s)
}

func TestLoadScenarioOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
propagate:
  widths: [2]
  iterations: 7
fanout:
  - name: tiny
    width: 3
    depth: 2
    iterations: 12
`), 0o644))

	s, err := loadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, s.Propagate.Widths)
	assert.Equal(t, defaultScenario().Propagate.Heights, s.Propagate.Heights)
	assert.Equal(t, 7, s.Propagate.Iterations)
	assert.Equal(t, []FanoutConfig{{Name: "tiny", Width: 3, Depth: 2, Iterations: 12}}, s.Fanout)
}

func TestLoadScenarioRejectsBadFanout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fanout:\n  - name: broken\n    width: 0\n"), 0o644))

	_, err := loadScenario(path)
	assert.ErrorContains(t, err, "width must be positive")
}

func TestPropagateOnce(t *testing.T) {
	res, err := propagateOnce(3, 4, 10)
	require.NoError(t, err)
	// Each chain publishes source + height.
	assert.Equal(t, 3*(10+4), res.final)
	assert.NotNil(t, res.calc)
}

func TestFanoutOnce(t *testing.T) {
	res, err := fanoutOnce(FanoutConfig{Name: "t", Width: 3, Depth: 2, Iterations: 20})
	require.NoError(t, err)
	assert.Equal(t, 9, res.leaves)
	assert.Equal(t, 1+3+9, res.stores)
	assert.Equal(t, 20, res.sum)
	assert.Equal(t, 20, res.published)
}

func TestRenderers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, propagate(&buf, PropagateConfig{Widths: []int{1}, Heights: []int{2}, Iterations: 3}))
	assert.Contains(t, buf.String(), "propagate: 1 * 2")

	buf.Reset()
	require.NoError(t, fanout(&buf, []FanoutConfig{{Name: "small", Width: 2, Depth: 2, Iterations: 8}}))
	assert.Contains(t, buf.String(), "small")

	buf.Reset()
	require.NoError(t, inspectDemo(&buf, "outline"))
	assert.Contains(t, buf.String(), "source: counter = 1 (adopted)")

	assert.Error(t, inspectDemo(&buf, "svg"))
}
