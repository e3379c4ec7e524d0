package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightctl/flightctl/pkg/core"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	require.Equal(t, 10, c.Len())
	names := c.Names()
	assert.Equal(t, "land-from-rest", names[0])
	assert.Equal(t, "hover-falling", names[9])

	hf, ok := c.Get("hover-falling")
	require.True(t, ok)
	assert.True(t, hf.IgnoreAltitudeCheck)
	assert.Equal(t, core.ModeHover, hf.Mode)

	seen := map[uint64]string{}
	for _, s := range c.Scenarios() {
		fp := s.Fingerprint()
		_, dup := seen[fp]
		assert.False(t, dup, "%s shares a fingerprint with %s", s.Name, seen[fp])
		seen[fp] = s.Name
	}
}

func TestCatalog_Add(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Add(core.Scenario{Name: "a", Mode: core.ModeLand}))

	err := c.Add(core.Scenario{Name: "a", Mode: core.ModeHover})
	assert.ErrorIs(t, err, ErrDuplicateScenario)

	assert.Error(t, c.Add(core.Scenario{Mode: core.ModeLand}))
	assert.Error(t, c.Add(core.Scenario{Name: "b", Mode: core.Mode(42)}))
	assert.Equal(t, 1, c.Len())
}

func TestCatalog_Select(t *testing.T) {
	c := DefaultCatalog()

	all, err := c.Select()
	require.NoError(t, err)
	assert.Len(t, all, 10)

	picked, err := c.Select("hover-falling", "land-from-rest")
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "hover-falling", picked[0].Name)
	assert.Equal(t, "land-from-rest", picked[1].Name)

	_, err = c.Select("land-from-rest", "nope")
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestCatalog_Chain(t *testing.T) {
	chain, err := DefaultCatalog().Chain("land-spinning", "land-from-rest")
	require.NoError(t, err)

	assert.Equal(t, 2, chain.Len())
	head := chain.Head()
	require.NotNil(t, head)
	assert.Equal(t, "land-spinning", head.Scenario.Name)
	require.NotNil(t, head.Next())
	assert.Equal(t, "land-from-rest", head.Next().Scenario.Name)
	assert.Nil(t, head.Next().Next())
}

func TestCatalog_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.json")
	data := `[
		{"name": "drop", "position": [0, 2500], "velocity": [0, -100], "mode": "LAND"},
		{"name": "scripted-hover", "position": [0, 900], "mode": "OFF", "ignoreAltitudeCheck": true,
		 "pilot": [{"tick": 0, "command": "set_mode", "args": ["HOVER"]}]}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	c := DefaultCatalog()
	require.NoError(t, c.LoadFile(path))

	assert.Equal(t, 12, c.Len())
	drop, ok := c.Get("drop")
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec2{0, 2500}, drop.Position)
	assert.Equal(t, mgl64.Vec2{0, -100}, drop.Velocity)
	assert.Equal(t, core.ModeLand, drop.Mode)

	sh, ok := c.Get("scripted-hover")
	require.True(t, ok)
	require.Len(t, sh.Pilot, 1)
	assert.Equal(t, []string{"HOVER"}, sh.Pilot[0].Args)
	assert.Equal(t, "scripted-hover", c.Names()[11])
}

func TestCatalog_LoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	c := DefaultCatalog()

	assert.Error(t, c.LoadFile(filepath.Join(dir, "missing.json")))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"name": "x"}`), 0644))
	assert.Error(t, c.LoadFile(bad))

	dup := filepath.Join(dir, "dup.json")
	require.NoError(t, os.WriteFile(dup, []byte(`[{"name": "land-from-rest", "mode": "LAND"}]`), 0644))
	assert.ErrorIs(t, c.LoadFile(dup), ErrDuplicateScenario)
}
