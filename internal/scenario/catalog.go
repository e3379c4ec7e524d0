package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/flightctl/flightctl/pkg/core"
)

var (
	ErrUnknownScenario   = errors.New("unknown scenario")
	ErrDuplicateScenario = errors.New("duplicate scenario")
)

// Catalog holds named scenarios in insertion order.
type Catalog struct {
	items *orderedmap.OrderedMap[string, core.Scenario]
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{items: orderedmap.NewOrderedMap[string, core.Scenario]()}
}

// DefaultCatalog returns the regression suite: eight landings from awkward
// attitudes followed by two hovers.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, s := range defaultScenarios() {
		// names are unique by construction
		_ = c.Add(s)
	}
	return c
}

func defaultScenarios() []core.Scenario {
	return []core.Scenario{
		{Name: "land-from-rest", Position: mgl64.Vec2{0, 1000}, Mode: core.ModeLand},
		{Name: "land-sideways-right", Position: mgl64.Vec2{0, 6000}, Velocity: mgl64.Vec2{1000, 0}, Angle: math.Pi / 2, Mode: core.ModeLand},
		{Name: "land-sideways-left", Position: mgl64.Vec2{0, 8000}, Velocity: mgl64.Vec2{1000, 0}, Angle: -math.Pi / 2, Mode: core.ModeLand},
		{Name: "land-sideways-low", Position: mgl64.Vec2{0, 5000}, Velocity: mgl64.Vec2{1000, 0}, Angle: math.Pi / 2, Mode: core.ModeLand},
		{Name: "land-fast-sideways", Position: mgl64.Vec2{0, 10000}, Velocity: mgl64.Vec2{5000, 0}, Angle: math.Pi / 2, Mode: core.ModeLand},
		{Name: "land-spinning", Position: mgl64.Vec2{0, 10000}, Velocity: mgl64.Vec2{500, 0}, AngularVelocity: 100, Mode: core.ModeLand},
		{Name: "land-falling-spin", Position: mgl64.Vec2{0, 6000}, Velocity: mgl64.Vec2{0, -500}, AngularVelocity: 10, Mode: core.ModeLand},
		{Name: "land-inverted-high", Position: mgl64.Vec2{0, 200000}, Velocity: mgl64.Vec2{0, -500}, Angle: -math.Pi + 1e-3, Mode: core.ModeLand},
		{Name: "hover-near-ground", Position: mgl64.Vec2{0, 120}, Velocity: mgl64.Vec2{10, 10}, AngularVelocity: 4, Mode: core.ModeHover},
		{Name: "hover-falling", Position: mgl64.Vec2{0, 3000}, Velocity: mgl64.Vec2{20, -1000}, AngularVelocity: 4, Mode: core.ModeHover, IgnoreAltitudeCheck: true},
	}
}

// Add appends a scenario. Names must be unique and non-empty.
func (c *Catalog) Add(s core.Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownScenario)
	}
	if !s.Mode.Valid() {
		return fmt.Errorf("scenario %s: invalid mode %d", s.Name, int(s.Mode))
	}
	if _, ok := c.items.Get(s.Name); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateScenario, s.Name)
	}
	c.items.Set(s.Name, s)
	return nil
}

// Get looks a scenario up by name.
func (c *Catalog) Get(name string) (core.Scenario, bool) {
	return c.items.Get(name)
}

// Len is the number of scenarios in the catalog.
func (c *Catalog) Len() int {
	return c.items.Len()
}

// Names returns the scenario names in insertion order.
func (c *Catalog) Names() []string {
	return c.items.Keys()
}

// Scenarios returns every scenario in insertion order.
func (c *Catalog) Scenarios() []core.Scenario {
	out := make([]core.Scenario, 0, c.items.Len())
	for el := c.items.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Select returns the named scenarios in the order given. No names selects
// the whole catalog.
func (c *Catalog) Select(names ...string) ([]core.Scenario, error) {
	if len(names) == 0 {
		return c.Scenarios(), nil
	}
	out := make([]core.Scenario, 0, len(names))
	for _, n := range names {
		s, ok := c.items.Get(n)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, n)
		}
		out = append(out, s)
	}
	return out, nil
}

// Chain links the named scenarios, or the whole catalog.
func (c *Catalog) Chain(names ...string) (*Chain, error) {
	scenarios, err := c.Select(names...)
	if err != nil {
		return nil, err
	}
	return NewChain(scenarios...), nil
}

// LoadFile appends the scenarios in a JSON array file.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading scenario file: %w", err)
	}
	var scenarios []core.Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return fmt.Errorf("parsing scenario file %s: %w", path, err)
	}
	for _, s := range scenarios {
		if err := c.Add(s); err != nil {
			return fmt.Errorf("scenario file %s: %w", path, err)
		}
	}
	return nil
}
