// Package worker runs the scenario chain under several autopilot tunings at
// once. Every variant flies its own simulation; nothing is shared between
// workers except the read-only chain.
package worker

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/flightctl/flightctl/internal/autopilot"
	"github.com/flightctl/flightctl/internal/logging"
	"github.com/flightctl/flightctl/internal/physics"
	"github.com/flightctl/flightctl/internal/scenario"
	"github.com/flightctl/flightctl/internal/sim"
)

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	LogManager  *logging.SlogManager
	SimConfig   sim.Config
	World       physics.World
	Params      sim.Params
	Criteria    scenario.Criteria
	MaxTicks    int
	Parallelism int
}

// Manager manages worker goroutines
type Manager struct {
	deps Dependencies
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Parallelism < 1 {
		deps.Parallelism = 1
	}
	return &Manager{deps: deps}
}

// Variant is one named autopilot tuning.
type Variant struct {
	Name  string
	Gains autopilot.Gains
}

// SafetyVariants derives one variant per LAND safety factor from base.
func SafetyVariants(base autopilot.Gains, factors []float64) []Variant {
	out := make([]Variant, 0, len(factors))
	for _, f := range factors {
		g := base
		g.LandSafety = f
		out = append(out, Variant{
			Name:  "safety=" + strconv.FormatFloat(f, 'g', -1, 64),
			Gains: g,
		})
	}
	return out
}

// ParseFactors reads a comma separated list such as "1.0,1.25,1.5".
func ParseFactors(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("bad factor %q: %w", part, err)
		}
		if !(f > 0) || math.IsInf(f, 1) {
			return nil, fmt.Errorf("factor %q must be positive and finite", part)
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no factors in %q", s)
	}
	return out, nil
}
