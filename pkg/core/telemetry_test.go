package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"pi stays pi", math.Pi, math.Pi},
		{"minus pi maps to pi", -math.Pi, math.Pi},
		{"small negative", -0.5, -0.5},
		{"one full turn", 2*math.Pi + 0.25, 0.25},
		{"many turns negative", -6*math.Pi - 0.25, -0.25},
		{"just past pi", math.Pi + 0.1, -math.Pi + 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NormalizeAngle(tt.in), 1e-9)
		})
	}
}

func TestNormalizeAngle_Range(t *testing.T) {
	for a := -50.0; a <= 50.0; a += 0.037 {
		got := NormalizeAngle(a)
		assert.Greater(t, got, -math.Pi, "angle %v", a)
		assert.LessOrEqual(t, got, math.Pi, "angle %v", a)
		assert.InDelta(t, math.Sin(a), math.Sin(got), 1e-9)
		assert.InDelta(t, math.Cos(a), math.Cos(got), 1e-9)
	}
}

func TestNewTelemetry(t *testing.T) {
	tel := NewTelemetry(mgl64.Vec2{3, 4}, mgl64.Vec2{0, -5}, 3*math.Pi, 0.2)

	assert.InDelta(t, math.Pi, tel.Angle, 1e-9)
	assert.Equal(t, 4.0, tel.Altitude())
	assert.Equal(t, 5.0, tel.Speed())
	assert.Equal(t, 0.2, tel.AngularVelocity)
}
