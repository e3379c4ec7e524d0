package scenario

import (
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/flightctl/flightctl/pkg/core"
)

// LengthUnit formats a distance in SI-prefixed metres.
func LengthUnit(m float64) string {
	if math.Abs(m) < 1e3 {
		return fmt.Sprintf("%.1fm", m)
	}
	return humanize.SIWithDigits(m, 1, "m")
}

// VelocityUnit formats a speed in SI-prefixed metres per second.
func VelocityUnit(v float64) string {
	if math.Abs(v) < 1e3 {
		return fmt.Sprintf("%.1fm/s", v)
	}
	return humanize.SIWithDigits(v, 1, "m/s")
}

// FuelUnit formats an impulse in SI-prefixed newton-seconds.
func FuelUnit(f float64) string {
	return humanize.SIWithDigits(f, 2, "N·s")
}

// FormatResult renders one scenario result as a report line.
func FormatResult(r core.ScenarioResult) string {
	status := "ok"
	if !r.Completed {
		status = "TIMEOUT"
	}
	return fmt.Sprintf("#%-2d %-22s %-7s time=%7.2fs ticks=%-6d fuel=%-10s minAlt=%-9s maxTWR=%.2f",
		r.Sequence, r.Name, status, r.TimeTaken, r.Ticks,
		FuelUnit(r.FuelUsed), LengthUnit(r.MinAltitude), r.MaxTWR)
}

// Totals aggregates a set of results.
type Totals struct {
	Scenarios int
	Completed int
	FuelUsed  float64
	TimeTaken float64
	Ticks     int
}

// Summarize adds up results.
func Summarize(results []core.ScenarioResult) Totals {
	t := Totals{Scenarios: len(results)}
	for _, r := range results {
		if r.Completed {
			t.Completed++
		}
		t.FuelUsed += r.FuelUsed
		t.TimeTaken += r.TimeTaken
		t.Ticks += r.Ticks
	}
	return t
}

// AllCompleted is true when every scenario finished before its tick cap.
func (t Totals) AllCompleted() bool {
	return t.Completed == t.Scenarios
}

func (t Totals) String() string {
	return fmt.Sprintf("%d/%d completed, total time %.2fs (%s ticks), total fuel %s",
		t.Completed, t.Scenarios, t.TimeTaken, humanize.Comma(int64(t.Ticks)),
		FuelUnit(t.FuelUsed))
}

// WriteReport prints one line per result followed by the totals.
func WriteReport(w io.Writer, results []core.ScenarioResult) error {
	for _, r := range results {
		if _, err := fmt.Fprintln(w, FormatResult(r)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, Summarize(results))
	return err
}
