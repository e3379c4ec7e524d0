package logging

import (
	"context"
	"errors"
	"log/slog"
)

// RunInfo is the flight status stamped onto records while a run is active.
type RunInfo struct {
	RunID    string
	Scenario string
	Mode     string
	Tick     int64
}

// RunInfoFunc reports the current RunInfo. An empty RunID means no run is
// in progress and nothing is stamped.
type RunInfoFunc func() RunInfo

// flightHandler fans a record out to every enabled sink after adding a
// "flight" group describing the active run.
type flightHandler struct {
	sinks []slog.Handler
	run   RunInfoFunc
}

func newFlightHandler(run RunInfoFunc, sinks ...slog.Handler) *flightHandler {
	h := &flightHandler{run: run}
	for _, s := range sinks {
		if s != nil {
			h.sinks = append(h.sinks, s)
		}
	}
	return h
}

func (h *flightHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes r to each sink. A failing sink does not stop the others;
// their errors are joined.
func (h *flightHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.run != nil {
		if info := h.run(); info.RunID != "" {
			r.AddAttrs(slog.Group("flight",
				slog.String("run", info.RunID),
				slog.String("scenario", info.Scenario),
				slog.String("mode", info.Mode),
				slog.Int64("tick", info.Tick),
			))
		}
	}
	var errs []error
	for _, s := range h.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *flightHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (h *flightHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (h *flightHandler) derive(fn func(slog.Handler) slog.Handler) *flightHandler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = fn(s)
	}
	return &flightHandler{sinks: sinks, run: h.run}
}
