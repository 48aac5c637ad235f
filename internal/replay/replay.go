// Package replay drives a measurement engine through a scripted sim scene and
// reports what happened, step by step.
package replay

import (
	"fmt"
	"io"
	"time"

	"github.com/SomeOppaiBoy/true-scale/internal/ar"
	"github.com/SomeOppaiBoy/true-scale/internal/ar/sim"
	"github.com/SomeOppaiBoy/true-scale/internal/config"
	"github.com/SomeOppaiBoy/true-scale/internal/measurement"
	"github.com/SomeOppaiBoy/true-scale/internal/timeutil"
	"github.com/SomeOppaiBoy/true-scale/pkg/analysis"
	"github.com/SomeOppaiBoy/true-scale/pkg/units"
)

// Epoch is the wall time of step at_ms 0
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Options configures a replay run
type Options struct {
	Config   *config.EngineConfig
	Imperial bool
	Out      io.Writer
}

// Report summarizes a finished replay
type Report struct {
	Outcomes  []measurement.TapOutcome
	Debounced int
	Previews  int
	Evictions []measurement.Eviction
	History   []measurement.Measurement
	Units     units.System
	// LiveAnchors is the engine's anchor count before the final dispose.
	LiveAnchors int
	// Leaked counts runtime anchors still attached after the final dispose.
	Leaked  int
	Summary *analysis.Summary
}

// Count returns how many tap outcomes had the given kind
func (r *Report) Count(kind measurement.OutcomeKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

// Run replays scene against a fresh engine. Taps closer together than the
// configured debounce are dropped, as the UI would. Steps must be ordered by
// at_ms. The engine is disposed before Run returns.
func Run(scene *sim.Scene, opts Options) (*Report, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	report := &Report{}
	runtime := sim.NewRuntime()
	clock := timeutil.NewMockClock(Epoch)
	engine := measurement.NewEngine(runtime,
		measurement.WithConfig(cfg),
		measurement.WithClock(clock),
		measurement.WithEvictionObserver(func(ev measurement.Eviction) {
			report.Evictions = append(report.Evictions, ev)
		}),
	)
	if opts.Imperial {
		engine.SetUseMetric(false)
	}

	debounce := cfg.GetTapDebounce()
	var lastTap time.Duration
	tapped := false
	var prev int64

	for i, step := range scene.Steps {
		if step.AtMillis < prev {
			return nil, fmt.Errorf("step %d: at_ms %d is earlier than the previous step (%d)", i, step.AtMillis, prev)
		}
		prev = step.AtMillis
		at := time.Duration(step.AtMillis) * time.Millisecond
		clock.Set(Epoch.Add(at))

		kind, err := step.Kind()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		prefix := fmt.Sprintf("[%6dms]", step.AtMillis)

		switch kind {
		case sim.StepTap:
			x, y := step.Tap[0], step.Tap[1]
			if tapped && at-lastTap < debounce {
				report.Debounced++
				fmt.Fprintf(out, "%s tap (%.0f, %.0f): debounced\n", prefix, x, y)
				continue
			}
			tapped, lastTap = true, at

			before := len(report.Evictions)
			outcome := engine.OnTap(x, y, scene.Frame)
			report.Outcomes = append(report.Outcomes, outcome)
			fmt.Fprintf(out, "%s tap (%.0f, %.0f): %s\n", prefix, x, y, describe(engine, outcome))
			for _, ev := range report.Evictions[before:] {
				fmt.Fprintf(out, "%s   evicted %s measurement %s (%s limit)\n", prefix, ev.Measurement.Mode, ev.Measurement.ID, ev.Kind)
			}

		case sim.StepTick:
			p, ok := engine.OnFrameTick(step.Tick[0], step.Tick[1], scene.Frame)
			if !ok {
				fmt.Fprintf(out, "%s tick (%.0f, %.0f): no preview\n", prefix, step.Tick[0], step.Tick[1])
				continue
			}
			report.Previews++
			fmt.Fprintf(out, "%s tick (%.0f, %.0f): preview %s (smoothed %s) at %s\n", prefix,
				step.Tick[0], step.Tick[1],
				measurement.FormatValue(p.Value, engine.Mode(), engine.UnitSystem()),
				measurement.FormatValue(p.Smoothed, engine.Mode(), engine.UnitSystem()),
				analysis.FormatVector(p.Position))

		case sim.StepMode:
			mode, err := measurement.ParseMode(step.Mode)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			engine.SetMode(mode)
			fmt.Fprintf(out, "%s mode: %s\n", prefix, mode)

		case sim.StepUnits:
			if step.Units == "toggle" {
				engine.ToggleUnits()
			} else {
				system, err := units.ParseSystem(step.Units)
				if err != nil {
					return nil, fmt.Errorf("step %d: %w", i, err)
				}
				engine.SetUseMetric(system == units.Metric)
			}
			fmt.Fprintf(out, "%s units: %s\n", prefix, engine.UnitSystem())

		case sim.StepClear:
			engine.ClearMeasurements()
			fmt.Fprintf(out, "%s clear\n", prefix)

		case sim.StepTracking:
			state, err := ar.ParseTrackingState(step.Tracking)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			scene.Frame.State = state
			fmt.Fprintf(out, "%s tracking: %s\n", prefix, state)

		case sim.StepDispose:
			engine.Dispose()
			fmt.Fprintf(out, "%s dispose\n", prefix)
		}
	}

	report.History = engine.History()
	report.Units = engine.UnitSystem()
	report.LiveAnchors = engine.LiveAnchors()
	report.Summary = summarize(report.History)
	writeHistory(out, report)

	engine.Dispose()
	report.Leaked = runtime.LiveAnchors()
	return report, nil
}

func describe(engine *measurement.Engine, o measurement.TapOutcome) string {
	switch o.Kind {
	case measurement.Registered:
		return fmt.Sprintf("start at %s, confidence %.2f", analysis.FormatVector(o.Point.Position), o.Point.Confidence)
	case measurement.Completed:
		return fmt.Sprintf("%s %s", o.Measurement.Mode, engine.FormatMeasurement(*o.Measurement))
	default:
		return "rejected: " + o.Message()
	}
}

func summarize(history []measurement.Measurement) *analysis.Summary {
	segments := make([]analysis.Segment, len(history))
	for i, m := range history {
		segments[i] = analysis.NewSegment(i, m.Start.Position, m.End.Position)
	}
	return analysis.Summarize(segments)
}

func writeHistory(out io.Writer, r *Report) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "History")
	fmt.Fprintln(out, "=======")
	if len(r.History) == 0 {
		fmt.Fprintln(out, "  (empty)")
		return
	}
	for i, m := range r.History {
		fmt.Fprintf(out, "  %2d. %-8s %s  %s -> %s\n", i+1, m.Mode,
			measurement.FormattedValue(m, m.Mode, r.Units),
			analysis.FormatVector(m.Start.Position), analysis.FormatVector(m.End.Position))
	}

	s := r.Summary
	fmt.Fprintf(out, "\nSegments: %d, total %s, longest %s, shortest %s\n", s.Count,
		units.FormatLength(s.Total, r.Units),
		units.FormatLength(s.MaxLength, r.Units),
		units.FormatLength(s.MinLength, r.Units))
	fmt.Fprintf(out, "Extent: %s .. %s\n", analysis.FormatVector(s.Bounds.Min), analysis.FormatVector(s.Bounds.Max))
}
