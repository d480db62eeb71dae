package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "voccal/internal/log"
	"voccal/internal/model"
	"voccal/internal/window"
)

// DefaultMaxOccurrences caps the expansion of a single recurring event.
const DefaultMaxOccurrences = 366

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// Range is the inclusive window occurrences must start in.
	Range window.Window
	// MaxOccurrences is a safety cap per event. If zero,
	// DefaultMaxOccurrences is used.
	MaxOccurrences int
}

// ExpandRecurring replaces every event carrying an RRULE by its occurrences
// starting within cfg.Range. Events without a rule are kept as they are.
// Occurrence names stay unique: every occurrence other than the one on the
// original start date is named "Name (YYYY-MM-DD)".
func ExpandRecurring(doc model.Document, cfg ExpandConfig) (model.Document, error) {
	if cfg.Range.End.Before(cfg.Range.Start) {
		return nil, errors.New("expand: range end is before range start")
	}
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = DefaultMaxOccurrences
	}

	out := make(model.Document, 0, len(doc))
	names := make(map[string]struct{}, len(doc))
	for _, ev := range doc {
		names[ev.Name] = struct{}{}
	}

	for _, ev := range doc {
		if ev.RRule == "" {
			out = append(out, ev)
			continue
		}
		occ, truncated, err := expandEvent(ev, cfg)
		if err != nil {
			return nil, model.DocumentErrorf("expand", "event %q: %w", ev.Name, err)
		}
		if truncated {
			appLog.Warn("expand: truncated occurrences due to cap",
				"event", ev.Name,
				"cap", cfg.MaxOccurrences,
			)
		}
		for _, o := range occ {
			if o.Name != ev.Name {
				if _, clash := names[o.Name]; clash {
					return nil, model.DocumentErrorf("expand", "occurrence %q collides with an existing event", o.Name)
				}
				names[o.Name] = struct{}{}
			}
			out = append(out, o)
		}
	}
	return out, nil
}

func expandEvent(ev model.RawEvent, cfg ExpandConfig) ([]model.RawEvent, bool, error) {
	opt, err := rrule.StrToROption(ev.RRule)
	if err != nil {
		return nil, false, fmt.Errorf("parse rrule %q: %w", ev.RRule, err)
	}
	opt.Dtstart = window.Day(ev.Start)
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, false, fmt.Errorf("build rrule %q: %w", ev.RRule, err)
	}

	span := window.DaysBetween(ev.Start, ev.End)
	times := r.Between(cfg.Range.Start, cfg.Range.End, true)

	truncated := false
	if len(times) > cfg.MaxOccurrences {
		times = times[:cfg.MaxOccurrences]
		truncated = true
	}

	out := make([]model.RawEvent, 0, len(times))
	for _, start := range times {
		start = window.Day(start)
		o := ev
		o.RRule = ""
		o.Start = start
		o.End = start.AddDate(0, 0, span)
		if !start.Equal(window.Day(ev.Start)) {
			o.Name = fmt.Sprintf("%s (%s)", ev.Name, start.Format(time.DateOnly))
		}
		out = append(out, o)
	}
	return out, truncated, nil
}
