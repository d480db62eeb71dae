package feed

import (
	"time"

	"voccal/internal/clock"
	"voccal/internal/model"
	"voccal/internal/window"
)

// Filter drops feed events outside the period of interest. With an explicit
// year only events starting in that year are kept; otherwise events
// starting on or after January 1st of the current year are kept.
func Filter(doc model.Document, year int, clk clock.Clock) model.Document {
	var keep func(start time.Time) bool
	if year != 0 {
		w := window.ForYear(year)
		keep = w.Contains
	} else {
		from := window.ForYear(clk.Now().Year()).Start
		keep = func(start time.Time) bool {
			return !window.Day(start).Before(from)
		}
	}

	out := make(model.Document, 0, len(doc))
	for _, ev := range doc {
		if keep(ev.Start) {
			out = append(out, ev)
		}
	}
	return out
}
