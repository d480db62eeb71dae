package schedule

import (
	"time"

	appLog "voccal/internal/log"
	"voccal/internal/model"
	"voccal/internal/window"
)

// Assembler turns a decoded document into the calendar model the renderers
// consume. An Assembler holds configuration only; every Assemble call gets
// its own registry and color wheel.
type Assembler struct {
	Normalizer Normalizer
	// Palette overrides DefaultPalette when non-empty.
	Palette []model.Color
}

// NewAssembler returns an assembler with the default normalizer and palette.
func NewAssembler() *Assembler {
	return &Assembler{Normalizer: DefaultNormalizer()}
}

// Assemble resolves the cases of every event, orders events by mode and
// assigns colors in that order.
func (a *Assembler) Assemble(doc model.Document, mode SortMode) *model.Calendar {
	registry := NewRegistry()
	wheel := NewColorWheel(a.Palette...)

	items := make([]sortable, 0, len(doc))
	for _, raw := range doc {
		c := a.resolveCases(raw)
		registry.EnsureAll(c.Rooms...)
		registry.EnsureAll(c.Audio...)
		items = append(items, sortable{raw: raw, cases: c})
	}

	sortEvents(items, mode)

	events := make([]model.Event, 0, len(items))
	for _, it := range items {
		ev := model.Event{
			Name:     it.raw.Name,
			Start:    window.Day(it.raw.Start),
			Days:     inclusiveDays(it.raw),
			RoomIDs:  it.cases.Rooms,
			AudioIDs: it.cases.Audio,
			Color:    wheel.Next(),
		}
		if it.cases.Empty() {
			ev.Resources = []*model.Resource{registry.Unassigned()}
		} else {
			ev.Resources = append(registry.Resolve(it.cases.Rooms), registry.Resolve(it.cases.Audio)...)
		}
		events = append(events, ev)
	}

	appLog.Debug("calendar assembled",
		"events", len(events),
		"resources", registry.Len(),
		"sort", mode.String(),
	)

	return &model.Calendar{
		Resources: registry.Resources(),
		Events:    events,
	}
}

func (a *Assembler) resolveCases(raw model.RawEvent) Cases {
	if raw.HasCases {
		return a.Normalizer.NormalizeAll(raw.Cases)
	}
	return Cases{
		Rooms: nonEmpty(raw.RoomCases),
		Audio: nonEmpty(raw.AudioCases),
	}
}

// inclusiveDays returns end - start + 1 in days, at least 1.
func inclusiveDays(raw model.RawEvent) int {
	days := window.DaysBetween(raw.Start, raw.End) + 1
	if days < 1 {
		appLog.Warn("event ends before it starts; using one day",
			"event", raw.Name,
			"start", raw.Start.Format(time.DateOnly),
			"end", raw.End.Format(time.DateOnly),
		)
		return 1
	}
	return days
}

func nonEmpty(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
