package model

import "time"

// UnassignedID is the resource every event falls back to when it has no
// room or audio case.
const UnassignedID = "Unassigned"

// Color is a CSS hex color, e.g. "#1f77b4".
type Color string

// RawEvent is one decoded input record, before case normalization.
// It comes either from a YAML document or from the remote feed.
type RawEvent struct {
	Name  string
	Start time.Time
	End   time.Time

	// Cases holds free-form case tokens (feed form). HasCases is true when the
	// record carried a "cases" key, even an empty one; only then are the
	// tokens normalized instead of trusting RoomCases/AudioCases.
	Cases    []string
	HasCases bool

	// Pre-split room and audio case ids (document form).
	RoomCases  []string
	AudioCases []string

	// RRule is an optional RFC 5545 recurrence rule (document form only).
	RRule string
}

// Document is an ordered list of raw events. Names are unique; order is the
// order of appearance in the source and serves as the sort tie-breaker.
type Document []RawEvent

// Names returns the event names in document order.
func (d Document) Names() []string {
	out := make([]string, 0, len(d))
	for _, ev := range d {
		out = append(out, ev.Name)
	}
	return out
}

// Resource is one canonical room or audio identifier. A Resource is created
// at most once per ID by the registry, so pointer identity can be used to
// group tasks.
type Resource struct {
	ID string
}

func (r *Resource) String() string {
	if r == nil {
		return ""
	}
	return r.ID
}

// Event is a raw event after resolution: a timeline task.
type Event struct {
	Name  string
	Start time.Time
	// Days is the inclusive duration in days, always >= 1.
	Days int

	RoomIDs  []string
	AudioIDs []string

	// Resources is never empty; it is [Unassigned] when both id lists are empty.
	Resources []*Resource
	Color     Color
}

// End returns the last day covered by the event (inclusive).
func (e Event) End() time.Time {
	return e.Start.AddDate(0, 0, e.Days-1)
}

// ResourceIDs returns the ids of the assigned resources in order.
func (e Event) ResourceIDs() []string {
	out := make([]string, 0, len(e.Resources))
	for _, r := range e.Resources {
		out = append(out, r.ID)
	}
	return out
}

// Calendar is the output of one assembly pass, consumed by the renderers.
type Calendar struct {
	// Resources in registration order; Unassigned is always first.
	Resources []*Resource
	// Events in the order of the active sort mode.
	Events []Event
}

// EventsFor returns the events that use the given resource, in calendar order.
func (c *Calendar) EventsFor(r *Resource) []Event {
	out := make([]Event, 0)
	for _, ev := range c.Events {
		for _, er := range ev.Resources {
			if er == r {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}
