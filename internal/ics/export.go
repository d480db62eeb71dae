package ics

import (
	"errors"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"voccal/internal/model"
	"voccal/internal/window"
)

const defaultProductID = "-//voccal//event calendar//EN"

// uidNamespace scopes the name-based UIDs of exported events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://c3voc.de/eventkalender"))

// ExportOptions configures Export.
type ExportOptions struct {
	ProductID string
	// Range, when set, limits the export to events overlapping it.
	Range *window.Window
	// Stamp is written as DTSTAMP; zero uses the current time.
	Stamp time.Time
}

// Export writes cal as an iCalendar document with one all-day VEVENT per
// event. UIDs are stable across runs for the same name and start date.
func Export(w io.Writer, cal *model.Calendar, opts ExportOptions) error {
	if cal == nil {
		return errors.New("ics: calendar is nil")
	}
	if opts.ProductID == "" {
		opts.ProductID = defaultProductID
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	out := ical.NewCalendar()
	out.SetMethod(ical.MethodPublish)
	out.SetProductId(opts.ProductID)

	for _, ev := range cal.Events {
		if opts.Range != nil && !opts.Range.Overlaps(ev.Start, ev.End()) {
			continue
		}
		vev := out.AddEvent(EventUID(ev))
		vev.SetDtStampTime(stamp.UTC())
		vev.SetSummary(ev.Name)
		vev.SetAllDayStartAt(ev.Start)
		// DTEND of an all-day event is exclusive.
		vev.SetAllDayEndAt(ev.Start.AddDate(0, 0, ev.Days))
		vev.SetDescription("Resources: " + strings.Join(ev.ResourceIDs(), ", "))
		if len(ev.RoomIDs) > 0 {
			vev.SetLocation(strings.Join(ev.RoomIDs, ", "))
		}
		vev.SetProperty(ical.ComponentPropertyColor, string(ev.Color))
	}

	return out.SerializeTo(w)
}

// EventUID derives a stable UID from the event name and start date.
func EventUID(ev model.Event) string {
	key := ev.Name + "|" + ev.Start.Format(time.DateOnly)
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@voccal"
}
