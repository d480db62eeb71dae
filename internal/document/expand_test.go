package document

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voccal/internal/model"
	"voccal/internal/window"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpandRecurring(t *testing.T) {
	doc := model.Document{
		{Name: "Plain", Start: day(2024, 1, 1), End: day(2024, 1, 1)},
		{
			Name: "Weekly", Start: day(2024, 2, 5), End: day(2024, 2, 6),
			RoomCases: []string{"S3"}, RRule: "FREQ=WEEKLY;COUNT=3",
		},
	}

	out, err := ExpandRecurring(doc, ExpandConfig{Range: window.ForYear(2024)})
	require.NoError(t, err)

	assert.Equal(t, []string{"Plain", "Weekly", "Weekly (2024-02-12)", "Weekly (2024-02-19)"}, out.Names())
	for _, ev := range out[1:] {
		assert.Empty(t, ev.RRule)
		assert.Equal(t, 1, window.DaysBetween(ev.Start, ev.End), ev.Name)
		assert.Equal(t, []string{"S3"}, ev.RoomCases)
	}
	assert.Equal(t, day(2024, 2, 19), out[3].Start)
	assert.Equal(t, day(2024, 2, 20), out[3].End)
}

func TestExpandRecurring_OnlyWithinRange(t *testing.T) {
	doc := model.Document{
		{Name: "Monthly", Start: day(2024, 11, 3), End: day(2024, 11, 3), RRule: "FREQ=MONTHLY;COUNT=4"},
	}
	jan, err := window.ForMonth(2024, 13)
	require.NoError(t, err)

	out, err := ExpandRecurring(doc, ExpandConfig{Range: jan})
	require.NoError(t, err)
	assert.Equal(t, []string{"Monthly (2025-01-03)"}, out.Names())
}

func TestExpandRecurring_Cap(t *testing.T) {
	doc := model.Document{
		{Name: "Daily", Start: day(2024, 1, 1), End: day(2024, 1, 1), RRule: "FREQ=DAILY"},
	}
	out, err := ExpandRecurring(doc, ExpandConfig{Range: window.ForYear(2024), MaxOccurrences: 10})
	require.NoError(t, err)
	assert.Len(t, out, 10)
}

func TestExpandRecurring_Errors(t *testing.T) {
	doc := model.Document{
		{Name: "Broken", Start: day(2024, 1, 1), End: day(2024, 1, 1), RRule: "FREQ=SOMETIMES"},
	}
	_, err := ExpandRecurring(doc, ExpandConfig{Range: window.ForYear(2024)})
	assert.ErrorIs(t, err, model.ErrDocumentLoad)

	_, err = ExpandRecurring(nil, ExpandConfig{Range: window.Window{Start: day(2024, 2, 1), End: day(2024, 1, 1)}})
	assert.Error(t, err)
}

func TestExpandRecurring_NameCollision(t *testing.T) {
	doc, err := Decode(strings.NewReader(`
Weekly:
  start: 2024-02-05
  end: 2024-02-05
  rrule: FREQ=WEEKLY;COUNT=2
Weekly (2024-02-12):
  start: 2024-03-01
  end: 2024-03-01
`))
	require.NoError(t, err)

	_, err = ExpandRecurring(doc, ExpandConfig{Range: window.ForYear(2024)})
	assert.ErrorIs(t, err, model.ErrDocumentLoad)
}
