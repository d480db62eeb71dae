package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voccal/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func eventNames(cal *model.Calendar) []string {
	out := make([]string, 0, len(cal.Events))
	for _, ev := range cal.Events {
		out = append(out, ev.Name)
	}
	return out
}

func resourceIDs(res []*model.Resource) []string {
	out := make([]string, 0, len(res))
	for _, r := range res {
		out = append(out, r.ID)
	}
	return out
}

func TestAssemble_SingleEvent(t *testing.T) {
	doc := model.Document{
		{
			Name:       "Talk A",
			Start:      date(2024, time.March, 1),
			End:        date(2024, time.March, 2),
			RoomCases:  []string{"S1"},
			AudioCases: []string{"A1"},
		},
	}

	cal := NewAssembler().Assemble(doc, ByDate)

	require.Len(t, cal.Events, 1)
	ev := cal.Events[0]
	assert.Equal(t, "Talk A", ev.Name)
	assert.Equal(t, 2, ev.Days)
	assert.Equal(t, []string{"S1", "A1"}, ev.ResourceIDs())
	assert.Equal(t, date(2024, time.March, 2), ev.End())
	assert.ElementsMatch(t, []string{model.UnassignedID, "S1", "A1"}, resourceIDs(cal.Resources))
}

func TestAssemble_EmptyCasesFallBackToUnassigned(t *testing.T) {
	doc := model.Document{
		{Name: "no keys", Start: date(2024, 5, 1), End: date(2024, 5, 1)},
		{Name: "only reserved", Start: date(2024, 5, 2), End: date(2024, 5, 2), HasCases: true, Cases: []string{"NEIN", "@@CASE@@"}},
	}

	cal := NewAssembler().Assemble(doc, ByDate)

	require.Len(t, cal.Events, 2)
	for _, ev := range cal.Events {
		require.Len(t, ev.Resources, 1, ev.Name)
		assert.Equal(t, model.UnassignedID, ev.Resources[0].ID, ev.Name)
		assert.Same(t, cal.Resources[0], ev.Resources[0], ev.Name)
	}
	assert.Len(t, cal.Resources, 1)
}

func TestAssemble_ResourceIdentityIsShared(t *testing.T) {
	doc := model.Document{
		{Name: "one", Start: date(2024, 1, 1), End: date(2024, 1, 2), HasCases: true, Cases: []string{"1"}},
		{Name: "two", Start: date(2024, 2, 1), End: date(2024, 2, 2), HasCases: true, Cases: []string{"s1", "a1"}},
	}

	cal := NewAssembler().Assemble(doc, ByDate)

	require.Len(t, cal.Events, 2)
	assert.Same(t, cal.Events[0].Resources[0], cal.Events[1].Resources[0])
	assert.Same(t, cal.Events[0].Resources[1], cal.Events[1].Resources[1])
	assert.Equal(t, []string{model.UnassignedID, "S1", "A1"}, resourceIDs(cal.Resources))
	assert.Len(t, cal.EventsFor(cal.Events[0].Resources[0]), 2)
}

func TestAssemble_DurationIsInclusiveAndAtLeastOneDay(t *testing.T) {
	doc := model.Document{
		{Name: "same day", Start: date(2024, 1, 1), End: date(2024, 1, 1)},
		{Name: "backwards", Start: date(2024, 1, 5), End: date(2024, 1, 3)},
		{Name: "across month", Start: date(2024, 1, 30), End: date(2024, 2, 2)},
	}

	cal := NewAssembler().Assemble(doc, ByDate)

	days := map[string]int{}
	for _, ev := range cal.Events {
		days[ev.Name] = ev.Days
	}
	assert.Equal(t, map[string]int{"same day": 1, "backwards": 1, "across month": 4}, days)
}

func TestAssemble_SortByDate(t *testing.T) {
	doc := model.Document{
		{Name: "late", Start: date(2024, 6, 1), End: date(2024, 6, 1), RoomCases: []string{"S1"}},
		{Name: "early S2", Start: date(2024, 2, 1), End: date(2024, 2, 1), RoomCases: []string{"S2"}},
		{Name: "early S1", Start: date(2024, 2, 1), End: date(2024, 2, 1), RoomCases: []string{"S1"}},
		{Name: "early tie", Start: date(2024, 2, 1), End: date(2024, 2, 3), RoomCases: []string{"S1"}},
	}

	cal := NewAssembler().Assemble(doc, ByDate)

	assert.Equal(t, []string{"early S1", "early tie", "early S2", "late"}, eventNames(cal))
}

func TestAssemble_SortByResource(t *testing.T) {
	doc := model.Document{
		{Name: "twenty", Start: date(2024, 1, 1), End: date(2024, 1, 1), RoomCases: []string{"S20"}},
		{Name: "ten", Start: date(2024, 1, 1), End: date(2024, 1, 1), RoomCases: []string{"S10"}},
		{Name: "two", Start: date(2024, 9, 1), End: date(2024, 9, 1), RoomCases: []string{"S2"}},
		{Name: "none", Start: date(2024, 1, 1), End: date(2024, 1, 1), AudioCases: []string{"A1"}},
		{Name: "two again", Start: date(2024, 3, 1), End: date(2024, 3, 1), RoomCases: []string{"S2"}},
	}

	cal := NewAssembler().Assemble(doc, ByResource)

	assert.Equal(t, []string{"none", "two", "two again", "ten", "twenty"}, eventNames(cal))
}

func TestAssemble_ColorsFollowSortedOrder(t *testing.T) {
	doc := model.Document{
		{Name: "b", Start: date(2024, 6, 1), End: date(2024, 6, 1)},
		{Name: "a", Start: date(2024, 1, 1), End: date(2024, 1, 1)},
	}
	asm := &Assembler{Normalizer: DefaultNormalizer(), Palette: []model.Color{"#111111", "#222222"}}

	cal := asm.Assemble(doc, ByDate)

	require.Equal(t, []string{"a", "b"}, eventNames(cal))
	assert.Equal(t, model.Color("#111111"), cal.Events[0].Color)
	assert.Equal(t, model.Color("#222222"), cal.Events[1].Color)
}

func TestAssemble_IsRepeatable(t *testing.T) {
	doc := model.Document{}
	for i := 0; i < 25; i++ {
		doc = append(doc, model.RawEvent{
			Name:     string(rune('a'+i%26)) + "-event",
			Start:    date(2024, time.Month(1+i%12), 1+i),
			End:      date(2024, time.Month(1+i%12), 2+i),
			HasCases: true,
			Cases:    []string{string(rune('1' + i%8))},
		})
	}
	asm := NewAssembler()

	first := asm.Assemble(doc, ByResource)
	second := asm.Assemble(doc, ByResource)

	require.Equal(t, eventNames(first), eventNames(second))
	for i := range first.Events {
		assert.Equal(t, first.Events[i].Color, second.Events[i].Color)
	}
	assert.NotSame(t, first.Resources[0], second.Resources[0])
}

func TestAssemble_FeedRangeToken(t *testing.T) {
	doc := model.Document{
		{Name: "range", Start: date(2024, 4, 1), End: date(2024, 4, 1), HasCases: true, Cases: []string{"3-5"}},
	}

	cal := NewAssembler().Assemble(doc, ByDate)
	assert.Equal(t, []string{"S3", "S4", "A3", "A4"}, cal.Events[0].ResourceIDs())

	noRanges := &Assembler{Normalizer: Normalizer{Digits: DigitsPaired}}
	cal = noRanges.Assemble(doc, ByDate)
	assert.Equal(t, []string{"3-5"}, cal.Events[0].ResourceIDs())
}

func TestAssemble_CasesTakePrecedenceOverPreSplitLists(t *testing.T) {
	doc := model.Document{
		{
			Name: "both", Start: date(2024, 4, 1), End: date(2024, 4, 1),
			HasCases: true, Cases: []string{"2"},
			RoomCases: []string{"S9"},
		},
	}

	cal := NewAssembler().Assemble(doc, ByDate)
	assert.Equal(t, []string{"S2", "A2"}, cal.Events[0].ResourceIDs())
}
