package schedule

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"voccal/internal/model"
)

// SortMode selects the event ordering used before colors are assigned.
type SortMode int

const (
	// ByDate orders by start date, then by first room id. Used for yearly views.
	ByDate SortMode = iota
	// ByResource orders by the natural key of the first room id. Used for
	// monthly views.
	ByResource
)

func (m SortMode) String() string {
	if m == ByResource {
		return "resource"
	}
	return "date"
}

// ParseSortMode accepts "date" and "resource".
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "date", "":
		return ByDate, nil
	case "resource", "resources":
		return ByResource, nil
	default:
		return ByDate, fmt.Errorf("unknown sort mode %q", s)
	}
}

// Chunk is one run of a natural sort key: either digits or non-digits.
type Chunk struct {
	Text    string
	Numeric bool
}

// NaturalKey splits s into alternating non-digit and digit runs. The first
// chunk is always a (possibly empty) non-digit run, so keys of two strings
// line up chunk by chunk.
func NaturalKey(s string) []Chunk {
	key := []Chunk{{}}
	for i := 0; i < len(s); {
		j := i
		digit := isDigit(s[i])
		for j < len(s) && isDigit(s[j]) == digit {
			j++
		}
		run := Chunk{Text: s[i:j], Numeric: digit}
		if digit {
			key = append(key, run)
		} else if len(key)%2 == 1 {
			key[len(key)-1] = run
		} else {
			key = append(key, run)
		}
		i = j
	}
	return key
}

// CompareNatural orders strings so that digit runs compare by value:
// "S2" < "S10" < "S20".
func CompareNatural(a, b string) int {
	ka, kb := NaturalKey(a), NaturalKey(b)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		if c := compareChunk(ka[i], kb[i]); c != 0 {
			return c
		}
	}
	return len(ka) - len(kb)
}

func compareChunk(a, b Chunk) int {
	if a.Numeric && b.Numeric {
		return compareDigits(a.Text, b.Text)
	}
	return strings.Compare(a.Text, b.Text)
}

// compareDigits compares decimal strings by value without overflowing.
func compareDigits(a, b string) int {
	ta := strings.TrimLeft(a, "0")
	tb := strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		return len(ta) - len(tb)
	}
	return strings.Compare(ta, tb)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// sortable is a raw event together with its resolved cases, the unit the
// assembler sorts.
type sortable struct {
	raw   model.RawEvent
	cases Cases
}

func (s sortable) firstRoom() string {
	if len(s.cases.Rooms) == 0 {
		return ""
	}
	return s.cases.Rooms[0]
}

func sortEvents(events []sortable, mode SortMode) {
	switch mode {
	case ByResource:
		slices.SortStableFunc(events, func(a, b sortable) int {
			return CompareNatural(a.firstRoom(), b.firstRoom())
		})
	default:
		slices.SortStableFunc(events, func(a, b sortable) int {
			if c := strings.Compare(a.raw.Start.Format(time.DateOnly), b.raw.Start.Format(time.DateOnly)); c != 0 {
				return c
			}
			return strings.Compare(a.firstRoom(), b.firstRoom())
		})
	}
}

// SortResources orders resources naturally by id with Unassigned last.
func SortResources(resources []*model.Resource) {
	slices.SortStableFunc(resources, func(a, b *model.Resource) int {
		ua, ub := a.ID == model.UnassignedID, b.ID == model.UnassignedID
		switch {
		case ua && ub:
			return 0
		case ua:
			return 1
		case ub:
			return -1
		}
		return CompareNatural(a.ID, b.ID)
	})
}
