package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// placeholderCase is the template marker left in feeds for unfilled cases.
const placeholderCase = "@@CASE@@"

// reservedCases are tokens that explicitly mean "no case assigned".
var reservedCases = map[string]struct{}{
	"NEIN": {},
	"?":    {},
	"X":    {},
	"XX":   {},
	"-":    {},
}

// DigitPolicy selects how a bare digit token ("1".."8") is resolved.
type DigitPolicy int

const (
	// DigitsPaired maps "3" to room S3 and audio A3.
	DigitsPaired DigitPolicy = iota
	// DigitsRoomOnly maps "3" to room "3" without audio.
	DigitsRoomOnly
)

// ParseDigitPolicy accepts "paired" (or "") and "room".
func ParseDigitPolicy(s string) (DigitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "paired", "pair":
		return DigitsPaired, nil
	case "room", "room-only":
		return DigitsRoomOnly, nil
	default:
		return DigitsPaired, fmt.Errorf("unknown digit policy %q (want paired or room)", s)
	}
}

func (p DigitPolicy) String() string {
	if p == DigitsRoomOnly {
		return "room"
	}
	return "paired"
}

// Cases is the result of normalizing one or more case tokens.
type Cases struct {
	Rooms []string
	Audio []string
}

// Empty reports whether neither rooms nor audio were produced.
func (c Cases) Empty() bool {
	return len(c.Rooms) == 0 && len(c.Audio) == 0
}

// Normalizer turns free-form case tokens into canonical room and audio ids.
// The zero value pairs digits and does not expand ranges; use
// DefaultNormalizer for the usual behavior.
type Normalizer struct {
	Digits DigitPolicy
	// Ranges enables "3-5" style tokens. The upper bound is exclusive.
	Ranges bool
}

// DefaultNormalizer pairs digit tokens and expands ranges.
func DefaultNormalizer() Normalizer {
	return Normalizer{Digits: DigitsPaired, Ranges: true}
}

// Normalize resolves a single token. It never fails: anything unrecognized
// is kept as an uppercased room id.
func (n Normalizer) Normalize(token string) Cases {
	var out Cases

	token = strings.ReplaceAll(strings.TrimSpace(token), "?", "")
	if token == "" || token == placeholderCase {
		return out
	}

	if len(token) == 1 && token[0] >= '1' && token[0] <= '8' {
		if n.Digits == DigitsRoomOnly {
			out.Rooms = append(out.Rooms, token)
			return out
		}
		out.Rooms = append(out.Rooms, "S"+token)
		out.Audio = append(out.Audio, "A"+token)
		return out
	}

	upper := strings.ToUpper(token)
	switch upper[0] {
	case 'A':
		out.Audio = append(out.Audio, upper)
		return out
	case 'S':
		out.Rooms = append(out.Rooms, upper)
		return out
	}

	if n.Ranges {
		if low, high, ok := parseRange(token); ok {
			for i := low; i < high; i++ {
				num := strconv.Itoa(i)
				out.Rooms = append(out.Rooms, "S"+num)
				out.Audio = append(out.Audio, "A"+num)
			}
			return out
		}
	}

	if _, reserved := reservedCases[upper]; reserved {
		return out
	}

	out.Rooms = append(out.Rooms, upper)
	return out
}

// NormalizeAll resolves tokens in order and concatenates the results.
func (n Normalizer) NormalizeAll(tokens []string) Cases {
	var out Cases
	for _, tok := range tokens {
		c := n.Normalize(tok)
		out.Rooms = append(out.Rooms, c.Rooms...)
		out.Audio = append(out.Audio, c.Audio...)
	}
	return out
}

// parseRange recognizes "<low>-<high>" with single-character bounds.
func parseRange(token string) (low, high int, ok bool) {
	if len(token) != 3 || token[1] != '-' {
		return 0, 0, false
	}
	low, err := strconv.Atoi(token[:1])
	if err != nil {
		return 0, 0, false
	}
	high, err = strconv.Atoi(token[2:])
	if err != nil {
		return 0, 0, false
	}
	return low, high, true
}
