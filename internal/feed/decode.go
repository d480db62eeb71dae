package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"voccal/internal/model"
)

// DefaultKey is the top-level key holding the event mapping.
const DefaultKey = "voc_events"

// feedEvent is one event value in the feed. Other keys are ignored.
type feedEvent struct {
	StartDate *string           `json:"start_date"`
	EndDate   *string           `json:"end_date"`
	Cases     []json.RawMessage `json:"cases"`
}

// Decode parses a feed body of the form
//
//	{"<key>": {"<name>": {"start_date": "YYYY-MM-DD", "end_date": "YYYY-MM-DD", "cases": [...]}}}
//
// keeping the order in which events appear.
func Decode(body []byte, key string) (model.Document, error) {
	if key == "" {
		key = DefaultKey
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, model.FeedError("decode", err)
	}
	raw, ok := top[key]
	if !ok {
		return nil, model.FeedErrorf("decode", "missing top-level key %q", key)
	}

	names, values, err := orderedObject(raw)
	if err != nil {
		return nil, model.FeedErrorf("decode", "key %q: %w", key, err)
	}

	doc := make(model.Document, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for i, name := range names {
		if _, dup := seen[name]; dup {
			return nil, model.FeedErrorf("decode", "duplicate event %q", name)
		}
		seen[name] = struct{}{}

		var fe feedEvent
		if err := json.Unmarshal(values[i], &fe); err != nil {
			return nil, model.FeedErrorf("decode", "event %q: %w", name, err)
		}
		ev, err := fe.toModel(name)
		if err != nil {
			return nil, model.FeedErrorf("decode", "event %q: %w", name, err)
		}
		doc = append(doc, ev)
	}
	return doc, nil
}

func (fe feedEvent) toModel(name string) (model.RawEvent, error) {
	if fe.StartDate == nil {
		return model.RawEvent{}, fmt.Errorf("missing start_date")
	}
	if fe.EndDate == nil {
		return model.RawEvent{}, fmt.Errorf("missing end_date")
	}
	start, err := time.Parse(time.DateOnly, strings.TrimSpace(*fe.StartDate))
	if err != nil {
		return model.RawEvent{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := time.Parse(time.DateOnly, strings.TrimSpace(*fe.EndDate))
	if err != nil {
		return model.RawEvent{}, fmt.Errorf("end_date: %w", err)
	}

	cases := make([]string, 0, len(fe.Cases))
	for _, c := range fe.Cases {
		cases = append(cases, caseToken(c))
	}
	return model.RawEvent{
		Name:       name,
		Start:      start,
		End:        end,
		Cases:      cases,
		HasCases:   true,
		RoomCases:  []string{},
		AudioCases: []string{},
	}, nil
}

// caseToken returns string values unquoted and any other JSON value (a bare
// number, mostly) as its literal text. null becomes "".
func caseToken(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

// orderedObject splits a JSON object into its keys and raw values in
// document order.
func orderedObject(raw json.RawMessage) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected an object of events, got %v", tok)
	}

	var names []string
	var values []json.RawMessage
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("event %q: %w", name, err)
		}
		names = append(names, name)
		values = append(values, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return names, values, nil
}
