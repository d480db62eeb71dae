package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	appLog "voccal/internal/log"
	"voccal/internal/model"
)

// rawEvent mirrors one event value in the YAML document.
// Dates are read as strings so both `2024-03-01` and quoted dates work.
type rawEvent struct {
	Start      string    `yaml:"start"`
	End        string    `yaml:"end"`
	RoomCases  []string  `yaml:"room_cases"`
	AudioCases []string  `yaml:"audio_cases"`
	Cases      *[]string `yaml:"cases"`
	RRule      string    `yaml:"rrule"`
}

// Load reads and decodes the document at path.
func Load(path string) (model.Document, error) {
	if path == "" {
		return nil, model.DocumentErrorf("load", "document path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.DocumentError("load", err)
	}
	doc, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	appLog.Info("document loaded", "path", path, "event_count", len(doc))
	return doc, nil
}

// Decode reads a mapping of event name to event attributes, keeping the
// order in which events appear.
func Decode(r io.Reader) (model.Document, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return model.Document{}, nil
		}
		return nil, model.DocumentError("decode", err)
	}

	top := &root
	if top.Kind == yaml.DocumentNode && len(top.Content) > 0 {
		top = top.Content[0]
	}
	if top.Kind == yaml.ScalarNode && top.Tag == "!!null" {
		return model.Document{}, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, model.DocumentErrorf("decode", "line %d: top level must be a mapping of event names", top.Line)
	}

	doc := make(model.Document, 0, len(top.Content)/2)
	seen := make(map[string]int, len(top.Content)/2)
	for i := 0; i+1 < len(top.Content); i += 2 {
		keyNode, valNode := top.Content[i], top.Content[i+1]
		name := keyNode.Value
		if first, dup := seen[name]; dup {
			return nil, model.DocumentErrorf("decode", "line %d: duplicate event %q (first defined on line %d)", keyNode.Line, name, first)
		}
		seen[name] = keyNode.Line

		var raw rawEvent
		if err := valNode.Decode(&raw); err != nil {
			return nil, model.DocumentErrorf("decode", "event %q: %w", name, err)
		}
		ev, err := raw.toModel(name)
		if err != nil {
			return nil, model.DocumentErrorf("decode", "line %d: %w", valNode.Line, err)
		}
		doc = append(doc, ev)
	}
	return doc, nil
}

func (r rawEvent) toModel(name string) (model.RawEvent, error) {
	start, err := parseDate(r.Start)
	if err != nil {
		return model.RawEvent{}, fmt.Errorf("event %q: start: %w", name, err)
	}
	end, err := parseDate(r.End)
	if err != nil {
		return model.RawEvent{}, fmt.Errorf("event %q: end: %w", name, err)
	}
	ev := model.RawEvent{
		Name:       name,
		Start:      start,
		End:        end,
		RoomCases:  orEmpty(r.RoomCases),
		AudioCases: orEmpty(r.AudioCases),
		RRule:      strings.TrimSpace(r.RRule),
	}
	if r.Cases != nil {
		ev.HasCases = true
		ev.Cases = orEmpty(*r.Cases)
	}
	return ev, nil
}

// parseDate accepts YYYY-MM-DD, optionally followed by a time part which is
// dropped.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing date")
	}
	if len(s) > len(time.DateOnly) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Parse(time.DateOnly, s)
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
