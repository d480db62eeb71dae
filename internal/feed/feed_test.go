package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voccal/internal/clock"
	"voccal/internal/model"
	"voccal/internal/schedule"
)

const sampleFeed = `{
	"voc_events": {
		"36C3": {"name": "36C3", "start_date": "2019-12-27", "end_date": "2019-12-30", "cases": ["1", "2", "a5"]},
		"Camp": {"start_date": "2024-08-14", "end_date": "2024-08-18", "cases": ["3-5"]},
		"Tiny": {"start_date": "2024-02-01", "end_date": "2024-02-01", "cases": [7, null, "@@CASE@@"]},
		"Later": {"start_date": "2025-01-10", "end_date": "2025-01-12", "cases": []}
	},
	"generated_at": "2024-01-01"
}`

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDecode(t *testing.T) {
	doc, err := Decode([]byte(sampleFeed), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"36C3", "Camp", "Tiny", "Later"}, doc.Names())
	assert.Equal(t, day(2019, 12, 27), doc[0].Start)
	assert.Equal(t, day(2019, 12, 30), doc[0].End)
	assert.True(t, doc[0].HasCases)
	assert.Equal(t, []string{"1", "2", "a5"}, doc[0].Cases)
	assert.Equal(t, []string{"7", "", "@@CASE@@"}, doc[2].Cases)
	assert.Empty(t, doc[3].Cases)
}

func TestDecode_RangeCasesThroughAssembler(t *testing.T) {
	doc, err := Decode([]byte(sampleFeed), DefaultKey)
	require.NoError(t, err)

	cal := schedule.NewAssembler().Assemble(Filter(doc, 2024, &clock.MockClock{}), schedule.ByDate)
	require.Len(t, cal.Events, 2)

	assert.Equal(t, "Tiny", cal.Events[0].Name)
	assert.Equal(t, []string{"S7", "A7"}, cal.Events[0].ResourceIDs())

	assert.Equal(t, "Camp", cal.Events[1].Name)
	assert.Equal(t, []string{"S3", "S4", "A3", "A4"}, cal.Events[1].ResourceIDs())
	assert.Equal(t, 5, cal.Events[1].Days)
}

func TestDecode_SchemaErrors(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "not json", body: "<html></html>"},
		{name: "missing key", body: `{"events": {}}`},
		{name: "key is a list", body: `{"voc_events": []}`},
		{name: "missing start", body: `{"voc_events": {"A": {"end_date": "2024-01-01", "cases": []}}}`},
		{name: "missing end", body: `{"voc_events": {"A": {"start_date": "2024-01-01", "cases": []}}}`},
		{name: "bad date", body: `{"voc_events": {"A": {"start_date": "01.01.2024", "end_date": "2024-01-01"}}}`},
		{name: "duplicate", body: `{"voc_events": {"A": {"start_date": "2024-01-01", "end_date": "2024-01-01"}, "A": {"start_date": "2024-01-01", "end_date": "2024-01-01"}}}`},
		{name: "cases not a list", body: `{"voc_events": {"A": {"start_date": "2024-01-01", "end_date": "2024-01-01", "cases": "1"}}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.body), DefaultKey)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrFeedFetch)
		})
	}
}

func TestFilter(t *testing.T) {
	doc := model.Document{
		{Name: "old", Start: day(2023, 12, 31)},
		{Name: "this year", Start: day(2024, 1, 1)},
		{Name: "next year", Start: day(2025, 1, 1)},
	}

	explicit := Filter(doc, 2024, &clock.MockClock{FixedNow: day(2030, 1, 1)})
	assert.Equal(t, []string{"this year"}, explicit.Names())

	clk := &clock.MockClock{FixedNow: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	implicit := Filter(doc, 0, clk)
	assert.Equal(t, []string{"this year", "next year"}, implicit.Names())

	// The implicit cutoff follows the clock across a year boundary.
	clk.SetNow(time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{"next year"}, Filter(doc, 0, clk).Names())
}

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	res, err := NewFetcher(Options{}).Fetch(context.Background(), srv.URL+"/events.json")
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.JSONEq(t, sampleFeed, string(res.Body))
}

func TestFetcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/not-modified":
			w.WriteHeader(http.StatusNotModified)
		}
	}))
	defer srv.Close()

	f := NewFetcher(Options{})
	for _, path := range []string{"/missing", "/not-modified"} {
		_, err := f.Fetch(context.Background(), srv.URL+path)
		require.Error(t, err, path)
		assert.ErrorIs(t, err, model.ErrFeedFetch, path)
	}

	_, err := f.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrFeedFetch)

	_, err = f.Fetch(context.Background(), "http://127.0.0.1:1/unreachable")
	assert.ErrorIs(t, err, model.ErrFeedFetch)
}

func TestFetcher_ConditionalCache(t *testing.T) {
	var hits, conditional atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := NewFetcher(Options{CachePath: filepath.Join(t.TempDir(), "feed-cache.db")})

	first, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)

	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, int32(1), conditional.Load())
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/path/events.json?token=abc"))
	assert.Equal(t, "feed://...(redacted)", redactURL("not a url"))
}
