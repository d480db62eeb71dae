package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"voccal/internal/capture"
	"voccal/internal/clock"
	"voccal/internal/document"
	"voccal/internal/feed"
	"voccal/internal/ics"
	appLog "voccal/internal/log"
	"voccal/internal/model"
	"voccal/internal/render"
	"voccal/internal/schedule"
	"voccal/internal/window"
)

// ResourcesPrefix is prepended to the file name of the resource view.
const ResourcesPrefix = "resources-"

// Request describes one run. Exactly one of DocumentPath and FeedURL must
// be set.
type Request struct {
	DocumentPath string

	FeedURL     string
	FeedKey     string
	FeedCache   string
	FeedTimeout time.Duration

	// Year is the calendar year; 0 means the current one.
	Year    int
	Monthly bool

	OutDir string
	// Output is the yearly file name. In monthly mode it only names the
	// optional .ics file.
	Output string
	Prefix string
	Suffix string

	Normalizer schedule.Normalizer
	Palette    []model.Color
	Render     render.Options

	// Sort overrides the event order. If nil, yearly runs sort by date and
	// monthly runs by resource.
	Sort *schedule.SortMode

	PNG bool
	ICS bool
}

// Result reports what a run produced.
type Result struct {
	Year     int
	Calendar *model.Calendar
	// Files lists every written path in a stable order.
	Files []string
}

// target is one rendered file.
type target struct {
	win  window.Window
	view render.View
	path string
}

// Runner executes requests. The zero value is not usable; use New.
type Runner struct {
	Clock clock.Clock
	// Rasterize converts SVGs to PNGs when Request.PNG is set.
	Rasterize func(ctx context.Context, opts capture.Options) error
}

func New(clk clock.Clock) *Runner {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Runner{Clock: clk, Rasterize: capture.RasterizeSVG}
}

func (req Request) validate() error {
	switch {
	case req.DocumentPath == "" && req.FeedURL == "":
		return model.InvocationErrorf("either a document path or a feed URL is required")
	case req.DocumentPath != "" && req.FeedURL != "":
		return model.InvocationErrorf("document path and feed URL are mutually exclusive")
	case !req.Monthly && req.Output == "":
		return model.InvocationErrorf("an output file name is required")
	case req.Monthly && req.Prefix == "" && req.Suffix == "":
		return model.InvocationErrorf("monthly output needs a prefix or a suffix")
	case req.Year < 0:
		return model.InvocationErrorf("invalid year %d", req.Year)
	}
	return nil
}

// Run loads the input, assembles the calendar once and renders both views
// for every required window. Every file is staged next to its destination
// and renamed into place only after all of them succeeded, so a failed run
// leaves the previous outputs untouched.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	year := window.ResolveYear(req.Year, r.Clock)
	targets := r.targets(req, year)
	covered := window.Window{Start: targets[0].win.Start, End: targets[len(targets)-1].win.End}

	doc, err := r.load(ctx, req, covered)
	if err != nil {
		return nil, err
	}

	mode := schedule.ByDate
	if req.Monthly {
		mode = schedule.ByResource
	}
	if req.Sort != nil {
		mode = *req.Sort
	}
	asm := &schedule.Assembler{Normalizer: req.Normalizer, Palette: req.Palette}
	cal := asm.Assemble(doc, mode)

	st := &stager{}
	files, err := r.write(ctx, req, cal, targets, covered, st)
	if err == nil {
		err = st.commit()
	}
	if err != nil {
		st.rollback()
		return nil, err
	}

	appLog.Info("calendar rendered",
		"year", year,
		"monthly", req.Monthly,
		"events", len(cal.Events),
		"resources", len(cal.Resources),
		"files", len(files),
	)
	return &Result{Year: year, Calendar: cal, Files: files}, nil
}

func (r *Runner) load(ctx context.Context, req Request, covered window.Window) (model.Document, error) {
	if req.FeedURL != "" {
		fetcher := feed.NewFetcher(feed.Options{Timeout: req.FeedTimeout, CachePath: req.FeedCache})
		res, err := fetcher.Fetch(ctx, req.FeedURL)
		if err != nil {
			return nil, err
		}
		doc, err := feed.Decode(res.Body, req.FeedKey)
		if err != nil {
			return nil, err
		}
		return feed.Filter(doc, req.Year, r.Clock), nil
	}

	doc, err := document.Load(req.DocumentPath)
	if err != nil {
		return nil, err
	}
	return document.ExpandRecurring(doc, document.ExpandConfig{Range: covered})
}

func (r *Runner) targets(req Request, year int) []target {
	views := []render.View{render.ByEvent, render.ByResource}

	var out []target
	add := func(win window.Window, name string) {
		for _, v := range views {
			file := name
			if v == render.ByResource {
				file = ResourcesPrefix + name
			}
			out = append(out, target{win: win, view: v, path: filepath.Join(req.OutDir, file)})
		}
	}

	if !req.Monthly {
		add(window.ForYear(year), req.Output)
		return out
	}
	for _, m := range window.MonthlySeries(year) {
		add(m.Window, MonthlyName(req.Prefix, m.Month, req.Suffix))
	}
	return out
}

// MonthlyName builds "<prefix><MM><suffix>" with a zero-padded month.
func MonthlyName(prefix string, month int, suffix string) string {
	return fmt.Sprintf("%s%02d%s", prefix, month, suffix)
}

func (r *Runner) write(ctx context.Context, req Request, cal *model.Calendar, targets []target, covered window.Window, st *stager) ([]string, error) {
	if req.OutDir != "" {
		if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("pipeline: create output dir: %w", err)
		}
	}

	renderer := render.New(req.Render)
	today := clock.Today(r.Clock)

	// svgTmp[i] is the temp file holding targets[i].
	svgTmp := make([]string, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, t := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tmp, err := st.stage(t.path, func(f *os.File) error {
				return renderer.Render(f, cal, t.view, t.win, today)
			})
			svgTmp[i] = tmp
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline: render: %w", err)
	}

	files := make([]string, 0, len(targets)*2+1)
	for _, t := range targets {
		files = append(files, t.path)
	}

	// Chromium instances are heavy; rasterize one at a time.
	if req.PNG {
		for i, t := range targets {
			png := capture.PNGPath(t.path)
			tmp, err := st.reserve(png)
			if err != nil {
				return nil, fmt.Errorf("pipeline: rasterize %s: %w", t.path, err)
			}
			if err := r.Rasterize(ctx, capture.Options{SVGPath: svgTmp[i], OutputPath: tmp}); err != nil {
				return nil, fmt.Errorf("pipeline: rasterize %s: %w", t.path, err)
			}
			files = append(files, png)
		}
	}

	if req.ICS {
		path := filepath.Join(req.OutDir, icsName(req.Output))
		_, err := st.stage(path, func(f *os.File) error {
			return ics.Export(f, cal, ics.ExportOptions{Range: &covered, Stamp: r.Clock.Now()})
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline: ics: %w", err)
		}
		files = append(files, path)
	}

	return files, nil
}

func icsName(output string) string {
	if output == "" {
		return "calendar.ics"
	}
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".ics"
}

// stager collects the temp files of one run and their destinations.
type stager struct {
	mu     sync.Mutex
	staged []staged
}

type staged struct {
	tmp, dest string
}

// reserve creates an empty temp file beside dest, keeping its extension so
// tools that sniff file names (Chromium) treat it like the final file.
func (st *stager) reserve(dest string) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".voccal-*"+filepath.Ext(dest))
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	st.mu.Lock()
	st.staged = append(st.staged, staged{tmp: name, dest: dest})
	st.mu.Unlock()
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return name, nil
}

// stage writes the content for dest into a reserved temp file.
func (st *stager) stage(dest string, fill func(f *os.File) error) (string, error) {
	name, err := st.reserve(dest)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", err
	}
	if err := fill(f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

// commit renames every staged file into place.
func (st *stager) commit() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i, s := range st.staged {
		if err := os.Chmod(s.tmp, 0o644); err != nil {
			st.staged = st.staged[i:]
			return err
		}
		if err := os.Rename(s.tmp, s.dest); err != nil {
			st.staged = st.staged[i:]
			return fmt.Errorf("pipeline: publish %s: %w", s.dest, err)
		}
	}
	st.staged = nil
	return nil
}

// rollback removes the temp files that were not published.
func (st *stager) rollback() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, s := range st.staged {
		if err := os.Remove(s.tmp); err != nil && !os.IsNotExist(err) {
			appLog.Warn("failed to remove staged output", "path", s.tmp, "err", err)
		}
	}
	st.staged = nil
}
