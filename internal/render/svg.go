package render

import (
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"voccal/internal/model"
	"voccal/internal/schedule"
	"voccal/internal/window"
)

// View selects how rows are grouped.
type View int

const (
	// ByEvent draws one row per event.
	ByEvent View = iota
	// ByResource draws one row per resource with all its events.
	ByResource
)

func (v View) String() string {
	if v == ByResource {
		return "resources"
	}
	return "events"
}

func (v View) title() string {
	if v == ByResource {
		return "Resources"
	}
	return "Events"
}

// Layout defaults. Widths are in pixels.
const (
	defaultRowHeight    = 22
	defaultFontSize     = 12
	defaultFontFamily   = "DejaVu Sans, Verdana, sans-serif"
	yearDayWidth        = 4
	monthDayWidth       = 30
	headerHeight        = 46
	titleHeight         = 24
	labelPadding        = 8
	minLabelWidth       = 80
	footerHeight        = 8
	monthScaleThreshold = 62
)

// Options tunes the drawing. Zero values pick defaults.
type Options struct {
	// DayWidth fixes the width of one day column. If zero it depends on the
	// window length: narrow for a year, wide for a month.
	DayWidth   int
	RowHeight  int
	FontSize   int
	FontFamily string
	// Title is drawn above the chart; empty uses a generated one.
	Title string
}

// Renderer draws calendars as SVG Gantt charts.
type Renderer struct {
	opts Options
}

func New(opts Options) *Renderer {
	if opts.RowHeight <= 0 {
		opts.RowHeight = defaultRowHeight
	}
	if opts.FontSize <= 0 {
		opts.FontSize = defaultFontSize
	}
	if opts.FontFamily == "" {
		opts.FontFamily = defaultFontFamily
	}
	return &Renderer{opts: opts}
}

// bar is one clipped task on a row.
type bar struct {
	from, to time.Time
	color    model.Color
	label    string
	title    string
}

type row struct {
	label string
	bars  []bar
}

// Render writes an SVG timeline of cal restricted to win. today only places
// the "today" marker and is ignored when it lies outside the window.
func (r *Renderer) Render(w io.Writer, cal *model.Calendar, view View, win window.Window, today time.Time) error {
	if cal == nil {
		return errors.New("render: calendar is nil")
	}
	if win.End.Before(win.Start) {
		return fmt.Errorf("render: invalid window %s", win)
	}

	var rows []row
	if view == ByResource {
		rows = resourceRows(cal, win)
	} else {
		rows = eventRows(cal, win)
	}

	svg := r.draw(rows, view, win, today)
	_, err := io.WriteString(w, svg)
	return err
}

func eventRows(cal *model.Calendar, win window.Window) []row {
	rows := make([]row, 0, len(cal.Events))
	for _, ev := range cal.Events {
		from, to, ok := win.Clip(ev.Start, ev.End())
		if !ok {
			continue
		}
		ids := strings.Join(ev.ResourceIDs(), ", ")
		rows = append(rows, row{
			label: ev.Name,
			bars: []bar{{
				from:  from,
				to:    to,
				color: ev.Color,
				label: ids,
				title: taskTitle(ev),
			}},
		})
	}
	return rows
}

func resourceRows(cal *model.Calendar, win window.Window) []row {
	resources := make([]*model.Resource, len(cal.Resources))
	copy(resources, cal.Resources)
	schedule.SortResources(resources)

	rows := make([]row, 0, len(resources))
	for _, res := range resources {
		var bars []bar
		for _, ev := range cal.EventsFor(res) {
			from, to, ok := win.Clip(ev.Start, ev.End())
			if !ok {
				continue
			}
			bars = append(bars, bar{
				from:  from,
				to:    to,
				color: ev.Color,
				label: ev.Name,
				title: taskTitle(ev),
			})
		}
		if len(bars) == 0 {
			continue
		}
		rows = append(rows, row{label: res.ID, bars: bars})
	}
	return rows
}

func taskTitle(ev model.Event) string {
	return fmt.Sprintf("%s: %s – %s (%s)",
		ev.Name,
		ev.Start.Format(time.DateOnly),
		ev.End().Format(time.DateOnly),
		strings.Join(ev.ResourceIDs(), ", "),
	)
}

func (r *Renderer) dayWidth(win window.Window) int {
	if r.opts.DayWidth > 0 {
		return r.opts.DayWidth
	}
	if win.Days() > monthScaleThreshold {
		return yearDayWidth
	}
	return monthDayWidth
}

// labelWidth fits the widest row label, using an average glyph width of
// 0.62 em per terminal cell.
func (r *Renderer) labelWidth(rows []row) int {
	cells := 0
	for _, rw := range rows {
		if n := runewidth.StringWidth(rw.label); n > cells {
			cells = n
		}
	}
	w := int(float64(cells)*float64(r.opts.FontSize)*0.62) + 2*labelPadding
	if w < minLabelWidth {
		return minLabelWidth
	}
	return w
}

func (r *Renderer) draw(rows []row, view View, win window.Window, today time.Time) string {
	dayW := r.dayWidth(win)
	labelW := r.labelWidth(rows)
	rowH := r.opts.RowHeight
	days := win.Days()

	chartX := labelW
	chartY := titleHeight + headerHeight
	width := chartX + days*dayW + labelPadding
	height := chartY + len(rows)*rowH + footerHeight

	title := r.opts.Title
	if title == "" {
		title = fmt.Sprintf("%s %s", view.title(), win)
	}

	var svg strings.Builder
	fmt.Fprintf(&svg, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="%s" font-size="%d">
`, width, height, width, height, html.EscapeString(r.opts.FontFamily), r.opts.FontSize)
	fmt.Fprintf(&svg, `<rect x="0" y="0" width="%d" height="%d" fill="#ffffff"/>
`, width, height)
	fmt.Fprintf(&svg, `<text x="%d" y="%d" font-size="%d" font-weight="bold">%s</text>
`, labelPadding, titleHeight-6, r.opts.FontSize+4, html.EscapeString(title))

	xOf := func(t time.Time) int {
		return chartX + window.DaysBetween(win.Start, t)*dayW
	}

	// Row stripes.
	for i := range rows {
		if i%2 == 1 {
			fmt.Fprintf(&svg, `<rect x="0" y="%d" width="%d" height="%d" fill="#f4f4f4"/>
`, chartY+i*rowH, width, rowH)
		}
	}

	if days > monthScaleThreshold {
		r.drawYearScale(&svg, win, xOf, chartY, height)
	} else {
		r.drawMonthScale(&svg, win, xOf, dayW, chartY, height)
	}

	// Rows.
	for i, rw := range rows {
		y := chartY + i*rowH
		fmt.Fprintf(&svg, `<text x="%d" y="%d">%s</text>
`, labelPadding, y+rowH/2+r.opts.FontSize/2-2, html.EscapeString(rw.label))
		for _, b := range rw.bars {
			x := xOf(b.from)
			bw := (window.DaysBetween(b.from, b.to) + 1) * dayW
			fill, stroke, ink := shades(b.color)
			fmt.Fprintf(&svg, `<g><title>%s</title><rect x="%d" y="%d" width="%d" height="%d" rx="2" fill="%s" stroke="%s" stroke-width="1"/>`,
				html.EscapeString(b.title), x, y+3, bw, rowH-6, fill, stroke)
			if fits(b.label, bw, r.opts.FontSize) {
				fmt.Fprintf(&svg, `<text x="%d" y="%d" fill="%s">%s</text>`,
					x+3, y+rowH/2+r.opts.FontSize/2-2, ink, html.EscapeString(b.label))
			}
			svg.WriteString("</g>\n")
		}
	}

	if win.Contains(today) {
		x := xOf(today) + dayW/2
		fmt.Fprintf(&svg, `<line class="today" x1="%d" y1="%d" x2="%d" y2="%d" stroke="#e00000" stroke-width="2"/>
`, x, titleHeight, x, height-footerHeight)
	}

	svg.WriteString("</svg>\n")
	return svg.String()
}

func (r *Renderer) drawYearScale(svg *strings.Builder, win window.Window, xOf func(time.Time) int, chartY, height int) {
	for m := win.Start; !m.After(win.End); m = m.AddDate(0, 1, 0) {
		x := xOf(m)
		fmt.Fprintf(svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#c8c8c8" stroke-width="1"/>
`, x, titleHeight, x, height-footerHeight)
		fmt.Fprintf(svg, `<text x="%d" y="%d">%s</text>
`, x+3, chartY-headerHeight/2+2, m.Format("Jan 2006"))
	}
}

func (r *Renderer) drawMonthScale(svg *strings.Builder, win window.Window, xOf func(time.Time) int, dayW, chartY, height int) {
	fmt.Fprintf(svg, `<text x="%d" y="%d" font-weight="bold">%s</text>
`, xOf(win.Start)+3, chartY-headerHeight+r.opts.FontSize+2, win.Start.Format("January 2006"))
	for d := win.Start; !d.After(win.End); d = d.AddDate(0, 0, 1) {
		x := xOf(d)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			fmt.Fprintf(svg, `<rect x="%d" y="%d" width="%d" height="%d" fill="#e8eef7" fill-opacity="0.6"/>
`, x, chartY, dayW, height-footerHeight-chartY)
		}
		fmt.Fprintf(svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#dddddd" stroke-width="1"/>
`, x, chartY-headerHeight/2, x, height-footerHeight)
		fmt.Fprintf(svg, `<text x="%d" y="%d" text-anchor="middle">%d</text>
`, x+dayW/2, chartY-6, d.Day())
	}
}

// shades returns the fill, a darker stroke and a readable text color for c.
// Invalid colors render grey.
func shades(c model.Color) (fill, stroke, ink string) {
	col, err := colorful.Hex(string(c))
	if err != nil {
		col = colorful.Color{R: 0.6, G: 0.6, B: 0.6}
	}
	black := colorful.Color{}
	stroke = col.BlendLab(black, 0.35).Clamped().Hex()
	ink = "#000000"
	if l, _, _ := col.Lab(); l < 0.55 {
		ink = "#ffffff"
	}
	return col.Hex(), stroke, ink
}

func fits(label string, width, fontSize int) bool {
	return float64(runewidth.StringWidth(label))*float64(fontSize)*0.62+6 <= float64(width)
}
