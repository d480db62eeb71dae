package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// Default rasterization parameters. Width and height only size the
// viewport; the screenshot covers the whole SVG.
const (
	DefaultWidth      = 1600
	DefaultHeight     = 900
	DefaultTimeoutSec = 30
)

// Options defines one SVG to PNG rasterization.
type Options struct {
	// SVGPath is the rendered timeline on disk.
	SVGPath string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the entire capture. If zero, DefaultTimeoutSec is used.
	Timeout time.Duration
}

func (o *Options) normalize() error {
	if o.SVGPath == "" {
		return fmt.Errorf("capture: SVGPath is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return nil
}

// fileURL turns path into an absolute file:// URL Chromium can navigate to.
func fileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// RasterizeSVG opens the SVG in headless Chromium via chromedp and writes
// a full-page PNG screenshot of it.
func RasterizeSVG(parentCtx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}
	if _, err := os.Stat(opts.SVGPath); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	url, err := fileURL(opts.SVGPath)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(url),
		chromedp.WaitReady("svg", chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	return nil
}

// PNGPath maps an SVG output path to its PNG sibling.
func PNGPath(svgPath string) string {
	ext := filepath.Ext(svgPath)
	return svgPath[:len(svgPath)-len(ext)] + ".png"
}
