package cmd

import (
	"context"
	"time"

	"github.com/urfave/cli"

	"voccal/internal/config"
	appLog "voccal/internal/log"
	"voccal/internal/pipeline"
	"voccal/internal/render"
	"voccal/internal/schedule"
)

const (
	AppName    = "voccal"
	AppVersion = "0.1.0"
)

// RenderFlags select the input and shape the output of one run. They are
// shared by the render and watch commands.
var RenderFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "document, d",
		Usage: "YAML event document to render",
	},
	&cli.StringFlag{
		Name:  "feed-url, u",
		Usage: "URL of the JSON event feed to render",
	},
	&cli.StringFlag{
		Name:  "feed-key",
		Usage: "Top-level key of the feed holding the events",
	},
	&cli.IntFlag{
		Name:  "year, y",
		Usage: "Calendar year (default: current year)",
	},
	&cli.BoolFlag{
		Name:  "monthly",
		Usage: "Render one timeline per month instead of one per year",
	},
	&cli.StringFlag{
		Name:  "prefix",
		Usage: "File name prefix of monthly timelines",
	},
	&cli.StringFlag{
		Name:  "suffix",
		Usage: "File name suffix of monthly timelines",
	},
	&cli.StringFlag{
		Name:  "output, o",
		Usage: "File name of the yearly timeline",
	},
	&cli.StringFlag{
		Name:  "out-dir",
		Usage: "Directory the files are written to",
	},
	&cli.BoolFlag{
		Name:  "png",
		Usage: "Also rasterize every timeline to PNG with headless Chromium",
	},
	&cli.BoolFlag{
		Name:  "ics",
		Usage: "Also export the events as an iCalendar file",
	},
	&cli.StringFlag{
		Name:  "digits",
		Usage: "How bare digit cases resolve: paired (S<n> and A<n>) or room",
	},
	&cli.StringFlag{
		Name:  "sort",
		Usage: "Event order: date or resource (default: date yearly, resource monthly)",
	},
	&cli.BoolFlag{
		Name:  "no-ranges",
		Usage: "Do not expand case ranges like 3-5",
	},
}

var RenderCmd = cli.Command{
	Name:   "render",
	Usage:  "Renders the event timelines once",
	Flags:  RenderFlags,
	Action: renderAct,
}

func renderAct(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	req, err := RequestFromConfig(cfg)
	if err != nil {
		return err
	}

	res, err := pipeline.New(nil).Run(context.Background(), req)
	if err != nil {
		return err
	}
	for _, f := range res.Files {
		appLog.Debug("written", "path", f)
	}
	return nil
}

// loadConfig reads the layered config and applies the flags set on c.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	applyFlags(c, cfg)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("document") {
		cfg.Document = c.String("document")
	}
	if c.IsSet("feed-url") {
		cfg.Feed.URL = c.String("feed-url")
	}
	// One input on the command line replaces the other from the config.
	if c.IsSet("document") && !c.IsSet("feed-url") {
		cfg.Feed.URL = ""
	}
	if c.IsSet("feed-url") && !c.IsSet("document") {
		cfg.Document = ""
	}
	if c.IsSet("feed-key") {
		cfg.Feed.Key = c.String("feed-key")
	}
	if c.IsSet("year") {
		cfg.Year = c.Int("year")
	}
	if c.IsSet("monthly") {
		cfg.Monthly = c.Bool("monthly")
	}
	if c.IsSet("prefix") {
		cfg.Output.Prefix = c.String("prefix")
	}
	if c.IsSet("suffix") {
		cfg.Output.Suffix = c.String("suffix")
	}
	if c.IsSet("output") {
		cfg.Output.File = c.String("output")
	}
	if c.IsSet("out-dir") {
		cfg.Output.Dir = c.String("out-dir")
	}
	if c.IsSet("png") {
		cfg.Output.PNG = c.Bool("png")
	}
	if c.IsSet("ics") {
		cfg.Output.ICS = c.Bool("ics")
	}
	if c.IsSet("digits") {
		cfg.Cases.Digits = c.String("digits")
	}
	if c.IsSet("sort") {
		cfg.Sort = c.String("sort")
	}
	if c.IsSet("no-ranges") {
		cfg.Cases.Ranges = !c.Bool("no-ranges")
	}
}

// RequestFromConfig maps the effective configuration to a pipeline request.
func RequestFromConfig(cfg *config.Config) (pipeline.Request, error) {
	digits, err := schedule.ParseDigitPolicy(cfg.Cases.Digits)
	if err != nil {
		return pipeline.Request{}, err
	}
	palette, err := schedule.ParsePalette(cfg.Palette)
	if err != nil {
		return pipeline.Request{}, err
	}
	var sort *schedule.SortMode
	if cfg.Sort != "" {
		mode, err := schedule.ParseSortMode(cfg.Sort)
		if err != nil {
			return pipeline.Request{}, err
		}
		sort = &mode
	}

	return pipeline.Request{
		DocumentPath: cfg.Document,
		FeedURL:      cfg.Feed.URL,
		FeedKey:      cfg.Feed.Key,
		FeedCache:    cfg.Feed.Cache,
		FeedTimeout:  time.Duration(cfg.Feed.Timeout) * time.Second,
		Year:         cfg.Year,
		Monthly:      cfg.Monthly,
		OutDir:       cfg.Output.Dir,
		Output:       cfg.Output.File,
		Prefix:       cfg.Output.Prefix,
		Suffix:       cfg.Output.Suffix,
		Normalizer:   schedule.Normalizer{Digits: digits, Ranges: cfg.Cases.Ranges},
		Palette:      palette,
		Sort:         sort,
		Render: render.Options{
			DayWidth:   cfg.Render.DayWidth,
			RowHeight:  cfg.Render.RowHeight,
			FontSize:   cfg.Render.FontSize,
			FontFamily: cfg.Render.FontFamily,
		},
		PNG: cfg.Output.PNG,
		ICS: cfg.Output.ICS,
	}, nil
}
