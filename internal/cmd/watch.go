package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli"

	"voccal/internal/clock"
	"voccal/internal/config"
	appLog "voccal/internal/log"
	"voccal/internal/pipeline"
	"voccal/internal/web"
)

var WatchCmd = cli.Command{
	Name:  "watch",
	Usage: "Re-renders on a cron schedule and serves the output over HTTP",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "refresh",
			Usage: "Cron schedule of the re-render, e.g. \"*/15 * * * *\"",
		},
		&cli.StringFlag{
			Name:  "listen",
			Usage: "HTTP listen address; empty disables the server",
		},
	}, RenderFlags...),
	Action: watchAct,
}

func watchAct(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("refresh") {
		cfg.Refresh = c.String("refresh")
	}
	if c.IsSet("listen") {
		cfg.Listen = c.String("listen")
	}
	req, err := RequestFromConfig(cfg)
	if err != nil {
		return err
	}
	if _, err := cron.ParseStandard(cfg.Refresh); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", cfg.Refresh, err)
	}

	appLog.Info("effective config",
		"document", cfg.Document,
		"feed", cfg.Feed.URL != "",
		"year", cfg.Year,
		"monthly", cfg.Monthly,
		"out_dir", cfg.Output.Dir,
		"refresh", cfg.Refresh,
		"listen", cfg.Listen,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return Watch(ctx, cfg, req, pipeline.New(clock.SystemClock{}))
}

// Watch renders once, then again on every tick of cfg.Refresh until ctx is
// canceled. Failed runs are logged; the server keeps the last good calendar.
func Watch(ctx context.Context, cfg *config.Config, req pipeline.Request, runner *pipeline.Runner) error {
	var srv *web.Server
	if cfg.Listen != "" {
		srv = web.NewServer(cfg)
	}

	run := func() {
		started := time.Now()
		res, err := runner.Run(ctx, req)
		if err != nil {
			appLog.Error("render failed", err)
			return
		}
		appLog.Info("render finished", "files", len(res.Files), "took", time.Since(started).String())
		if srv != nil {
			srv.Publish(res, time.Now())
		}
	}

	run()

	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{})))
	if _, err := sched.AddFunc(cfg.Refresh, run); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", cfg.Refresh, err)
	}
	sched.Start()
	defer func() {
		<-sched.Stop().Done()
	}()

	if srv == nil {
		<-ctx.Done()
		return nil
	}
	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// cronLogger routes cron's own messages to the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}
