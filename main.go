package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/pooldeck/internal/audiograph"
	"github.com/olivier-w/pooldeck/internal/canvas"
	"github.com/olivier-w/pooldeck/internal/config"
	"github.com/olivier-w/pooldeck/internal/crate"
	"github.com/olivier-w/pooldeck/internal/media"
	"github.com/olivier-w/pooldeck/internal/peaks"
	"github.com/olivier-w/pooldeck/internal/player"
	"github.com/olivier-w/pooldeck/internal/source"
	"github.com/olivier-w/pooldeck/internal/ui"
	"github.com/olivier-w/pooldeck/internal/util"
)

const usage = `usage:
  pooldeck [--start m:ss] <file|dir|crate.m3u|url>
  pooldeck peaks <ref> [samples]`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := config.New(config.DefaultPath())
	if err := cfg.Load(); err != nil {
		return err
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fetcher := &source.Fetcher{}
	if cfg.S3.IsConfigured() {
		fetcher.S3 = source.NewS3Client(cfg.S3)
	}

	if len(args) > 0 && args[0] == "peaks" {
		return runPeaks(ctx, fetcher, args[1:], cfg.Waveform.Samples)
	}

	inv, err := parseArgs(args)
	if err != nil {
		return err
	}
	return runDeck(ctx, cfg, fetcher, inv)
}

// invocation is the parsed deck command line.
type invocation struct {
	target  string
	startAt time.Duration
}

func parseArgs(args []string) (invocation, error) {
	var inv invocation
	for i := 0; i < len(args); i++ {
		switch a := args[i]; a {
		case "--start", "-s":
			if i+1 >= len(args) {
				return inv, fmt.Errorf("%s needs a position like 1:30", a)
			}
			i++
			d, err := util.ParseDuration(args[i])
			if err != nil {
				return inv, fmt.Errorf("invalid start position %q: %w", args[i], err)
			}
			inv.startAt = d
		case "-h", "--help":
			return inv, fmt.Errorf("%s", usage)
		default:
			if inv.target != "" {
				return inv, fmt.Errorf("unexpected argument %q\n%s", a, usage)
			}
			inv.target = a
		}
	}
	if inv.target == "" {
		return inv, fmt.Errorf("%s", usage)
	}
	return inv, nil
}

func runPeaks(ctx context.Context, fetcher *source.Fetcher, args []string, samples int) error {
	if len(args) == 0 {
		return fmt.Errorf("%s", usage)
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid sample count %q", args[1])
		}
		samples = n
	}
	e := &peaks.Extractor{Fetcher: fetcher, Logger: slog.Default()}
	profile := e.Extract(ctx, args[0], samples)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(profile)
}

func runDeck(ctx context.Context, cfg *config.Config, fetcher *source.Fetcher, inv invocation) error {
	opened, err := openCrate(inv.target)
	if err != nil {
		return err
	}
	c := crate.New(opened.refs, player.ReadMetadata)
	c.SetCurrentIndex(opened.start)

	var watch <-chan string
	if cfg.Watch.Enabled && opened.dir != "" {
		watch, err = media.Watch(ctx, opened.dir, slog.Default())
		if err != nil {
			slog.Warn("watch folder unavailable", "dir", opened.dir, "error", err)
		}
	}

	p := player.New(fetcher, cfg.Playback.Volume)
	defer p.Close()

	graph := audiograph.New(audiograph.NewOtoFactory(44100, 2), audiograph.Options{
		FFTSize:        audiograph.DefaultFFTSize,
		StartSuspended: cfg.Playback.StartSuspended,
		Logger:         slog.Default(),
	})

	model := ui.New(ui.Options{
		Context:   ctx,
		Player:    p,
		Graph:     graph,
		Extractor: &peaks.Extractor{Fetcher: fetcher, Logger: slog.Default()},
		Crate:     c,
		Config:    cfg,
		Logger:    slog.Default(),
		Profile:   canvas.DetectProfile(),
		Watch:     watch,
		StartAt:   inv.startAt,
	})

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// setupLogging routes slog to the log file; the terminal belongs to the UI.
func setupLogging(cfg *config.Config) (func(), error) {
	path := cfg.LogPath
	if env := os.Getenv("POOLDECK_LOG"); env != "" {
		path = env
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	level := slog.LevelInfo
	if os.Getenv("POOLDECK_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})))
	return func() { f.Close() }, nil
}
