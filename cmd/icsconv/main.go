package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"icsconv/internal/config"
	"icsconv/internal/datetime"
	"icsconv/internal/export"
	"icsconv/internal/extract"
	"icsconv/internal/ics"
	appLog "icsconv/internal/log"
	"icsconv/internal/watch"
	"icsconv/internal/web"
)

type flagConfig struct {
	configPath string
	mode       string
	listen     string
	in         string
	out        string
	filename   string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		// First-run save failed; defaults are still usable.
		appLog.Error("failed to write default config", err, "config_path", flags.configPath)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	defer appLog.Sync()

	appLog.Debug("effective config",
		"mode", flags.mode,
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"strict_validation", conf.StrictValidation,
		"subject_count", len(conf.Subjects),
		"watch_inbox", conf.Watch.Inbox,
		"watch_schedule", conf.Watch.Schedule,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	parser := extract.New(
		extract.WithTimezone(conf.Timezone),
		extract.WithSubjectMatcher(extract.NewSubjectMatcher(conf.Subjects...)),
	)

	switch flags.mode {
	case "convert":
		err = runConvert(ctx, conf, parser, flags)
	case "serve":
		err = web.StartServer(ctx, conf, parser)
	case "watch":
		err = watch.New(conf, parser).Run(ctx)
	case "inspect":
		err = runInspect(conf, flags)
	default:
		err = fmt.Errorf("unknown mode %q", flags.mode)
	}
	if err != nil {
		appLog.Error("icsconv failed", err, "mode", flags.mode)
		appLog.Sync()
		os.Exit(1)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./icsconv.yaml", "Path to config file")
	flag.StringVar(&cfg.mode, "mode", "convert", "convert | serve | watch | inspect")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.in, "in", "-", "Input file; - reads stdin")
	flag.StringVar(&cfg.out, "out", "", "Output directory for convert; - writes to stdout (default: config output_dir)")
	flag.StringVar(&cfg.filename, "filename", "", "Output file name (derived from the events if empty)")

	flag.Parse()

	return cfg
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// runConvert parses one input and exports it to a directory or stdout.
func runConvert(ctx context.Context, conf *config.Config, parser *extract.Parser, flags flagConfig) error {
	data, err := readInput(flags.in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	events, format := parser.ParseWithFormat(string(data))
	appLog.Info("parsed input", "format", format.String(), "event_count", len(events))

	var d export.Deliverer
	outDir := flags.out
	if outDir == "" {
		outDir = conf.OutputDir
	}
	if outDir == "-" {
		d = export.WriterDeliverer{W: os.Stdout}
	} else {
		d = export.DirDeliverer{Dir: outDir}
	}

	res := export.New(conf.ProdID, conf.StrictValidation, d).Export(ctx, events, flags.filename)
	if !res.Success {
		if res.Err != nil {
			return fmt.Errorf("%s: %w", res.Message, res.Err)
		}
		return errors.New(res.Message)
	}
	appLog.Info(res.Message, "filename", res.Filename)
	return nil
}

// runInspect decodes an .ics file and prints its events as JSON.
func runInspect(conf *config.Config, flags flagConfig) error {
	data, err := readInput(flags.in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	events, err := ics.Decode(data, datetime.ResolveLocation(conf.Timezone))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(events)
}
