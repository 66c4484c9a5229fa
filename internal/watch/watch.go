// Package watch converts text files dropped into an inbox directory into
// .ics files on a cron schedule.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"icsconv/internal/config"
	"icsconv/internal/export"
	"icsconv/internal/extract"
	appLog "icsconv/internal/log"
)

// processedDir is created inside the inbox; converted sources move there.
const processedDir = "processed"

var inputExts = map[string]bool{".txt": true, ".json": true}

// Watcher scans Inbox, writes one .ics per source file into Outbox and
// moves the source to Inbox/processed. Files that fail stay in place and
// are retried on the next tick.
type Watcher struct {
	inbox    string
	outbox   string
	schedule string
	prodID   string
	strict   bool
	parser   *extract.Parser

	mu sync.Mutex
}

func New(cfg *config.Config, parser *extract.Parser) *Watcher {
	return &Watcher{
		inbox:    cfg.Watch.Inbox,
		outbox:   cfg.Watch.Outbox,
		schedule: cfg.Watch.Schedule,
		prodID:   cfg.ProdID,
		strict:   cfg.StrictValidation,
		parser:   parser,
	}
}

// Run performs one pass immediately, then one per schedule tick until ctx
// is canceled. Overlapping ticks are skipped.
func (w *Watcher) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{})))
	if _, err := c.AddFunc(w.schedule, func() { w.tick(ctx) }); err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", w.schedule, err)
	}

	appLog.Info("watch started", "inbox", w.inbox, "outbox", w.outbox, "schedule", w.schedule)
	w.tick(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	appLog.Info("watch stopped")
	return nil
}

func (w *Watcher) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := w.RunOnce(ctx)
	if err != nil {
		appLog.Error("watch pass finished with errors", err, "converted", n)
		return
	}
	if n > 0 {
		appLog.Info("watch pass finished", "converted", n)
	}
}

// RunOnce converts every pending inbox file and reports how many succeeded.
// The returned error joins the per-file failures.
func (w *Watcher) RunOnce(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries, err := os.ReadDir(w.inbox)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, os.MkdirAll(w.inbox, 0o755)
		}
		return 0, err
	}

	var (
		converted int
		errs      []error
	)
	for _, e := range entries {
		if e.IsDir() || !inputExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := w.convert(ctx, e.Name()); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		}
		converted++
	}
	return converted, errors.Join(errs...)
}

func (w *Watcher) convert(ctx context.Context, name string) error {
	src := filepath.Join(w.inbox, name)
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	events, format := w.parser.ParseWithFormat(string(data))
	out := strings.TrimSuffix(name, filepath.Ext(name)) + ".ics"

	x := export.New(w.prodID, w.strict, export.DirDeliverer{Dir: w.outbox})
	res := x.Export(ctx, events, out)
	if !res.Success {
		return fmt.Errorf("%s: %w", res.Message, res.Err)
	}

	done := filepath.Join(w.inbox, processedDir)
	if err := os.MkdirAll(done, 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, filepath.Join(done, name)); err != nil {
		return err
	}

	appLog.Debug("watch converted file", "source", name, "target", out, "format", format.String(), "event_count", len(events))
	return nil
}

// cronLogger routes cron's internal logging into the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}
