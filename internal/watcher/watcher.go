// Package watcher translates subtitle files as they appear in a directory.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler processes one settled subtitle file.
type Handler func(ctx context.Context, path string) error

type Options struct {
	Dir           string
	Settle        time.Duration // quiet period after the last write before a file is handled
	MaxConcurrent int
	Backfill      bool                   // handle .srt files already present at start
	Skip          func(path string) bool // files the handler itself produces
	Logger        *zap.Logger
}

// Watcher hands every .srt file created or rewritten in a directory to a Handler,
// once the file has stopped changing.
type Watcher struct {
	opts      Options
	handler   Handler
	logger    *zap.Logger
	fs        *fsnotify.Watcher
	semaphore chan struct{}
	wg        sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]bool
}

// New starts watching opts.Dir. Call Run to process events and Close when done.
func New(opts Options, handler Handler) (*Watcher, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.Settle <= 0 {
		opts.Settle = 500 * time.Millisecond
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fs.Add(opts.Dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	return &Watcher{
		opts:      opts,
		handler:   handler,
		logger:    opts.Logger.With(zap.String("component", "watcher"), zap.String("dir", opts.Dir)),
		fs:        fs,
		semaphore: make(chan struct{}, opts.MaxConcurrent),
		inflight:  make(map[string]bool),
	}, nil
}

// Run processes events until ctx is cancelled, then waits for running handlers and
// returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching for subtitles", zap.Int("max_concurrent", w.opts.MaxConcurrent))

	ready := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
		w.wg.Wait()
	}()

	schedule := func(path string) {
		if t, ok := timers[path]; ok {
			t.Reset(w.opts.Settle)
			return
		}
		timers[path] = time.AfterFunc(w.opts.Settle, func() {
			select {
			case ready <- path:
			case <-ctx.Done():
			}
		})
	}

	if w.opts.Backfill {
		existing, err := w.existing()
		if err != nil {
			return err
		}
		for _, path := range existing {
			schedule(path)
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping")
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.wanted(event.Name) {
				w.logger.Debug("ignoring file", zap.String("path", event.Name))
				continue
			}
			schedule(event.Name)

		case path := <-ready:
			delete(timers, path)
			if err := w.dispatch(ctx, path); err != nil {
				return err
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, path string) error {
	w.mu.Lock()
	if w.inflight[path] {
		w.mu.Unlock()
		w.logger.Debug("already processing", zap.String("path", path))
		return nil
	}
	w.inflight[path] = true
	w.mu.Unlock()

	// Blocks while MaxConcurrent files are being handled.
	select {
	case w.semaphore <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			<-w.semaphore
			w.mu.Lock()
			delete(w.inflight, path)
			w.mu.Unlock()
		}()

		start := time.Now()
		if err := w.handler(ctx, path); err != nil {
			w.logger.Error("failed to process subtitle", zap.String("path", path), zap.Error(err))
			return
		}
		w.logger.Info("processed subtitle", zap.String("path", path), zap.Duration("took", time.Since(start)))
	}()
	return nil
}

func (w *Watcher) wanted(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".srt") {
		return false
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return w.opts.Skip == nil || !w.opts.Skip(path)
}

func (w *Watcher) existing() ([]string, error) {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", w.opts.Dir, err)
	}
	var paths []string
	for _, e := range entries {
		path := filepath.Join(w.opts.Dir, e.Name())
		if e.Type().IsRegular() && w.wanted(path) {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// Close stops the underlying file watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
