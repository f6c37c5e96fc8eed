// Package inbox turns JSON files dropped into a directory tree into runs.
//
// Layout under the root:
//
//	rubrics/        rubric definitions, each triggers a build run
//	applications/   application submissions, each triggers an evaluate run
//	processed/      accepted files, moved here after the handler returns
//	failed/         files the handler rejected
//
// Writers should create files elsewhere and rename them into the inbox so
// the watcher never sees a partially written file.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type Kind string

const (
	KindRubric      Kind = "rubrics"
	KindApplication Kind = "applications"

	processedDir = "processed"
	failedDir    = "failed"
	extension    = ".json"
)

// Handler accepts the content of one inbox file. It must not block on the
// run itself; returning an error moves the file to failed/.
type Handler func(ctx context.Context, kind Kind, name string, data []byte) error

type Watcher struct {
	root    string
	handler Handler
	logger  *zap.Logger
}

func New(root string, handler Handler, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{root: root, handler: handler, logger: logger}
}

// Dir is the directory watched for the given kind.
func (w *Watcher) Dir(kind Kind) string {
	return filepath.Join(w.root, string(kind))
}

// Run watches the inbox until ctx is cancelled. Files already present when
// Run starts are handled first.
func (w *Watcher) Run(ctx context.Context) error {
	kinds := []Kind{KindRubric, KindApplication}
	for _, kind := range kinds {
		for _, dir := range []string{w.Dir(kind), filepath.Join(w.root, processedDir, string(kind)), filepath.Join(w.root, failedDir, string(kind))} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating inbox directory: %w", err)
			}
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	for _, kind := range kinds {
		if err := watcher.Add(w.Dir(kind)); err != nil {
			return fmt.Errorf("watching %s: %w", w.Dir(kind), err)
		}
	}

	for _, kind := range kinds {
		if err := w.scan(ctx, kind); err != nil {
			return err
		}
	}

	w.logger.Info("watching inbox", zap.String("root", w.root))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			kind, ok := w.kindOf(event.Name)
			if !ok {
				continue
			}
			w.handle(ctx, kind, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) scan(ctx context.Context, kind Kind) error {
	entries, err := os.ReadDir(w.Dir(kind))
	if err != nil {
		return fmt.Errorf("listing %s: %w", w.Dir(kind), err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == extension {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		w.handle(ctx, kind, filepath.Join(w.Dir(kind), name))
	}
	return nil
}

func (w *Watcher) kindOf(path string) (Kind, bool) {
	if filepath.Ext(path) != extension || strings.HasPrefix(filepath.Base(path), ".") {
		return "", false
	}
	dir := filepath.Dir(path)
	for _, kind := range []Kind{KindRubric, KindApplication} {
		if dir == w.Dir(kind) {
			return kind, true
		}
	}
	return "", false
}

func (w *Watcher) handle(ctx context.Context, kind Kind, path string) {
	name := filepath.Base(path)
	log := w.logger.With(zap.String("kind", string(kind)), zap.String("file", name))

	data, err := os.ReadFile(path)
	if err != nil {
		// Already handled by the initial scan, or renamed away again.
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("reading inbox file failed", zap.Error(err))
		}
		return
	}

	target := processedDir
	if err := w.handler(ctx, kind, name, data); err != nil {
		log.Error("inbox file rejected", zap.Error(err))
		target = failedDir
	}

	dest := filepath.Join(w.root, target, string(kind), name)
	if err := os.Rename(path, dest); err != nil {
		log.Warn("moving inbox file failed", zap.String("destination", dest), zap.Error(err))
		return
	}
	log.Debug("inbox file moved", zap.String("destination", dest))
}
