package inbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/spigell/bidwin/internal/document"
	"github.com/spigell/bidwin/internal/pipeline"
	"github.com/spigell/bidwin/internal/tender"
)

// Registrar records tender documents as new RFPs.
type Registrar interface {
	Register(ctx context.Context, reg pipeline.Registration) (*tender.RFP, bool, error)
}

// Watcher registers every tender document dropped into a directory.
type Watcher struct {
	dir       string
	registrar Registrar
	logger    *zap.Logger
}

func NewWatcher(dir string, registrar Registrar, logger *zap.Logger) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("inbox directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve inbox directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{dir: abs, registrar: registrar, logger: logger}, nil
}

// Scan registers the documents already present in the directory and returns
// the number of newly created RFPs.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("read inbox: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && document.Supported(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	created := 0
	for _, name := range names {
		ok, err := w.register(ctx, filepath.Join(w.dir, name))
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	return created, nil
}

// Run scans the directory once and then registers new documents as they
// appear, until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	created, err := w.Scan(ctx)
	if err != nil {
		return err
	}
	w.logger.Info("inbox watching", zap.String("dir", w.dir), zap.Int("registered", created))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !document.Supported(event.Name) {
				continue
			}
			if _, err := w.register(ctx, event.Name); err != nil {
				w.logger.Warn("failed to register document", zap.String("file", event.Name), zap.Error(err))
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) register(ctx context.Context, path string) (bool, error) {
	rfp, created, err := w.registrar.Register(ctx, pipeline.Registration{Path: path})
	if err != nil {
		return false, fmt.Errorf("register %s: %w", path, err)
	}
	if created {
		w.logger.Info("new tender found", zap.Int("rfp_id", rfp.ID), zap.String("file", path))
	}
	return created, nil
}
