package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must go without writes before it is
// picked up.
const DefaultSettle = 2 * time.Second

// WatchConfig configures a Watcher.
type WatchConfig struct {
	Inbox   string
	Archive string
	Failed  string
	// Settle defaults to DefaultSettle.
	Settle time.Duration
	// OnOutcome, when set, is called after each document is moved.
	OnOutcome func(Outcome)
	Logger    *slog.Logger
}

// Watcher processes documents dropped into an inbox directory. Each file
// is moved to the archive directory when it produced a record and to the
// failed directory otherwise, with a .error.txt note beside it.
type Watcher struct {
	svc *Service
	cfg WatchConfig

	mu      sync.Mutex
	pending map[string]*time.Timer
	queue   chan string
}

// NewWatcher creates a watcher feeding svc.
func NewWatcher(svc *Service, cfg WatchConfig) (*Watcher, error) {
	if cfg.Inbox == "" || cfg.Archive == "" || cfg.Failed == "" {
		return nil, fmt.Errorf("watch: inbox, archive and failed directories are required")
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Watcher{
		svc:     svc,
		cfg:     cfg,
		pending: make(map[string]*time.Timer),
		queue:   make(chan string, 64),
	}, nil
}

// Run watches the inbox until ctx is done. Files already in the inbox are
// processed first. Documents are processed one at a time.
func (w *Watcher) Run(ctx context.Context) error {
	for _, dir := range []string{w.cfg.Inbox, w.cfg.Archive, w.cfg.Failed} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.cfg.Inbox); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Inbox, err)
	}

	existing, err := w.scan()
	if err != nil {
		return err
	}
	for _, path := range existing {
		w.schedule(ctx, path, 0)
	}
	w.cfg.Logger.Info("watching inbox", "dir", w.cfg.Inbox, "existing", len(existing))

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.consume(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			<-done
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				if Supported(ev.Name) {
					w.schedule(ctx, ev.Name, w.cfg.Settle)
				}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			w.cfg.Logger.Warn("watch error", "error", err)
		}
	}
}

// scan returns the supported files already in the inbox.
func (w *Watcher) scan() ([]string, error) {
	entries, err := os.ReadDir(w.cfg.Inbox)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && Supported(e.Name()) {
			out = append(out, filepath.Join(w.cfg.Inbox, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// schedule queues path after it has been quiet for delay. A new event for
// the same path restarts the delay.
func (w *Watcher) schedule(ctx context.Context, path string, delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(delay)
		return
	}
	w.pending[path] = time.AfterFunc(delay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.queue <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.queue:
			if _, err := os.Stat(path); err != nil {
				continue // moved or deleted before we got to it
			}
			w.handle(ctx, path)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	log := w.cfg.Logger.With("path", path)
	out := w.svc.One(ctx, path)
	if ctx.Err() != nil {
		// Leave the file in the inbox for the next run.
		return
	}

	dest := w.cfg.Archive
	if !out.OK() {
		dest = w.cfg.Failed
	}
	moved, err := moveInto(path, dest)
	if err != nil {
		log.Error("failed to move document", "dest", dest, "error", err)
		return
	}
	if !out.OK() {
		if err := writeErrorNote(moved, out); err != nil {
			log.Warn("failed to write error note", "error", err)
		}
		log.Warn("document failed", "moved_to", moved, "error", out.Err)
	} else {
		log.Info("document archived", "moved_to", moved)
	}
	if w.cfg.OnOutcome != nil {
		w.cfg.OnOutcome(out)
	}
}

// moveInto moves path into dir, adding a timestamp when the name is taken.
func moveInto(path, dir string) (string, error) {
	base := filepath.Base(path)
	dest := filepath.Join(dir, base)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		dest = filepath.Join(dir, fmt.Sprintf("%s-%s%s", stem, time.Now().UTC().Format("20060102T150405.000"), ext))
	}
	if err := os.Rename(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func writeErrorNote(path string, out Outcome) error {
	var lines []string
	if out.Err != nil {
		lines = append(lines, out.Err.Error())
	}
	if out.Result != nil {
		lines = append(lines, out.Result.Errors...)
	}
	return os.WriteFile(path+".error.txt", []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}
