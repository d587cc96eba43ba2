package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RunFunc is called for the initial run and after every debounced change.
type RunFunc func(ctx context.Context) (*RunResult, error)

// RunResult summarises one filter application.
type RunResult struct {
	// Host is the filter host that was applied.
	Host string

	// Total is the number of records before filtering.
	Total int

	// Matched is the number of records left after filtering.
	Matched int

	// OutputPath is where the result was written, if anywhere.
	OutputPath string
}

// Options configures the watch behaviour.
type Options struct {
	// Files are the input files to watch. Their parent directories are
	// watched so that editors replacing a file by rename are noticed.
	Files []string

	// Debounce is the quiet period before triggering a run.
	Debounce time.Duration

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce: 300 * time.Millisecond,
		Logger:   slog.Default(),
		Out:      os.Stderr,
	}
}

// Run performs an initial run, then re-runs runFn whenever a watched file
// changes. It blocks until ctx is cancelled or SIGINT/SIGTERM is received.
func Run(ctx context.Context, opts Options, runFn RunFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	files, dirs, err := resolve(opts.Files)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching directory %q: %w", dir, err)
		}
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(opts.Out, "watching %d file(s) (debounce=%s)\n", len(files), opts.Debounce)

	r := &runner{opts: opts, runFn: runFn, prev: -1}
	r.run(sigCtx, "(initial)")

	debouncer := NewDebouncer(opts.Debounce, func(path string) {
		r.run(sigCtx, filepath.Base(path))
	})
	debouncer.logger = opts.Logger

	defer debouncer.Stop()

	for {
		select {
		case <-sigCtx.Done():
			fmt.Fprintln(opts.Out, "shutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isRelevant(event, files) {
				continue
			}

			opts.Logger.Debug("input changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			debouncer.Trigger(event.Name)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// runner executes runs one at a time and remembers the previous match count.
type runner struct {
	opts  Options
	runFn RunFunc

	mu   sync.Mutex
	prev int
}

func (r *runner) run(ctx context.Context, trigger string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().Format("15:04:05")

	result, err := r.runFn(ctx)
	if err != nil {
		fmt.Fprintf(r.opts.Out, "[%s] %s: ERROR: %v\n", now, trigger, err)
		return
	}

	fmt.Fprintf(r.opts.Out, "[%s] %s: OK (%d of %d records%s)\n",
		now, trigger, result.Matched, result.Total, delta(r.prev, result.Matched))

	r.prev = result.Matched
}

// delta formats the change in matched records against the previous run.
func delta(prev, curr int) string {
	switch {
	case prev < 0 || prev == curr:
		return ""
	case curr > prev:
		return fmt.Sprintf(", +%d", curr-prev)
	default:
		return fmt.Sprintf(", -%d", prev-curr)
	}
}

// resolve makes every file absolute and returns the set of files together
// with the sorted list of their parent directories.
func resolve(paths []string) (map[string]bool, []string, error) {
	if len(paths) == 0 {
		return nil, nil, errors.New("no files to watch")
	}

	files := make(map[string]bool, len(paths))
	dirSet := make(map[string]bool)

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving %q: %w", p, err)
		}

		if _, err := os.Stat(abs); err != nil {
			return nil, nil, fmt.Errorf("watching file %q: %w", p, err)
		}

		files[abs] = true
		dirSet[filepath.Dir(abs)] = true
	}

	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}

	sort.Strings(dirs)

	return files, dirs, nil
}

// isRelevant keeps content-changing events on watched files.
func isRelevant(event fsnotify.Event, files map[string]bool) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	return files[filepath.Clean(event.Name)]
}
