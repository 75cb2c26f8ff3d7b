// Package watch runs in-text extraction on text files dropped into a
// directory and writes the links next to each file.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/fsnotify.v1"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/logging"
)

// InputExt is the extension of files the watcher processes.
const InputExt = ".txt"

// OutputSuffix replaces InputExt in the name of result files.
const OutputSuffix = ".links.json"

// Extractor is the in-text extraction the watcher runs.
type Extractor interface {
	ExtractInText(ctx context.Context, text string) ([]law.Link, error)
}

// Result reports one processed file.
type Result struct {
	Input  string
	Output string
	Links  int
	Err    error
}

// Watcher processes text files in a directory as they appear or change.
type Watcher struct {
	dir       string
	extractor Extractor
	log       *logging.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	done     chan struct{}
	onResult func(Result)
}

// New returns a watcher for dir. A nil logger discards output.
func New(dir string, ext Extractor, log *logging.Logger) *Watcher {
	if log == nil {
		log = logging.Nop()
	}
	return &Watcher{dir: dir, extractor: ext, log: log}
}

// SetOnResult sets a callback invoked after each file is processed.
func (w *Watcher) SetOnResult(fn func(Result)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onResult = fn
}

// OutputPath returns the result file for an input file.
func OutputPath(input string) string {
	return strings.TrimSuffix(input, InputExt) + OutputSuffix
}

// IsInput reports whether path is a file the watcher processes.
func IsInput(path string) bool {
	return strings.HasSuffix(path, InputExt) && !strings.HasPrefix(filepath.Base(path), ".")
}

// ProcessFile extracts links from path and writes them to OutputPath.
func (w *Watcher) ProcessFile(ctx context.Context, path string) (Result, error) {
	res := Result{Input: path, Output: OutputPath(path)}
	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("reading %s: %w", path, err)
	}
	links, err := w.extractor.ExtractInText(ctx, string(data))
	if err != nil {
		return res, fmt.Errorf("extracting %s: %w", path, err)
	}
	if links == nil {
		links = []law.Link{}
	}
	out, err := json.MarshalIndent(links, "", "  ")
	if err != nil {
		return res, fmt.Errorf("encoding links: %w", err)
	}
	if err := os.WriteFile(res.Output, append(out, '\n'), 0o644); err != nil {
		return res, fmt.Errorf("writing %s: %w", res.Output, err)
	}
	res.Links = len(links)
	return res, nil
}

// ProcessExisting processes every input file already in the directory.
func (w *Watcher) ProcessExisting(ctx context.Context) ([]Result, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", w.dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && IsInput(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var results []Result
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := w.handle(ctx, filepath.Join(w.dir, name))
		results = append(results, res)
	}
	return results, nil
}

// Start begins watching the directory. Events are handled until ctx is
// done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if w.dir == "" {
		return fmt.Errorf("no directory configured for watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching directory %s: %w", w.dir, err)
	}

	w.mu.Lock()
	w.watcher = watcher
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	stop, done := w.stopChan, w.done
	w.mu.Unlock()

	go w.watchLoop(ctx, watcher, stop, done)
	w.log.Info("watching directory", "dir", w.dir)
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	stop, done, watcher := w.stopChan, w.done, w.watcher
	w.stopChan, w.done, w.watcher = nil, nil, nil
	w.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if watcher != nil {
		watcher.Close()
	}
	if done != nil {
		<-done
	}
}

func (w *Watcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return

		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !IsInput(event.Name) {
				continue
			}
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create,
				event.Op&fsnotify.Write == fsnotify.Write:
				w.handle(ctx, event.Name)

			case event.Op&fsnotify.Remove == fsnotify.Remove,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				w.removeOutput(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) Result {
	res, err := w.ProcessFile(ctx, path)
	res.Err = err
	if err != nil {
		w.log.Error("processing file failed", "file", path, "error", err)
	} else {
		w.log.Info("processed file", "file", path, "links", res.Links)
	}

	w.mu.Lock()
	fn := w.onResult
	w.mu.Unlock()
	if fn != nil {
		fn(res)
	}
	return res
}

func (w *Watcher) removeOutput(input string) {
	out := OutputPath(input)
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		w.log.Warn("removing stale output failed", "file", out, "error", err)
	}
}
