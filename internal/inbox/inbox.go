// Package inbox watches hot folders with fsnotify and hands every .pptx template dropped into
// them to a callback once the file has stopped changing.
package inbox

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Inbox watches directories for new or rewritten templates.
type Inbox struct {
	dirs       []string
	recursive  bool
	onTemplate func(path string)
	debounce   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	timers   map[string]*time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(in *Inbox) { in.logger = l }
}

// WithDebounce sets how long a file must stay unchanged before it is handed over.
func WithDebounce(d time.Duration) Option {
	return func(in *Inbox) { in.debounce = d }
}

// New creates an inbox over dirs. onTemplate is called with the path of each settled template.
func New(dirs []string, recursive bool, onTemplate func(path string), opts ...Option) *Inbox {
	in := &Inbox{
		dirs:       dirs,
		recursive:  recursive,
		onTemplate: onTemplate,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		timers:     make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// IsTemplateFile reports whether path names a presentation the inbox should pick up.
// PowerPoint lock files (~$name.pptx) and hidden files are ignored.
func IsTemplateFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".pptx")
}

// Start begins watching. Missing directories are created. It runs until ctx is cancelled or
// Stop is called.
func (in *Inbox) Start(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.started {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range in.dirs {
		if err := in.addDir(fw, dir); err != nil {
			_ = fw.Close()
			return err
		}
	}
	in.watcher = fw
	in.started = true
	in.logger.Info("inbox watching", zap.Strings("directories", in.dirs), zap.Bool("recursive", in.recursive))
	go in.run(ctx, fw)
	return nil
}

func (in *Inbox) addDir(fw *fsnotify.Watcher, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if !in.recursive {
		return fw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

func (in *Inbox) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			in.Stop()
			return
		case <-in.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			in.handleEvent(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			in.logger.Warn("inbox watcher error", zap.Error(err))
		}
	}
}

func (in *Inbox) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		if ev.Has(fsnotify.Remove) {
			in.cancel(ev.Name)
		}
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil {
		// Renamed away or removed before we looked.
		in.cancel(ev.Name)
		return
	}
	if info.IsDir() {
		if in.recursive && ev.Has(fsnotify.Create) {
			if err := in.addDir(fw, ev.Name); err != nil {
				in.logger.Warn("inbox failed to watch directory", zap.String("path", ev.Name), zap.Error(err))
			}
			in.syncDir(ev.Name)
		}
		return
	}
	if IsTemplateFile(ev.Name) {
		in.schedule(ev.Name)
	}
}

func (in *Inbox) schedule(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.started {
		return
	}
	if t, ok := in.timers[path]; ok {
		t.Stop()
	}
	in.timers[path] = time.AfterFunc(in.debounce, func() {
		in.mu.Lock()
		delete(in.timers, path)
		in.mu.Unlock()
		in.logger.Debug("inbox template settled", zap.String("path", path))
		if in.onTemplate != nil {
			in.onTemplate(path)
		}
	})
}

func (in *Inbox) cancel(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.timers[path]; ok {
		t.Stop()
		delete(in.timers, path)
	}
}

func (in *Inbox) syncDir(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && !in.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if IsTemplateFile(path) {
			in.schedule(path)
		}
		return nil
	})
}

// SyncExisting schedules every template already present in the watched directories.
// Call it after Start.
func (in *Inbox) SyncExisting() {
	for _, dir := range in.Directories() {
		in.syncDir(dir)
	}
}

// Directories returns a copy of the watched directories.
func (in *Inbox) Directories() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]string(nil), in.dirs...)
}

// Stop stops watching and drops pending templates.
func (in *Inbox) Stop() {
	in.mu.Lock()
	if !in.started {
		in.mu.Unlock()
		return
	}
	for path, t := range in.timers {
		t.Stop()
		delete(in.timers, path)
	}
	_ = in.watcher.Close()
	in.watcher = nil
	in.started = false
	in.mu.Unlock()
	in.stopOnce.Do(func() { close(in.done) })
}
