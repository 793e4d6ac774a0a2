package surface

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
)

// File is a surface stored as whitespace-separated classes in a file, so
// several processes can share one set of markers. Add and Remove are each
// atomic; multi-step updates hold Lock, an advisory lock on a sibling
// ".lock" file.
type File struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewFile creates a file surface. The file does not need to exist; a missing
// file is an empty class list.
func NewFile(path string, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.Default()
	}
	return &File{path: path, logger: logger}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// LockPath returns the path of the advisory lock file.
func (f *File) LockPath() string {
	return f.path + ".lock"
}

// Lock takes the advisory lock shared by every File on the same path, in
// this process or another. Each call opens its own lock handle, so two
// holders in one process also exclude each other.
func (f *File) Lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create surface directory: %w", err)
	}

	fl := flock.New(f.LockPath())
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", fl.Path(), err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := fl.Unlock(); err != nil {
				f.logger.Warn("failed to release surface lock", "path", fl.Path(), "error", err)
			}
		})
	}, nil
}

// Contains reports whether the class is present. Read errors count as absent.
func (f *File) Contains(class string) bool {
	return slices.Contains(f.Classes(), class)
}

// Classes returns the classes in file order.
func (f *File) Classes() []string {
	classes, err := f.read()
	if err != nil {
		f.logger.Warn("failed to read surface file", "path", f.path, "error", err)
		return nil
	}
	return classes
}

// Add appends the class if it is not already present.
func (f *File) Add(class string) error {
	if err := validateClass(class); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	classes, err := f.read()
	if err != nil {
		return err
	}
	if slices.Contains(classes, class) {
		return nil
	}
	return f.write(append(classes, class))
}

// Remove deletes the class if present. Other classes keep their order.
func (f *File) Remove(class string) error {
	if err := validateClass(class); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	classes, err := f.read()
	if err != nil {
		return err
	}
	i := slices.Index(classes, class)
	if i < 0 {
		return nil
	}
	return f.write(slices.Delete(classes, i, i+1))
}

// Observe watches the file for changes made by any process.
func (f *File) Observe(fn func()) (func(), error) {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create surface directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory containing the file (atomic renames replace the inode)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	d := newDispatcher(fn)
	loopDone := make(chan struct{})
	go f.watch(watcher, d, loopDone)

	f.logger.Debug("surface watcher started", "path", f.path)

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := watcher.Close(); err != nil {
				f.logger.Warn("failed to close surface watcher", "error", err)
			}
			<-loopDone
			d.stop()
			f.logger.Debug("surface watcher stopped", "path", f.path)
		})
	}, nil
}

func (f *File) watch(watcher *fsnotify.Watcher, d *dispatcher, done chan<- struct{}) {
	defer close(done)
	filename := filepath.Base(f.path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			// Only care about our file
			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				f.logger.Debug("surface file changed", "path", f.path, "op", event.Op.String())
				d.signal()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("surface watcher error", "error", err)
		}
	}
}

func (f *File) read() ([]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var classes []string
	for _, c := range strings.Fields(string(data)) {
		if !slices.Contains(classes, c) {
			classes = append(classes, c)
		}
	}
	return classes, nil
}

// write replaces the file atomically.
func (f *File) write(classes []string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	content := strings.Join(classes, " ")
	if content != "" {
		content += "\n"
	}
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
