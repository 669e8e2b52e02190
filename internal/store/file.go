package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"critiqal/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// FileStore is a KV persisted as one JSON object. Every write rewrites the
// file through a temp file and rename, so readers never see a partial document.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	data   map[string]string
	closed bool
}

// NewFileStore loads path if it exists. A missing file is an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	fs := &FileStore{path: path, data: make(map[string]string)}
	data, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	fs.data = data
	logging.Store("Loaded FileStore %s (%d keys)", path, len(data))
	return fs, nil
}

func readDocument(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	data := make(map[string]string)
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return data, nil
}

func (f *FileStore) Get(key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return "", false, ErrClosed
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	prev, had := f.data[key]
	f.data[key] = value
	if err := f.flushLocked(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

func (f *FileStore) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	prev, had := f.data[key]
	if !had {
		return nil
	}
	delete(f.data, key)
	if err := f.flushLocked(); err != nil {
		f.data[key] = prev
		return err
	}
	return nil
}

func (f *FileStore) flushLocked() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".kv-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

// Watch blocks until ctx is done, reloading the document whenever another
// process rewrites it. fn receives the sorted keys whose values changed.
// Writes made through this FileStore do not trigger fn.
func (f *FileStore) Watch(ctx context.Context, fn func(changed []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: atomic rewrites replace the file inode.
	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Store("FileStore: watching %s", f.path)

	target := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			logging.StoreDebug("FileStore: watch cancelled")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			logging.StoreDebug("FileStore: %s event for %s", event.Op, event.Name)
			if changed := f.reload(); len(changed) > 0 && fn != nil {
				fn(changed)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.StoreWarn("FileStore watcher error: %v", err)
		}
	}
}

// reload re-reads the document and returns keys whose values differ.
func (f *FileStore) reload() []string {
	fresh, err := readDocument(f.path)
	if err != nil {
		// Mid-rewrite reads are retried on the next event.
		logging.StoreDebug("FileStore: reload skipped: %v", err)
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}

	var changed []string
	for k, v := range fresh {
		if old, ok := f.data[k]; !ok || old != v {
			changed = append(changed, k)
		}
	}
	for k := range f.data {
		if _, ok := fresh[k]; !ok {
			changed = append(changed, k)
		}
	}
	f.data = fresh
	sort.Strings(changed)
	return changed
}

// Close marks the store closed. The file is left on disk.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
