package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DiskEntry stores each stream as a file under a per-key directory.
// Writes run on their own goroutine; the per-entry mutex keeps them
// ordered relative to reads and close.
type DiskEntry struct {
	mu    sync.Mutex
	key   string
	dir   string
	files map[int]*os.File
}

// OpenEntry opens (creating if needed) the entry directory for key under
// basePath.
func OpenEntry(basePath, key string) (*DiskEntry, error) {
	if key == "" {
		return nil, fmt.Errorf("storage: empty entry key")
	}
	dir := filepath.Join(basePath, "entries", safeKey(key))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("storage: failed to create entry directory %s: %w", dir, err)
	}
	return &DiskEntry{
		key:   key,
		dir:   dir,
		files: make(map[int]*os.File),
	}, nil
}

// safeKey maps a cache key to a relative directory path.
func safeKey(key string) string {
	return strings.ReplaceAll(key, ":", "/")
}

func (e *DiskEntry) Key() string {
	return e.key
}

func (e *DiskEntry) streamPath(stream int) string {
	return filepath.Join(e.dir, fmt.Sprintf("s%d", stream))
}

// ensureFileOpen returns the open handle for a stream, opening it on
// first use. Caller holds e.mu.
func (e *DiskEntry) ensureFileOpen(stream int) (*os.File, error) {
	if file, exists := e.files[stream]; exists {
		return file, nil
	}
	file, err := os.OpenFile(e.streamPath(stream), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open stream %d: %w", stream, err)
	}
	e.files[stream] = file
	return file, nil
}

// WriteRange implements Entry. The write and the optional truncation run
// on a goroutine; done receives the committed byte count.
func (e *DiskEntry) WriteRange(stream int, offset int64, p []byte, truncate bool, done WriteDone) {
	go func() {
		n, err := e.writeRange(stream, offset, p, truncate)
		done(n, err)
	}()
}

func (e *DiskEntry) writeRange(stream int, offset int64, p []byte, truncate bool) (int, error) {
	if stream < 0 {
		return 0, fmt.Errorf("storage: invalid stream index %d", stream)
	}
	if offset < 0 {
		return 0, fmt.Errorf("storage: negative offset %d", offset)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	file, err := e.ensureFileOpen(stream)
	if err != nil {
		return 0, err
	}

	n, err := file.WriteAt(p, offset)
	if err != nil {
		return n, fmt.Errorf("storage: write to stream %d at offset %d: %w", stream, offset, err)
	}
	if truncate {
		if err := file.Truncate(offset + int64(n)); err != nil {
			return n, fmt.Errorf("storage: truncate stream %d to %d: %w", stream, offset+int64(n), err)
		}
	}
	return n, nil
}

// Streams lists the stream indexes present on disk for this entry.
func (e *DiskEntry) Streams() ([]int, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list entry directory %s: %w", e.dir, err)
	}
	var streams []int
	for _, de := range entries {
		var stream int
		if _, err := fmt.Sscanf(de.Name(), "s%d", &stream); err == nil {
			streams = append(streams, stream)
		}
	}
	sort.Ints(streams)
	return streams, nil
}

// ReadRange implements Entry.
func (e *DiskEntry) ReadRange(stream int, offset int64, p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	file, err := e.ensureFileOpen(stream)
	if err != nil {
		return 0, err
	}
	return file.ReadAt(p, offset)
}

// StreamSize implements Entry.
func (e *DiskEntry) StreamSize(stream int) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	file, err := e.ensureFileOpen(stream)
	if err != nil {
		return 0, err
	}
	info, err := file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close implements Entry.
func (e *DiskEntry) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for stream, file := range e.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.files, stream)
	}
	return firstErr
}
