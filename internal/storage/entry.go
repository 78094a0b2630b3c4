// Package storage provides disk-backed cache entries. An entry is a
// keyed object holding independently addressable byte streams, written
// asynchronously at explicit offsets.
package storage

// WriteDone delivers the result of an asynchronous write: the number of
// bytes committed and any error. It is invoked from a storage goroutine,
// not the caller's.
type WriteDone func(n int, err error)

// Entry is a keyed on-disk object with numbered byte streams.
type Entry interface {
	// Key returns the entry's cache key.
	Key() string

	// WriteRange asynchronously writes p to the given stream at offset.
	// When truncate is set, bytes previously stored beyond offset+len(p)
	// are discarded. done is invoked exactly once.
	WriteRange(stream int, offset int64, p []byte, truncate bool, done WriteDone)

	// ReadRange reads from the given stream at offset into p.
	ReadRange(stream int, offset int64, p []byte) (int, error)

	// StreamSize returns the current size of the given stream.
	StreamSize(stream int) (int64, error)

	// Close releases any open file handles.
	Close() error
}
