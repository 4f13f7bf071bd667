package storage

import "fmt"

// DuplicateKeyError reports an insert whose id already exists. It is the
// caller's mistake and is never retried here.
type DuplicateKeyError struct {
	Table string
	ID    string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: duplicate id %q", e.Table, e.ID)
}

// NotFoundError reports an update aimed at an id that does not exist.
type NotFoundError struct {
	Table string
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: id %q not found", e.Table, e.ID)
}

// CorruptRecordError wraps a schema violation raised while decoding a
// stored row, identifying the offending record.
type CorruptRecordError struct {
	Table string
	ID    string
	Err   error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("%s: corrupt record %q: %v", e.Table, e.ID, e.Err)
}

func (e *CorruptRecordError) Unwrap() error { return e.Err }

// StoreError wraps an underlying driver or I/O failure. Nothing here
// reconnects or retries; the caller decides.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
