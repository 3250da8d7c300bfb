package migration

import "fmt"

// SourceUnavailableError means the legacy store cannot be reached at all.
// Always fatal, regardless of run mode.
type SourceUnavailableError struct {
	Err error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source store unavailable: %v", e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// SourceSchemaMismatchError means an expected legacy collection is absent,
// so the source is not a dataset this engine understands. Always fatal.
type SourceSchemaMismatchError struct {
	Collection string
}

func (e *SourceSchemaMismatchError) Error() string {
	return fmt.Sprintf("source schema mismatch: collection %q not found", e.Collection)
}

// IntegrityViolationError is raised in default mode when a legacy record
// fails validation. With --fix-integrity the record is skipped instead.
type IntegrityViolationError struct {
	Group    Group
	RecordID string
	Reason   string
}

func (e *IntegrityViolationError) Error() string {
	return fmt.Sprintf("integrity violation in %s %q: %s (re-run with --fix-integrity to skip invalid records)",
		e.Group, e.RecordID, e.Reason)
}

// UnresolvedReferenceError means a transformation hit a legacy identifier
// with no entry in the reference index. Group ordering and integrity
// checking are supposed to make this impossible, so it is always fatal.
type UnresolvedReferenceError struct {
	Group     Group
	RecordID  string
	Field     string
	Target    Group
	Reference string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference in %s %q: field %s points at %s %q which is not in the reference index",
		e.Group, e.RecordID, e.Field, e.Target, e.Reference)
}

// TargetNotInitializedError means the target schema is not in the expected
// post-bootstrap state. Raised before any destructive action.
type TargetNotInitializedError struct {
	Table string
}

func (e *TargetNotInitializedError) Error() string {
	return fmt.Sprintf("target database not initialized: table %q not found (run the target system once to bootstrap the schema)", e.Table)
}

// WriteError wraps a failed row insert. Fatal in normal mode, skip-record
// in best-effort mode.
type WriteError struct {
	Group    Group
	RecordID string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s %q: %v", e.Group, e.RecordID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// BlobCopyError wraps a failed object copy. Fatal in normal mode,
// skip-object in best-effort mode.
type BlobCopyError struct {
	Key string
	Err error
}

func (e *BlobCopyError) Error() string {
	return fmt.Sprintf("failed to copy blob to %q: %v", e.Key, e.Err)
}

func (e *BlobCopyError) Unwrap() error { return e.Err }
