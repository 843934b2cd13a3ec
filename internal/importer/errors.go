package importer

import "fmt"

// The pipeline distinguishes run-fatal errors, modeled as the types below,
// from row-level failures, which are recovered locally and reported as
// counters/row errors in the ingest result. Anything attributable to a
// single row degrades that row; anything else aborts the run with one of
// these.

// FileParsingError means the uploaded file could not be parsed at all:
// unsupported extension, empty file, unreadable encoding. Fatal, nothing
// to retry.
type FileParsingError struct {
	Reason string
}

func (e *FileParsingError) Error() string {
	return fmt.Sprintf("file parsing failed: %s", e.Reason)
}

// TooManyRowsError is returned when the file exceeds the configured row
// cap. The parser fails fast rather than returning a partial parse.
type TooManyRowsError struct {
	Rows  int
	Limit int
}

func (e *TooManyRowsError) Error() string {
	return fmt.Sprintf("file has %d rows, exceeding the limit of %d", e.Rows, e.Limit)
}

// ValidationError covers session and schema problems that make the run
// unprocessable: missing/expired session, zero valid rows, undeterminable
// country. FirstRowError carries the first offending row's message for
// diagnosability.
type ValidationError struct {
	Reason        string
	FirstRowError string
}

func (e *ValidationError) Error() string {
	if e.FirstRowError != "" {
		return fmt.Sprintf("%s (first failure: %s)", e.Reason, e.FirstRowError)
	}
	return e.Reason
}

// UploadError covers caller-correctable environment issues such as an
// oversized file or a disabled import feature.
type UploadError struct {
	Code    string
	Message string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DatabaseError wraps a persistence failure not attributable to a single
// row. Chunks committed before the failure stay committed.
type DatabaseError struct {
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error: %v", e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
