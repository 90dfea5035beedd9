// Package errors provides error types and handling for upload operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents an upload operation error with context about the
// operation that failed. It wraps the underlying error (AWS SDK, filesystem
// or ledger) with enough context to identify the failing file or object.
type Error struct {
	// Op is the operation that failed (e.g., "uploadPart", "scan", "ledger.save")
	Op string

	// Bucket is the object-store bucket name (if applicable)
	Bucket string

	// Key is the remote object key (if applicable)
	Key string

	// Path is the local file path (if applicable)
	Path string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	switch {
	case e.Bucket != "" && e.Key != "":
		return fmt.Sprintf("aisup.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	case e.Bucket != "":
		return fmt.Sprintf("aisup.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	case e.Path != "":
		return fmt.Sprintf("aisup.%s %s: %v", e.Op, e.Path, e.Err)
	default:
		return fmt.Sprintf("aisup.%s: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithPath adds local path context to an existing error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// NewPathError creates a new Error with local path context.
func NewPathError(op, path string, err error) *Error {
	return &Error{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// Sentinel errors for the failure taxonomy. These can be used with
// errors.Is() for error checking.
var (
	// ErrSetup indicates a setup-level failure (missing base path, store
	// unreachable, bucket absent). Setup failures are fatal to a run.
	ErrSetup = errors.New("aisup: setup failure")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("aisup: invalid input")

	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("aisup: object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("aisup: bucket not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("aisup: access denied")

	// ErrConnection indicates a connection-level failure talking to the store
	ErrConnection = errors.New("aisup: connection error")

	// ErrPartTransfer indicates a part upload failed; the owning multipart
	// session aborts and the file is marked failed.
	ErrPartTransfer = errors.New("aisup: part transfer failed")

	// ErrFinalize indicates the store rejected the multipart completion
	ErrFinalize = errors.New("aisup: multipart finalize failed")

	// ErrPartMismatch indicates a gap or duplicate in the collected part
	// receipts. Assembly fails closed rather than committing a bad object.
	ErrPartMismatch = errors.New("aisup: part number mismatch")

	// ErrLedgerPersist indicates the ledger could not be saved to disk.
	// The in-memory record is kept; the next save retries.
	ErrLedgerPersist = errors.New("aisup: ledger persist failed")
)

// IsSetup checks if an error is a setup-level failure.
func IsSetup(err error) bool {
	return errors.Is(err, ErrSetup)
}

// IsObjectNotFound checks if an error indicates that an object was not found.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsBucketNotFound checks if an error indicates that a bucket was not found.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
