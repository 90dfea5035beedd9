// Package uploader coordinates the end-to-end upload run: it filters scan
// results through the progress ledger, routes each pending file to a simple
// or multipart transfer, and commits every success back to the ledger before
// moving on. One file's failure never stops the run.
package uploader

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/aisdata/aisup/errors"
	"github.com/aisdata/aisup/internal/ledger"
	"github.com/aisdata/aisup/internal/scanner"
	"github.com/aisdata/aisup/internal/storage"
	"github.com/aisdata/aisup/internal/transfer"
)

// DefaultMultipartThreshold is the size above which a file is transferred as
// a multipart session instead of a single request.
const DefaultMultipartThreshold = 100 * 1024 * 1024

// Store is the object-store surface the coordinator drives. The storage
// client satisfies it; tests substitute a fake.
type Store interface {
	transfer.Store
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (string, error)
	HeadObject(ctx context.Context, bucket, key string) (*storage.ObjectInfo, error)
}

// RunResult is the tally of one upload run. Total is the number of files
// considered: every candidate already in the ledger counts as skipped, every
// attempted transfer as uploaded or failed.
type RunResult struct {
	Total    int
	Uploaded int
	Failed   int
	Skipped  int
}

// ValidationResult is the tally of one ledger validation pass.
type ValidationResult struct {
	Total   int
	Valid   int
	Invalid int
	Missing int
	Errors  []string
}

// Coordinator runs uploads against one bucket and one ledger.
type Coordinator struct {
	store       Store
	ledger      *ledger.Ledger
	bucket      string
	threshold   int64
	partSize    int64
	concurrency int
	tracker     transfer.ProgressTracker
	log         zerolog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMultipartThreshold sets the size in bytes above which a file uses a
// multipart session. Default is 100 MiB.
func WithMultipartThreshold(threshold int64) Option {
	return func(c *Coordinator) {
		if threshold > 0 {
			c.threshold = threshold
		}
	}
}

// WithPartSize sets the part size for multipart sessions.
func WithPartSize(partSize int64) Option {
	return func(c *Coordinator) {
		if partSize > 0 {
			c.partSize = partSize
		}
	}
}

// WithConcurrency sets the part worker pool width for multipart sessions.
func WithConcurrency(concurrency int) Option {
	return func(c *Coordinator) {
		if concurrency > 0 {
			c.concurrency = concurrency
		}
	}
}

// WithTracker sets the progress tracker passed down to each transfer.
func WithTracker(tracker transfer.ProgressTracker) Option {
	return func(c *Coordinator) {
		if tracker != nil {
			c.tracker = tracker
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}

// New creates a Coordinator for the given bucket.
func New(store Store, led *ledger.Ledger, bucket string, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:       store,
		ledger:      led,
		bucket:      bucket,
		threshold:   DefaultMultipartThreshold,
		partSize:    transfer.DefaultPartSize,
		concurrency: transfer.DefaultConcurrency,
		tracker:     transfer.NopTracker{},
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run uploads every candidate not already recorded in the ledger, one file
// at a time. maxFiles limits how many pending files are attempted; zero or
// negative means no limit. Re-running after a partial failure picks up
// exactly the files that did not make it into the ledger.
//
// A per-file failure is counted and logged but does not stop the run; only
// context cancellation ends it early, returning the tally so far alongside
// the context error.
func (c *Coordinator) Run(ctx context.Context, candidates []scanner.FileDescriptor, maxFiles int) (RunResult, error) {
	var res RunResult

	pending := make([]scanner.FileDescriptor, 0, len(candidates))
	for _, fd := range candidates {
		if c.ledger.IsUploaded(fd) {
			res.Skipped++
			continue
		}
		pending = append(pending, fd)
	}
	if maxFiles > 0 && len(pending) > maxFiles {
		pending = pending[:maxFiles]
	}
	res.Total = res.Skipped + len(pending)

	c.log.Info().
		Int("candidates", len(candidates)).
		Int("pending", len(pending)).
		Int("skipped", res.Skipped).
		Msg("upload run starting")

	for _, fd := range pending {
		if err := ctx.Err(); err != nil {
			c.log.Warn().Err(err).Msg("upload run interrupted")
			return res, err
		}

		// The ledger may have gained this file since the pending set was
		// built (duplicate candidates, concurrent runs sharing a ledger).
		if c.ledger.IsUploaded(fd) {
			res.Skipped++
			continue
		}

		if err := c.uploadOne(ctx, fd); err != nil {
			res.Failed++
			c.log.Error().Err(err).
				Str("path", fd.Path).
				Str("key", fd.RemoteKey).
				Msg("upload failed")
			continue
		}
		res.Uploaded++
		c.log.Info().
			Str("key", fd.RemoteKey).
			Int64("size", fd.Size).
			Msg("uploaded")
	}

	return res, nil
}

// uploadOne transfers a single file and records the success in the ledger.
// A ledger persist failure after a successful transfer is logged, not
// returned: the object is in the store and the in-memory record stands, so
// the run keeps its tally honest even if the next run re-uploads the file.
func (c *Coordinator) uploadOne(ctx context.Context, fd scanner.FileDescriptor) error {
	var (
		etag string
		err  error
	)
	if fd.Size > c.threshold {
		sess := transfer.NewSession(c.store, c.bucket, fd.RemoteKey,
			transfer.WithPartSize(c.partSize),
			transfer.WithConcurrency(c.concurrency),
			transfer.WithTracker(c.tracker),
			transfer.WithLogger(c.log),
		)
		etag, err = sess.Upload(ctx, fd.Path, fd.Size)
	} else {
		etag, err = c.putSimple(ctx, fd)
	}
	if err != nil {
		return err
	}

	if err := c.ledger.RecordSuccess(fd, etag); err != nil {
		c.log.Warn().Err(err).
			Str("path", fd.Path).
			Msg("uploaded but progress not persisted")
	}
	return nil
}

func (c *Coordinator) putSimple(ctx context.Context, fd scanner.FileDescriptor) (string, error) {
	f, err := os.Open(fd.Path)
	if err != nil {
		return "", errors.NewPathError("putSimple", fd.Path,
			fmt.Errorf("%w: %w", errors.ErrPartTransfer, err))
	}
	defer f.Close()

	return c.store.PutObject(ctx, c.bucket, fd.RemoteKey, f, fd.Size, transfer.DetectContentType(fd.Path))
}

// Validate checks every ledger record against the local tree and the store:
// a record is valid when its local file still exists and the remote object's
// size matches the file's current size. Missing local files are reported
// separately and skip the remote check. Validation is read-only; it never
// mutates the ledger.
func (c *Coordinator) Validate(ctx context.Context) (ValidationResult, error) {
	records := c.ledger.Records()
	res := ValidationResult{Total: len(records)}

	for path, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		stat, err := os.Stat(path)
		if err != nil {
			res.Missing++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: local file missing", path))
			continue
		}

		info, err := c.store.HeadObject(ctx, c.bucket, rec.RemoteKey)
		switch {
		case errors.IsObjectNotFound(err):
			res.Invalid++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: remote object missing", rec.RemoteKey))
		case err != nil:
			res.Invalid++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", rec.RemoteKey, err))
		case info.Size != stat.Size():
			res.Invalid++
			res.Errors = append(res.Errors,
				fmt.Sprintf("%s: local size %d, remote size %d", path, stat.Size(), info.Size))
		default:
			res.Valid++
		}
	}

	c.log.Info().
		Int("total", res.Total).
		Int("valid", res.Valid).
		Int("invalid", res.Invalid).
		Int("missing_local", res.Missing).
		Msg("ledger validated")
	return res, nil
}
