// Package transfer implements the resumable multipart upload session.
//
// A Session moves one large file to the object store: it opens a remote
// multipart upload, fans the part plan out over a bounded worker pool,
// collects part receipts in completion order, and either completes the
// session with the receipts sorted by part number or aborts it on the first
// failure. Nothing here touches the ledger; committing the outcome belongs
// to the coordinator.
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aisdata/aisup/errors"
	"github.com/aisdata/aisup/internal/planner"
	"github.com/aisdata/aisup/internal/storage"
)

// Store is the subset of object-store operations a session needs.
type Store interface {
	CreateMultipart(ctx context.Context, bucket, key, contentType string) (string, error)
	UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body io.Reader, size int64) (string, error)
	CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []storage.CompletedPart) (string, error)
	AbortMultipart(ctx context.Context, bucket, key, uploadID string) error
}

// State is the lifecycle phase of a multipart session.
type State int32

const (
	StateInitiating State = iota
	StateTransferring
	StateCompleting
	StateCommitted
	StateAborting
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInitiating:
		return "initiating"
	case StateTransferring:
		return "transferring"
	case StateCompleting:
		return "completing"
	case StateCommitted:
		return "committed"
	case StateAborting:
		return "aborting"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// PartReceipt is the result of one part transfer.
type PartReceipt struct {
	Number int32
	Size   int64
	ETag   string
}

// DefaultConcurrency is the default width of the part worker pool.
const DefaultConcurrency = 10

// DefaultPartSize is the default part size for multipart transfers.
const DefaultPartSize = 100 * 1024 * 1024

// Session orchestrates the multipart transfer of a single file. A session is
// one-shot: construct, call Upload once, discard.
type Session struct {
	store       Store
	bucket, key string
	partSize    int64
	concurrency int
	tracker     ProgressTracker
	log         zerolog.Logger

	state atomic.Int32
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPartSize sets the part size in bytes. Default is 100 MiB.
func WithPartSize(partSize int64) SessionOption {
	return func(s *Session) {
		if partSize > 0 {
			s.partSize = partSize
		}
	}
}

// WithConcurrency sets the worker pool width. Default is 10.
func WithConcurrency(concurrency int) SessionOption {
	return func(s *Session) {
		if concurrency > 0 {
			s.concurrency = concurrency
		}
	}
}

// WithTracker sets the progress tracker the session pushes byte counts to.
func WithTracker(tracker ProgressTracker) SessionOption {
	return func(s *Session) {
		if tracker != nil {
			s.tracker = tracker
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(log zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.log = log
	}
}

// NewSession creates a session for one object in the given bucket.
func NewSession(store Store, bucket, key string, opts ...SessionOption) *Session {
	s := &Session{
		store:       store,
		bucket:      bucket,
		key:         key,
		partSize:    DefaultPartSize,
		concurrency: DefaultConcurrency,
		tracker:     NopTracker{},
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the session's current lifecycle phase.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
	s.log.Debug().Str("key", s.key).Stringer("state", state).Msg("session state")
}

// markAborting flips a transferring session to aborting. Only the first
// failing part wins the swap; later failures and draining parts see the
// session already aborting.
func (s *Session) markAborting() {
	if s.state.CompareAndSwap(int32(StateTransferring), int32(StateAborting)) {
		s.log.Debug().Str("key", s.key).Stringer("state", StateAborting).Msg("session state")
	}
}

// Upload transfers the file at path (size bytes) as a multipart object and
// returns the aggregate integrity tag from the completed session.
//
// Any part failure aborts the session: in-flight parts drain, no new parts
// start, uploaded parts are discarded remotely, and the error is returned.
// On success all receipts are sorted by part number — completion order is
// unconstrained, assembly order is not — and submitted as the finalize
// request.
func (s *Session) Upload(ctx context.Context, path string, size int64) (string, error) {
	s.setState(StateInitiating)

	parts, err := planner.Plan(size, s.partSize)
	if err != nil {
		return "", err
	}

	uploadID, err := s.store.CreateMultipart(ctx, s.bucket, s.key, DetectContentType(path))
	if err != nil {
		// No parts were attempted; nothing to abort remotely.
		return "", err
	}

	s.setState(StateTransferring)
	receipts, err := s.transferParts(ctx, path, size, uploadID, parts)
	if err != nil {
		s.abort(ctx, uploadID, err)
		return "", err
	}

	s.setState(StateCompleting)
	etag, err := s.complete(ctx, uploadID, receipts, len(parts))
	if err != nil {
		s.abort(ctx, uploadID, err)
		return "", err
	}

	s.setState(StateCommitted)
	s.tracker.Complete()
	return etag, nil
}

// transferParts fans the plan out over a bounded worker pool and collects
// receipts as parts complete, in arbitrary order. The first failure cancels
// the group: queued parts never start, in-flight parts drain (they upload
// against the parent context, not the group's).
func (s *Session) transferParts(
	ctx context.Context,
	path string,
	size int64,
	uploadID string,
	parts []planner.Part,
) ([]PartReceipt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewPathError("transferParts", path,
			fmt.Errorf("%w: %w", errors.ErrPartTransfer, err))
	}
	defer f.Close()

	var (
		mu          sync.Mutex
		receipts    []PartReceipt
		transferred atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, part := range parts {
		part := part
		g.Go(func() error {
			// A prior failure cancels the group; skip parts not yet started.
			if gctx.Err() != nil {
				return nil
			}

			receipt, err := s.transferPart(ctx, f, uploadID, part)
			if err != nil {
				s.markAborting()
				s.log.Error().Err(err).
					Str("key", s.key).
					Int32("part", part.Number).
					Msg("part transfer failed")
				return err
			}

			mu.Lock()
			receipts = append(receipts, receipt)
			mu.Unlock()

			s.tracker.Update(transferred.Add(receipt.Size), size)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return receipts, nil
}

// transferPart is the part worker: it reads exactly [Start, End) from the
// shared read-only file handle and transmits it as one remote part. No
// internal retries; retry policy belongs to the SDK request layer and the
// session's abort decision to the caller.
func (s *Session) transferPart(
	ctx context.Context,
	f *os.File,
	uploadID string,
	part planner.Part,
) (PartReceipt, error) {
	buf := make([]byte, part.Size())
	if _, err := f.ReadAt(buf, part.Start); err != nil {
		return PartReceipt{}, errors.NewPathError("transferPart", f.Name(),
			fmt.Errorf("%w: read part %d: %w", errors.ErrPartTransfer, part.Number, err))
	}

	etag, err := s.store.UploadPart(ctx, s.bucket, s.key, uploadID, part.Number, bytes.NewReader(buf), part.Size())
	if err != nil {
		return PartReceipt{}, fmt.Errorf("%w: part %d: %w", errors.ErrPartTransfer, part.Number, err)
	}

	return PartReceipt{Number: part.Number, Size: part.Size(), ETag: etag}, nil
}

// complete sorts the receipts into part-number order, verifies the sequence
// is 1..numParts with no gaps or duplicates, and finalizes the session.
func (s *Session) complete(ctx context.Context, uploadID string, receipts []PartReceipt, numParts int) (string, error) {
	sort.Slice(receipts, func(i, j int) bool {
		return receipts[i].Number < receipts[j].Number
	})

	if len(receipts) != numParts {
		return "", errors.NewObjectError("complete", s.bucket, s.key,
			fmt.Errorf("%w: have %d receipts, want %d", errors.ErrPartMismatch, len(receipts), numParts))
	}

	completed := make([]storage.CompletedPart, len(receipts))
	for i, r := range receipts {
		if r.Number != int32(i+1) {
			return "", errors.NewObjectError("complete", s.bucket, s.key,
				fmt.Errorf("%w: receipt %d has part number %d", errors.ErrPartMismatch, i+1, r.Number))
		}
		completed[i] = storage.CompletedPart{Number: r.Number, ETag: r.ETag}
	}

	etag, err := s.store.CompleteMultipart(ctx, s.bucket, s.key, uploadID, completed)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrFinalize, err)
	}
	return etag, nil
}

// abort tells the remote store to discard all uploaded parts. Best-effort:
// the session is already failing, so an abort failure is logged, not escalated.
// The abort call survives cancellation of the run context so that an
// interrupted transfer still releases its remote parts.
func (s *Session) abort(ctx context.Context, uploadID string, cause error) {
	s.setState(StateAborting)
	if err := s.store.AbortMultipart(context.WithoutCancel(ctx), s.bucket, s.key, uploadID); err != nil {
		s.log.Warn().Err(err).
			Str("key", s.key).
			Str("upload_id", uploadID).
			Msg("abort failed; remote parts may linger")
	}
	s.setState(StateAborted)
	s.log.Info().Err(cause).Str("key", s.key).Msg("multipart session aborted")
}

// DetectContentType sniffs the content type of a local file, falling back to
// application/octet-stream when detection fails.
func DetectContentType(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return mtype.String()
}
