package uploader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisdata/aisup/errors"
	"github.com/aisdata/aisup/internal/ledger"
	"github.com/aisdata/aisup/internal/scanner"
	"github.com/aisdata/aisup/internal/storage"
)

// fakeStore records which operations the coordinator routed to.
type fakeStore struct {
	mu          sync.Mutex
	putKeys     []string
	mpKeys      []string
	failKeys    map[string]bool // keys whose transfer should fail
	headErr     error
	headSizes   map[string]int64 // RemoteKey -> size reported by HeadObject
	headByKey   map[string]error
	headCalls   int
	aborts      int
	partUploads int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		failKeys:  map[string]bool{},
		headSizes: map[string]int64{},
		headByKey: map[string]error{},
	}
}

func (f *fakeStore) PutObject(_ context.Context, _, key string, body io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKeys[key] {
		return "", fmt.Errorf("simulated put failure")
	}
	f.putKeys = append(f.putKeys, key)
	return `"put-etag"`, nil
}

func (f *fakeStore) CreateMultipart(_ context.Context, _, key, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mpKeys = append(f.mpKeys, key)
	return "upload-" + key, nil
}

func (f *fakeStore) UploadPart(_ context.Context, _, key, _ string, partNumber int32, body io.Reader, _ int64) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partUploads++
	if f.failKeys[key] {
		return "", fmt.Errorf("simulated part failure")
	}
	return fmt.Sprintf(`"part-%d"`, partNumber), nil
}

func (f *fakeStore) CompleteMultipart(_ context.Context, _, _, _ string, _ []storage.CompletedPart) (string, error) {
	return `"multipart-etag"`, nil
}

func (f *fakeStore) AbortMultipart(_ context.Context, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborts++
	return nil
}

func (f *fakeStore) HeadObject(_ context.Context, _, key string) (*storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headCalls++
	if err, ok := f.headByKey[key]; ok {
		return nil, err
	}
	if f.headErr != nil {
		return nil, f.headErr
	}
	size, ok := f.headSizes[key]
	if !ok {
		return nil, errors.NewObjectError("headObject", "b", key, errors.ErrObjectNotFound)
	}
	return &storage.ObjectInfo{Key: key, Size: size}, nil
}

// makeFile writes size bytes under dir and returns a matching descriptor.
func makeFile(t *testing.T, dir, year, month, name string, size int64) scanner.FileDescriptor {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return scanner.FileDescriptor{
		Path:      path,
		Name:      name,
		Size:      size,
		Year:      year,
		Month:     month,
		RemoteKey: year + "/" + month + "/" + name,
	}
}

func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	return ledger.Open(filepath.Join(t.TempDir(), "progress.json"), zerolog.Nop())
}

func TestRunUploadsAndSkipsOnRerun(t *testing.T) {
	dir := t.TempDir()
	files := []scanner.FileDescriptor{
		makeFile(t, dir, "2024", "01", "a.rar", 64),
		makeFile(t, dir, "2024", "02", "b.rar", 64),
		makeFile(t, dir, "2024", "02", "c.rar", 64),
	}

	store := newFakeStore()
	led := newTestLedger(t)
	coord := New(store, led, "bucket")

	res, err := coord.Run(context.Background(), files, 0)
	require.NoError(t, err)
	assert.Equal(t, RunResult{Total: 3, Uploaded: 3}, res)
	assert.Len(t, store.putKeys, 3)

	// Second pass over the same tree does nothing but count.
	res, err = coord.Run(context.Background(), files, 0)
	require.NoError(t, err)
	assert.Equal(t, RunResult{Total: 3, Skipped: 3}, res)
	assert.Len(t, store.putKeys, 3, "no new transfers on rerun")
}

func TestRunOneFailureDoesNotStopOthers(t *testing.T) {
	dir := t.TempDir()
	files := []scanner.FileDescriptor{
		makeFile(t, dir, "2024", "01", "a.rar", 64),
		makeFile(t, dir, "2024", "01", "b.rar", 64),
		makeFile(t, dir, "2024", "01", "c.rar", 64),
	}

	store := newFakeStore()
	store.failKeys["2024/01/b.rar"] = true
	led := newTestLedger(t)
	coord := New(store, led, "bucket")

	res, err := coord.Run(context.Background(), files, 0)
	require.NoError(t, err)
	assert.Equal(t, RunResult{Total: 3, Uploaded: 2, Failed: 1}, res)

	// Retry picks up exactly the file that failed.
	store.failKeys = map[string]bool{}
	res, err = coord.Run(context.Background(), files, 0)
	require.NoError(t, err)
	assert.Equal(t, RunResult{Total: 3, Uploaded: 1, Skipped: 2}, res)
}

func TestRunSizeDriftReuploads(t *testing.T) {
	dir := t.TempDir()
	fd := makeFile(t, dir, "2024", "01", "a.rar", 64)

	store := newFakeStore()
	led := newTestLedger(t)
	coord := New(store, led, "bucket")

	_, err := coord.Run(context.Background(), []scanner.FileDescriptor{fd}, 0)
	require.NoError(t, err)

	// The file grew since the recorded upload.
	require.NoError(t, os.WriteFile(fd.Path, make([]byte, 128), 0o644))
	fd.Size = 128

	res, err := coord.Run(context.Background(), []scanner.FileDescriptor{fd}, 0)
	require.NoError(t, err)
	assert.Equal(t, RunResult{Total: 1, Uploaded: 1}, res)
	assert.Len(t, store.putKeys, 2)

	rec, ok := led.Get(fd.Path)
	require.True(t, ok)
	assert.Equal(t, int64(128), rec.Size)
}

func TestRunDuplicateCandidateSkippedAtDispatch(t *testing.T) {
	dir := t.TempDir()
	fd := makeFile(t, dir, "2024", "01", "a.rar", 64)

	store := newFakeStore()
	led := newTestLedger(t)
	coord := New(store, led, "bucket")

	// Both copies pass the initial ledger filter; the second is caught by
	// the re-check at dispatch after the first upload lands.
	res, err := coord.Run(context.Background(), []scanner.FileDescriptor{fd, fd}, 0)
	require.NoError(t, err)
	assert.Equal(t, RunResult{Total: 2, Uploaded: 1, Skipped: 1}, res)
	assert.Len(t, store.putKeys, 1)
}

func TestRunMaxFilesLimitsPending(t *testing.T) {
	dir := t.TempDir()
	files := []scanner.FileDescriptor{
		makeFile(t, dir, "2024", "01", "a.rar", 64),
		makeFile(t, dir, "2024", "01", "b.rar", 64),
		makeFile(t, dir, "2024", "01", "c.rar", 64),
	}

	store := newFakeStore()
	led := newTestLedger(t)
	coord := New(store, led, "bucket")

	res, err := coord.Run(context.Background(), files, 2)
	require.NoError(t, err)
	assert.Equal(t, RunResult{Total: 2, Uploaded: 2}, res)

	res, err = coord.Run(context.Background(), files, 2)
	require.NoError(t, err)
	assert.Equal(t, RunResult{Total: 3, Uploaded: 1, Skipped: 2}, res)
}

func TestRunRoutesBySizeThreshold(t *testing.T) {
	dir := t.TempDir()
	small := makeFile(t, dir, "2024", "01", "small.rar", 512)
	big := makeFile(t, dir, "2024", "01", "big.rar", 4096)

	store := newFakeStore()
	led := newTestLedger(t)
	coord := New(store, led, "bucket",
		WithMultipartThreshold(1024),
		WithPartSize(1024),
		WithConcurrency(2),
	)

	res, err := coord.Run(context.Background(), []scanner.FileDescriptor{small, big}, 0)
	require.NoError(t, err)
	assert.Equal(t, RunResult{Total: 2, Uploaded: 2}, res)

	assert.Equal(t, []string{"2024/01/small.rar"}, store.putKeys)
	assert.Equal(t, []string{"2024/01/big.rar"}, store.mpKeys)
	assert.Equal(t, 4, store.partUploads)
}

func TestRunHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	files := []scanner.FileDescriptor{
		makeFile(t, dir, "2024", "01", "a.rar", 64),
		makeFile(t, dir, "2024", "01", "b.rar", 64),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coord := New(newFakeStore(), newTestLedger(t), "bucket")
	res, err := coord.Run(ctx, files, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Uploaded)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	ok := makeFile(t, dir, "2024", "01", "ok.rar", 64)
	drifted := makeFile(t, dir, "2024", "01", "drifted.rar", 64)
	gone := makeFile(t, dir, "2024", "01", "gone.rar", 64)
	localMissing := makeFile(t, dir, "2024", "01", "local.rar", 64)
	localChanged := makeFile(t, dir, "2024", "01", "changed.rar", 64)

	store := newFakeStore()
	led := newTestLedger(t)
	coord := New(store, led, "bucket")

	all := []scanner.FileDescriptor{ok, drifted, gone, localMissing, localChanged}
	_, err := coord.Run(context.Background(), all, 0)
	require.NoError(t, err)

	store.headSizes[ok.RemoteKey] = 64
	store.headSizes[drifted.RemoteKey] = 32
	store.headSizes[localMissing.RemoteKey] = 64
	store.headSizes[localChanged.RemoteKey] = 64
	// gone.RemoteKey left out: HeadObject reports it missing.
	require.NoError(t, os.Remove(localMissing.Path))
	// The local file grew after the upload; its record is stale.
	require.NoError(t, os.WriteFile(localChanged.Path, make([]byte, 128), 0o644))

	res, err := coord.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 1, res.Valid)
	assert.Equal(t, 3, res.Invalid)
	assert.Equal(t, 1, res.Missing)

	joined := strings.Join(res.Errors, "\n")
	assert.Contains(t, joined, "drifted.rar")
	assert.Contains(t, joined, "gone.rar")
	assert.Contains(t, joined, "local.rar")
	assert.Contains(t, joined, "changed.rar")
}

func TestValidateMissingLocalSkipsRemoteCheck(t *testing.T) {
	dir := t.TempDir()
	fd := makeFile(t, dir, "2024", "01", "a.rar", 64)

	store := newFakeStore()
	led := newTestLedger(t)
	coord := New(store, led, "bucket")

	_, err := coord.Run(context.Background(), []scanner.FileDescriptor{fd}, 0)
	require.NoError(t, err)
	require.NoError(t, os.Remove(fd.Path))

	res, err := coord.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 1, res.Missing)
	assert.Equal(t, 0, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "local file missing")
	assert.Equal(t, 0, store.headCalls, "missing local file must not be checked remotely")
}

func TestValidateEmptyLedger(t *testing.T) {
	coord := New(newFakeStore(), newTestLedger(t), "bucket")
	res, err := coord.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ValidationResult{}, res)
}
