// Package ledger maintains the durable record of completed uploads.
//
// The ledger is the source of truth for "already uploaded": a JSON document
// keyed by local absolute path, read once at startup and rewritten wholesale
// after every successful file. A record is only written after the remote
// store has confirmed the object is fully committed; nothing is recorded
// speculatively. One coordinator process owns a ledger file at a time.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aisdata/aisup/errors"
	"github.com/aisdata/aisup/internal/scanner"
)

// Record is one ledger entry, keyed by local path.
type Record struct {
	Filename   string    `json:"filename"`
	RemoteKey  string    `json:"remote_key"`
	Size       int64     `json:"size"`
	UploadTime time.Time `json:"upload_time"`
	RemoteETag string    `json:"remote_etag"`
	Year       string    `json:"year"`
	Month      string    `json:"month"`
}

// Ledger is the in-memory view of the ledger file plus the persistence
// machinery. It is the single writer of its file.
type Ledger struct {
	path string
	log  zerolog.Logger

	mu      sync.Mutex
	records map[string]Record
}

// Open loads the ledger at path. A missing or corrupt file degrades to an
// empty ledger: the worst case of losing the ledger is redundant re-upload,
// never data loss.
func Open(path string, log zerolog.Logger) *Ledger {
	l := &Ledger{
		path:    path,
		log:     log,
		records: make(map[string]Record),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("could not read ledger, starting empty")
		}
		return l
	}
	if err := json.Unmarshal(data, &l.records); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ledger is corrupt, starting empty")
		l.records = make(map[string]Record)
	}
	return l
}

// IsUploaded reports whether fd has already been uploaded and is unchanged.
// A record whose stored size differs from the descriptor's current size is
// drift: the file changed since upload and must be re-attempted. The check
// is size-only, not a content hash.
func (l *Ledger) IsUploaded(fd scanner.FileDescriptor) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[fd.Path]
	return ok && rec.Size == fd.Size
}

// RecordSuccess inserts or overwrites the record for fd and persists the
// whole ledger to disk before returning. Safe to call repeatedly; the last
// write wins. A persistence failure is returned to the caller but never
// rolls back the in-memory record: the next successful save includes it.
func (l *Ledger) RecordSuccess(fd scanner.FileDescriptor, remoteETag string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[fd.Path] = Record{
		Filename:   fd.Name,
		RemoteKey:  fd.RemoteKey,
		Size:       fd.Size,
		UploadTime: time.Now().UTC(),
		RemoteETag: remoteETag,
		Year:       fd.Year,
		Month:      fd.Month,
	}

	if err := l.save(); err != nil {
		return errors.NewPathError("ledger.save", l.path,
			fmt.Errorf("%w: %w", errors.ErrLedgerPersist, err))
	}
	return nil
}

// save writes the ledger atomically: marshal, write a temp file in the same
// directory, then rename over the target. Caller holds l.mu.
func (l *Ledger) save() error {
	data, err := json.MarshalIndent(l.records, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), l.path)
}

// Len returns the number of records in the ledger.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Get returns the record for a local path, if present.
func (l *Ledger) Get(path string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[path]
	return rec, ok
}

// Records returns a copy of all records keyed by local path.
func (l *Ledger) Records() map[string]Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]Record, len(l.records))
	for path, rec := range l.records {
		out[path] = rec
	}
	return out
}

// PeriodGroup is the set of records for one year/month period.
type PeriodGroup struct {
	Year    string
	Month   string
	Records []Record
}

// Bytes returns the total recorded size of the group.
func (g PeriodGroup) Bytes() int64 {
	var total int64
	for _, rec := range g.Records {
		total += rec.Size
	}
	return total
}

// Snapshot returns a read-only view of the ledger grouped by year and month,
// ordered by year, month, then filename. Used for status reporting.
func (l *Ledger) Snapshot() []PeriodGroup {
	l.mu.Lock()
	defer l.mu.Unlock()

	index := make(map[string]*PeriodGroup)
	var keys []string
	for _, rec := range l.records {
		key := rec.Year + "/" + rec.Month
		grp, ok := index[key]
		if !ok {
			grp = &PeriodGroup{Year: rec.Year, Month: rec.Month}
			index[key] = grp
			keys = append(keys, key)
		}
		grp.Records = append(grp.Records, rec)
	}

	sort.Strings(keys)
	groups := make([]PeriodGroup, 0, len(keys))
	for _, key := range keys {
		grp := index[key]
		sort.Slice(grp.Records, func(i, j int) bool {
			return grp.Records[i].Filename < grp.Records[j].Filename
		})
		groups = append(groups, *grp)
	}
	return groups
}
