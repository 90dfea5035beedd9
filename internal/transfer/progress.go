package transfer

import "github.com/rs/zerolog"

// ProgressTracker receives byte-count updates as a transfer advances. It
// decouples progress reporting from transfer logic: the session pushes
// updates, the caller decides what to do with them.
type ProgressTracker interface {
	// Update is called with the cumulative bytes transferred so far and the
	// total expected bytes. Called from multiple goroutines.
	Update(transferred, total int64)

	// Complete is called once when the transfer finishes successfully.
	Complete()
}

// NopTracker discards all progress updates.
type NopTracker struct{}

func (NopTracker) Update(int64, int64) {}
func (NopTracker) Complete()           {}

// LogTracker reports progress through a zerolog logger at debug level.
type LogTracker struct {
	Log  zerolog.Logger
	Name string
}

func (t LogTracker) Update(transferred, total int64) {
	t.Log.Debug().
		Str("file", t.Name).
		Int64("transferred", transferred).
		Int64("total", total).
		Msg("transfer progress")
}

func (t LogTracker) Complete() {
	t.Log.Debug().Str("file", t.Name).Msg("transfer complete")
}
