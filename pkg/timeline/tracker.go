// Package timeline tracks which media sequence numbers of a live HLS
// playlist have been observed across polls and reports missed ranges.
//
// A live playlist is a sliding window over an increasing media sequence.
// A poller that falls behind the window loses segments; a Tracker makes
// those losses visible by recording every observed window in a segment
// set and deriving the uncovered ranges between the first and last
// observed sequence numbers.
package timeline

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/grafov/m3u8"

	"github.com/agleyzer/segments/pkg/interval"
)

// Tracker accumulates observed media sequence ranges.
// It is safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	seen   *interval.Set[int64]
	polls  int
	logger *slog.Logger
}

// NewTracker creates an empty tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{
		seen:   interval.NewSet[int64](),
		logger: logger,
	}
}

// Observe records the window of a polled media playlist: the sequence
// range [SeqNo, SeqNo+segments).
func (t *Tracker) Observe(pl *m3u8.MediaPlaylist) {
	var count int64
	for _, seg := range pl.Segments {
		if seg == nil {
			break
		}
		count++
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.polls++
	if count == 0 {
		t.logger.Warn("observed empty playlist window", "seqNo", pl.SeqNo)
		return
	}

	first := int64(pl.SeqNo)
	t.seen.Add(interval.Segment[int64]{Start: first, End: first + count})

	t.logger.Debug("observed window",
		"seqNo", first,
		"segments", count,
		"windows", t.seen.Len(),
	)
}

// ObserveReader decodes a media playlist and records its window.
// Master playlists are rejected.
func (t *Tracker) ObserveReader(r io.Reader) error {
	playlist, listType, err := m3u8.DecodeFrom(r, true)
	if err != nil {
		return fmt.Errorf("failed to parse playlist: %w", err)
	}
	if listType != m3u8.MEDIA {
		return fmt.Errorf("expected media playlist, got master playlist")
	}

	mediaPlaylist, ok := playlist.(*m3u8.MediaPlaylist)
	if !ok {
		return fmt.Errorf("unexpected playlist type")
	}

	t.Observe(mediaPlaylist)
	return nil
}

// Missed returns the sequence ranges between the first and last observed
// sequence numbers that no window covered, in ascending order.
func (t *Tracker) Missed() []interval.Segment[int64] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	bounds, ok := t.seen.Bounds()
	if !ok {
		return nil
	}
	return t.seen.Gaps(bounds).Collect()
}

// ObservedCount returns the total number of distinct sequence numbers seen.
func (t *Tracker) ObservedCount() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seen.CoverageLength()
}

// Contains reports whether the given sequence number was observed.
func (t *Tracker) Contains(seq int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seen.Contains(seq)
}

// Stats returns current statistics about the tracked timeline.
func (t *Tracker) Stats() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := map[string]any{
		"polls":    t.polls,
		"observed": t.seen.CoverageLength(),
		"windows":  t.seen.Len(),
	}
	if bounds, ok := t.seen.Bounds(); ok {
		stats["first_sequence"] = bounds.Start
		stats["last_sequence"] = bounds.End - 1
	}
	return stats
}
