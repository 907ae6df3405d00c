package timeline

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/agleyzer/segments/pkg/interval"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// mediaPlaylist renders a live media playlist window starting at the
// given media sequence number.
func mediaPlaylist(seqNo, segments int) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString("#EXT-X-TARGETDURATION:10\n")
	fmt.Fprintf(&b, "#EXT-X-MEDIA-SEQUENCE:%d\n", seqNo)
	for i := 0; i < segments; i++ {
		b.WriteString("#EXTINF:10.000,\n")
		fmt.Fprintf(&b, "seg%d.ts\n", seqNo+i)
	}
	return b.String()
}

func observe(t *testing.T, tr *Tracker, seqNo, segments int) {
	t.Helper()
	if err := tr.ObserveReader(strings.NewReader(mediaPlaylist(seqNo, segments))); err != nil {
		t.Fatalf("Failed to observe playlist window at %d: %v", seqNo, err)
	}
}

func TestTracker_ContiguousPolls(t *testing.T) {
	tr := NewTracker(createTestLogger())

	observe(t, tr, 0, 6)
	observe(t, tr, 3, 6)
	observe(t, tr, 6, 6)

	if missed := tr.Missed(); len(missed) != 0 {
		t.Errorf("Expected no missed ranges, got %v", missed)
	}
	if got := tr.ObservedCount(); got != 12 {
		t.Errorf("Expected 12 observed sequence numbers, got %d", got)
	}
}

func TestTracker_MissedWindow(t *testing.T) {
	tr := NewTracker(createTestLogger())

	// The poller slept through sequences 6..9.
	observe(t, tr, 0, 6)
	observe(t, tr, 10, 6)

	want := []interval.Segment[int64]{{Start: 6, End: 10}}
	if diff := cmp.Diff(want, tr.Missed()); diff != "" {
		t.Errorf("Unexpected missed ranges (-want +got):\n%s", diff)
	}

	// A later overlapping poll cannot recover lost segments.
	observe(t, tr, 8, 6)
	want = []interval.Segment[int64]{{Start: 6, End: 8}}
	if diff := cmp.Diff(want, tr.Missed()); diff != "" {
		t.Errorf("Unexpected missed ranges after recovery (-want +got):\n%s", diff)
	}
}

func TestTracker_Contains(t *testing.T) {
	tr := NewTracker(createTestLogger())
	observe(t, tr, 5, 3)

	if !tr.Contains(6) {
		t.Error("Expected sequence 6 to be observed")
	}
	if tr.Contains(8) {
		t.Error("Expected sequence 8 to be unobserved")
	}
}

func TestTracker_EmptyTracker(t *testing.T) {
	tr := NewTracker(createTestLogger())

	if missed := tr.Missed(); missed != nil {
		t.Errorf("Expected nil missed ranges for empty tracker, got %v", missed)
	}
	if got := tr.ObservedCount(); got != 0 {
		t.Errorf("Expected 0 observed, got %d", got)
	}
}

func TestTracker_RejectsMasterPlaylist(t *testing.T) {
	master := "#EXTM3U\n" +
		"#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=1000000\n" +
		"variant0.m3u8\n"

	tr := NewTracker(createTestLogger())
	if err := tr.ObserveReader(strings.NewReader(master)); err == nil {
		t.Error("Expected error for master playlist")
	}
}

func TestTracker_RejectsGarbage(t *testing.T) {
	tr := NewTracker(createTestLogger())
	if err := tr.ObserveReader(strings.NewReader("not a playlist")); err == nil {
		t.Error("Expected error for malformed input")
	}
}

func TestTracker_Stats(t *testing.T) {
	tr := NewTracker(createTestLogger())
	observe(t, tr, 2, 4)
	observe(t, tr, 10, 2)

	stats := tr.Stats()
	if stats["polls"].(int) != 2 {
		t.Errorf("Expected 2 polls, got %v", stats["polls"])
	}
	if stats["windows"].(int) != 2 {
		t.Errorf("Expected 2 windows, got %v", stats["windows"])
	}
	if stats["observed"].(int64) != 6 {
		t.Errorf("Expected 6 observed, got %v", stats["observed"])
	}
	if stats["first_sequence"].(int64) != 2 {
		t.Errorf("Expected first sequence 2, got %v", stats["first_sequence"])
	}
	if stats["last_sequence"].(int64) != 11 {
		t.Errorf("Expected last sequence 11, got %v", stats["last_sequence"])
	}
}
