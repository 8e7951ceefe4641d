package chat

import (
	"testing"
	"time"
)

func TestReadMarkerSkipsStaleCursors(t *testing.T) {
	backend := newFakeBackend(t)
	marker := NewReadMarker(backend.client())

	marker.Submit(42, 3)
	marker.Submit(42, 7)
	marker.Submit(42, 5) // stale, must never reach the server
	marker.Close()

	marks := backend.markedCursors()
	if len(marks) != 2 || marks[0] != 3 || marks[1] != 7 {
		t.Fatalf("got reported cursors %v, want [3 7]", marks)
	}
}

func TestReadMarkerTracksRoomsIndependently(t *testing.T) {
	backend := newFakeBackend(t)
	marker := NewReadMarker(backend.client())

	marker.Submit(1, 5)
	marker.Submit(2, 3) // lower id, different room: still reported
	marker.Close()

	if marks := backend.markedCursors(); len(marks) != 2 {
		t.Fatalf("got %d reports, want 2: %v", len(marks), marks)
	}
}

func TestReadMarkerIgnoresInvalidSubmissions(t *testing.T) {
	backend := newFakeBackend(t)
	marker := NewReadMarker(backend.client())

	marker.Submit(0, 5)
	marker.Submit(42, 0)
	marker.Close()

	if marks := backend.markedCursors(); len(marks) != 0 {
		t.Fatalf("got %d reports, want 0", len(marks))
	}
}

func TestReadMarkerFailuresStayQuiet(t *testing.T) {
	backend := newFakeBackend(t)
	marker := NewReadMarker(backend.client())
	backend.server.Close()

	// Reports against a dead server must neither block nor panic.
	marker.Submit(42, 1)
	done := make(chan struct{})
	go func() {
		marker.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Close did not return")
	}

	// Close is idempotent.
	marker.Close()
}

func TestReadMarkerSubmitAfterClose(t *testing.T) {
	backend := newFakeBackend(t)
	marker := NewReadMarker(backend.client())
	marker.Close()

	// Must be a silent no-op rather than a panic on a closed channel.
	marker.Submit(42, 1)
}
