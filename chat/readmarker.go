package chat

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gochat/api"
)

const (
	markQueueSize = 32
	markTimeout   = 5 * time.Second
)

type mark struct {
	roomID     int64
	lastReadID int64
}

// ReadMarker reports read cursors to the server from a single background
// worker. Submissions are best effort: a failed or dropped report is only
// logged, never surfaced, and a later submission carries a higher cursor
// anyway.
type ReadMarker struct {
	client *api.Client

	mu      sync.Mutex
	highest map[int64]int64
	closed  bool

	queue     chan mark
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewReadMarker starts the report worker.
func NewReadMarker(client *api.Client) *ReadMarker {
	r := &ReadMarker{
		client:  client,
		highest: make(map[int64]int64),
		queue:   make(chan mark, markQueueSize),
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

// Submit queues a cursor report. Submissions at or below the highest value
// already queued for the room are skipped, so the reported cursor never
// moves backwards.
func (r *ReadMarker) Submit(roomID, messageID int64) {
	if roomID <= 0 || messageID <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.highest[roomID] >= messageID {
		return
	}
	r.highest[roomID] = messageID

	// Enqueued under the lock so Close cannot shut the channel mid-send.
	select {
	case r.queue <- mark{roomID: roomID, lastReadID: messageID}:
	default:
		log.Printf("chat: read marker queue full, dropping report for room %d", roomID)
	}
}

// Close stops the worker after draining queued reports.
func (r *ReadMarker) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.queue)
		r.wg.Wait()
	})
}

func (r *ReadMarker) worker() {
	defer r.wg.Done()
	for m := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), markTimeout)
		result := r.client.Post(ctx, fmt.Sprintf("/room/read/%d", m.roomID), map[string]any{
			"last_read_id": m.lastReadID,
		})
		cancel()
		if !result.Success {
			log.Printf("chat: mark read failed for room %d: %s", m.roomID, result.Error)
		}
	}
}
