package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"gochat/api"
	"gochat/models"
	"gochat/stream"
)

// Phase is the lifecycle state of a conversation.
type Phase int

const (
	// PhaseResolving: looking up the room for the participant pair.
	PhaseResolving Phase = iota
	// PhaseLoading: room known, fetching history.
	PhaseLoading
	// PhaseLive: history loaded and the event stream attached.
	PhaseLive
	// PhaseFailed: setup failed; Err carries the cause.
	PhaseFailed
	// PhaseClosed: torn down by Close.
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseResolving:
		return "resolving"
	case PhaseLoading:
		return "loading"
	case PhaseLive:
		return "live"
	case PhaseFailed:
		return "failed"
	case PhaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

const maxDraftLength = 500

var (
	// ErrEmptyDraft means the draft was blank after trimming; callers
	// treat it as a no-op and keep the input untouched.
	ErrEmptyDraft = errors.New("chat: draft is empty")
	// ErrDraftTooLong means the draft exceeds the message size limit.
	ErrDraftTooLong = fmt.Errorf("chat: draft exceeds %d characters", maxDraftLength)
	// ErrNotReady means the room is not resolved yet.
	ErrNotReady = errors.New("chat: conversation is not ready")
)

// Entry is one message annotated with whether the local user sent it.
type Entry struct {
	models.Message
	Mine bool
}

// Options configures Open.
type Options struct {
	// Client issues the REST calls. Required.
	Client *api.Client
	// Me is the local username; messages from it are tagged Mine. Required.
	Me string
	// Peer is the other participant. Required unless RoomID is set.
	Peer string
	// RoomID opens a known room directly, skipping pair resolution; the
	// peer is derived from the room's participants.
	RoomID int64

	// OnUpdate fires after the phase or the entry list changes. It is
	// called from the conversation's own goroutines; implementations must
	// hop to their UI thread themselves.
	OnUpdate func()
	// Marks, when set, receives the read cursor as messages are seen.
	Marks *ReadMarker
	// Stream tunes the live subscription; RoomID and OnMessage are filled
	// in by the conversation and BaseURL defaults to the client's.
	Stream stream.Config
}

// Conversation synchronizes one DM room: it resolves the room, loads
// history, then folds live events into an ordered, duplicate-free entry
// list. All mutation happens under one lock; reads hand out copies.
type Conversation struct {
	opts Options

	mu      sync.Mutex
	phase   Phase
	err     error
	roomID  int64
	peer    string
	entries []Entry
	seen    map[int64]bool
	lastID  int64
	sub     *stream.Subscription

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Open starts a conversation with peer and returns immediately; setup
// continues in the background and progress is reported through OnUpdate.
func Open(options Options) (*Conversation, error) {
	if options.Client == nil {
		return nil, errors.New("chat: client is required")
	}
	options.Me = strings.TrimSpace(options.Me)
	options.Peer = strings.TrimSpace(options.Peer)
	if options.Me == "" {
		return nil, errors.New("chat: local username is required")
	}
	if options.Peer == "" && options.RoomID <= 0 {
		return nil, errors.New("chat: a peer or a room id is required")
	}
	if options.Me == options.Peer {
		return nil, errors.New("chat: cannot talk to yourself")
	}

	conv := &Conversation{
		opts:  options,
		phase: PhaseResolving,
		peer:  options.Peer,
		seen:  make(map[int64]bool),
	}

	ctx, cancel := context.WithCancel(context.Background())
	conv.cancel = cancel
	conv.wg.Add(1)
	go conv.run(ctx)

	return conv, nil
}

// Phase returns the current lifecycle state.
func (c *Conversation) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Err returns the setup failure, if any.
func (c *Conversation) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// RoomID returns the resolved room id, or 0 while resolving.
func (c *Conversation) RoomID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// Peer returns the other participant's username. For a conversation
// opened by room id it is empty until the room has been loaded.
func (c *Conversation) Peer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peer
}

// Entries returns a copy of the message list, ordered by id ascending.
func (c *Conversation) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Send submits a draft. The draft is trimmed first; a blank draft is
// rejected with ErrEmptyDraft before any network traffic. The sent message
// is not appended locally: it arrives through the live stream like any
// other, so the list has a single source of ordering.
func (c *Conversation) Send(ctx context.Context, draft string) error {
	text := strings.TrimSpace(draft)
	if text == "" {
		return ErrEmptyDraft
	}
	if utf8.RuneCountInString(text) > maxDraftLength {
		return ErrDraftTooLong
	}

	c.mu.Lock()
	roomID := c.roomID
	c.mu.Unlock()
	if roomID == 0 {
		return ErrNotReady
	}

	result := c.opts.Client.Post(ctx, "/chat/send", map[string]any{
		"room_id": roomID,
		"message": text,
	})
	if !result.Success {
		return fmt.Errorf("send message: %s", result.Error)
	}
	return nil
}

// Close tears the conversation down: the stream is detached exactly once
// and no callbacks fire afterwards. Safe to call repeatedly.
func (c *Conversation) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.phase = PhaseClosed
		sub := c.sub
		c.sub = nil
		c.mu.Unlock()

		c.cancel()
		c.wg.Wait()
		if sub != nil {
			sub.Close()
		}
	})
}

func (c *Conversation) run(ctx context.Context) {
	defer c.wg.Done()

	var (
		room models.Room
		err  error
	)
	if c.opts.RoomID > 0 {
		room, err = fetchRoom(ctx, c.opts.Client, c.opts.RoomID)
	} else {
		room, err = FindOrCreateDMRoom(ctx, c.opts.Client, c.opts.Me, c.opts.Peer)
	}
	if err != nil {
		c.fail(err)
		return
	}
	peer := c.opts.Peer
	if peer == "" {
		peer = room.Other(c.opts.Me)
	}
	if !c.advance(PhaseLoading, room.ID, peer) {
		return
	}

	history, err := fetchHistory(ctx, c.opts.Client, room.ID)
	if err != nil {
		c.fail(err)
		return
	}
	c.mergeBatch(history)

	cfg := c.opts.Stream
	if cfg.BaseURL == "" {
		cfg.BaseURL = c.opts.Client.BaseURL()
	}
	cfg.RoomID = room.ID
	cfg.OnMessage = c.handleLive
	sub, err := stream.SubscribeWith(cfg)
	if err != nil {
		c.fail(err)
		return
	}

	c.mu.Lock()
	if c.phase == PhaseClosed {
		c.mu.Unlock()
		sub.Close()
		return
	}
	c.sub = sub
	c.phase = PhaseLive
	c.mu.Unlock()
	c.notify()
}

// advance moves to the next setup phase unless the conversation was closed
// meanwhile.
func (c *Conversation) advance(phase Phase, roomID int64, peer string) bool {
	c.mu.Lock()
	if c.phase == PhaseClosed {
		c.mu.Unlock()
		return false
	}
	c.phase = phase
	c.roomID = roomID
	c.peer = peer
	c.mu.Unlock()
	c.notify()
	return true
}

func (c *Conversation) fail(err error) {
	c.mu.Lock()
	if c.phase == PhaseClosed {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseFailed
	c.err = err
	c.mu.Unlock()
	c.notify()
}

// mergeBatch folds the history load into the entry list.
func (c *Conversation) mergeBatch(history []models.Message) {
	c.mu.Lock()
	if c.phase == PhaseClosed {
		c.mu.Unlock()
		return
	}
	changed := false
	for _, msg := range history {
		if c.mergeLocked(msg) {
			changed = true
		}
	}
	lastID := c.lastID
	c.mu.Unlock()

	if changed {
		c.notify()
	}
	c.submitMark(lastID)
}

// handleLive folds one stream event into the entry list. Events for other
// rooms are dropped even though the subscription already filters them.
func (c *Conversation) handleLive(msg models.Message) {
	c.mu.Lock()
	if c.phase == PhaseClosed || msg.RoomID != c.roomID {
		c.mu.Unlock()
		return
	}
	changed := c.mergeLocked(msg)
	lastID := c.lastID
	c.mu.Unlock()

	if !changed {
		return
	}
	c.notify()
	c.submitMark(lastID)
}

// mergeLocked inserts msg in id order, skipping duplicates. Callers hold
// the lock.
func (c *Conversation) mergeLocked(msg models.Message) bool {
	if msg.ID <= 0 || c.seen[msg.ID] {
		return false
	}
	c.seen[msg.ID] = true

	entry := Entry{Message: msg, Mine: msg.Sender == c.opts.Me}
	if n := len(c.entries); n == 0 || c.entries[n-1].ID < msg.ID {
		c.entries = append(c.entries, entry)
	} else {
		at := sort.Search(len(c.entries), func(i int) bool {
			return c.entries[i].ID > msg.ID
		})
		c.entries = append(c.entries, Entry{})
		copy(c.entries[at+1:], c.entries[at:])
		c.entries[at] = entry
	}
	if msg.ID > c.lastID {
		c.lastID = msg.ID
	}
	return true
}

func (c *Conversation) submitMark(lastID int64) {
	if c.opts.Marks == nil || lastID == 0 {
		return
	}
	c.mu.Lock()
	roomID := c.roomID
	c.mu.Unlock()
	c.opts.Marks.Submit(roomID, lastID)
}

func (c *Conversation) notify() {
	if c.opts.OnUpdate == nil {
		return
	}
	c.mu.Lock()
	closed := c.phase == PhaseClosed
	c.mu.Unlock()
	if closed {
		return
	}
	c.opts.OnUpdate()
}
