package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"gochat/api"
	"gochat/models"
)

// fakeBackend is a minimal in-memory chat API for exercising the
// synchronizer without a real server.
type fakeBackend struct {
	mu       sync.Mutex
	roomID   int64
	history  []models.Message
	sent     []string
	marks    []int64
	nextID   int64
	envelope bool // wrap /room/find responses in a data envelope

	live   chan models.Message
	server *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	f := &fakeBackend{
		roomID: 42,
		nextID: 1,
		live:   make(chan models.Message, 16),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/room/find", f.handleFind)
	mux.HandleFunc("/api/room", f.handleRoom)
	mux.HandleFunc("/api/chat", f.handleHistory)
	mux.HandleFunc("/api/chat/send", f.handleSend)
	mux.HandleFunc("/api/chat/subscribe", f.handleSubscribe)
	mux.HandleFunc("/api/room/read/", f.handleMarkRead)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeBackend) baseURL() string {
	return f.server.URL + "/api"
}

func (f *fakeBackend) client() *api.Client {
	return api.NewClient(f.baseURL(), func() string { return "test-token" })
}

// seed appends a message to history and returns it.
func (f *fakeBackend) seed(sender, body string) models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := models.Message{
		ID:        f.nextID,
		RoomID:    f.roomID,
		Sender:    sender,
		Body:      body,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	f.nextID++
	f.history = append(f.history, msg)
	return msg
}

// push emits a message on the live stream without adding it to history.
func (f *fakeBackend) push(msg models.Message) {
	f.live <- msg
}

func (f *fakeBackend) sentBodies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeBackend) markedCursors() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.marks...)
}

func (f *fakeBackend) handleFind(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	room := models.Room{ID: f.roomID, Participants: []string{"alice", "bob"}}
	envelope := f.envelope
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if envelope {
		json.NewEncoder(w).Encode(map[string]any{"success": 1, "data": room})
		return
	}
	json.NewEncoder(w).Encode(room)
}

func (f *fakeBackend) handleRoom(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)

	f.mu.Lock()
	roomID := f.roomID
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if id != roomID {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"success": 0, "error": "room not found"})
		return
	}
	json.NewEncoder(w).Encode([]models.Room{{ID: roomID, Participants: []string{"alice", "bob"}}})
}

func (f *fakeBackend) handleHistory(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	history := append([]models.Message(nil), f.history...)
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(history)
}

func (f *fakeBackend) handleSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID  int64  `json:"room_id"`
		Message string `json:"message"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.sent = append(f.sent, req.Message)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": 1})
}

func (f *fakeBackend) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-f.live:
			payload, _ := json.Marshal(msg)
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (f *fakeBackend) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LastReadID int64 `json:"last_read_id"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.marks = append(f.marks, req.LastReadID)
	f.mu.Unlock()

	roomID, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/room/read/"), 10, 64)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": 1, "last_read_id": req.LastReadID, "room_id": roomID})
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
