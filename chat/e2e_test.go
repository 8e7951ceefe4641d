package chat_test

import (
	"context"
	"net"
	"net/url"
	"testing"
	"time"

	"gochat/api"
	"gochat/chat"
	"gochat/models"
	"gochat/server"
	"gochat/storage"
)

// startServer runs the real API server on a loopback port.
func startServer(t *testing.T) string {
	t.Helper()
	store, _, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	srv := server.New(server.Options{
		Store:             store,
		JWTSecret:         "e2e-secret",
		KeepAliveInterval: 100 * time.Millisecond,
		Quiet:             true,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(ln)
	t.Cleanup(func() {
		srv.Shutdown()
		store.Close()
	})

	return "http://" + ln.Addr().String() + "/api"
}

// registerUser signs a user up and returns an authenticated API client.
func registerUser(t *testing.T, baseURL, username string) *api.Client {
	t.Helper()
	ctx := context.Background()
	creds := map[string]string{"username": username, "password": "secret"}

	anon := api.NewClient(baseURL, nil)
	if result := anon.Post(ctx, "/signup", creds); !result.Success {
		t.Fatalf("signup %s: %s", username, result.Error)
	}
	result := anon.Post(ctx, "/login", creds)
	if !result.Success {
		t.Fatalf("login %s: %s", username, result.Error)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := result.Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return api.NewClient(baseURL, func() string { return login.Token })
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// TestTwoUserConversation drives the full path: two accounts resolve the
// same room, exchange messages over the live stream, see their own echoes
// tagged as theirs, and end with a clean read cursor.
func TestTwoUserConversation(t *testing.T) {
	baseURL := startServer(t)
	alice := registerUser(t, baseURL, "alice")
	bob := registerUser(t, baseURL, "bob")

	aliceMarks := chat.NewReadMarker(alice)
	defer aliceMarks.Close()

	aliceConv, err := chat.Open(chat.Options{
		Client: alice,
		Me:     "alice",
		Peer:   "bob",
		Marks:  aliceMarks,
	})
	if err != nil {
		t.Fatalf("open alice conversation: %v", err)
	}
	defer aliceConv.Close()

	bobConv, err := chat.Open(chat.Options{
		Client: bob,
		Me:     "bob",
		Peer:   "alice",
	})
	if err != nil {
		t.Fatalf("open bob conversation: %v", err)
	}
	defer bobConv.Close()

	waitFor(t, "both conversations live", func() bool {
		return aliceConv.Phase() == chat.PhaseLive && bobConv.Phase() == chat.PhaseLive
	})
	if aliceConv.RoomID() != bobConv.RoomID() {
		t.Fatalf("participants resolved different rooms: %d vs %d",
			aliceConv.RoomID(), bobConv.RoomID())
	}

	ctx := context.Background()
	if err := aliceConv.Send(ctx, "hi bob"); err != nil {
		t.Fatalf("alice send: %v", err)
	}

	waitFor(t, "bob receives the message", func() bool {
		return len(bobConv.Entries()) == 1
	})
	waitFor(t, "alice receives her echo", func() bool {
		return len(aliceConv.Entries()) == 1
	})

	bobSide := bobConv.Entries()[0]
	if bobSide.Sender != "alice" || bobSide.Mine {
		t.Fatalf("bob's view wrong: %+v", bobSide)
	}
	aliceSide := aliceConv.Entries()[0]
	if !aliceSide.Mine || aliceSide.Body != "hi bob" {
		t.Fatalf("alice's echo wrong: %+v", aliceSide)
	}

	if err := bobConv.Send(ctx, "hi alice"); err != nil {
		t.Fatalf("bob send: %v", err)
	}
	waitFor(t, "alice receives bob's reply", func() bool {
		return len(aliceConv.Entries()) == 2
	})
	reply := aliceConv.Entries()[1]
	if reply.Mine || reply.Sender != "bob" {
		t.Fatalf("alice's view of the reply wrong: %+v", reply)
	}

	// Alice's read marker has seen everything, so her room list shows no
	// unread messages once the background report lands.
	waitFor(t, "alice's unread count to clear", func() bool {
		result := alice.Get(ctx, "/room/list", url.Values{"username": {"alice"}})
		if !result.Success {
			return false
		}
		var rooms []models.RoomSummary
		if err := result.Decode(&rooms); err != nil || len(rooms) != 1 {
			return false
		}
		return rooms[0].UnreadCount == 0
	})
}

// TestLateSubscriberStillGetsNewMessages covers the seam between history
// and the live stream: messages sent before the subscription attaches come
// from history, later ones from the stream, without gaps or duplicates.
func TestLateSubscriberStillGetsNewMessages(t *testing.T) {
	baseURL := startServer(t)
	alice := registerUser(t, baseURL, "alice")
	bob := registerUser(t, baseURL, "bob")

	// Alice messages before bob ever opens the conversation.
	room, err := chat.FindOrCreateDMRoom(context.Background(), alice, "alice", "bob")
	if err != nil {
		t.Fatalf("resolve room: %v", err)
	}
	ctx := context.Background()
	if result := alice.Post(ctx, "/chat/send", map[string]any{
		"room_id": room.ID, "message": "early bird",
	}); !result.Success {
		t.Fatalf("early send: %s", result.Error)
	}

	// Bob opens by room id, the way a room-list click does, so this also
	// exercises the single-room lookup against the real server.
	bobConv, err := chat.Open(chat.Options{Client: bob, Me: "bob", RoomID: room.ID})
	if err != nil {
		t.Fatalf("open bob conversation: %v", err)
	}
	defer bobConv.Close()

	// The early message arrives via history, later ones via the stream.
	waitFor(t, "history message", func() bool {
		return len(bobConv.Entries()) == 1
	})
	if result := alice.Post(ctx, "/chat/send", map[string]any{
		"room_id": room.ID, "message": "second",
	}); !result.Success {
		t.Fatalf("second send: %s", result.Error)
	}
	waitFor(t, "streamed message", func() bool {
		return len(bobConv.Entries()) == 2
	})

	entries := bobConv.Entries()
	if entries[0].Body != "early bird" || entries[1].Body != "second" {
		t.Fatalf("wrong order: %+v", entries)
	}
}
