package server

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestProfileLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signupAndLogin(t, srv, "alice")

	status, resp := doJSON(t, srv, http.MethodGet, "/api/profile?username=alice", "", nil)
	if status != http.StatusOK {
		t.Fatalf("get profile: status %d", status)
	}
	data, _ := resp["data"].(map[string]any)
	if data["username"] != "alice" || data["display_name"] != "" {
		t.Fatalf("fresh profile: got %v", data)
	}

	update := map[string]string{"display_name": "Alice", "status": "online", "avatar": "a.png"}
	status, resp = doJSON(t, srv, http.MethodPut, "/api/profile", token, update)
	if status != http.StatusOK {
		t.Fatalf("update profile: status %d", status)
	}
	data, _ = resp["data"].(map[string]any)
	if data["display_name"] != "Alice" || data["status"] != "online" || data["avatar"] != "a.png" {
		t.Fatalf("updated profile: got %v", data)
	}

	// Unauthenticated callers can still read it.
	_, resp = doJSON(t, srv, http.MethodGet, "/api/profile?username=alice", "", nil)
	data, _ = resp["data"].(map[string]any)
	if data["display_name"] != "Alice" {
		t.Fatalf("reload profile: got %v", data)
	}
}

func TestProfileUnknownUser(t *testing.T) {
	srv := newTestServer(t)
	status, _ := doJSON(t, srv, http.MethodGet, "/api/profile?username=ghost", "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", status)
	}
}

func TestUserSearch(t *testing.T) {
	srv := newTestServer(t)
	signupAndLogin(t, srv, "alice")
	signupAndLogin(t, srv, "alina")
	signupAndLogin(t, srv, "bob")

	status, resp := doJSON(t, srv, http.MethodGet, "/api/user?username=ali", "", nil)
	if status != http.StatusOK {
		t.Fatalf("search: status %d", status)
	}
	list, _ := resp["_list"].([]any)
	if len(list) != 2 {
		t.Fatalf("got %d matches, want 2: %v", len(list), list)
	}
	for _, entry := range list {
		user, _ := entry.(map[string]any)
		if _, leaked := user["password_hash"]; leaked {
			t.Fatal("user listing leaks password hashes")
		}
	}
}

func TestFriendLifecycle(t *testing.T) {
	srv := newTestServer(t)
	tokenA, aliceID := signupAndLogin(t, srv, "alice")
	_, bobID := signupAndLogin(t, srv, "bob")

	add := map[string]any{
		"user_id":     aliceID,
		"friend_id":   bobID,
		"friend_name": "bob",
	}
	status, resp := doJSON(t, srv, http.MethodPost, "/api/friend", tokenA, add)
	if status != http.StatusOK {
		t.Fatalf("add friend: status %d, resp %v", status, resp)
	}
	data, _ := resp["data"].(map[string]any)
	friendRowID := int64(data["id"].(float64))

	// Duplicate add is rejected.
	if status, _ := doJSON(t, srv, http.MethodPost, "/api/friend", tokenA, add); status != http.StatusBadRequest {
		t.Fatalf("duplicate add: got status %d, want 400", status)
	}

	listPath := fmt.Sprintf("/api/friend?user_id=%d", aliceID)
	_, resp = doJSON(t, srv, http.MethodGet, listPath, tokenA, nil)
	friends, _ := resp["data"].([]any)
	if len(friends) != 1 {
		t.Fatalf("got %d friends, want 1", len(friends))
	}

	deletePath := fmt.Sprintf("/api/friend?id=%d", friendRowID)
	if status, _ := doJSON(t, srv, http.MethodDelete, deletePath, tokenA, nil); status != http.StatusOK {
		t.Fatalf("delete friend: status %d", status)
	}
	_, resp = doJSON(t, srv, http.MethodGet, listPath, tokenA, nil)
	if friends, _ := resp["data"].([]any); len(friends) != 0 {
		t.Fatalf("got %d friends after delete, want 0", len(friends))
	}
}

func TestFriendRequiresExistingUsers(t *testing.T) {
	srv := newTestServer(t)
	token, aliceID := signupAndLogin(t, srv, "alice")

	add := map[string]any{"user_id": aliceID, "friend_id": 999, "friend_name": "ghost"}
	status, _ := doJSON(t, srv, http.MethodPost, "/api/friend", token, add)
	if status != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", status)
	}
}

func TestFindOrCreateRoomIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	tokenA, _ := signupAndLogin(t, srv, "alice")
	tokenB, _ := signupAndLogin(t, srv, "bob")

	first := map[string]any{"participants": []string{"alice", "bob"}}
	status, resp := doJSON(t, srv, http.MethodPost, "/api/room/find", tokenA, first)
	if status != http.StatusOK {
		t.Fatalf("find room: status %d, resp %v", status, resp)
	}
	roomID := resp["id"].(float64)

	// Same pair in the opposite order resolves to the same room.
	second := map[string]any{"participants": []string{"bob", "alice"}}
	_, resp = doJSON(t, srv, http.MethodPost, "/api/room/find", tokenB, second)
	if got := resp["id"].(float64); got != roomID {
		t.Fatalf("got room %v, want %v", got, roomID)
	}

	parts, _ := resp["participants"].([]any)
	if len(parts) != 2 || parts[0] != "alice" || parts[1] != "bob" {
		t.Fatalf("participants not canonical: %v", parts)
	}
}

func TestGetRoomByIDReturnsList(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signupAndLogin(t, srv, "alice")
	signupAndLogin(t, srv, "bob")

	body := map[string]any{"participants": []string{"alice", "bob"}}
	_, resp := doJSON(t, srv, http.MethodPost, "/api/room/find", token, body)
	roomID := resp["id"].(float64)

	status, resp := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/room?id=%.0f", roomID), token, nil)
	if status != http.StatusOK {
		t.Fatalf("get room: status %d, resp %v", status, resp)
	}
	rooms, ok := resp["_list"].([]any)
	if !ok || len(rooms) != 1 {
		t.Fatalf("got %v, want a one-element list", resp)
	}
	room, _ := rooms[0].(map[string]any)
	if got := room["id"].(float64); got != roomID {
		t.Fatalf("got room %v, want %v", got, roomID)
	}
}

func TestRoomRejectsNonPairs(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signupAndLogin(t, srv, "alice")

	for _, parts := range [][]string{{}, {"alice"}, {"alice", "bob", "carol"}} {
		body := map[string]any{"participants": parts}
		status, _ := doJSON(t, srv, http.MethodPost, "/api/room/find", token, body)
		if status != http.StatusBadRequest {
			t.Errorf("participants %v: got status %d, want 400", parts, status)
		}
	}
}

func TestChatSendAndHistory(t *testing.T) {
	srv := newTestServer(t)
	tokenA, _ := signupAndLogin(t, srv, "alice")
	tokenB, _ := signupAndLogin(t, srv, "bob")

	body := map[string]any{"participants": []string{"alice", "bob"}}
	_, resp := doJSON(t, srv, http.MethodPost, "/api/room/find", tokenA, body)
	roomID := int64(resp["id"].(float64))

	send := func(token, text string) map[string]any {
		payload := map[string]any{"room_id": roomID, "message": text}
		status, resp := doJSON(t, srv, http.MethodPost, "/api/chat/send", token, payload)
		if status != http.StatusOK {
			t.Fatalf("send %q: status %d, resp %v", text, status, resp)
		}
		chat, _ := resp["chat"].(map[string]any)
		return chat
	}

	first := send(tokenA, "hi bob")
	second := send(tokenB, "hi alice")
	if first["sender"] != "alice" || second["sender"] != "bob" {
		t.Fatalf("senders not taken from tokens: %v / %v", first, second)
	}
	if first["id"].(float64) >= second["id"].(float64) {
		t.Fatal("message ids must increase")
	}

	historyPath := fmt.Sprintf("/api/chat?room_id=%d", roomID)
	_, resp = doJSON(t, srv, http.MethodGet, historyPath, tokenA, nil)
	history, _ := resp["_list"].([]any)
	if len(history) != 2 {
		t.Fatalf("got %d messages, want 2", len(history))
	}
	oldest, _ := history[0].(map[string]any)
	if oldest["message"] != "hi bob" {
		t.Fatalf("history not oldest-first: %v", history)
	}
}

func TestChatSendValidation(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signupAndLogin(t, srv, "alice")
	signupAndLogin(t, srv, "bob")

	body := map[string]any{"participants": []string{"alice", "bob"}}
	_, resp := doJSON(t, srv, http.MethodPost, "/api/room/find", token, body)
	roomID := int64(resp["id"].(float64))

	tooLong := map[string]any{"room_id": roomID, "message": strings.Repeat("x", 501)}
	if status, _ := doJSON(t, srv, http.MethodPost, "/api/chat/send", token, tooLong); status != http.StatusBadRequest {
		t.Errorf("oversize message: got status %d, want 400", status)
	}

	empty := map[string]any{"room_id": roomID, "message": ""}
	if status, _ := doJSON(t, srv, http.MethodPost, "/api/chat/send", token, empty); status != http.StatusBadRequest {
		t.Errorf("empty message: got status %d, want 400", status)
	}

	ghost := map[string]any{"room_id": int64(999), "message": "hello"}
	if status, _ := doJSON(t, srv, http.MethodPost, "/api/chat/send", token, ghost); status != http.StatusNotFound {
		t.Errorf("unknown room: got status %d, want 404", status)
	}
}

func TestRoomListAndReadCursor(t *testing.T) {
	srv := newTestServer(t)
	tokenA, _ := signupAndLogin(t, srv, "alice")
	tokenB, _ := signupAndLogin(t, srv, "bob")

	body := map[string]any{"participants": []string{"alice", "bob"}}
	_, resp := doJSON(t, srv, http.MethodPost, "/api/room/find", tokenA, body)
	roomID := int64(resp["id"].(float64))

	var lastID float64
	for _, text := range []string{"one", "two", "three"} {
		payload := map[string]any{"room_id": roomID, "message": text}
		_, resp := doJSON(t, srv, http.MethodPost, "/api/chat/send", tokenA, payload)
		chat, _ := resp["chat"].(map[string]any)
		lastID = chat["id"].(float64)
	}

	listPath := "/api/room/list?username=bob"
	_, resp = doJSON(t, srv, http.MethodGet, listPath, tokenB, nil)
	rooms, _ := resp["_list"].([]any)
	if len(rooms) != 1 {
		t.Fatalf("got %d rooms, want 1", len(rooms))
	}
	entry, _ := rooms[0].(map[string]any)
	if entry["unread_count"].(float64) != 3 {
		t.Fatalf("got unread %v, want 3", entry["unread_count"])
	}
	last, _ := entry["last_message"].(map[string]any)
	if last["message"] != "three" {
		t.Fatalf("got last message %v, want three", last)
	}

	readPath := fmt.Sprintf("/api/room/read/%d", roomID)
	status, resp := doJSON(t, srv, http.MethodPost, readPath, tokenB, map[string]any{"last_read_id": lastID})
	if status != http.StatusOK {
		t.Fatalf("mark read: status %d", status)
	}
	if resp["last_read_id"].(float64) != lastID {
		t.Fatalf("got cursor %v, want %v", resp["last_read_id"], lastID)
	}

	// A stale submission must not move the cursor backwards.
	_, resp = doJSON(t, srv, http.MethodPost, readPath, tokenB, map[string]any{"last_read_id": 1})
	if resp["last_read_id"].(float64) != lastID {
		t.Fatalf("cursor moved backwards to %v", resp["last_read_id"])
	}

	_, resp = doJSON(t, srv, http.MethodGet, listPath, tokenB, nil)
	rooms, _ = resp["_list"].([]any)
	entry, _ = rooms[0].(map[string]any)
	if entry["unread_count"].(float64) != 0 {
		t.Fatalf("got unread %v after read, want 0", entry["unread_count"])
	}
}
