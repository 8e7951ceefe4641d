package session

import (
	"testing"

	"gochat/models"
)

func TestStoreBeginPersistsAcrossReopen(t *testing.T) {
	dataDir := t.TempDir()

	store, err := OpenStore(dataDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if store.Current().Active() {
		t.Fatalf("expected no active session in a fresh data dir")
	}

	err = store.Begin(Session{Username: "alice", Token: "tok-1"})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.SetUserID(7); err != nil {
		t.Fatalf("SetUserID failed: %v", err)
	}
	if err := store.CacheFriends([]models.Friend{{ID: 1, FriendName: "bob"}}); err != nil {
		t.Fatalf("CacheFriends failed: %v", err)
	}

	reopened, err := OpenStore(dataDir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	got := reopened.Current()
	if !got.Active() {
		t.Fatalf("expected active session after reopen")
	}
	if got.Username != "alice" || got.Token != "tok-1" || got.UserID != 7 {
		t.Fatalf("unexpected session after reopen: %+v", got)
	}
	if len(got.Friends) != 1 || got.Friends[0].FriendName != "bob" {
		t.Fatalf("expected cached friend list to survive reopen, got %+v", got.Friends)
	}
}

func TestStoreBeginRejectsIncompleteSessions(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := store.Begin(Session{Token: "tok"}); err == nil {
		t.Fatalf("expected error for missing username")
	}
	if err := store.Begin(Session{Username: "alice"}); err == nil {
		t.Fatalf("expected error for missing token")
	}
}

func TestStoreResetClearsEverything(t *testing.T) {
	dataDir := t.TempDir()

	store, err := OpenStore(dataDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Begin(Session{Username: "alice", Token: "tok"}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	if err := store.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if store.Current().Active() {
		t.Fatalf("expected inactive session after reset")
	}

	// Reset with no persisted file must not fail.
	if err := store.Reset(); err != nil {
		t.Fatalf("second Reset failed: %v", err)
	}

	reopened, err := OpenStore(dataDir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	if reopened.Current().Active() {
		t.Fatalf("expected reset session to stay cleared after reopen")
	}
}
