package storage

import (
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dataDir := t.TempDir()
	store, _, err := Open(dataDir)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close test store: %v", err)
		}
	})

	return store
}

func mustCreateUser(t *testing.T, store *Store, username string) int64 {
	t.Helper()

	id, err := store.CreateUser(username, "bcrypt-hash-"+username)
	if err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return id
}

func mustCreateRoom(t *testing.T, store *Store, participants ...string) *Room {
	t.Helper()

	room, err := store.FindOrCreateRoom(participants)
	if err != nil {
		t.Fatalf("create room for %v: %v", participants, err)
	}
	return room
}
