package storage

import (
	"errors"
	"testing"
)

func TestFriendAddListDelete(t *testing.T) {
	store := newTestStore(t)

	aliceID := mustCreateUser(t, store, "alice")
	bobID := mustCreateUser(t, store, "bob")

	added, err := store.AddFriend(Friend{
		UserID:       aliceID,
		FriendID:     bobID,
		FriendName:   "bob",
		FriendAvatar: "https://example.com/b.webp",
		FriendStatus: "hello",
	})
	if err != nil {
		t.Fatalf("AddFriend failed: %v", err)
	}
	if added.ID == 0 {
		t.Fatalf("expected assigned friend row id")
	}

	friends, err := store.GetFriends(aliceID)
	if err != nil {
		t.Fatalf("GetFriends failed: %v", err)
	}
	if len(friends) != 1 || friends[0].FriendName != "bob" {
		t.Fatalf("unexpected friend list %+v", friends)
	}

	// The relationship is one-directional.
	bobFriends, err := store.GetFriends(bobID)
	if err != nil {
		t.Fatalf("GetFriends for bob failed: %v", err)
	}
	if len(bobFriends) != 0 {
		t.Fatalf("expected no friends for bob, got %+v", bobFriends)
	}

	if err := store.DeleteFriend(added.ID); err != nil {
		t.Fatalf("DeleteFriend failed: %v", err)
	}
	if err := store.DeleteFriend(added.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestFriendAddRejectsInvalidRows(t *testing.T) {
	store := newTestStore(t)

	aliceID := mustCreateUser(t, store, "alice")
	bobID := mustCreateUser(t, store, "bob")

	if _, err := store.AddFriend(Friend{UserID: aliceID, FriendID: aliceID, FriendName: "me"}); err == nil {
		t.Fatalf("expected self-add to be rejected")
	}

	if _, err := store.AddFriend(Friend{UserID: aliceID, FriendID: 999, FriendName: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown target, got %v", err)
	}

	if _, err := store.AddFriend(Friend{UserID: aliceID, FriendID: bobID, FriendName: "bob"}); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if _, err := store.AddFriend(Friend{UserID: aliceID, FriendID: bobID, FriendName: "bob"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on repeat add, got %v", err)
	}
}
