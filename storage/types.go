package storage

import (
	"errors"
)

var (
	// ErrNotFound indicates a requested row does not exist.
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicate indicates a uniqueness rule was violated.
	ErrDuplicate = errors.New("storage: record already exists")
)

// User is the SQLite representation of an account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	DisplayName  *string
	Status       *string
	Avatar       *string
}

// Friend is the SQLite representation of one contact row.
type Friend struct {
	ID           int64
	UserID       int64
	FriendID     int64
	FriendName   string
	FriendAvatar string
	FriendStatus string
}

// Room is the SQLite representation of a DM room. Participants are stored
// canonically: sorted, deduplicated, exactly two entries.
type Room struct {
	ID           int64
	Participants []string
}

// Message is the SQLite representation of a chat message.
type Message struct {
	ID        int64
	RoomID    int64
	Sender    string
	Body      string
	Timestamp string
}

// RoomSummary combines a room with per-user unread accounting.
type RoomSummary struct {
	Room
	UnreadCount int64
	LastMessage *Message
}
