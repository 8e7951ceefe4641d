package models

// Friend is one contact row owned by a user. Display fields are
// denormalized at add time so the list renders without extra lookups.
type Friend struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	FriendID     int64  `json:"friend_id"`
	FriendName   string `json:"friend_name"`
	FriendAvatar string `json:"friend_avatar"`
	FriendStatus string `json:"friend_status"`
}
