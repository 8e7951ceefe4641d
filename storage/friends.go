package storage

import (
	"errors"
	"fmt"
	"strings"
)

// AddFriend inserts a contact row for a user. Self-adds and duplicates are
// rejected; both accounts must exist.
func (s *Store) AddFriend(friend Friend) (*Friend, error) {
	if friend.UserID == 0 || friend.FriendID == 0 {
		return nil, errors.New("user_id and friend_id are required")
	}
	if friend.UserID == friend.FriendID {
		return nil, errors.New("cannot add yourself as a friend")
	}
	if strings.TrimSpace(friend.FriendName) == "" {
		return nil, errors.New("friend_name is required")
	}

	for _, id := range []int64{friend.UserID, friend.FriendID} {
		var exists int
		if err := s.db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check user %d: %w", id, err)
		}
		if exists == 0 {
			return nil, ErrNotFound
		}
	}

	result, err := s.db.Exec(
		`INSERT INTO friends (user_id, friend_id, friend_name, friend_avatar, friend_status)
		VALUES (?, ?, ?, ?, ?)`,
		friend.UserID,
		friend.FriendID,
		friend.FriendName,
		friend.FriendAvatar,
		friend.FriendStatus,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert friend for user %d: %w", friend.UserID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read new friend id: %w", err)
	}

	friend.ID = id
	return &friend, nil
}

// GetFriends returns the contact rows owned by one user, oldest first.
func (s *Store) GetFriends(userID int64) ([]Friend, error) {
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}

	rows, err := s.db.Query(
		`SELECT id, user_id, friend_id, friend_name, friend_avatar, friend_status
		FROM friends WHERE user_id = ? ORDER BY id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get friends for user %d: %w", userID, err)
	}
	defer rows.Close()

	friends := make([]Friend, 0)
	for rows.Next() {
		var friend Friend
		if err := rows.Scan(
			&friend.ID,
			&friend.UserID,
			&friend.FriendID,
			&friend.FriendName,
			&friend.FriendAvatar,
			&friend.FriendStatus,
		); err != nil {
			return nil, fmt.Errorf("scan friend row: %w", err)
		}
		friends = append(friends, friend)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend rows: %w", err)
	}

	return friends, nil
}

// DeleteFriend removes one contact row by its id.
func (s *Store) DeleteFriend(id int64) error {
	if id <= 0 {
		return errors.New("friend id must be > 0")
	}

	result, err := s.db.Exec(`DELETE FROM friends WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete friend %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected for friend delete: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
