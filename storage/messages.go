package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxMessageLength mirrors the send endpoint's body limit, counted in
// runes so multi-byte text gets the same budget as ASCII.
const maxMessageLength = 500

// SaveMessage appends one message to a room and returns the stored row,
// including its server-assigned id.
func (s *Store) SaveMessage(roomID int64, sender, body string) (*Message, error) {
	if roomID <= 0 {
		return nil, errors.New("room id must be > 0")
	}
	if strings.TrimSpace(sender) == "" {
		return nil, errors.New("sender is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("message body is required")
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return nil, fmt.Errorf("message exceeds %d characters", maxMessageLength)
	}

	var exists int
	if err := s.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM rooms WHERE id = ?)`, roomID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check room %d: %w", roomID, err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	message := Message{
		RoomID:    roomID,
		Sender:    sender,
		Body:      body,
		Timestamp: nowTimestamp(),
	}

	result, err := s.db.Exec(
		`INSERT INTO chat_messages (room_id, sender, message, timestamp)
		VALUES (?, ?, ?, ?)`,
		message.RoomID,
		message.Sender,
		message.Body,
		message.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message for room %d: %w", roomID, err)
	}

	message.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read new message id: %w", err)
	}
	return &message, nil
}

// GetMessages returns a room's full history ordered by id ascending.
func (s *Store) GetMessages(roomID int64) ([]Message, error) {
	if roomID <= 0 {
		return nil, errors.New("room id must be > 0")
	}

	rows, err := s.db.Query(
		`SELECT id, room_id, sender, message, timestamp
		FROM chat_messages
		WHERE room_id = ?
		ORDER BY id ASC`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("get messages for room %d: %w", roomID, err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var message Message
		if err := rows.Scan(
			&message.ID,
			&message.RoomID,
			&message.Sender,
			&message.Body,
			&message.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}

	return messages, nil
}

func (s *Store) lastMessage(roomID int64) (*Message, error) {
	var message Message
	err := s.db.QueryRow(
		`SELECT id, room_id, sender, message, timestamp
		FROM chat_messages
		WHERE room_id = ?
		ORDER BY id DESC
		LIMIT 1`,
		roomID,
	).Scan(
		&message.ID,
		&message.RoomID,
		&message.Sender,
		&message.Body,
		&message.Timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("last message for room %d: %w", roomID, err)
	}
	return &message, nil
}
