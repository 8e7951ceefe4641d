package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// MarkRead advances a user's read cursor in a room and returns the stored
// value. The cursor never moves backwards: a stale or duplicate
// acknowledgement leaves the higher stored id in place, which also makes
// the call idempotent.
func (s *Store) MarkRead(roomID int64, username string, lastReadID int64) (int64, error) {
	if roomID <= 0 {
		return 0, errors.New("room id must be > 0")
	}
	if strings.TrimSpace(username) == "" {
		return 0, errors.New("username is required")
	}

	var exists int
	if err := s.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM rooms WHERE id = ?)`, roomID,
	).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check room %d: %w", roomID, err)
	}
	if exists == 0 {
		return 0, ErrNotFound
	}

	_, err := s.db.Exec(
		`INSERT INTO room_reads (room_id, username, last_read_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(room_id, username) DO UPDATE SET
			last_read_id = MAX(COALESCE(room_reads.last_read_id, 0), excluded.last_read_id),
			updated_at = excluded.updated_at`,
		roomID,
		username,
		lastReadID,
		nowTimestamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("mark read for room %d user %q: %w", roomID, username, err)
	}

	return s.LastRead(roomID, username)
}

// LastRead returns the user's stored read cursor for a room, or 0 when the
// user has never acknowledged anything there.
func (s *Store) LastRead(roomID int64, username string) (int64, error) {
	var lastRead sql.NullInt64
	err := s.db.QueryRow(
		`SELECT last_read_id FROM room_reads WHERE room_id = ? AND username = ?`,
		roomID,
		username,
	).Scan(&lastRead)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cursor for room %d user %q: %w", roomID, username, err)
	}
	if !lastRead.Valid {
		return 0, nil
	}
	return lastRead.Int64, nil
}
