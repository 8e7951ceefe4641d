package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// canonicalParticipants normalizes a DM participant set: trimmed, sorted,
// deduplicated, exactly two entries. Every room read or written goes
// through this, so nothing deeper in the application ever branches on the
// stored shape.
func canonicalParticipants(participants []string) ([]string, error) {
	cleaned := make([]string, 0, len(participants))
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		cleaned = append(cleaned, p)
	}
	sort.Strings(cleaned)

	if len(cleaned) != 2 {
		return nil, errors.New("a DM room needs exactly two participants")
	}
	return cleaned, nil
}

func participantsKey(participants []string) (string, error) {
	canonical, err := canonicalParticipants(participants)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("marshal participants: %w", err)
	}
	return string(raw), nil
}

func parseParticipants(raw string) []string {
	var participants []string
	if err := json.Unmarshal([]byte(raw), &participants); err != nil {
		return nil
	}
	return participants
}

// CreateRoom inserts a room for a participant pair and returns it.
func (s *Store) CreateRoom(participants []string) (*Room, error) {
	key, err := participantsKey(participants)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(`INSERT INTO rooms (participants) VALUES (?)`, key)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read new room id: %w", err)
	}

	return &Room{ID: id, Participants: parseParticipants(key)}, nil
}

// FindOrCreateRoom returns the room whose participant set equals the given
// pair, creating it when absent. Repeated calls with the same pair always
// return the same room.
func (s *Store) FindOrCreateRoom(participants []string) (*Room, error) {
	key, err := participantsKey(participants)
	if err != nil {
		return nil, err
	}

	room, err := s.findRoomByKey(key)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	room, err = s.CreateRoom(participants)
	if errors.Is(err, ErrDuplicate) {
		// Lost a race with a concurrent creator; the row exists now.
		return s.findRoomByKey(key)
	}
	return room, err
}

// GetRoom returns one room by id.
func (s *Store) GetRoom(id int64) (*Room, error) {
	if id <= 0 {
		return nil, errors.New("room id must be > 0")
	}

	var raw string
	var room Room
	err := s.db.QueryRow(
		`SELECT id, participants FROM rooms WHERE id = ?`, id,
	).Scan(&room.ID, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", id, err)
	}

	room.Participants = parseParticipants(raw)
	return &room, nil
}

// ListRoomsForUser returns every room the user participates in, each with
// the user's unread count and the latest message.
func (s *Store) ListRoomsForUser(username string) ([]RoomSummary, error) {
	if strings.TrimSpace(username) == "" {
		return []RoomSummary{}, nil
	}

	rows, err := s.db.Query(`SELECT id, participants FROM rooms ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	summaries := make([]RoomSummary, 0)
	for rows.Next() {
		var raw string
		var room Room
		if err := rows.Scan(&room.ID, &raw); err != nil {
			return nil, fmt.Errorf("scan room row: %w", err)
		}
		room.Participants = parseParticipants(raw)

		isMember := false
		for _, p := range room.Participants {
			if p == username {
				isMember = true
				break
			}
		}
		if !isMember {
			continue
		}

		summary := RoomSummary{Room: room}

		unread, err := s.countUnread(room.ID, username)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread

		last, err := s.lastMessage(room.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		summary.LastMessage = last

		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room rows: %w", err)
	}

	return summaries, nil
}

func (s *Store) findRoomByKey(key string) (*Room, error) {
	var raw string
	var room Room
	err := s.db.QueryRow(
		`SELECT id, participants FROM rooms WHERE participants = ?`, key,
	).Scan(&room.ID, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find room by participants: %w", err)
	}

	room.Participants = parseParticipants(raw)
	return &room, nil
}

func (s *Store) countUnread(roomID int64, username string) (int64, error) {
	var lastRead sql.NullInt64
	err := s.db.QueryRow(
		`SELECT last_read_id FROM room_reads WHERE room_id = ? AND username = ?`,
		roomID,
		username,
	).Scan(&lastRead)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read cursor for room %d: %w", roomID, err)
	}

	var count int64
	if lastRead.Valid {
		err = s.db.QueryRow(
			`SELECT COUNT(*) FROM chat_messages WHERE room_id = ? AND id > ?`,
			roomID,
			lastRead.Int64,
		).Scan(&count)
	} else {
		err = s.db.QueryRow(
			`SELECT COUNT(*) FROM chat_messages WHERE room_id = ?`,
			roomID,
		).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count unread for room %d: %w", roomID, err)
	}
	return count, nil
}
