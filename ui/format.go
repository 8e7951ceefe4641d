package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gochat/models"
)

const previewLimit = 48

func friendStatusText(friend models.Friend) string {
	status := strings.TrimSpace(friend.FriendStatus)
	if status == "" {
		return "No status"
	}
	return status
}

func loginFailureText(raw string) string {
	if strings.Contains(raw, "network error") {
		return "Cannot reach the server"
	}
	if raw == "" {
		return "Login failed"
	}
	return raw
}

func signupFailureText(raw string) string {
	if strings.Contains(raw, "network error") {
		return "Cannot reach the server"
	}
	if raw == "" {
		return "Signup failed"
	}
	return raw
}

func roomTitle(room models.RoomSummary, me string) string {
	other := models.Room{ID: room.ID, Participants: room.Participants}.Other(me)
	if other == "" {
		return fmt.Sprintf("Room %d", room.ID)
	}
	return other
}

// unreadBadge renders the unread counter, capped so wide numbers do not
// stretch the row.
func unreadBadge(count int64) string {
	switch {
	case count <= 0:
		return ""
	case count > 99:
		return "99+"
	default:
		return fmt.Sprint(count)
	}
}

// previewText collapses whitespace and truncates on runes, so multi-byte
// text is never cut mid-character.
func previewText(msg *models.Message) string {
	if msg == nil {
		return "No messages yet"
	}
	body := strings.Join(strings.Fields(msg.Body), " ")
	runes := []rune(body)
	if len(runes) > previewLimit {
		return string(runes[:previewLimit-3]) + "..."
	}
	return body
}

func lastActivityText(msg *models.Message) string {
	if msg == nil {
		return ""
	}
	return relativeTime(msg.Timestamp)
}

// relativeTime renders an RFC3339 timestamp the way chat clients do:
// "now", "5m", "3h", "2d", then the date.
func relativeTime(timestamp string) string {
	parsed, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return ""
	}
	elapsed := time.Since(parsed)
	switch {
	case elapsed < time.Minute:
		return "now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh", int(elapsed.Hours()))
	case elapsed < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(elapsed.Hours()/24))
	default:
		return parsed.Format("Jan 2")
	}
}

// sortRoomsByActivity orders rooms newest-last-message first; rooms
// without messages sink to the bottom, ordered by id for stability.
func sortRoomsByActivity(rooms []models.RoomSummary) {
	sort.SliceStable(rooms, func(i, j int) bool {
		a, b := rooms[i].LastMessage, rooms[j].LastMessage
		switch {
		case a == nil && b == nil:
			return rooms[i].ID < rooms[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.ID > b.ID
		}
	})
}

// filterCandidates drops the local user and existing friends from a user
// search result.
func filterCandidates(users []models.User, me string, friends []models.Friend) []models.User {
	existing := make(map[int64]bool, len(friends))
	for _, friend := range friends {
		existing[friend.FriendID] = true
	}

	out := make([]models.User, 0, len(users))
	for _, user := range users {
		if user.Username == me || existing[user.ID] {
			continue
		}
		out = append(out, user)
	}
	return out
}
