package models

// Room is a direct-message conversation between exactly two participants.
//
// Participants are always delivered as a sorted, deduplicated list; the
// server normalizes whatever shape it stores before responding, so callers
// never see a serialized form.
type Room struct {
	ID           int64    `json:"id"`
	Participants []string `json:"participants"`
}

// RoomSummary is a Room entry from the room list endpoint, annotated with
// the caller's unread count and the latest message, if any.
type RoomSummary struct {
	ID           int64    `json:"id"`
	Participants []string `json:"participants"`
	UnreadCount  int64    `json:"unread_count"`
	LastMessage  *Message `json:"last_message,omitempty"`
}

// Other returns the participant that is not me, or the empty string for a
// malformed participant list.
func (r Room) Other(me string) string {
	for _, p := range r.Participants {
		if p != me {
			return p
		}
	}
	if len(r.Participants) > 0 {
		return r.Participants[0]
	}
	return ""
}
