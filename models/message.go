package models

// Message is one chat message as the API serves it.
//
// IDs are assigned by the server and strictly increase within a room, so a
// room's messages are totally ordered by ID.
type Message struct {
	ID        int64  `json:"id"`
	RoomID    int64  `json:"room_id"`
	Sender    string `json:"sender"`
	Body      string `json:"message"`
	Timestamp string `json:"timestamp"`
}
