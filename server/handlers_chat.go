package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"gochat/models"
	"gochat/storage"
)

func (s *Server) handleGetChat(c *fiber.Ctx) error {
	roomID, err := strconv.ParseInt(c.Query("room_id"), 10, 64)
	if err != nil || roomID <= 0 {
		return failBadRequest(c, "room_id is required")
	}
	rows, err := s.store.GetMessages(roomID)
	if err != nil {
		return failInternal(c, err)
	}
	messages := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, messageFromRow(row))
	}
	return c.JSON(messages)
}

type sendRequest struct {
	RoomID  int64  `json:"room_id"`
	Message string `json:"message"`
}

// handleChatSend persists a message and fans it out to the room's live
// subscribers. The sender is always the authenticated user.
func (s *Server) handleChatSend(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return failBadRequest(c, "invalid request body")
	}
	row, err := s.store.SaveMessage(req.RoomID, authedUsername(c), req.Message)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return failNotFound(c, "room not found")
		}
		return failBadRequest(c, err.Error())
	}
	msg := messageFromRow(*row)
	s.broker.Publish(msg)
	return c.JSON(fiber.Map{"success": 1, "chat": msg})
}

// handleChatSubscribe streams the room's new messages as server-sent
// events until the client disconnects.
func (s *Server) handleChatSubscribe(c *fiber.Ctx) error {
	roomID, err := strconv.ParseInt(c.Query("room_id"), 10, 64)
	if err != nil || roomID <= 0 {
		return failBadRequest(c, "room_id is required")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	id, ch := s.broker.Subscribe(roomID)
	keepAlive := s.keepAlive

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer s.broker.Unsubscribe(id)
		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				payload, err := json.Marshal(msg)
				if err != nil {
					continue
				}
				if _, err := w.WriteString("event: message\ndata: " + string(payload) + "\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

func messageFromRow(row storage.Message) models.Message {
	return models.Message{
		ID:        row.ID,
		RoomID:    row.RoomID,
		Sender:    row.Sender,
		Body:      row.Body,
		Timestamp: row.Timestamp,
	}
}
