package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"gochat/models"
	"gochat/storage"
)

type roomRequest struct {
	Participants []string `json:"participants"`
}

// handleGetRooms answers with a list even for a single-id lookup, matching
// the shape historical clients parse.
func (s *Server) handleGetRooms(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil || id <= 0 {
		return failBadRequest(c, "id is required")
	}
	room, err := s.store.GetRoom(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return failNotFound(c, "room not found")
		}
		return failInternal(c, err)
	}
	return c.JSON([]models.Room{roomFromRow(room)})
}

func (s *Server) handleCreateRoom(c *fiber.Ctx) error {
	var req roomRequest
	if err := c.BodyParser(&req); err != nil {
		return failBadRequest(c, "invalid request body")
	}
	room, err := s.store.CreateRoom(req.Participants)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return failBadRequest(c, "room already exists")
		}
		return failBadRequest(c, err.Error())
	}
	return c.JSON(roomFromRow(room))
}

// handleFindOrCreateRoom returns the room for a participant pair, creating
// it on first use. Calling it twice with the same pair, in either order,
// yields the same room id.
func (s *Server) handleFindOrCreateRoom(c *fiber.Ctx) error {
	var req roomRequest
	if err := c.BodyParser(&req); err != nil {
		return failBadRequest(c, "invalid request body")
	}
	room, err := s.store.FindOrCreateRoom(req.Participants)
	if err != nil {
		return failBadRequest(c, err.Error())
	}
	return c.JSON(roomFromRow(room))
}

func (s *Server) handleListRooms(c *fiber.Ctx) error {
	username := c.Query("username")
	if username == "" {
		username = authedUsername(c)
	}
	summaries, err := s.store.ListRoomsForUser(username)
	if err != nil {
		return failInternal(c, err)
	}
	list := make([]models.RoomSummary, 0, len(summaries))
	for _, summary := range summaries {
		entry := models.RoomSummary{
			ID:           summary.ID,
			Participants: summary.Participants,
			UnreadCount:  summary.UnreadCount,
		}
		if summary.LastMessage != nil {
			msg := messageFromRow(*summary.LastMessage)
			entry.LastMessage = &msg
		}
		list = append(list, entry)
	}
	return c.JSON(list)
}

type markReadRequest struct {
	LastReadID int64 `json:"last_read_id"`
}

// handleMarkRead advances the caller's read cursor. The stored cursor only
// ever moves forward: a stale submission leaves it where it is.
func (s *Server) handleMarkRead(c *fiber.Ctx) error {
	roomID, err := strconv.ParseInt(c.Params("roomId"), 10, 64)
	if err != nil || roomID <= 0 {
		return failBadRequest(c, "invalid room id")
	}
	var req markReadRequest
	if err := c.BodyParser(&req); err != nil {
		return failBadRequest(c, "invalid request body")
	}
	lastRead, err := s.store.MarkRead(roomID, authedUsername(c), req.LastReadID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return failNotFound(c, "room not found")
		}
		return failInternal(c, err)
	}
	return c.JSON(fiber.Map{"success": 1, "last_read_id": lastRead})
}

func roomFromRow(room *storage.Room) models.Room {
	return models.Room{ID: room.ID, Participants: room.Participants}
}
