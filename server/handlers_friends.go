package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"gochat/models"
	"gochat/storage"
)

type addFriendRequest struct {
	UserID       int64  `json:"user_id"`
	FriendID     int64  `json:"friend_id"`
	FriendName   string `json:"friend_name"`
	FriendAvatar string `json:"friend_avatar"`
	FriendStatus string `json:"friend_status"`
}

func (s *Server) handleGetFriends(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return failBadRequest(c, "user_id is required")
	}
	rows, err := s.store.GetFriends(userID)
	if err != nil {
		return failInternal(c, err)
	}
	friends := make([]models.Friend, 0, len(rows))
	for _, row := range rows {
		friends = append(friends, friendFromRow(row))
	}
	return c.JSON(fiber.Map{"success": 1, "data": friends})
}

func (s *Server) handleAddFriend(c *fiber.Ctx) error {
	var req addFriendRequest
	if err := c.BodyParser(&req); err != nil {
		return failBadRequest(c, "invalid request body")
	}
	row, err := s.store.AddFriend(storage.Friend{
		UserID:       req.UserID,
		FriendID:     req.FriendID,
		FriendName:   req.FriendName,
		FriendAvatar: req.FriendAvatar,
		FriendStatus: req.FriendStatus,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			return failBadRequest(c, "already friends")
		case errors.Is(err, storage.ErrNotFound):
			return failNotFound(c, "user not found")
		default:
			return failBadRequest(c, err.Error())
		}
	}
	return c.JSON(fiber.Map{"success": 1, "data": friendFromRow(*row)})
}

func (s *Server) handleDeleteFriend(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil || id <= 0 {
		return failBadRequest(c, "id is required")
	}
	if err := s.store.DeleteFriend(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return failNotFound(c, "friend not found")
		}
		return failInternal(c, err)
	}
	return c.JSON(fiber.Map{"success": 1})
}

func friendFromRow(row storage.Friend) models.Friend {
	return models.Friend{
		ID:           row.ID,
		UserID:       row.UserID,
		FriendID:     row.FriendID,
		FriendName:   row.FriendName,
		FriendAvatar: row.FriendAvatar,
		FriendStatus: row.FriendStatus,
	}
}
