package server

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"gochat/models"
	"gochat/storage"
)

const (
	minUsernameLen = 3
	minPasswordLen = 4
)

type credentialsRequest struct {
	Username string `json:"username"`
	// UserID is the legacy field name for the username, still sent by
	// older clients.
	UserID   string `json:"userid"`
	Password string `json:"password"`
}

func (r credentialsRequest) username() string {
	if r.Username != "" {
		return strings.TrimSpace(r.Username)
	}
	return strings.TrimSpace(r.UserID)
}

func (s *Server) handleSignup(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return failBadRequest(c, "invalid request body")
	}
	username := req.username()
	if len(username) < minUsernameLen {
		return failBadRequest(c, "username must be at least 3 characters")
	}
	if len(req.Password) < minPasswordLen {
		return failBadRequest(c, "password must be at least 4 characters")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return failInternal(c, err)
	}
	if _, err := s.store.CreateUser(username, hash); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return failBadRequest(c, "username already taken")
		}
		return failInternal(c, err)
	}
	return c.JSON(fiber.Map{"success": 1})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return failBadRequest(c, "invalid request body")
	}
	user, err := s.store.GetUserByUsername(req.username())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return failUnauthorized(c, "invalid username or password")
		}
		return failInternal(c, err)
	}
	if !checkPassword(user.PasswordHash, req.Password) {
		return failUnauthorized(c, "invalid username or password")
	}

	token, err := s.generateToken(user.Username)
	if err != nil {
		return failInternal(c, err)
	}
	return c.JSON(fiber.Map{
		"success": 1,
		"token":   token,
		"user_id": user.ID,
	})
}

// handleGetUsers lists accounts, optionally filtered by a username
// substring. Password hashes never leave the storage layer's row type.
func (s *Server) handleGetUsers(c *fiber.Ctx) error {
	rows, err := s.store.SearchUsers(c.Query("username"))
	if err != nil {
		return failInternal(c, err)
	}
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, models.User{ID: row.ID, Username: row.Username})
	}
	return c.JSON(users)
}

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	username := c.Query("username")
	if username == "" {
		return failBadRequest(c, "username is required")
	}
	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return failNotFound(c, "user not found")
		}
		return failInternal(c, err)
	}
	return c.JSON(fiber.Map{
		"success": 1,
		"data":    profileFromRow(user),
	})
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
	Avatar      string `json:"avatar"`
}

// handleUpdateProfile writes the caller's own profile; the target username
// comes from the token, never from the body.
func (s *Server) handleUpdateProfile(c *fiber.Ctx) error {
	username := authedUsername(c)
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return failBadRequest(c, "invalid request body")
	}
	err := s.store.UpdateProfile(username, req.DisplayName, req.Status, req.Avatar)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return failNotFound(c, "user not found")
		}
		return failInternal(c, err)
	}
	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		return failInternal(c, err)
	}
	return c.JSON(fiber.Map{
		"success": 1,
		"data":    profileFromRow(user),
	})
}

func profileFromRow(user *storage.User) models.Profile {
	profile := models.Profile{Username: user.Username}
	if user.DisplayName != nil {
		profile.DisplayName = *user.DisplayName
	}
	if user.Status != nil {
		profile.Status = *user.Status
	}
	if user.Avatar != nil {
		profile.Avatar = *user.Avatar
	}
	return profile
}

func failBadRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": 0, "error": msg})
}

func failUnauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": 0, "error": msg})
}

func failNotFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": 0, "error": msg})
}

func failInternal(c *fiber.Ctx, err error) error {
	log.Printf("server: internal error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": 0,
		"error":   "internal server error",
	})
}
