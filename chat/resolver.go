// Package chat keeps one direct-message conversation synchronized with
// the server: it resolves the room for a participant pair, loads history,
// and folds live stream events into an ordered message list.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gochat/api"
	"gochat/models"
)

// FindOrCreateDMRoom resolves the room shared by me and peer, creating it
// on first contact. The same pair always resolves to the same room, in
// either order.
func FindOrCreateDMRoom(ctx context.Context, client *api.Client, me, peer string) (models.Room, error) {
	me = strings.TrimSpace(me)
	peer = strings.TrimSpace(peer)
	if me == "" || peer == "" {
		return models.Room{}, errors.New("both participants are required")
	}
	if me == peer {
		return models.Room{}, errors.New("cannot open a room with yourself")
	}

	result := client.Post(ctx, "/room/find", map[string]any{
		"participants": []string{me, peer},
	})
	if !result.Success {
		return models.Room{}, fmt.Errorf("resolve room: %s", result.Error)
	}

	// The endpoint answers with the bare room model; older deployments
	// wrap it in a data envelope. Accept both.
	var room models.Room
	if err := result.Decode(&room); err == nil && room.ID > 0 {
		return room, nil
	}
	if err := result.DecodeData(&room); err == nil && room.ID > 0 {
		return room, nil
	}
	return models.Room{}, errors.New("resolve room: response carries no room id")
}

// fetchRoom loads one room by id, for conversations opened from a room
// list entry or notification rather than a participant pair. The endpoint
// answers with a list even for a single-id lookup.
func fetchRoom(ctx context.Context, client *api.Client, roomID int64) (models.Room, error) {
	result := client.Get(ctx, fmt.Sprintf("/room?id=%d", roomID), nil)
	if !result.Success {
		return models.Room{}, fmt.Errorf("load room %d: %s", roomID, result.Error)
	}
	var rooms []models.Room
	if err := result.Decode(&rooms); err != nil {
		return models.Room{}, fmt.Errorf("load room %d: %w", roomID, err)
	}
	for _, room := range rooms {
		if room.ID == roomID {
			return room, nil
		}
	}
	return models.Room{}, fmt.Errorf("load room %d: not in response", roomID)
}

// fetchHistory loads a room's full message history, oldest first.
func fetchHistory(ctx context.Context, client *api.Client, roomID int64) ([]models.Message, error) {
	result := client.Get(ctx, fmt.Sprintf("/chat?room_id=%d", roomID), nil)
	if !result.Success {
		return nil, fmt.Errorf("load history: %s", result.Error)
	}
	var history []models.Message
	if err := result.Decode(&history); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return history, nil
}
