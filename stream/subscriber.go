package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"gochat/models"
)

const (
	// DefaultInitialBackoff is the first reconnect delay after a drop.
	DefaultInitialBackoff = 500 * time.Millisecond
	// DefaultMaxBackoff caps the reconnect delay growth.
	DefaultMaxBackoff = 30 * time.Second
)

// Config describes one room subscription.
type Config struct {
	// BaseURL is the API base, e.g. "http://localhost:3100/api".
	BaseURL string
	// RoomID scopes the subscription. Events for other rooms are dropped
	// even if the server multiplexes them onto the same stream.
	RoomID int64
	// OnMessage receives each live message. It is called from the
	// subscription's own goroutine.
	OnMessage func(models.Message)

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	// InitialBackoff and MaxBackoff tune the reconnect schedule. The delay
	// doubles after each failed attempt and resets once a connection is
	// established.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (c Config) withDefaults() Config {
	if c.HTTPClient == nil {
		// No overall timeout: the stream is long-lived by design.
		c.HTTPClient = &http.Client{}
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	return c
}

// Subscription is a live handle on one room's message stream. The
// connection is re-established with capped exponential backoff whenever it
// drops; Close ends it for good.
type Subscription struct {
	cfg Config

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Subscribe opens a streaming connection for roomID and delivers each
// parsed message to onMessage. Callers must Close the previous
// subscription before opening one for a different room.
func Subscribe(baseURL string, roomID int64, onMessage func(models.Message)) (*Subscription, error) {
	return SubscribeWith(Config{BaseURL: baseURL, RoomID: roomID, OnMessage: onMessage})
}

// SubscribeWith is Subscribe with explicit configuration.
func SubscribeWith(config Config) (*Subscription, error) {
	if config.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if config.RoomID <= 0 {
		return nil, errors.New("room ID is required")
	}
	if config.OnMessage == nil {
		return nil, errors.New("message callback is required")
	}

	sub := &Subscription{cfg: config.withDefaults()}

	ctx, cancel := context.WithCancel(context.Background())
	sub.cancel = cancel
	sub.wg.Add(1)
	go sub.loop(ctx)

	return sub, nil
}

// Close terminates the stream and waits for the delivery goroutine to
// exit. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

func (s *Subscription) loop(ctx context.Context) {
	defer s.wg.Done()

	backoff := s.cfg.InitialBackoff
	for {
		connected, err := s.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("stream: room %d connection lost: %v", s.cfg.RoomID, err)
		}
		if connected {
			backoff = s.cfg.InitialBackoff
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

// consume runs one connection until it ends. The first return value
// reports whether a connection was established at all, which resets the
// backoff schedule.
func (s *Subscription) consume(ctx context.Context) (bool, error) {
	endpoint := fmt.Sprintf("%s/chat/subscribe?room_id=%s",
		s.cfg.BaseURL, url.QueryEscape(fmt.Sprint(s.cfg.RoomID)))

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build subscribe request: %w", err)
	}
	request.Header.Set("Accept", "text/event-stream")

	response, err := s.cfg.HTTPClient.Do(request)
	if err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return false, fmt.Errorf("subscribe returned %s", response.Status)
	}

	scanner := newEventScanner(response.Body)
	for scanner.Next() {
		s.deliver(scanner.Event())
	}
	return true, scanner.Err()
}

// deliver parses one wire event and hands it to the callback. Malformed
// payloads and events for other rooms are dropped silently.
func (s *Subscription) deliver(ev event) {
	var message models.Message
	if err := json.Unmarshal([]byte(ev.Data), &message); err != nil {
		return
	}
	if message.RoomID != s.cfg.RoomID {
		return
	}
	s.cfg.OnMessage(message)
}
