// Package server implements the chat API that the desktop client talks
// to. The original application embeds this server in the desktop process
// and serves localhost only; the package also runs standalone for a shared
// LAN deployment.
package server

import (
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"gochat/storage"
)

const (
	// DefaultKeepAliveInterval paces SSE comment frames so proxies do not
	// cut idle subscriptions.
	DefaultKeepAliveInterval = 25 * time.Second

	defaultJWTSecret = "gochat-dev-secret"
)

// Options configures a Server.
type Options struct {
	Store     *storage.Store
	JWTSecret string
	// KeepAliveInterval overrides the SSE keep-alive pacing, mainly for tests.
	KeepAliveInterval time.Duration
	// Quiet disables the request logging middleware, used by tests.
	Quiet bool
}

// Server is the chat API: REST endpoints plus the SSE message stream.
type Server struct {
	app    *fiber.App
	store  *storage.Store
	broker *Broker

	jwtSecret []byte
	keepAlive time.Duration
}

// LoadEnv reads optional overrides from a .env file and the environment:
// GOCHAT_JWT_SECRET and GOCHAT_PORT.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("server: no .env file, using environment defaults")
	}
}

// EnvJWTSecret returns the configured signing secret, falling back to a
// development default.
func EnvJWTSecret() string {
	if secret := os.Getenv("GOCHAT_JWT_SECRET"); secret != "" {
		return secret
	}
	return defaultJWTSecret
}

// EnvPort returns the configured listen port, or fallback.
func EnvPort(fallback int) int {
	if raw := os.Getenv("GOCHAT_PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil && port > 0 {
			return port
		}
	}
	return fallback
}

// New assembles the fiber app and its routes.
func New(options Options) *Server {
	srv := &Server{
		store:     options.Store,
		broker:    NewBroker(),
		jwtSecret: []byte(options.JWTSecret),
		keepAlive: options.KeepAliveInterval,
	}
	if len(srv.jwtSecret) == 0 {
		srv.jwtSecret = []byte(defaultJWTSecret)
	}
	if srv.keepAlive <= 0 {
		srv.keepAlive = DefaultKeepAliveInterval
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	if !options.Quiet {
		app.Use(logger.New())
	}
	app.Use(cors.New())

	api := app.Group("/api")

	// Public routes. The subscribe stream stays public because the
	// browser EventSource the original used cannot set headers.
	api.Post("/signup", srv.handleSignup)
	api.Post("/login", srv.handleLogin)
	api.Get("/user", srv.handleGetUsers)
	api.Get("/profile", srv.handleGetProfile)
	api.Get("/chat/subscribe", srv.handleChatSubscribe)

	// Authenticated routes.
	authed := api.Group("/", srv.requireAuth)
	authed.Put("/profile", srv.handleUpdateProfile)
	authed.Get("/friend", srv.handleGetFriends)
	authed.Post("/friend", srv.handleAddFriend)
	authed.Delete("/friend", srv.handleDeleteFriend)
	authed.Get("/room", srv.handleGetRooms)
	authed.Post("/room", srv.handleCreateRoom)
	authed.Post("/room/find", srv.handleFindOrCreateRoom)
	authed.Get("/room/list", srv.handleListRooms)
	authed.Post("/room/read/:roomId", srv.handleMarkRead)
	authed.Get("/chat", srv.handleGetChat)
	authed.Post("/chat/send", srv.handleChatSend)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	srv.app = app
	return srv
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Serve serves on a prepared listener, used when the caller needs to know
// the bound address up front.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	s.broker.CloseAll()
	return s.app.Shutdown()
}
