// Package ui is the fyne desktop frontend: login and signup, the friends
// and chats panes, the conversation view, and profile editing.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"gochat/api"
	"gochat/chat"
	"gochat/config"
	"gochat/discovery"
	"gochat/models"
	"gochat/session"
)

// RunOptions configures the GUI runtime.
type RunOptions struct {
	Config     *config.AppConfig
	ConfigPath string
	DataDir    string
	Client     *api.Client
	Sessions   *session.Store
	// Discovery is optional; without it the LAN server picker is hidden.
	Discovery *discovery.Service
}

type controller struct {
	app    fyne.App
	window fyne.Window

	cfg      *config.AppConfig
	cfgPath  string
	dataDir  string
	client   *api.Client
	sessions *session.Store

	discovery *discovery.Service

	marks *chat.ReadMarker

	ctx        context.Context
	cancel     context.CancelFunc
	shutdownMu sync.Once
	loopsOnce  sync.Once
	loopsWg    sync.WaitGroup

	// convGen invalidates UI callbacks from conversations that were
	// replaced by a newer selection.
	convMu   sync.Mutex
	conv     *chat.Conversation
	convGen  atomic.Int64
	convPeer string

	friendsMu sync.RWMutex
	friends   []models.Friend

	// serversChanged notifies an open server picker that the LAN
	// snapshot moved under it.
	serversMu      sync.RWMutex
	servers        []discovery.DiscoveredServer
	serversChanged func()

	roomsMu sync.RWMutex
	rooms   []models.RoomSummary

	friendsList *widget.List
	roomsList   *widget.List
	chatHeader  *widget.Label
	chatBox     *fyne.Container
	chatScroll  *container.Scroll
	input       *messageEntry
	statusLabel *widget.Label
}

// Run starts the GUI and blocks until the window closes.
func Run(options RunOptions) error {
	if err := options.validate(); err != nil {
		return err
	}

	app := fyneapp.NewWithID("gochat")
	ctrl := newController(app, options)
	return ctrl.run()
}

func (o RunOptions) validate() error {
	if o.Config == nil {
		return errors.New("config is required")
	}
	if o.ConfigPath == "" {
		return errors.New("config path is required")
	}
	if o.DataDir == "" {
		return errors.New("data dir is required")
	}
	if o.Client == nil {
		return errors.New("API client is required")
	}
	if o.Sessions == nil {
		return errors.New("session store is required")
	}
	return nil
}

func newController(app fyne.App, options RunOptions) *controller {
	ctx, cancel := context.WithCancel(context.Background())

	ctrl := &controller{
		app:       app,
		window:    app.NewWindow("GoChat"),
		cfg:       options.Config,
		cfgPath:   options.ConfigPath,
		dataDir:   options.DataDir,
		client:    options.Client,
		sessions:  options.Sessions,
		discovery: options.Discovery,
		marks:     chat.NewReadMarker(options.Client),
		ctx:       ctx,
		cancel:    cancel,
	}
	ctrl.window.Resize(fyne.NewSize(1000, 680))
	ctrl.startDiscoveryLoop()

	if ctrl.sessions.Current().Active() {
		ctrl.showMainView()
		ctrl.startLoops()
	} else {
		ctrl.showLoginView("")
	}
	return ctrl
}

func (c *controller) run() error {
	c.window.SetCloseIntercept(func() {
		c.shutdown()
		c.window.SetCloseIntercept(nil)
		c.window.Close()
	})
	c.window.ShowAndRun()
	c.shutdown()
	return nil
}

func (c *controller) shutdown() {
	c.shutdownMu.Do(func() {
		c.cancel()
		c.closeConversation()
		c.marks.Close()
		if c.discovery != nil {
			c.discovery.Stop()
		}
		c.loopsWg.Wait()
	})
}

func (c *controller) me() string {
	return c.sessions.Current().Username
}

// showMainView replaces the window content with the logged-in layout:
// friends and chats on the left, the conversation on the right.
func (c *controller) showMainView() {
	left := container.NewAppTabs(
		container.NewTabItemWithIcon("Chats", theme.FolderIcon(), c.buildRoomsPane()),
		container.NewTabItemWithIcon("Friends", theme.AccountIcon(), c.buildFriendsPane()),
	)
	right := c.buildChatPane()

	split := container.NewHSplit(left, right)
	split.Offset = 0.3

	profileBtn := widget.NewButtonWithIcon("Profile", theme.AccountIcon(), c.showProfileDialog)
	logoutBtn := widget.NewButtonWithIcon("Log out", theme.LogoutIcon(), c.logout)
	toolbar := container.NewHBox(
		widget.NewLabelWithStyle(c.me(), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		layout.NewSpacer(),
	)
	if c.hasServerPicker() {
		toolbar.Add(widget.NewButtonWithIcon("Servers", theme.ComputerIcon(), c.showServersDialog))
	}
	toolbar.Add(profileBtn)
	toolbar.Add(logoutBtn)

	c.statusLabel = widget.NewLabel("Ready")
	content := container.NewBorder(toolbar, c.statusLabel, nil, nil, split)
	c.window.SetContent(content)

	go c.refreshFriends()
	go c.refreshRooms()
}

func (c *controller) startLoops() {
	c.loopsOnce.Do(func() {
		c.loopsWg.Add(1)
		go c.roomsPollLoop()
	})
}

// startDiscoveryLoop begins draining scanner events so the server picker
// stays current. It runs from construction on, since the picker is
// reachable from the login view too.
func (c *controller) startDiscoveryLoop() {
	if c.discovery == nil || c.discovery.Scanner == nil {
		return
	}
	c.loopsWg.Add(1)
	go c.discoveryLoop()
}

func (c *controller) discoveryLoop() {
	defer c.loopsWg.Done()
	events := c.discovery.Scanner.Events()

	for {
		select {
		case <-c.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			c.serversMu.Lock()
			c.servers = c.discovery.Scanner.ListServers()
			notify := c.serversChanged
			c.serversMu.Unlock()

			switch event.Type {
			case discovery.EventServerUpserted:
				c.statusf("LAN server available: %s", event.Server.Name)
			case discovery.EventServerRemoved:
				c.statusf("LAN server gone: %s", event.Server.Name)
			}
			if notify != nil {
				fyne.Do(notify)
			}
		}
	}
}

func (c *controller) currentServers() []discovery.DiscoveredServer {
	c.serversMu.RLock()
	defer c.serversMu.RUnlock()
	return append([]discovery.DiscoveredServer(nil), c.servers...)
}

func (c *controller) hasServerPicker() bool {
	return c.discovery != nil && c.discovery.Scanner != nil
}

// roomsPollLoop keeps unread counts and last messages fresh while rooms
// other than the open one receive traffic.
func (c *controller) roomsPollLoop() {
	defer c.loopsWg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if c.sessions.Current().Active() {
				c.refreshRooms()
			}
		}
	}
}

func (c *controller) setStatus(message string) {
	if strings.TrimSpace(message) == "" {
		message = "Ready"
	}
	fyne.Do(func() {
		if c.statusLabel != nil {
			c.statusLabel.SetText(message)
		}
	})
}

func (c *controller) logout() {
	c.closeConversation()
	if err := c.sessions.Reset(); err != nil {
		log.Printf("ui: reset session: %v", err)
	}
	c.showLoginView("")
}

func (c *controller) statusf(format string, args ...any) {
	c.setStatus(fmt.Sprintf(format, args...))
}
