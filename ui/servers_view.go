package ui

import (
	"fmt"
	"log"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"gochat/config"
	"gochat/discovery"
)

// showServersDialog lists the chat servers discovered on the LAN and lets
// the user switch this install to one of them.
func (c *controller) showServersDialog() {
	if !c.hasServerPicker() {
		return
	}

	servers := c.currentServers()
	list := widget.NewList(
		func() int { return len(servers) },
		func() fyne.CanvasObject {
			name := widget.NewLabel("server")
			name.TextStyle = fyne.TextStyle{Bold: true}
			address := widget.NewLabel("")
			address.Importance = widget.LowImportance
			return container.NewVBox(name, address)
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			if id < 0 || id >= len(servers) {
				return
			}
			box := item.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(servers[id].Name)
			box.Objects[1].(*widget.Label).SetText(serverAddressText(servers[id]))
		},
	)

	empty := widget.NewLabel("No servers found yet")
	empty.Alignment = fyne.TextAlignCenter
	if len(servers) > 0 {
		empty.Hide()
	}

	reload := func() {
		servers = c.currentServers()
		if len(servers) > 0 {
			empty.Hide()
		} else {
			empty.Show()
		}
		list.Refresh()
	}

	refreshBtn := widget.NewButton("Refresh", func() {
		go func() {
			if err := c.discovery.Scanner.Refresh(c.ctx); err != nil {
				c.statusf("Discovery refresh failed: %v", err)
				return
			}
			c.serversMu.Lock()
			c.servers = c.discovery.Scanner.ListServers()
			c.serversMu.Unlock()
			fyne.Do(reload)
		}()
	})

	content := container.NewBorder(refreshBtn, empty, nil, nil, list)
	d := dialog.NewCustom("LAN servers", "Close", container.NewGridWrap(fyne.NewSize(320, 360), content), c.window)

	list.OnSelected = func(id widget.ListItemID) {
		list.UnselectAll()
		if id < 0 || id >= len(servers) {
			return
		}
		server := servers[id]
		dialog.ShowConfirm("Switch server",
			fmt.Sprintf("Connect to %s? You will need to log in again.", server.Name),
			func(confirmed bool) {
				if !confirmed {
					return
				}
				d.Hide()
				c.switchToServer(server)
			}, c.window)
	}

	// Track scanner updates while the dialog is open.
	c.serversMu.Lock()
	c.serversChanged = reload
	c.serversMu.Unlock()
	d.SetOnClosed(func() {
		c.serversMu.Lock()
		c.serversChanged = nil
		c.serversMu.Unlock()
	})
	d.Show()
}

// switchToServer repoints the client at a discovered server and persists
// the choice. The session is reset because its token was issued by the
// previous server.
func (c *controller) switchToServer(server discovery.DiscoveredServer) {
	base := server.BaseURL()
	if base == "" {
		c.statusf("Server %s has no reachable address", server.Name)
		return
	}

	c.closeConversation()
	c.client.SetBaseURL(base)

	c.cfg.APIBaseURL = base
	c.cfg.ServerMode = config.ServerModeRemote
	if err := config.Save(c.cfgPath, c.cfg); err != nil {
		log.Printf("ui: save config: %v", err)
	}
	if err := c.sessions.Reset(); err != nil {
		log.Printf("ui: reset session: %v", err)
	}

	c.showLoginView(fmt.Sprintf("Connected to %s, log in to continue", server.Name))
}

func serverAddressText(server discovery.DiscoveredServer) string {
	if base := server.BaseURL(); base != "" {
		return base
	}
	if server.HostName != "" {
		return strings.TrimSuffix(server.HostName, ".")
	}
	return "unreachable"
}
