package ui

import (
	"errors"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"gochat/chat"
)

// messageEntry is a multi-line entry where Enter sends and Shift+Enter
// inserts a newline.
type messageEntry struct {
	widget.Entry
	shiftDown bool
	onSend    func()
}

func newMessageEntry(onSend func()) *messageEntry {
	entry := &messageEntry{onSend: onSend}
	entry.MultiLine = true
	entry.ExtendBaseWidget(entry)
	return entry
}

func (e *messageEntry) KeyDown(key *fyne.KeyEvent) {
	e.Entry.KeyDown(key)
	if key == nil {
		return
	}
	if key.Name == desktop.KeyShiftLeft || key.Name == desktop.KeyShiftRight {
		e.shiftDown = true
	}
}

func (e *messageEntry) KeyUp(key *fyne.KeyEvent) {
	e.Entry.KeyUp(key)
	if key == nil {
		return
	}
	if key.Name == desktop.KeyShiftLeft || key.Name == desktop.KeyShiftRight {
		e.shiftDown = false
	}
}

func (e *messageEntry) TypedKey(key *fyne.KeyEvent) {
	if key == nil {
		return
	}
	if key.Name == fyne.KeyReturn || key.Name == fyne.KeyEnter {
		if e.shiftDown {
			e.Entry.TypedKey(key)
			return
		}
		if e.onSend != nil {
			e.onSend()
		}
		return
	}
	e.Entry.TypedKey(key)
}

func (c *controller) buildChatPane() fyne.CanvasObject {
	c.chatHeader = widget.NewLabel("Select a friend to start chatting")
	c.chatHeader.TextStyle = fyne.TextStyle{Bold: true}

	emptyLabel := widget.NewLabel("No messages yet")
	emptyLabel.Alignment = fyne.TextAlignCenter
	emptyLabel.Importance = widget.LowImportance
	c.chatBox = container.NewVBox(emptyLabel)
	c.chatScroll = container.NewVScroll(c.chatBox)

	c.input = newMessageEntry(c.sendCurrentMessage)
	c.input.SetPlaceHolder("Type a message...")
	c.input.Wrapping = fyne.TextWrapWord
	c.input.SetMinRowsVisible(2)

	sendBtn := widget.NewButton("Send", c.sendCurrentMessage)
	sendBtn.Importance = widget.HighImportance
	composer := container.NewBorder(nil, nil, nil, container.NewPadded(sendBtn), c.input)

	return container.NewBorder(
		container.NewVBox(c.chatHeader, widget.NewSeparator()),
		container.NewVBox(widget.NewSeparator(), container.NewPadded(composer)),
		nil, nil, c.chatScroll,
	)
}

// openConversation switches the chat pane to peer. The previous
// conversation is closed first, and a generation counter makes sure its
// late callbacks cannot touch the new view.
func (c *controller) openConversation(peer string) {
	if peer == c.currentPeer() {
		return
	}
	c.closeConversation()

	gen := c.convGen.Add(1)
	conv, err := chat.Open(chat.Options{
		Client: c.client,
		Me:     c.me(),
		Peer:   peer,
		Marks:  c.marks,
		OnUpdate: func() {
			if c.convGen.Load() == gen {
				c.renderConversation()
			}
		},
	})
	if err != nil {
		c.statusf("Opening chat with %s failed: %v", peer, err)
		return
	}

	c.convMu.Lock()
	c.conv = conv
	c.convPeer = peer
	c.convMu.Unlock()

	fyne.Do(func() {
		c.chatHeader.SetText(peer)
		c.input.SetText("")
	})
	c.renderConversation()
}

func (c *controller) closeConversation() {
	c.convGen.Add(1)

	c.convMu.Lock()
	conv := c.conv
	c.conv = nil
	c.convPeer = ""
	c.convMu.Unlock()

	if conv != nil {
		conv.Close()
	}
}

func (c *controller) currentConversation() *chat.Conversation {
	c.convMu.Lock()
	defer c.convMu.Unlock()
	return c.conv
}

func (c *controller) currentPeer() string {
	c.convMu.Lock()
	defer c.convMu.Unlock()
	return c.convPeer
}

// renderConversation redraws the transcript from the conversation's
// current entries.
func (c *controller) renderConversation() {
	conv := c.currentConversation()
	if conv == nil {
		return
	}
	entries := conv.Entries()
	phase := conv.Phase()
	convErr := conv.Err()

	fyne.Do(func() {
		c.chatBox.Objects = nil

		switch phase {
		case chat.PhaseResolving, chat.PhaseLoading:
			c.chatBox.Add(mutedCenteredLabel("Loading conversation..."))
		case chat.PhaseFailed:
			c.chatBox.Add(mutedCenteredLabel("Could not open this conversation"))
			if convErr != nil {
				c.setStatus(convErr.Error())
			}
		default:
			if len(entries) == 0 {
				c.chatBox.Add(mutedCenteredLabel("No messages yet"))
			}
			for _, entry := range entries {
				c.chatBox.Add(transcriptLine(entry))
			}
		}

		c.chatBox.Refresh()
		c.chatScroll.ScrollToBottom()
	})
}

// transcriptLine renders one message: own messages align right, the
// peer's align left, with a muted relative timestamp.
func transcriptLine(entry chat.Entry) fyne.CanvasObject {
	body := widget.NewLabel(entry.Body)
	body.Wrapping = fyne.TextWrapWord

	when := widget.NewLabel(relativeTime(entry.Timestamp))
	when.Importance = widget.LowImportance

	if entry.Mine {
		return container.NewBorder(nil, nil, nil, container.NewVBox(body, when))
	}
	return container.NewBorder(nil, nil, container.NewVBox(body, when), nil)
}

func mutedCenteredLabel(text string) fyne.CanvasObject {
	label := widget.NewLabel(text)
	label.Alignment = fyne.TextAlignCenter
	label.Importance = widget.LowImportance
	return label
}

func (c *controller) sendCurrentMessage() {
	conv := c.currentConversation()
	if conv == nil {
		c.setStatus("Select a friend to start chatting")
		return
	}
	draft := c.input.Text

	go func() {
		err := conv.Send(c.ctx, draft)
		switch {
		case errors.Is(err, chat.ErrEmptyDraft):
			// Nothing to send; leave the input alone.
		case errors.Is(err, chat.ErrDraftTooLong):
			c.setStatus("Message is too long")
		case err != nil:
			// The draft stays in the input so the user can retry.
			c.statusf("Sending failed: %v", err)
		default:
			fyne.Do(func() {
				c.input.SetText("")
			})
		}
	}()
}
