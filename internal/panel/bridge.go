// Package panel bridges controller events to browser-hosted panels over a
// websocket and feeds panel button presses back as commands.
package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"recordpanel/internal/domain"
)

// Commands is the part of the controller a panel may drive.
type Commands interface {
	Pause()
	Resume()
	Stop(ctx context.Context) (*domain.RecordingResult, error)
	Restart(ctx context.Context) error
	Show()
	Hide()
	ToggleCamera(enabled bool)
	ToggleAudio(enabled bool)
	Status() domain.Status
	Config() domain.PanelConfig
}

// Message is the envelope for every frame in both directions.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type command struct {
	Type    string `json:"type"`
	Enabled *bool  `json:"enabled,omitempty"`
}

type snapshot struct {
	Status domain.Status      `json:"status"`
	Config domain.PanelConfig `json:"config"`
}

var errNotAttached = errors.New("panel is not attached to a recorder")

const sendBuffer = 32

// Bridge implements ports.EventSink and http.Handler.
type Bridge struct {
	log       *zap.Logger
	upgrader  websocket.Upgrader
	opTimeout time.Duration

	mu       sync.RWMutex
	commands Commands
	clients  map[*client]struct{}
}

func NewBridge(log *zap.Logger, opTimeout time.Duration) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}
	return &Bridge{
		log:       log,
		opTimeout: opTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Attach sets the controller driven by panel commands.
func (b *Bridge) Attach(commands Commands) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = commands
}

func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("panel websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	commands := b.commands
	b.mu.Unlock()
	b.log.Debug("panel connected", zap.String("remote", r.RemoteAddr))

	if commands != nil {
		c.enqueue(mustEncode(Message{Type: "snapshot", Payload: snapshot{Status: commands.Status(), Config: commands.Config()}}))
	}

	go c.writeLoop()
	b.readLoop(c)

	b.mu.Lock()
	delete(b.clients, c)
	b.mu.Unlock()
	c.close()
}

// Close disconnects every panel.
func (b *Bridge) Close() {
	b.mu.Lock()
	clients := b.clients
	b.clients = make(map[*client]struct{})
	b.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

// Clients returns the number of connected panels.
func (b *Bridge) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Bridge) readLoop(c *client) {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.log.Debug("panel read ended", zap.Error(err))
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			c.enqueue(mustEncode(commandError("", err)))
			continue
		}
		if err := b.dispatch(cmd); err != nil {
			c.enqueue(mustEncode(commandError(cmd.Type, err)))
		}
	}
}

func (b *Bridge) dispatch(cmd command) error {
	b.mu.RLock()
	commands := b.commands
	b.mu.RUnlock()
	if commands == nil {
		return errNotAttached
	}

	switch cmd.Type {
	case "pause":
		commands.Pause()
	case "resume":
		commands.Resume()
	case "stop":
		ctx, cancel := context.WithTimeout(context.Background(), b.opTimeout)
		defer cancel()
		_, err := commands.Stop(ctx)
		return err
	case "restart":
		ctx, cancel := context.WithTimeout(context.Background(), b.opTimeout)
		defer cancel()
		return commands.Restart(ctx)
	case "show":
		commands.Show()
	case "hide":
		commands.Hide()
	case "toggleCamera", "toggleAudio":
		if cmd.Enabled == nil {
			return fmt.Errorf("%s requires enabled", cmd.Type)
		}
		if cmd.Type == "toggleCamera" {
			commands.ToggleCamera(*cmd.Enabled)
		} else {
			commands.ToggleAudio(*cmd.Enabled)
		}
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}

// broadcast never blocks; a panel that cannot keep up is disconnected.
func (b *Bridge) broadcast(msg Message) {
	frame := mustEncode(msg)

	b.mu.RLock()
	var slow []*client
	for c := range b.clients {
		if !c.enqueue(frame) {
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		b.log.Warn("dropping slow panel client")
		c.close()
	}
}

func (b *Bridge) StateChanged(state domain.RecorderState, reason domain.StateReason) {
	b.broadcast(Message{Type: "state", Payload: map[string]string{"state": string(state), "reason": string(reason)}})
}

func (b *Bridge) DurationChanged(seconds int) {
	b.broadcast(Message{Type: "duration", Payload: map[string]int{"seconds": seconds}})
}

func (b *Bridge) PanelVisibilityChanged(visible bool) {
	b.broadcast(Message{Type: "visibility", Payload: map[string]bool{"visible": visible}})
}

func (b *Bridge) RecordingReady(result domain.RecordingResult) {
	b.broadcast(Message{Type: "ready", Payload: result})
}

func (b *Bridge) SessionError(code domain.ErrorCode, detail string) {
	b.broadcast(Message{Type: "error", Payload: map[string]string{"code": string(code), "detail": detail}})
}

func commandError(name string, err error) Message {
	return Message{Type: "commandError", Payload: map[string]string{"command": name, "detail": err.Error()}}
}

func mustEncode(msg Message) []byte {
	frame, err := json.Marshal(msg)
	if err != nil {
		frame, _ = json.Marshal(Message{Type: "error", Payload: map[string]string{"code": string(domain.ErrorCodeUnknown), "detail": err.Error()}})
	}
	return frame
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func (c *client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
