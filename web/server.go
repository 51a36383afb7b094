// Package web serves the browser keypad and relays its input over a
// WebSocket.
//
// Every connection is its own keypad source: its visibility counts towards
// keeping the output device open, and a dropped connection cancels whatever
// keys it was holding.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"dtmfpad/keypad"
	"dtmfpad/tone"
)

//go:embed static
var staticFiles embed.FS

// Keypad is the part of keypad.Binding the server drives.
type Keypad interface {
	Handle(keypad.Event)
	SetVisible(source string, visible bool)
	Disconnect(source string)
}

// State is the snapshot sent to a client when it connects.
type State struct {
	Active  bool   `json:"active"`
	Playing bool   `json:"playing"`
	Key     string `json:"key,omitempty"`
	Session uint64 `json:"session,omitempty"`
}

type StateFunc func() State

// ControllerState adapts a tone controller to a StateFunc.
func ControllerState(c *tone.Controller) StateFunc {
	return func() State {
		s := c.Current()
		st := State{Active: c.Active(), Playing: s.Audible}
		if s.Audible {
			st.Key = s.Key
			st.Session = s.ID
		}
		return st
	}
}

type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

type toneStartedData struct {
	Session uint64  `json:"session"`
	Key     string  `json:"key"`
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
}

type toneStoppedData struct {
	Session uint64 `json:"session"`
}

// inbound is a client message: a key event or a visibility change.
type inbound struct {
	Type    string `json:"type"`
	Key     string `json:"key,omitempty"`
	Visible *bool  `json:"visible,omitempty"`
}

type Config struct {
	Hub HubConfig
}

type Server struct {
	logger zerolog.Logger
	keypad Keypad
	state  StateFunc
	hub    *Hub

	nextID atomic.Uint64

	upgrader websocket.Upgrader
}

func NewServer(logger zerolog.Logger, kp Keypad, state StateFunc, cfg Config) *Server {
	logger = logger.With().Str("component", "web").Logger()
	if state == nil {
		state = func() State { return State{} }
	}
	return &Server{
		logger: logger,
		keypad: kp,
		state:  state,
		hub:    NewHub(logger, cfg.Hub),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Run runs the hub until ctx is canceled.
func (s *Server) Run(ctx context.Context) {
	s.hub.Run(ctx)
}

// Handler serves the keypad page on / and the socket on /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("/", http.FileServer(http.FS(static)))
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	return nil
}

// Observe is a tone.Observer that broadcasts tone events to every client.
// It never blocks.
func (s *Server) Observe(ev tone.Event) {
	msg, err := encodeToneEvent(ev)
	if err != nil {
		s.logger.Warn().Err(err).Stringer("kind", ev.Kind).Msg("ws_marshal_failed")
		return
	}
	s.hub.BroadcastBytes(msg)
}

func encodeToneEvent(ev tone.Event) ([]byte, error) {
	ts := ev.At.UTC()
	if ev.At.IsZero() {
		ts = time.Now().UTC()
	}
	env := envelope{Type: ev.Kind.String(), Ts: &ts}
	switch ev.Kind {
	case tone.ToneStarted:
		env.Data = toneStartedData{Session: ev.Session, Key: ev.Key, Low: ev.Pair.Low, High: ev.Pair.High}
	case tone.ToneStopped:
		env.Data = toneStoppedData{Session: ev.Session}
	default:
		return nil, fmt.Errorf("unknown tone event %d", ev.Kind)
	}
	return json.Marshal(env)
}

func encodeState(st State) ([]byte, error) {
	now := time.Now().UTC()
	return json.Marshal(envelope{Type: "state_init", Ts: &now, Data: st})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("ws_upgrade_failed")
		return
	}

	id := fmt.Sprintf("web-%d", s.nextID.Add(1))
	client := NewClient(s.hub, conn, id, r.RemoteAddr, s.logger)

	// Queue the snapshot before the hub knows the client so it is always
	// the first frame.
	if msg, err := encodeState(s.state()); err == nil {
		client.enqueue(msg)
	}
	s.hub.register <- client

	// The pumps outlive the request; the hub and socket errors end them.
	go client.writePump()
	go client.readPump(s.handleMessage, s.handleDone)
}

func (s *Server) handleMessage(c *Client, raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Warn().Err(err).Msg("ws_bad_message")
		return
	}
	if msg.Type == "visibility" {
		if msg.Visible == nil {
			c.logger.Warn().Msg("ws_visibility_without_value")
			return
		}
		s.keypad.SetVisible(c.id, *msg.Visible)
		return
	}
	kind, err := keypad.ParseKind(msg.Type)
	if err != nil {
		c.logger.Warn().Err(err).Msg("ws_bad_message")
		return
	}
	s.keypad.Handle(keypad.Event{Source: c.id, Key: msg.Key, Kind: kind})
}

func (s *Server) handleDone(c *Client) {
	s.keypad.Disconnect(c.id)
}
