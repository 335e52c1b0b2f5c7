package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"propertyhub/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type State int32

const (
	StateConnecting State = iota
	StateIdentified
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateIdentified:
		return "identified"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// MessageHandler receives the text of an inbound {"type":"message"} frame.
// Returning an error wrapping domain.ErrForbidden ends the session.
type MessageHandler func(ctx context.Context, from domain.Identity, text string) error

// Authorizer runs once after identification, before the connection is registered.
type Authorizer func(ctx context.Context, id domain.Identity) error

type SessionConfig struct {
	// Identity is the token-verified identity of the peer.
	Identity domain.Identity
	// RequireHello makes the first frame an identification frame
	// {"user_id":N,"role":"..."} that must match Identity.
	RequireHello bool
	Authorize    Authorizer
	OnMessage    MessageHandler
	// Greeting, when set, is sent as a "connected" frame once the session is active.
	Greeting string
}

var (
	pingFrame = []byte("ping")
	pongFrame = []byte("pong")

	errPeerGone = errors.New("peer disconnected")
)

type inboundFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type helloFrame struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// Session owns one accepted websocket from handshake to teardown.
type Session struct {
	transport Transport
	client    *Client
	registry  *Registry
	cfg       SessionConfig
	logger    *zap.Logger
	state     atomic.Int32
}

func NewSession(t Transport, channel string, registry *Registry, cfg SessionConfig, opts ClientOptions, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := NewClient(t, channel, opts, logger)
	return &Session{
		transport: t,
		client:    client,
		registry:  registry,
		cfg:       cfg,
		logger:    client.logger.With(zap.Stringer("identity", cfg.Identity)),
	}
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) Client() *Client {
	return s.client
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Run blocks until the peer disconnects, the heartbeat times out, or the
// session is rejected. The connection is unregistered and closed on return.
func (s *Session) Run(ctx context.Context) {
	defer s.close()

	s.client.Start(func(c Conn) { s.registry.Evict(c) })

	pongWait := s.client.opts.PongWait
	s.transport.SetReadLimit(s.client.opts.MaxMessageSize)
	_ = s.transport.SetReadDeadline(time.Now().Add(pongWait))
	s.transport.SetPongHandler(func(string) error {
		return s.transport.SetReadDeadline(time.Now().Add(pongWait))
	})

	if err := s.identify(); err != nil {
		s.reject(err)
		return
	}
	s.setState(StateIdentified)

	if s.cfg.Authorize != nil {
		if err := s.cfg.Authorize(ctx, s.cfg.Identity); err != nil {
			s.reject(err)
			return
		}
	}

	s.registry.Register(s.cfg.Identity, s.client)
	s.setState(StateActive)
	s.logger.Info("websocket session active")

	if s.cfg.Greeting != "" {
		_ = s.client.Send(ConnectedFrame(s.cfg.Greeting))
	}

	s.readLoop(ctx, pongWait)
}

func (s *Session) identify() error {
	if !s.cfg.RequireHello {
		return nil
	}
	for {
		_, raw, err := s.transport.ReadMessage()
		if err != nil {
			return errPeerGone
		}
		if isPing(raw) {
			s.pong()
			continue
		}

		var hello helloFrame
		if err := json.Unmarshal(raw, &hello); err != nil || hello.UserID == 0 {
			return fmt.Errorf("identification frame required: %w", domain.ErrValidation)
		}
		if hello.UserID != s.cfg.Identity.UserID {
			return fmt.Errorf("claimed user %d does not match token: %w", hello.UserID, domain.ErrForbidden)
		}
		if hello.Role != "" {
			role, ok := domain.ParseRole(hello.Role)
			if !ok || role != s.cfg.Identity.Role {
				return fmt.Errorf("claimed role %q does not match token: %w", hello.Role, domain.ErrForbidden)
			}
		}
		return nil
	}
}

func (s *Session) readLoop(ctx context.Context, pongWait time.Duration) {
	for {
		_, raw, err := s.transport.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		_ = s.transport.SetReadDeadline(time.Now().Add(pongWait))

		if isPing(raw) {
			s.pong()
			continue
		}

		var in inboundFrame
		if err := json.Unmarshal(raw, &in); err != nil {
			s.logger.Debug("dropping malformed frame", zap.Error(err))
			continue
		}

		switch in.Type {
		case "ping":
			s.pong()
		case "message":
			if s.cfg.OnMessage == nil {
				continue
			}
			err := s.cfg.OnMessage(ctx, s.cfg.Identity, in.Message)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrForbidden):
				s.reject(err)
				return
			case errors.Is(err, domain.ErrValidation):
				s.logger.Debug("dropping invalid message", zap.Error(err))
			default:
				s.logger.Error("message handler failed", zap.Error(err))
				_ = s.client.Send(ErrorFrame("message not delivered"))
			}
		default:
			s.logger.Debug("ignoring frame", zap.String("type", in.Type))
		}
	}
}

func (s *Session) reject(err error) {
	if errors.Is(err, errPeerGone) {
		return
	}
	s.logger.Info("websocket session rejected", zap.Error(err))
	_ = s.client.Send(ErrorFrame(rejectMessage(err)))
}

func rejectMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return "access denied"
	case errors.Is(err, domain.ErrNotFound):
		return "not found"
	case errors.Is(err, domain.ErrValidation):
		return "invalid identification frame"
	}
	return "session rejected"
}

func (s *Session) close() {
	s.setState(StateClosed)
	s.registry.Unregister(s.cfg.Identity, s.client)
	_ = s.client.Close()
	s.logger.Debug("websocket session closed")
}

func (s *Session) pong() {
	_ = s.client.Send(pongFrame)
}

func isPing(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), pingFrame)
}
