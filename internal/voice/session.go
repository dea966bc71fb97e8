package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"carecall-backend/internal/domain"
	apperrors "carecall-backend/pkg/errors"
	"carecall-backend/pkg/logger"
	"carecall-backend/pkg/metrics"
)

// Status is the lifecycle state of a live voice session
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// Mode is the agent's turn-taking state
type Mode string

const (
	ModeSpeaking  Mode = "speaking"
	ModeListening Mode = "listening"
)

// Role tags an utterance as coming from the agent or the person
type Role string

const (
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

// MapSourceRole maps provider speaker tags to a two-party role. Unknown
// tags map to the user role, never to the agent.
func MapSourceRole(source string) Role {
	switch source {
	case "ai", "agent":
		return RoleAgent
	default:
		return RoleUser
	}
}

// Events is the observer contract for session callbacks. Exactly one
// subscriber per session.
type Events interface {
	OnStatusChange(status Status)
	OnMessage(role Role, text string)
	OnModeChange(mode Mode)
	OnError(message string, err error)
}

// Config holds session client settings. BaseURL may be overridden for
// testing, using a ws:// scheme.
type Config struct {
	BaseURL string
	APIKey  string
}

// Session is a live voice conversation handle. One Session manages at
// most one provider connection; construct one per call screen and dispose
// it on teardown.
type Session struct {
	cfg     Config
	events  Events
	metrics *metrics.Metrics

	mu     sync.Mutex
	status Status
	conn   *websocket.Conn
	ended  bool
}

// NewSession creates an idle session. events and m may be nil.
func NewSession(cfg Config, events Events, m *metrics.Metrics) *Session {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "wss://api.elevenlabs.io"
	}
	return &Session{
		cfg:     cfg,
		events:  events,
		metrics: m,
		status:  StatusIdle,
	}
}

// Status returns the current session state
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// IsActive reports whether a connection exists and is in the connected state
func (s *Session) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && s.status == StatusConnected
}

// setStatus must be called with s.mu held
func (s *Session) setStatus(status Status) {
	s.status = status
	if s.events != nil {
		s.events.OnStatusChange(status)
	}
}

// initMessage is the first frame sent after connecting, carrying the
// per-call dynamic variables the agent personalizes with
type initMessage struct {
	Type             string            `json:"type"`
	DynamicVariables map[string]string `json:"dynamic_variables"`
}

// providerEvent is one inbound frame from the provider
type providerEvent struct {
	Type    string `json:"type"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message,omitempty"`
	Mode    string `json:"mode,omitempty"`
	Error   string `json:"error,omitempty"`
}

// buildSessionVariables assembles the dynamic-variable bag for a live
// session. The display name defaults to the preferred name.
func buildSessionVariables(p *domain.ElderlyProfile) map[string]string {
	vars := map[string]string{
		"elderly_first_name": p.FirstName,
		"elderly_last_name":  p.LastName,
		"elderly_name":       p.DisplayName(),
	}
	if p.MedicalNotes != nil && *p.MedicalNotes != "" {
		vars["medical_notes"] = *p.MedicalNotes
	}
	if p.CareNotes != nil && *p.CareNotes != "" {
		vars["care_notes"] = *p.CareNotes
	}
	return vars
}

// Start opens a live conversation with the given provider agent. If a
// session is already active, or another start is still connecting, this
// is a warning no-op; the existing connection is kept.
func (s *Session) Start(ctx context.Context, agentID string, profile *domain.ElderlyProfile) error {
	s.mu.Lock()

	// The lock is released during the dial, so an in-flight start is
	// visible only through the connecting status
	if s.conn != nil || s.status == StatusConnecting {
		s.mu.Unlock()
		logger.Warn("voice session already active, start ignored",
			zap.String("agent_id", agentID),
		)
		return nil
	}

	if agentID == "" {
		s.mu.Unlock()
		return apperrors.InvalidInputError("agent id is required")
	}

	s.ended = false
	s.setStatus(StatusConnecting)
	s.mu.Unlock()

	endpoint := fmt.Sprintf("%s/v1/convai/conversation?agent_id=%s", s.cfg.BaseURL, url.QueryEscape(agentID))

	header := make(map[string][]string)
	if s.cfg.APIKey != "" {
		header["xi-api-key"] = []string{s.cfg.APIKey}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		s.mu.Lock()
		s.setStatus(StatusError)
		s.mu.Unlock()
		if s.events != nil {
			s.events.OnError("failed to connect to voice provider", err)
		}
		return apperrors.WrapWithStatus(apperrors.ErrCodeUpstream, "failed to connect to voice provider", 502, err)
	}

	init := initMessage{
		Type:             "conversation_initiation_client_data",
		DynamicVariables: buildSessionVariables(profile),
	}
	if err := conn.WriteJSON(init); err != nil {
		conn.Close()
		s.mu.Lock()
		s.setStatus(StatusError)
		s.mu.Unlock()
		if s.events != nil {
			s.events.OnError("failed to send session init", err)
		}
		return apperrors.WrapWithStatus(apperrors.ErrCodeUpstream, "failed to send session init", 502, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.setStatus(StatusConnected)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.VoiceSessionStarted()
	}

	logger.Info("voice session connected", zap.String("agent_id", agentID))

	go s.readLoop(conn)

	return nil
}

// readLoop dispatches provider frames until the connection drops
func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.onDisconnect()
			return
		}

		var event providerEvent
		if err := json.Unmarshal(data, &event); err != nil {
			logger.Warn("unparseable voice session frame", zap.Error(err))
			continue
		}

		s.dispatch(&event)
	}
}

func (s *Session) dispatch(event *providerEvent) {
	if s.events == nil {
		return
	}

	switch event.Type {
	case "message":
		s.events.OnMessage(MapSourceRole(event.Source), event.Message)
	case "mode":
		switch Mode(event.Mode) {
		case ModeSpeaking, ModeListening:
			s.events.OnModeChange(Mode(event.Mode))
		default:
			logger.Warn("unknown voice session mode", zap.String("mode", event.Mode))
		}
	case "error":
		s.events.OnError(event.Error, nil)
		s.mu.Lock()
		s.setStatus(StatusError)
		s.mu.Unlock()
	default:
		// Metadata and audio frames are handled provider-side
	}
}

// onDisconnect clears the handle after the read loop ends. A deliberate
// End already moved the session to idle; anything else is a provider-side
// disconnect.
func (s *Session) onDisconnect() {
	s.mu.Lock()
	wasEnded := s.ended
	s.conn = nil
	if !wasEnded && s.status != StatusError {
		s.setStatus(StatusDisconnected)
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.VoiceSessionEnded()
	}

	if !wasEnded {
		logger.Info("voice session disconnected")
	}
}

// End gracefully terminates the session. A no-op when no session is
// active. On termination failure the handle and state are kept so the
// caller may retry.
func (s *Session) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	err := s.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	if err != nil {
		logger.Error("failed to close voice session", zap.Error(err))
		return apperrors.Wrap(apperrors.ErrCodeUpstream, "failed to close voice session", err)
	}

	s.ended = true
	s.conn.Close()
	s.conn = nil
	s.setStatus(StatusIdle)

	return nil
}
