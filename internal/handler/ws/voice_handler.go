package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"carecall-backend/internal/domain"
	"carecall-backend/internal/voice"
	"carecall-backend/pkg/logger"
	"carecall-backend/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProfileGetter is the profile lookup the voice bridge needs
type ProfileGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ElderlyProfile, error)
}

// VoiceHandler bridges a browser WebSocket to a live provider voice
// session. Each connection owns exactly one Session, disposed on teardown.
type VoiceHandler struct {
	profiles       ProfileGetter
	sessionCfg     voice.Config
	defaultAgentID string
	metrics        *metrics.Metrics
}

// NewVoiceHandler creates a new voice bridge handler
func NewVoiceHandler(profiles ProfileGetter, sessionCfg voice.Config, defaultAgentID string, m *metrics.Metrics) *VoiceHandler {
	return &VoiceHandler{
		profiles:       profiles,
		sessionCfg:     sessionCfg,
		defaultAgentID: defaultAgentID,
		metrics:        m,
	}
}

// clientCommand is one inbound frame from the browser
type clientCommand struct {
	Type      string `json:"type"` // start, end
	ProfileID string `json:"profile_id,omitempty"`
}

// bridgeEvent is one outbound frame to the browser
type bridgeEvent struct {
	Type    string `json:"type"` // status, message, mode, error
	Status  string `json:"status,omitempty"`
	Role    string `json:"role,omitempty"`
	Message string `json:"message,omitempty"`
	Mode    string `json:"mode,omitempty"`
	Error   string `json:"error,omitempty"`
}

// bridgeEvents forwards session callbacks to the browser connection
type bridgeEvents struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (b *bridgeEvents) write(event bridgeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.conn.WriteJSON(event); err != nil {
		logger.Debug("voice bridge write failed", zap.Error(err))
	}
}

func (b *bridgeEvents) OnStatusChange(status voice.Status) {
	b.write(bridgeEvent{Type: "status", Status: string(status)})
}

func (b *bridgeEvents) OnMessage(role voice.Role, text string) {
	b.write(bridgeEvent{Type: "message", Role: string(role), Message: text})
}

func (b *bridgeEvents) OnModeChange(mode voice.Mode) {
	b.write(bridgeEvent{Type: "mode", Mode: string(mode)})
}

func (b *bridgeEvents) OnError(message string, err error) {
	b.write(bridgeEvent{Type: "error", Error: message})
}

// HandleVoice upgrades the connection and runs the command loop
// GET /v1/voice/session
func (h *VoiceHandler) HandleVoice(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("voice bridge upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events := &bridgeEvents{conn: conn}
	session := voice.NewSession(h.sessionCfg, events, h.metrics)
	defer session.End()

	for {
		var cmd clientCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}

		switch cmd.Type {
		case "start":
			h.handleStart(c.Request.Context(), session, events, &cmd)
		case "end":
			if err := session.End(); err != nil {
				events.write(bridgeEvent{Type: "error", Error: "failed to end session"})
			}
		default:
			events.write(bridgeEvent{Type: "error", Error: "unknown command " + cmd.Type})
		}
	}
}

func (h *VoiceHandler) handleStart(ctx context.Context, session *voice.Session, events *bridgeEvents, cmd *clientCommand) {
	profileID, err := uuid.Parse(cmd.ProfileID)
	if err != nil {
		events.write(bridgeEvent{Type: "error", Error: "invalid profile id"})
		return
	}

	profile, err := h.profiles.GetByID(ctx, profileID)
	if err != nil {
		events.write(bridgeEvent{Type: "error", Error: "profile not found"})
		return
	}

	agentID := h.defaultAgentID
	if profile.AgentID != nil && *profile.AgentID != "" {
		agentID = *profile.AgentID
	}

	if err := session.Start(ctx, agentID, profile); err != nil {
		logger.Error("voice session start failed",
			zap.String("profile_id", profileID.String()),
			zap.Error(err),
		)
	}
}
