package voice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carecall-backend/internal/domain"
)

type eventRecorder struct {
	mu       sync.Mutex
	statuses []Status
	roles    []Role
	messages []string
	modes    []Mode
	errors   []string
}

func (r *eventRecorder) OnStatusChange(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *eventRecorder) OnMessage(role Role, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles = append(r.roles, role)
	r.messages = append(r.messages, text)
}

func (r *eventRecorder) OnModeChange(mode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes = append(r.modes, mode)
}

func (r *eventRecorder) OnError(message string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, message)
}

func (r *eventRecorder) lastStatus() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func (r *eventRecorder) messageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// testProvider is a fake provider endpoint. It records the init frame and
// serves frames pushed through send.
type testProvider struct {
	server *httptest.Server
	send   chan any

	mu    sync.Mutex
	dials int
	init  map[string]any
}

func newTestProvider(t *testing.T) *testProvider {
	p := &testProvider{send: make(chan any, 8)}

	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		p.mu.Lock()
		p.dials++
		p.mu.Unlock()

		var init struct {
			Type             string            `json:"type"`
			DynamicVariables map[string]string `json:"dynamic_variables"`
		}
		if err := conn.ReadJSON(&init); err != nil {
			return
		}
		p.mu.Lock()
		p.init = map[string]any{"type": init.Type}
		for k, v := range init.DynamicVariables {
			p.init[k] = v
		}
		p.mu.Unlock()

		go func() {
			for frame := range p.send {
				if conn.WriteJSON(frame) != nil {
					return
				}
			}
		}()

		// Drain until the client closes
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))

	return p
}

func (p *testProvider) wsURL() string {
	return "ws" + strings.TrimPrefix(p.server.URL, "http")
}

func (p *testProvider) dialCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dials
}

func (p *testProvider) initVar(key string) any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.init == nil {
		return nil
	}
	return p.init[key]
}

func sessionProfile() *domain.ElderlyProfile {
	preferred := "Pani Aniu"
	notes := "Nadciśnienie"
	return &domain.ElderlyProfile{
		FirstName:     "Anna",
		LastName:      "Kowalska",
		PreferredName: &preferred,
		MedicalNotes:  &notes,
	}
}

func TestSessionStart(t *testing.T) {
	provider := newTestProvider(t)
	defer provider.server.Close()

	events := &eventRecorder{}
	session := NewSession(Config{BaseURL: provider.wsURL()}, events, nil)

	err := session.Start(context.Background(), "agent_1", sessionProfile())
	require.NoError(t, err)
	defer session.End()

	assert.True(t, session.IsActive())
	assert.Equal(t, StatusConnected, session.Status())
	assert.Equal(t, []Status{StatusConnecting, StatusConnected}, events.statuses)

	require.Eventually(t, func() bool {
		return provider.initVar("elderly_first_name") != nil
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, "conversation_initiation_client_data", provider.initVar("type"))
	assert.Equal(t, "Anna", provider.initVar("elderly_first_name"))
	assert.Equal(t, "Kowalska", provider.initVar("elderly_last_name"))
	assert.Equal(t, "Pani Aniu", provider.initVar("elderly_name"))
	assert.Equal(t, "Nadciśnienie", provider.initVar("medical_notes"))
}

func TestSessionStart_AlreadyActive(t *testing.T) {
	provider := newTestProvider(t)
	defer provider.server.Close()

	session := NewSession(Config{BaseURL: provider.wsURL()}, nil, nil)

	require.NoError(t, session.Start(context.Background(), "agent_1", sessionProfile()))
	defer session.End()

	// Second start must not open a second connection
	require.NoError(t, session.Start(context.Background(), "agent_1", sessionProfile()))

	require.Eventually(t, func() bool {
		return provider.dialCount() == 1
	}, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, provider.dialCount())
}

func TestSessionStart_WhileConnecting(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	accepts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		accepts++
		mu.Unlock()
		<-release

		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	session := NewSession(Config{BaseURL: "ws" + strings.TrimPrefix(server.URL, "http")}, nil, nil)

	done := make(chan error, 1)
	go func() {
		done <- session.Start(context.Background(), "agent_1", sessionProfile())
	}()

	require.Eventually(t, func() bool {
		return session.Status() == StatusConnecting
	}, time.Second, 10*time.Millisecond)

	// A start arriving while the first is still dialing must not open a
	// second connection
	require.NoError(t, session.Start(context.Background(), "agent_1", sessionProfile()))

	close(release)
	require.NoError(t, <-done)
	defer session.End()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, accepts)
	assert.Equal(t, StatusConnected, session.Status())
}

func TestSessionStart_DialFailure(t *testing.T) {
	events := &eventRecorder{}
	session := NewSession(Config{BaseURL: "ws://127.0.0.1:1"}, events, nil)

	err := session.Start(context.Background(), "agent_1", sessionProfile())

	require.Error(t, err)
	assert.Equal(t, StatusError, session.Status())
	assert.False(t, session.IsActive())
	assert.NotEmpty(t, events.errors)
}

func TestSessionEnd_Idle(t *testing.T) {
	session := NewSession(Config{BaseURL: "ws://127.0.0.1:1"}, nil, nil)

	assert.NoError(t, session.End())
	assert.Equal(t, StatusIdle, session.Status())
}

func TestSessionEnd(t *testing.T) {
	provider := newTestProvider(t)
	defer provider.server.Close()

	events := &eventRecorder{}
	session := NewSession(Config{BaseURL: provider.wsURL()}, events, nil)

	require.NoError(t, session.Start(context.Background(), "agent_1", sessionProfile()))
	require.NoError(t, session.End())

	assert.False(t, session.IsActive())
	assert.Equal(t, StatusIdle, session.Status())

	// End again is a no-op
	assert.NoError(t, session.End())
}

func TestSessionMessageDispatch(t *testing.T) {
	provider := newTestProvider(t)
	defer provider.server.Close()

	events := &eventRecorder{}
	session := NewSession(Config{BaseURL: provider.wsURL()}, events, nil)

	require.NoError(t, session.Start(context.Background(), "agent_1", sessionProfile()))
	defer session.End()

	provider.send <- map[string]string{"type": "message", "source": "ai", "message": "Dzień dobry"}
	provider.send <- map[string]string{"type": "message", "source": "transcript", "message": "Dzień dobry, dobrze się czuję"}
	provider.send <- map[string]string{"type": "mode", "mode": "listening"}

	require.Eventually(t, func() bool {
		return events.messageCount() == 2 && len(events.modes) == 1
	}, time.Second, 10*time.Millisecond)

	events.mu.Lock()
	defer events.mu.Unlock()
	assert.Equal(t, []Role{RoleAgent, RoleUser}, events.roles)
	assert.Equal(t, "Dzień dobry", events.messages[0])
	assert.Equal(t, ModeListening, events.modes[0])
}

func TestSessionProviderDisconnect(t *testing.T) {
	provider := newTestProvider(t)

	events := &eventRecorder{}
	session := NewSession(Config{BaseURL: provider.wsURL()}, events, nil)

	require.NoError(t, session.Start(context.Background(), "agent_1", sessionProfile()))

	provider.server.Close()

	require.Eventually(t, func() bool {
		return events.lastStatus() == StatusDisconnected
	}, time.Second, 10*time.Millisecond)

	assert.False(t, session.IsActive())
}

func TestMapSourceRole(t *testing.T) {
	assert.Equal(t, RoleAgent, MapSourceRole("ai"))
	assert.Equal(t, RoleAgent, MapSourceRole("agent"))
	assert.Equal(t, RoleUser, MapSourceRole("user"))
	assert.Equal(t, RoleUser, MapSourceRole("transcript"))
	assert.Equal(t, RoleUser, MapSourceRole(""))
}
