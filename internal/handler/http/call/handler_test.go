package call

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carecall-backend/internal/domain"
	"carecall-backend/internal/provider/elevenlabs"
	"carecall-backend/internal/repository/postgres"
	callService "carecall-backend/internal/service/call"
)

type fakeProfiles struct {
	profile *domain.ElderlyProfile
}

func (f *fakeProfiles) GetByID(ctx context.Context, id uuid.UUID) (*domain.ElderlyProfile, error) {
	if f.profile != nil && f.profile.ID == id {
		return f.profile, nil
	}
	return nil, postgres.ErrNotFound
}

type fakeCalls struct {
	created  []*domain.Call
	statuses map[uuid.UUID]domain.CallStatus
}

func newFakeCalls() *fakeCalls {
	return &fakeCalls{statuses: map[uuid.UUID]domain.CallStatus{}}
}

func (f *fakeCalls) Create(ctx context.Context, call *domain.Call) error {
	f.created = append(f.created, call)
	f.statuses[call.ID] = call.Status
	return nil
}

func (f *fakeCalls) UpdateStatus(ctx context.Context, callID uuid.UUID, status domain.CallStatus) error {
	f.statuses[callID] = status
	return nil
}

func (f *fakeCalls) MarkInProgress(ctx context.Context, callID uuid.UUID, conversationID string, initiatedAt time.Time) error {
	f.statuses[callID] = domain.CallStatusInProgress
	return nil
}

func (f *fakeCalls) ApplyOutcome(ctx context.Context, callID uuid.UUID, outcome *postgres.CallOutcome) error {
	return nil
}

func (f *fakeCalls) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	return nil, postgres.ErrNotFound
}

func (f *fakeCalls) List(ctx context.Context, filter *postgres.CallFilter) ([]*domain.CallWithDetails, error) {
	return nil, nil
}

type fakeProvider struct {
	conversationID string
	err            error
}

func (f *fakeProvider) AgentID() string { return "agent_1" }

func (f *fakeProvider) OutboundCall(ctx context.Context, toNumber string, dynamicVariables map[string]string) (*elevenlabs.OutboundCallResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &elevenlabs.OutboundCallResponse{ConversationID: f.conversationID}, nil
}

func setupRouter(profiles *fakeProfiles, calls *fakeCalls, provider *fakeProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)

	svc := callService.NewService(profiles, calls, nil, nil, provider, nil)
	handler := NewHandler(svc)

	router := gin.New()
	router.POST("/v1/calls/initiate", handler.InitiateCall)
	return router
}

func initiate(t *testing.T, router *gin.Engine, body string) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/calls/initiate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestInitiateCallEndpoint(t *testing.T) {
	profile := &domain.ElderlyProfile{
		ID:          uuid.New(),
		FirstName:   "Anna",
		LastName:    "Kowalska",
		PhoneNumber: "+48123456789",
	}
	calls := newFakeCalls()
	router := setupRouter(&fakeProfiles{profile: profile}, calls, &fakeProvider{conversationID: "conv_1"})

	w, resp := initiate(t, router, `{"elderlyProfileId":"`+profile.ID.String()+`"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "conv_1", resp["conversationId"])
	assert.NotEmpty(t, resp["callId"])
	assert.Equal(t, "Call initiated to Anna Kowalska", resp["message"])

	require.Len(t, calls.created, 1)
	assert.Equal(t, domain.CallStatusInProgress, calls.statuses[calls.created[0].ID])
}

func TestInitiateCallEndpoint_ProviderError(t *testing.T) {
	profile := &domain.ElderlyProfile{
		ID:          uuid.New(),
		FirstName:   "Anna",
		LastName:    "Kowalska",
		PhoneNumber: "+48123456789",
	}
	calls := newFakeCalls()
	router := setupRouter(&fakeProfiles{profile: profile}, calls, &fakeProvider{
		err: &elevenlabs.APIError{StatusCode: 500, Body: `{"detail":"busy"}`},
	})

	w, resp := initiate(t, router, `{"elderlyProfileId":"`+profile.ID.String()+`"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "busy")

	require.Len(t, calls.created, 1)
	assert.Equal(t, domain.CallStatusFailed, calls.statuses[calls.created[0].ID])
}

func TestInitiateCallEndpoint_UnknownProfile(t *testing.T) {
	calls := newFakeCalls()
	router := setupRouter(&fakeProfiles{}, calls, &fakeProvider{conversationID: "conv_1"})

	w, resp := initiate(t, router, `{"elderlyProfileId":"`+uuid.New().String()+`"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Empty(t, calls.created)
	assert.NotEmpty(t, resp["error"])
}

func TestInitiateCallEndpoint_MissingBody(t *testing.T) {
	router := setupRouter(&fakeProfiles{}, newFakeCalls(), &fakeProvider{})

	w, resp := initiate(t, router, `{`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
}
