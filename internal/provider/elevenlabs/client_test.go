package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&Config{
		APIKey:        "test-key",
		AgentID:       "agent_1",
		PhoneNumberID: "phone_1",
		BaseURL:       serverURL,
	})
}

func TestOutboundCall(t *testing.T) {
	var gotRequest map[string]any
	var gotAPIKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/convai/twilio/outbound-call", r.URL.Path)
		gotAPIKey = r.Header.Get("xi-api-key")

		err := json.NewDecoder(r.Body).Decode(&gotRequest)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"conversation_id": "conv_1"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	resp, err := client.OutboundCall(context.Background(), "+48123456789", map[string]string{
		"name":       "Anna",
		"first_name": "Anna",
	})

	require.NoError(t, err)
	assert.Equal(t, "conv_1", resp.ConversationID)
	assert.Equal(t, "test-key", gotAPIKey)

	assert.Equal(t, "agent_1", gotRequest["agent_id"])
	assert.Equal(t, "phone_1", gotRequest["agent_phone_number_id"])
	assert.Equal(t, "+48123456789", gotRequest["to_number"])

	clientData, ok := gotRequest["conversation_initiation_client_data"].(map[string]any)
	require.True(t, ok)
	vars, ok := clientData["dynamic_variables"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Anna", vars["name"])
}

func TestOutboundCall_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"busy"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	resp, err := client.OutboundCall(context.Background(), "+48123456789", nil)

	assert.Nil(t, resp)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "busy")
}

func TestOutboundCall_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.OutboundCall(ctx, "+48123456789", nil)
	assert.Error(t, err)
}
