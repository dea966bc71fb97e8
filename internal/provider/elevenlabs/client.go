package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const outboundCallPath = "/v1/convai/twilio/outbound-call"

// Client is a minimal ElevenLabs Conversational AI REST client covering
// the outbound telephone call endpoint
type Client struct {
	apiKey        string
	agentID       string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
}

// Config holds client settings. BaseURL may be overridden for testing.
type Config struct {
	APIKey        string
	AgentID       string
	PhoneNumberID string
	BaseURL       string
	Timeout       time.Duration
}

// NewClient creates a new provider client
func NewClient(cfg *Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:        cfg.APIKey,
		agentID:       cfg.AgentID,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// AgentID returns the configured provider agent identifier
func (c *Client) AgentID() string {
	return c.agentID
}

// outboundCallRequest is the provider wire format for placing a call
type outboundCallRequest struct {
	AgentID                         string               `json:"agent_id"`
	AgentPhoneNumberID              string               `json:"agent_phone_number_id"`
	ToNumber                        string               `json:"to_number"`
	ConversationInitiationClientData initiationClientData `json:"conversation_initiation_client_data"`
}

type initiationClientData struct {
	DynamicVariables map[string]string `json:"dynamic_variables"`
}

// OutboundCallResponse carries the provider's confirmation of a placed call
type OutboundCallResponse struct {
	ConversationID string `json:"conversation_id"`
	CallSID        string `json:"callSid,omitempty"`
}

// APIError is a non-success provider response. Body holds the raw payload
// verbatim for propagation to the caller.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider API error: status %d: %s", e.StatusCode, e.Body)
}

// OutboundCall places an outbound telephone call through the provider's
// telephony integration, injecting the dynamic-variable bag so the agent
// personalizes the conversation
func (c *Client) OutboundCall(ctx context.Context, toNumber string, dynamicVariables map[string]string) (*OutboundCallResponse, error) {
	reqBody := outboundCallRequest{
		AgentID:            c.agentID,
		AgentPhoneNumberID: c.phoneNumberID,
		ToNumber:           toNumber,
		ConversationInitiationClientData: initiationClientData{
			DynamicVariables: dynamicVariables,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outbound call request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+outboundCallPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build outbound call request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("outbound call request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read outbound call response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	result := &OutboundCallResponse{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("failed to decode outbound call response: %w", err)
	}

	return result, nil
}
