// Package avatar drives a HeyGen streaming avatar that speaks answers
// aloud during chat sessions.
package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.heygen.com/v1"

// Client talks to the HeyGen streaming API.
type Client struct {
	apiKey   string
	avatarID string
	voice    string
	quality  string
	baseURL  string
	client   *http.Client
}

// NewClient creates a HeyGen client for the given avatar.
func NewClient(apiKey, avatarID, voice, quality string) *Client {
	if quality == "" {
		quality = "medium"
	}
	return &Client{
		apiKey:   apiKey,
		avatarID: avatarID,
		voice:    voice,
		quality:  quality,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Session is one live streaming avatar session. The SDP offer and ICE
// servers are relayed to the browser, which owns the WebRTC leg.
type Session struct {
	ID         string          `json:"session_id"`
	SDP        json.RawMessage `json:"sdp"`
	ICEServers json.RawMessage `json:"ice_servers2"`
}

type newSessionRequest struct {
	Quality    string       `json:"quality"`
	AvatarName string       `json:"avatar_name"`
	Voice      *voiceConfig `json:"voice,omitempty"`
}

type voiceConfig struct {
	VoiceID string `json:"voice_id"`
}

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewSession opens a streaming session for the configured avatar.
func (c *Client) NewSession(ctx context.Context) (*Session, error) {
	req := newSessionRequest{
		Quality:    c.quality,
		AvatarName: c.avatarID,
	}
	if c.voice != "" {
		req.Voice = &voiceConfig{VoiceID: c.voice}
	}

	var session Session
	if err := c.post(ctx, "/streaming.new", req, &session); err != nil {
		return nil, fmt.Errorf("creating avatar session: %w", err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("creating avatar session: no session ID returned")
	}
	return &session, nil
}

// Start confirms the browser's SDP answer and begins streaming.
func (c *Client) Start(ctx context.Context, sessionID string, sdp json.RawMessage) error {
	body := map[string]any{"session_id": sessionID, "sdp": sdp}
	if err := c.post(ctx, "/streaming.start", body, nil); err != nil {
		return fmt.Errorf("starting avatar session: %w", err)
	}
	return nil
}

// Speak sends text for the avatar to voice.
func (c *Client) Speak(ctx context.Context, sessionID, text string) error {
	body := map[string]any{"session_id": sessionID, "text": text}
	if err := c.post(ctx, "/streaming.task", body, nil); err != nil {
		return fmt.Errorf("sending avatar task: %w", err)
	}
	return nil
}

// Stop closes a streaming session. Closing an already-closed session is
// not an error worth surfacing to chat users; callers may ignore it.
func (c *Client) Stop(ctx context.Context, sessionID string) error {
	body := map[string]any{"session_id": sessionID}
	if err := c.post(ctx, "/streaming.stop", body, nil); err != nil {
		return fmt.Errorf("stopping avatar session: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("heygen returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decoding heygen response: %w", err)
	}
	if envelope.Code != 100 && envelope.Code != 0 {
		return fmt.Errorf("heygen error %d: %s", envelope.Code, envelope.Message)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decoding heygen data: %w", err)
		}
	}
	return nil
}
