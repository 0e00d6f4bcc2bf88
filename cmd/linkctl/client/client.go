// Package client is a thin HTTP client for the gamelink API, used by the
// linkctl CLI to drive the handshake from a terminal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.pilab.hu/gamelink/api"
)

// Client talks to a gamelink server.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a Client for the given server endpoint, e.g.
// "http://localhost:8080".
func New(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// InitPairing starts a handshake for the device.
func (c *Client) InitPairing(ctx context.Context, deviceID string) (*api.InitPairingResponse, error) {
	var resp api.InitPairingResponse
	err := c.post(ctx, "/api/auth/init", api.InitPairingRequest{DeviceID: deviceID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Finalize performs one device poll. A pending handshake is not an error;
// the returned response reports api.StatusPending.
func (c *Client) Finalize(ctx context.Context, token, deviceID string) (*api.FinalizeResponse, error) {
	var resp api.FinalizeResponse
	err := c.post(ctx, "/api/auth/finalize", api.FinalizeRequest{Token: token, DeviceID: deviceID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates with email and password. webToken is optional.
func (c *Client) Login(ctx context.Context, email, password, webToken string) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	err := c.post(ctx, "/api/auth/login-email", api.LoginRequest{
		Email:    email,
		Password: password,
		WebToken: webToken,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account with email and password. webToken is optional.
func (c *Client) Register(ctx context.Context, username, email, password, webToken string) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	err := c.post(ctx, "/api/auth/register-email", api.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
		WebToken: webToken,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	// 202 is the pending poll answer, everything else above 2xx is an error.
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.ErrorResponse
		raw, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Error == "" {
			return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, string(raw))
		}
		return fmt.Errorf("%s: %s", apiErr.Error, apiErr.Description)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
