// Package remote holds the HTTP plumbing shared by the three network-backed
// pilots (IBM, Braket, IonQ), grounded on backend/backends/backends.go's
// repeated apiKey/baseURL/client shape across IBMQuantumBackend,
// RigettiBackend and IonQBackend — factored once here instead of
// duplicated per package, since the three backends differ only in
// endpoint paths and payload shape, not in how they make a request.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/perclft/qpilot/internal/qerr"
)

// Client is a bearer-token-authenticated JSON HTTP client bound to one
// provider's base URL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New builds a Client with the teacher's 30s timeout convention.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// PostJSON POSTs payload as JSON to BaseURL+path with a bearer token, and
// decodes the JSON response into out (if non-nil).
func (c *Client) PostJSON(ctx context.Context, path, token string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return qerr.Wrap(qerr.Internal, "could not encode request payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return qerr.Wrap(qerr.Internal, "could not build provider request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return qerr.Wrap(qerr.ProviderUnavailable, "provider request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return providerStatusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return qerr.Wrap(qerr.ProviderUnavailable, "could not decode provider response", err)
	}
	return nil
}

// GetJSON mirrors PostJSON for read-only calls (device listing, calibration).
func (c *Client) GetJSON(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return qerr.Wrap(qerr.Internal, "could not build provider request", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return qerr.Wrap(qerr.ProviderUnavailable, "provider request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return providerStatusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return qerr.Wrap(qerr.ProviderUnavailable, "could not decode provider response", err)
	}
	return nil
}

// providerStatusError maps a >=400 provider response to a Kind: an invalid
// or rejected token is Unauthorized/Forbidden (spec.md §7), never a
// transient ProviderUnavailable, since retrying with the same token would
// just fail again.
func providerStatusError(resp *http.Response) error {
	respBody, _ := io.ReadAll(resp.Body)
	msg := fmt.Sprintf("provider returned %d: %s", resp.StatusCode, respBody)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return qerr.New(qerr.Unauthorized, msg)
	case http.StatusForbidden:
		return qerr.New(qerr.Forbidden, msg)
	default:
		return qerr.New(qerr.ProviderUnavailable, msg)
	}
}

// ResolveToken falls back to an environment variable when the caller
// supplied no per-request token, matching ibm_pilot.py/ionq_pilot.py's
// "if token is empty, read the env var" convention.
func ResolveToken(token, envVar string) string {
	if token != "" {
		return token
	}
	return os.Getenv(envVar)
}
