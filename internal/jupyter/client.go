// Package jupyter talks to a Jupyter Server: REST lookups for sessions
// and kernels, and the websocket channels endpoint for code execution
// under messaging protocol 5.3.
package jupyter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrServer means a Jupyter Server request failed: unreachable gateway,
// non-2xx response, undecodable payload, or a broken kernel channel.
var ErrServer = errors.New("jupyter server request failed")

const requestTimeout = 10 * time.Second

// Session is one running Jupyter session. Raw keeps the server's full
// payload for callers that need fields beyond the extracted ones.
type Session struct {
	ID       string          `json:"id"`
	Path     string          `json:"path"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	KernelID string          `json:"kernel_id"`
	Raw      json.RawMessage `json:"raw"`
}

// Kernel is one kernel's metadata.
type Kernel struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	LastActivity   string          `json:"last_activity"`
	ExecutionState string          `json:"execution_state"`
	Connections    int             `json:"connections"`
	Raw            json.RawMessage `json:"raw"`
}

// Client is a small REST client for the Jupyter Server API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL. token may be
// empty for unauthenticated servers.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// ListSessions fetches the running sessions.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var raw []json.RawMessage
	if err := c.get(ctx, "/api/sessions", &raw); err != nil {
		return nil, err
	}

	sessions := make([]Session, 0, len(raw))
	for _, r := range raw {
		var s struct {
			ID     string `json:"id"`
			Path   string `json:"path"`
			Name   string `json:"name"`
			Type   string `json:"type"`
			Kernel struct {
				ID string `json:"id"`
			} `json:"kernel"`
		}
		if err := json.Unmarshal(r, &s); err != nil {
			return nil, fmt.Errorf("%w: decode session: %v", ErrServer, err)
		}
		sessions = append(sessions, Session{
			ID:       s.ID,
			Path:     s.Path,
			Name:     s.Name,
			Type:     s.Type,
			KernelID: s.Kernel.ID,
			Raw:      r,
		})
	}
	return sessions, nil
}

// GetKernel fetches one kernel's metadata.
func (c *Client) GetKernel(ctx context.Context, kernelID string) (*Kernel, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/kernels/"+url.PathEscape(kernelID), &raw); err != nil {
		return nil, err
	}

	var k struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		LastActivity   string `json:"last_activity"`
		ExecutionState string `json:"execution_state"`
		Connections    int    `json:"connections"`
	}
	if err := json.Unmarshal(raw, &k); err != nil {
		return nil, fmt.Errorf("%w: decode kernel: %v", ErrServer, err)
	}
	if k.ID == "" {
		k.ID = kernelID
	}
	return &Kernel{
		ID:             k.ID,
		Name:           k.Name,
		LastActivity:   k.LastActivity,
		ExecutionState: k.ExecutionState,
		Connections:    k.Connections,
		Raw:            raw,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	u := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrServer, u, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrServer, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: GET %s: status %d", ErrServer, u, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrServer, u, err)
	}
	return nil
}

// WebSocketURL derives the kernel channels endpoint from an HTTP base
// URL, carrying the token as a query parameter when present.
func WebSocketURL(baseURL, kernelID, token string) string {
	b := strings.TrimRight(baseURL, "/")
	var wsBase string
	switch {
	case strings.HasPrefix(b, "https://"):
		wsBase = "wss://" + strings.TrimPrefix(b, "https://")
	case strings.HasPrefix(b, "http://"):
		wsBase = "ws://" + strings.TrimPrefix(b, "http://")
	default:
		wsBase = "ws://" + b
	}

	u := wsBase + "/api/kernels/" + url.PathEscape(kernelID) + "/channels"
	if token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}
