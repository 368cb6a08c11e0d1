package statusapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client reads a running agent's status listener.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a Client for addr, either host:port or a full URL.
// A nil httpClient uses a 5 second timeout.
func NewClient(addr string, httpClient *http.Client) (*Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("statusapi: address is required")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{base: strings.TrimRight(addr, "/"), http: httpClient}, nil
}

// Status fetches GET /api/status.
func (c *Client) Status(ctx context.Context) (*StatusView, error) {
	var v StatusView
	if err := c.get(ctx, "/api/status", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Tasks fetches GET /api/tasks.
func (c *Client) Tasks(ctx context.Context) ([]TaskView, error) {
	var body struct {
		Tasks []TaskView `json:"tasks"`
	}
	if err := c.get(ctx, "/api/tasks", &body); err != nil {
		return nil, err
	}
	return body.Tasks, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("statusapi: %s: %w", path, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("statusapi: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("statusapi: %s: %s", path, e.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("statusapi: %s: decode: %w", path, err)
	}
	return nil
}
