// Package remote plays the player's side of a battle served by another
// process, over the HTTP battle API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/xianxia/internal/adapters/repository"
	"github.com/okian/xianxia/internal/domain/types"
)

const defaultTimeout = 10 * time.Second

// Submission is how the server treated a posted choice.
type Submission string

// Submission outcomes.
const (
	Accepted  Submission = "accepted"
	Duplicate Submission = "duplicate"
	Conflict  Submission = "conflict"
	Rejected  Submission = "rejected"
)

// ErrStatus reports an unexpected HTTP status.
var ErrStatus = errors.New("unexpected status")

// Client wraps http.Client with the battle API routes.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption applies a configuration option to the Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			cl.http = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, "/healthz", nil)
	return err
}

// Timeline returns the latest timeline, false before the first battle tick.
func (c *Client) Timeline(ctx context.Context) (types.Timeline, bool, error) {
	var tl types.Timeline
	status, err := c.get(ctx, "/battle/timeline", &tl)
	if status == http.StatusNotFound {
		return types.Timeline{}, false, nil
	}
	if err != nil {
		return types.Timeline{}, false, err
	}
	return tl, true, nil
}

// Battles returns up to limit finished battles, newest first.
func (c *Client) Battles(ctx context.Context, limit int) ([]repository.Record, error) {
	var recs []repository.Record
	if _, err := c.get(ctx, "/battles?limit="+strconv.Itoa(limit), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// SelectSkill posts a choice. Only transport failures and unexpected
// statuses are errors.
func (c *Client) SelectSkill(ctx context.Context, choice types.SkillChoice) (Submission, error) {
	body, err := json.Marshal(choice)
	if err != nil {
		return "", fmt.Errorf("failed to marshal choice: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/battle/skill", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post choice: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return Accepted, nil
	case http.StatusOK:
		return Duplicate, nil
	case http.StatusConflict:
		return Conflict, nil
	case http.StatusBadRequest:
		return Rejected, nil
	default:
		return "", fmt.Errorf("post choice: %w %d", ErrStatus, resp.StatusCode)
	}
}

// get decodes a JSON body into out when out is not nil.
func (c *Client) get(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, fmt.Errorf("get %s: %w %d", path, ErrStatus, resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
	}
	return resp.StatusCode, nil
}

// BattlesRecorded reads the number of finished battles from GET /stats.
func (c *Client) BattlesRecorded(ctx context.Context) (int, error) {
	var stats map[string]any
	if _, err := c.get(ctx, "/stats", &stats); err != nil {
		return 0, err
	}
	n, _ := stats["battles_recorded"].(float64)
	return int(n), nil
}
