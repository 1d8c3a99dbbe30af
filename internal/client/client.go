// Package client talks to a running lastapp daemon over its local HTTP API.
package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/actionsum/lastapp/internal/models"
	"github.com/actionsum/lastapp/internal/service"
	"github.com/actionsum/lastapp/internal/web"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 5 * time.Second

// Client wraps resty for the daemon API. Requests are never retried: a
// replayed switch trigger would bounce focus back.
type Client struct {
	resty *resty.Client
}

// APIError is a non-success response from the daemon
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
}

func New(baseURL string) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "lastapp-cli/1.0").
		SetHeader("Accept", "application/json")

	return &Client{resty: r}
}

// SetTimeout configures request timeout
func (c *Client) SetTimeout(d time.Duration) {
	c.resty.SetTimeout(d)
}

// Health reports whether the daemon answers
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.resty.R().SetContext(ctx).SetError(&errorBody{}).Get("/health")
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	return checkResponse(resp)
}

// Status fetches the daemon status
func (c *Client) Status(ctx context.Context) (*service.Status, error) {
	var st service.Status
	resp, err := c.resty.R().SetContext(ctx).SetResult(&st).SetError(&errorBody{}).Get("/api/status")
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return &st, nil
}

// Switch triggers switch-to-last-app. A denied verdict comes back with a nil
// error; a failed activation returns the verdict together with an APIError.
func (c *Client) Switch(ctx context.Context) (*web.SwitchResponse, error) {
	var out web.SwitchResponse
	resp, err := c.resty.R().SetContext(ctx).SetResult(&out).SetError(&out).Post("/api/switch")
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	if resp.IsError() {
		msg := out.Error
		if msg == "" {
			msg = resp.String()
		}
		return &out, &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return &out, nil
}

// Events lists the newest observed activation events
func (c *Client) Events(ctx context.Context, limit int) ([]models.ActivationEvent, error) {
	var events []models.ActivationEvent
	if err := c.list(ctx, "/api/events", limit, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Attempts lists the newest switch attempts
func (c *Client) Attempts(ctx context.Context, limit int) ([]models.SwitchAttempt, error) {
	var attempts []models.SwitchAttempt
	if err := c.list(ctx, "/api/attempts", limit, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

// Apps fetches per-application activation counts for a period (day, week, month)
func (c *Client) Apps(ctx context.Context, period string) (*models.Report, error) {
	var report models.Report
	req := c.resty.R().SetContext(ctx).SetResult(&report).SetError(&errorBody{})
	if period != "" {
		req.SetQueryParam("period", period)
	}
	resp, err := req.Get("/api/apps")
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) list(ctx context.Context, path string, limit int, out any) error {
	req := c.resty.R().SetContext(ctx).SetResult(out).SetError(&errorBody{})
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	return checkResponse(resp)
}

func checkResponse(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	msg := resp.String()
	if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
		msg = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}
