// Package console implements the operator terminal UI that drives a running
// alarm-engine over its HTTP API.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/adapter/dto"
	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

const defaultTimeout = 5 * time.Second

// Client calls the alarm API of a running server.
type Client struct {
	baseURL    string
	token      string
	operator   string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sends a bearer token on command requests.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithOperator sets the X-Operator header, used when the server runs without auth.
func WithOperator(operator string) ClientOption {
	return func(c *Client) { c.operator = operator }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summary fetches the registry aggregates and the active alarms.
func (c *Client) Summary(ctx context.Context) (entity.AlarmSummary, []entity.AlarmSnapshot, error) {
	var resp dto.SummaryResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/summary", &resp); err != nil {
		return entity.AlarmSummary{}, nil, err
	}

	summary, err := resp.Summary()
	if err != nil {
		return entity.AlarmSummary{}, nil, fmt.Errorf("decoding summary: %w", err)
	}
	active, err := dto.Snapshots(resp.ActiveAlarms)
	if err != nil {
		return entity.AlarmSummary{}, nil, fmt.Errorf("decoding active alarms: %w", err)
	}
	return summary, active, nil
}

// Alarms fetches every configured alarm in registration order.
func (c *Client) Alarms(ctx context.Context) ([]entity.AlarmSnapshot, error) {
	var resp dto.AlarmListResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/alarms", &resp); err != nil {
		return nil, err
	}

	alarms, err := dto.Snapshots(resp.Alarms)
	if err != nil {
		return nil, fmt.Errorf("decoding alarms: %w", err)
	}
	return alarms, nil
}

// Command sends an operator action for tag.
func (c *Client) Command(ctx context.Context, tag entity.Tag, action string) (*dto.CommandResponse, error) {
	path := fmt.Sprintf("/api/v1/alarms/%s/%s", url.PathEscape(tag.String()), url.PathEscape(action))

	var resp dto.CommandResponse
	if err := c.do(ctx, http.MethodPost, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.operator != "" {
		req.Header.Set("X-Operator", c.operator)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body dto.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &body) == nil {
			apiErr.Message = body.Error
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
