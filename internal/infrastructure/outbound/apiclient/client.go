// Package apiclient talks to a running scopecore API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sophialabs/scopecore/internal/domain/settings"
	"github.com/sophialabs/scopecore/internal/infrastructure/usecases"
)

// Client is a thin JSON client for the scope API.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the API rooted at base, e.g. "http://localhost:8080".
func New(base string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Window fetches one frame laid out for width pixels.
func (c *Client) Window(ctx context.Context, width float64, segments int) (usecases.WindowView, error) {
	q := url.Values{}
	q.Set("width", strconv.FormatFloat(width, 'f', -1, 64))
	if segments > 0 {
		q.Set("segments", strconv.Itoa(segments))
	}
	var v usecases.WindowView
	err := c.do(ctx, http.MethodGet, "/api/window?"+q.Encode(), nil, &v)
	return v, err
}

// Readout fetches the rendered readout labels.
func (c *Client) Readout(ctx context.Context) (string, error) {
	var body struct {
		Text string `json:"text"`
	}
	err := c.do(ctx, http.MethodGet, "/api/readout", nil, &body)
	return body.Text, err
}

// Settings fetches the active settings document.
func (c *Client) Settings(ctx context.Context) (settings.Settings, error) {
	var s settings.Settings
	err := c.do(ctx, http.MethodGet, "/api/settings", nil, &s)
	return s, err
}

// PutSettings replaces the settings document.
func (c *Client) PutSettings(ctx context.Context, s settings.Settings) error {
	return c.do(ctx, http.MethodPut, "/api/settings", s, nil)
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s: %s", e.Status, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
