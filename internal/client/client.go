// Package client is a typed HTTP client for the survey endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/casanoova/compass/internal/services"
)

// APIError is a non-2xx answer decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsCode reports whether err is an APIError with code.
func IsCode(err error, code services.ErrorCode) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == string(code)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	locale     string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPClient swaps the transport, e.g. for httptest servers.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithLocale sends Accept-Language on every request.
func (c *Client) WithLocale(locale string) *Client {
	c.locale = locale
	return c
}

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.locale != "" {
		req.Header.Set("Accept-Language", c.locale)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{StatusCode: resp.StatusCode, Code: "http", Message: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("unmarshal response: %w (body: %s)", err, string(raw))
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return nil
}

func surveyPath(token, suffix string) string {
	return "/api/survey/" + url.PathEscape(token) + "/" + suffix
}

func (c *Client) Adjectives(ctx context.Context, token string) ([]services.AdjectiveView, error) {
	var out []services.AdjectiveView
	if err := c.do(ctx, http.MethodGet, surveyPath(token, "adjectives"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Status(ctx context.Context, token string) (*services.SurveyStatus, error) {
	var out services.SurveyStatus
	if err := c.do(ctx, http.MethodGet, surveyPath(token, "status"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Submit(ctx context.Context, token string, responses []services.ResponseInput) (services.Point, error) {
	var out services.SubmitResult
	in := map[string]any{"responses": responses}
	if err := c.do(ctx, http.MethodPost, surveyPath(token, "submit"), in, &out); err != nil {
		return services.Point{}, err
	}
	return out.Point, nil
}

func (c *Client) Results(ctx context.Context, token string) (*services.TeamResults, error) {
	var out services.TeamResults
	if err := c.do(ctx, http.MethodGet, surveyPath(token, "results"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
