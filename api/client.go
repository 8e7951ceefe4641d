// Package api is the HTTP transport client for the chat API.
//
// Every call returns a Result value; transport failures (connection
// refused, timeout, unreadable body) are folded into it rather than
// returned as errors, so callers branch on one shape regardless of what
// went wrong on the wire.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds a single request/response round trip.
const DefaultTimeout = 15 * time.Second

// TokenFunc supplies the current bearer credential, or "" when logged out.
type TokenFunc func() string

// Client issues JSON request/response calls against one API base URL. The
// base URL may be switched at runtime, e.g. when the user picks a LAN
// server discovered via mDNS.
type Client struct {
	mu         sync.RWMutex
	baseURL    string
	token      TokenFunc
	httpClient *http.Client
}

// Result is the uniform outcome of one API call.
//
// Success mirrors the server's `success` field for envelope responses; for
// endpoints that answer with a bare JSON array or object it is true
// whenever the HTTP exchange succeeded. Body holds the raw response body
// for further decoding.
type Result struct {
	Success bool
	Error   string
	Body    json.RawMessage
}

// Decode unmarshals the whole response body into v.
func (r Result) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// DecodeData unmarshals the envelope's `data` field into v.
func (r Result) DecodeData(v any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := r.Decode(&envelope); err != nil {
		return err
	}
	if len(envelope.Data) == 0 {
		return fmt.Errorf("response has no data field")
	}
	if err := json.Unmarshal(envelope.Data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// NewClient creates a client for baseURL (e.g. "http://localhost:3100/api").
// token may be nil for a client that never authenticates.
func NewClient(baseURL string, token TokenFunc) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL points the client at a different server. In-flight calls
// finish against the old URL; calls issued afterwards use the new one.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// Call performs one JSON API call. Path is relative to the base URL and may
// carry a query string. A non-nil body is serialized as JSON with every
// string leaf trimmed first.
func (c *Client) Call(ctx context.Context, method, path string, body any) Result {
	var reader io.Reader
	if body != nil {
		payload, err := marshalSanitized(body)
		if err != nil {
			return failure(fmt.Sprintf("encode request: %v", err))
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, reader)
	if err != nil {
		return failure(fmt.Sprintf("build request: %v", err))
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token := c.token(); token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return failure(fmt.Sprintf("network error: %v", err))
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(response.Body, 4<<20))
	if err != nil {
		return failure(fmt.Sprintf("read response: %v", err))
	}

	result := Result{Success: true, Body: raw}

	// Envelope responses carry their own verdict; bare arrays and models
	// do not, so absence of a success field means the call went through.
	var envelope struct {
		Success *int   `json:"success"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Success != nil {
		result.Success = *envelope.Success == 1
		result.Error = envelope.Error
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		result.Success = false
		if result.Error == "" {
			result.Error = fmt.Sprintf("server returned %s", response.Status)
		}
	}

	return result
}

// Get issues a GET with optional query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values) Result {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.Call(ctx, http.MethodGet, path, nil)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) Result {
	return c.Call(ctx, http.MethodPost, path, body)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) Result {
	return c.Call(ctx, http.MethodPut, path, body)
}

// Delete issues a DELETE with optional query parameters.
func (c *Client) Delete(ctx context.Context, path string, query url.Values) Result {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.Call(ctx, http.MethodDelete, path, nil)
}

func failure(message string) Result {
	return Result{Success: false, Error: message}
}
