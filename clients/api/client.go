package api

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
	"sync"
	"time"

	"drocsid/core"
	"drocsid/core/log"
	"drocsid/core/metrics"
	"drocsid/models"
)

const (
	defaultTimeout = 30 * time.Second
	// refreshLeeway triggers a proactive refresh shortly before expiry
	refreshLeeway = 30 * time.Second
	maxErrorBody  = 64 << 10
)

// Client talks to the REST API. A 401 answer triggers exactly one credential
// refresh followed by one retry of the original request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenStore

	refreshMu sync.Mutex
}

func NewClient(baseURL string, tokens *TokenStore) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     tokens,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// anonymous requests never carry a bearer token and never trigger a refresh
	anonymous bool
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	if req.anonymous {
		return c.send(ctx, req, "", out)
	}

	token := c.tokens.AccessToken()
	if token == "" {
		return core.ErrNoCredentials
	}
	refreshed := false
	if c.tokens.ExpiresWithin(refreshLeeway) && c.tokens.RefreshToken() != "" {
		if err := c.refresh(ctx, token); err != nil {
			return err
		}
		token = c.tokens.AccessToken()
		refreshed = true
	}

	err := c.send(ctx, req, token, out)
	// one refresh per request, proactive or not
	if refreshed || !core.IsAPIStatus(err, http.StatusUnauthorized) {
		return err
	}

	log.Info("🔑 Access token rejected, refreshing", "path", req.path)
	if err := c.refresh(ctx, token); err != nil {
		return err
	}
	return c.send(ctx, req, c.tokens.AccessToken(), out)
}

// refresh exchanges the refresh token for a new pair. Concurrent callers that
// observed the same stale token share one refresh.
func (c *Client) refresh(ctx context.Context, staleToken string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.tokens.AccessToken(); current != "" && current != staleToken {
		return nil
	}

	refreshToken := c.tokens.RefreshToken()
	if refreshToken == "" {
		c.expireSession()
		return &core.AuthError{Err: core.ErrNoCredentials}
	}

	var creds models.Credentials
	err := c.send(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/refresh",
		body:      map[string]string{"refresh_token": refreshToken},
		anonymous: true,
	}, "", &creds)
	if err == nil && creds.AccessToken == "" {
		err = errors.New("refresh response carried no access token")
	}
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		c.expireSession()
		return &core.AuthError{Err: err}
	}

	if creds.RefreshToken == "" {
		creds.RefreshToken = refreshToken
	}
	if err := c.tokens.Set(creds); err != nil {
		log.Warn("⚠️ Refreshed credentials could not be persisted", "error", err)
	}
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	return nil
}

func (c *Client) expireSession() {
	log.Warn("🔒 Session expired, clearing credentials")
	if err := c.tokens.Clear(); err != nil {
		log.Error("❌ Failed to clear credentials", "error", err)
	}
}

func (c *Client) send(ctx context.Context, req request, token string, out any) error {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", core.NewID("req"))
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response from %s: %w", req.path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &core.APIError{StatusCode: resp.StatusCode}

	var payload errorResponse
	if json.Unmarshal(raw, &payload) == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func get(path string, query url.Values) request {
	return request{method: http.MethodGet, path: path, query: query}
}

func post(path string, body any) request {
	return request{method: http.MethodPost, path: path, body: body}
}

func patch(path string, body any) request {
	return request{method: http.MethodPatch, path: path, body: body}
}

func put(path string, body any) request {
	return request{method: http.MethodPut, path: path, body: body}
}

func del(path string) request {
	return request{method: http.MethodDelete, path: path}
}

func pathf(format string, segments ...string) string {
	escaped := make([]any, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return fmt.Sprintf(format, escaped...)
}
