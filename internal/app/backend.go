package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SetupClient is a typed client over the four endpoints the setup
// backend exposes. Every call goes through SendWithRetry; the client
// keeps no request state and is safe to use across resources
// concurrently.
type SetupClient struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *Logger
}

func NewSetupClient(baseURL string, logger *Logger) *SetupClient {
	return &SetupClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
		Logger:  logger,
	}
}

// BackendError is a well-formed non-2xx reply. Error() is the raw
// response text, which is what the wizard shows the user.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	if strings.TrimSpace(e.Body) != "" {
		return e.Body
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// Projects fetches the candidate project list.
func (c *SetupClient) Projects(ctx context.Context) ([]Project, error) {
	policy := RetryPolicy{Attempts: 3, InitialDelay: 400 * time.Millisecond}
	status, body, err := c.send(ctx, http.MethodGet, "/projects", nil, policy)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &BackendError{StatusCode: status, Body: string(body)}
	}
	var projects []Project
	if err := json.Unmarshal(body, &projects); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	return projects, nil
}

// SavedContext fetches the previously persisted platform context. A
// non-2xx reply means no context has been saved yet and is not an
// error; callers get (nil, nil).
func (c *SetupClient) SavedContext(ctx context.Context) (*PlatformContext, error) {
	policy := RetryPolicy{Attempts: 2, InitialDelay: 400 * time.Millisecond}
	status, body, err := c.send(ctx, http.MethodGet, "/dbt_platform_context", nil, policy)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, nil
	}
	var pc PlatformContext
	if err := json.Unmarshal(body, &pc); err != nil {
		return nil, fmt.Errorf("decode platform context: %w", err)
	}
	return &pc, nil
}

// SelectProject persists the chosen project and returns the refreshed
// platform context.
func (c *SetupClient) SelectProject(ctx context.Context, accountID, projectID int) (*PlatformContext, error) {
	payload, err := json.Marshal(struct {
		AccountID int `json:"account_id"`
		ProjectID int `json:"project_id"`
	}{AccountID: accountID, ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	policy := RetryPolicy{Attempts: 3, InitialDelay: 400 * time.Millisecond}
	status, body, err := c.send(ctx, http.MethodPost, "/selected_project", payload, policy)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &BackendError{StatusCode: status, Body: string(body)}
	}
	var pc PlatformContext
	if err := json.Unmarshal(body, &pc); err != nil {
		return nil, fmt.Errorf("decode platform context: %w", err)
	}
	return &pc, nil
}

// Shutdown asks the backend to terminate itself.
func (c *SetupClient) Shutdown(ctx context.Context) error {
	policy := RetryPolicy{Attempts: 3, InitialDelay: 400 * time.Millisecond}
	status, body, err := c.send(ctx, http.MethodPost, "/shutdown", nil, policy)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &BackendError{StatusCode: status, Body: string(body)}
	}
	return nil
}

func (c *SetupClient) send(ctx context.Context, method, path string, payload []byte, policy RetryPolicy) (int, []byte, error) {
	reqID := uuid.NewString()
	c.Logger.Info("backend request", map[string]interface{}{
		"request_id": reqID,
		"method":     method,
		"path":       path,
	})

	resp, err := SendWithRetry(ctx, c.HTTP, func(ctx context.Context) (*http.Request, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}, policy)
	if err != nil {
		if !errors.Is(err, ErrAborted) {
			c.Logger.Error("backend request failed", map[string]interface{}{
				"request_id": reqID,
				"method":     method,
				"path":       path,
				"error":      err.Error(),
			})
		}
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	c.Logger.Info("backend response", map[string]interface{}{
		"request_id": reqID,
		"path":       path,
		"status":     resp.StatusCode,
	})
	return resp.StatusCode, body, nil
}
