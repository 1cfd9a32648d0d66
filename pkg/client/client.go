// Package client is a typed Go client for the ProjectHub JSON API.
//
// The client keeps the session cookie set by Register and Login in a cookie jar, so a
// Client behaves like one logged-in browser:
//
//	c, err := client.NewClient("http://localhost:8080")
//	if err != nil {
//		return err
//	}
//	if _, err := c.Login(ctx, "dana@example.com", "secret1"); err != nil {
//		return err
//	}
//	project, err := c.CreateProject(ctx, lifecycle.ProjectInput{Name: "Website Redesign", Category: models.CategoryBusiness})
//
// Failed requests return an *[APIError] carrying the status code and the server's message.
// Use [StatusOf] to branch on the status.
//
// The client is used by the end-to-end tests and by [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/projecthubtesting].
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Client provides typed access to the ProjectHub API. It is safe for concurrent use,
// but all requests share one session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// NewClient creates a client for the server at baseURL, e.g. "http://localhost:8080",
// without a trailing slash.
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}, nil
}

// SetAuthToken sends token as a bearer token on every request, for callers that do not
// want to rely on the session cookie.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

// APIError is a response with a 4xx or 5xx status.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	// RequiresConfirmation and IncompleteTasks are set when completing a project with
	// open tasks needs confirmation.
	RequiresConfirmation bool  `json:"requiresConfirmation,omitempty"`
	IncompleteTasks      int64 `json:"incompleteTasks,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d, error=%s", e.StatusCode, e.Message)
}

// StatusOf returns the HTTP status of an *APIError, or 0 for other errors.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// doRequest performs an HTTP request with a JSON body.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}
	return c.send(ctx, method, path, "application/json", bodyReader)
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	return c.httpClient.Do(req)
}

// decodeResponse decodes the JSON response into target, or the error body into an
// *APIError.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = string(body)
		}
		return apiErr
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// call performs a JSON request and decodes the response into target.
func (c *Client) call(ctx context.Context, method, path string, body, target any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeResponse(resp, target)
}

// Health checks the health status of the server
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var result map[string]any
	if err := c.call(ctx, http.MethodGet, "/api/health", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}
