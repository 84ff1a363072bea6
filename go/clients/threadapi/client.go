// Package threadapi is the HTTP client for the external discussion
// thread service. The service is rate limited and eventually
// consistent; callers treat every failure here as recoverable
// transport trouble, not as lost state.
package threadapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the thread service. RetryAfter
// is populated from the Retry-After header on 429 responses.
type APIError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("thread API returned status %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the service asked us to back off.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Client talks to the thread service REST API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a thread API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// CreateThreadRequest is the body for creating a root post.
type CreateThreadRequest struct {
	Community string `json:"community"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
}

// CreateThreadResponse returns the new thread id.
type CreateThreadResponse struct {
	ThreadID string `json:"thread_id"`
}

// AppendCommentRequest is the body for appending one comment.
type AppendCommentRequest struct {
	ParentID string          `json:"parent_id,omitempty"`
	Kind     string          `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
}

// AppendCommentResponse returns the new comment id.
type AppendCommentResponse struct {
	CommentID string `json:"comment_id"`
}

// Comment is one node of the comment tree as the service reports it.
type Comment struct {
	ID        string          `json:"id"`
	ParentID  string          `json:"parent_id,omitempty"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// CommentTreeResponse is the full tree for a thread.
type CommentTreeResponse struct {
	ThreadID string    `json:"thread_id"`
	Comments []Comment `json:"comments"`
}

// CreateThread creates the root post for a match.
func (c *Client) CreateThread(ctx context.Context, req CreateThreadRequest) (*CreateThreadResponse, error) {
	var resp CreateThreadResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/threads", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AppendComment appends a structured comment to a thread.
func (c *Client) AppendComment(ctx context.Context, threadID string, req AppendCommentRequest) (*AppendCommentResponse, error) {
	var resp AppendCommentResponse
	endpoint := fmt.Sprintf("/api/v1/threads/%s/comments", threadID)
	if err := c.do(ctx, http.MethodPost, endpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCommentTree fetches the current comment tree for a thread.
func (c *Client) GetCommentTree(ctx context.Context, threadID string) (*CommentTreeResponse, error) {
	var resp CommentTreeResponse
	endpoint := fmt.Sprintf("/api/v1/threads/%s/comments", threadID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(responseBody),
		}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				apiErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
