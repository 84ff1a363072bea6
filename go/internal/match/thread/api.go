package thread

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/snapmatch/go/clients/threadapi"
	"github.com/mcdev12/snapmatch/go/internal/match/errs"
	"github.com/mcdev12/snapmatch/go/internal/models"
	"github.com/rs/zerolog/log"
)

// APIThread is the Publisher/Reader backed by the thread service REST
// API. All failures surface as errs.TransportError so callers apply
// bounded retry rather than crashing the orchestration loop.
type APIThread struct {
	client *threadapi.Client
}

// NewAPIThread wraps a thread API client.
func NewAPIThread(client *threadapi.Client) *APIThread {
	return &APIThread{client: client}
}

func (t *APIThread) CreateRootPost(ctx context.Context, cfg RootPostConfig) (string, error) {
	resp, err := t.client.CreateThread(ctx, threadapi.CreateThreadRequest{
		Community: cfg.Community,
		Title:     cfg.Title,
		Body:      cfg.Body,
	})
	if err != nil {
		return "", transportErr("create root post", err)
	}

	log.Info().
		Str("thread_id", resp.ThreadID).
		Str("community", cfg.Community).
		Msg("created root post")
	return resp.ThreadID, nil
}

func (t *APIThread) AppendEntry(ctx context.Context, handle *models.ThreadHandle, kind EntryKind, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	resp, err := t.client.AppendComment(ctx, handle.ThreadID, threadapi.AppendCommentRequest{
		ParentID: parentFor(handle, kind),
		Kind:     string(kind),
		Payload:  data,
	})
	if err != nil {
		return "", transportErr(fmt.Sprintf("append %s entry", kind), err)
	}

	log.Debug().
		Str("thread_id", handle.ThreadID).
		Str("entry_id", resp.CommentID).
		Str("kind", string(kind)).
		Msg("appended thread entry")
	return resp.CommentID, nil
}

func (t *APIThread) ReadThread(ctx context.Context, handle models.ThreadHandle) ([]Entry, error) {
	resp, err := t.client.GetCommentTree(ctx, handle.ThreadID)
	if err != nil {
		return nil, transportErr("read thread", err)
	}

	entries := make([]Entry, len(resp.Comments))
	for i, c := range resp.Comments {
		entries[i] = Entry{
			ID:        c.ID,
			ParentID:  c.ParentID,
			Kind:      EntryKind(c.Kind),
			Payload:   c.Payload,
			CreatedAt: c.CreatedAt,
		}
	}
	return entries, nil
}

// transportErr wraps a thread API failure, carrying Retry-After through
// for rate-limited responses.
func transportErr(op string, err error) error {
	te := &errs.TransportError{Op: op, Err: err}
	var apiErr *threadapi.APIError
	if errors.As(err, &apiErr) && apiErr.RateLimited() {
		te.RetryAfter = apiErr.RetryAfter
	}
	return te
}
