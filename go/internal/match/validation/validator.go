// Package validation wraps the external content moderation service
// that vets submitted media references.
package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mcdev12/snapmatch/go/internal/match/errs"
	"github.com/mcdev12/snapmatch/go/internal/models"
)

// Validator vets one media reference against a community's policy.
type Validator interface {
	Validate(ctx context.Context, mediaRef, community string) (models.ValidationResult, error)
}

const defaultTimeout = 10 * time.Second

// HTTPValidator calls the moderation service over HTTP.
type HTTPValidator struct {
	baseURL string
	client  *http.Client
}

// NewHTTPValidator creates a validator client for the given service URL.
func NewHTTPValidator(baseURL string) *HTTPValidator {
	return &HTTPValidator{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

type validateRequest struct {
	MediaRef  string `json:"media_ref"`
	Community string `json:"community"`
}

func (v *HTTPValidator) Validate(ctx context.Context, mediaRef, community string) (models.ValidationResult, error) {
	body, err := json.Marshal(validateRequest{MediaRef: mediaRef, Community: community})
	if err != nil {
		return models.ValidationResult{}, fmt.Errorf("failed to marshal validate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/api/v1/validate", bytes.NewReader(body))
	if err != nil {
		return models.ValidationResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return models.ValidationResult{}, &errs.TransportError{Op: "validate media", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(resp.Body)
		return models.ValidationResult{}, &errs.TransportError{
			Op:  "validate media",
			Err: fmt.Errorf("validator returned status %d: %s", resp.StatusCode, string(responseBody)),
		}
	}

	var result models.ValidationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.ValidationResult{}, &errs.TransportError{Op: "validate media", Err: fmt.Errorf("decode verdict: %w", err)}
	}
	return result, nil
}

// StaticValidator returns scripted verdicts, keyed by media reference.
// Unknown references get the default verdict. Used in tests and local
// development.
type StaticValidator struct {
	Default  models.ValidationResult
	Verdicts map[string]models.ValidationResult
	Err      error
}

// NewStaticValidator builds a validator that approves everything until
// scripted otherwise.
func NewStaticValidator() *StaticValidator {
	return &StaticValidator{
		Default:  models.ValidationResult{IsValid: true},
		Verdicts: make(map[string]models.ValidationResult),
	}
}

func (v *StaticValidator) Validate(ctx context.Context, mediaRef, community string) (models.ValidationResult, error) {
	if v.Err != nil {
		return models.ValidationResult{}, v.Err
	}
	if verdict, ok := v.Verdicts[mediaRef]; ok {
		return verdict, nil
	}
	return v.Default, nil
}
