// Package capability wraps the text-generation provider behind a single
// small interface.
//
// The provider (local Ollama or an OpenAI-compatible endpoint) is chosen
// once at construction; call sites never branch on it. The client bounds
// every call with a timeout and a client-side rate limit, classifies
// failures, and never retries: what to do about a failed generation is the
// orchestrator's decision.
package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
)

// ErrorKind classifies generation failures for the fallback ladder.
type ErrorKind string

const (
	// KindTimeout means the bounded call deadline fired.
	KindTimeout ErrorKind = "timeout"
	// KindProviderUnavailable means the provider could not be reached or
	// returned a server-side failure.
	KindProviderUnavailable ErrorKind = "provider_unavailable"
	// KindRateLimited means the provider or the client-side limiter pushed
	// back.
	KindRateLimited ErrorKind = "rate_limited"
)

// CapabilityError is a classified generation failure.
type CapabilityError struct {
	Kind   ErrorKind
	Detail string
	cause  error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability: %s: %s", e.Kind, e.Detail)
}

func (e *CapabilityError) Unwrap() error { return e.cause }

// AsCapabilityError extracts a *CapabilityError when err carries one.
func AsCapabilityError(err error) (*CapabilityError, bool) {
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Client generates a grounded natural-language answer. Passages, when
// present, are folded into the prompt as the only evidence the model may
// draw on.
type Client interface {
	Generate(ctx context.Context, prompt string, passages []answer.Passage) (string, error)
}
