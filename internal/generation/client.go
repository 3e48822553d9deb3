package generation

import (
	"context"
	"errors"
)

// Client is the generative text service used by the gateway. One call,
// one completion: retries and backoff belong to the gateway, not the
// client.
type Client interface {
	// Complete sends a system and user prompt and returns the raw
	// completion text (expected to be a JSON document).
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Configured reports whether the client has a usable credential.
	Configured() bool
}

// NotConfiguredClient is a Client with no credential. Useful as a safe
// default and in tests of the no-credential branch.
type NotConfiguredClient struct{}

func (NotConfiguredClient) Complete(context.Context, string, string) (string, error) {
	return "", &TransientGenerationError{Err: errNotConfigured}
}

func (NotConfiguredClient) Configured() bool { return false }

var errNotConfigured = errors.New("generative service not configured")
