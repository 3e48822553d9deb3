package generation

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"api key", errors.New("API error: invalid API key provided"), true},
		{"authentication", errors.New("authentication failed for request"), true},
		{"quota", errors.New("quota exceeded for project"), true},
		{"billing", errors.New("billing account disabled"), true},
		{"model not found", errors.New("model not found: gemini-9000"), true},
		{"permission", errors.New("permission denied on resource"), true},
		{"timeout", errors.New("context deadline exceeded"), false},
		{"rate limit", errors.New("API request failed with status 429"), false},
		{"network", errors.New("connection refused"), false},
		{"malformed", errors.New("response is not a JSON object"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(tt.err)
			if IsFatal(classified) != tt.fatal {
				t.Errorf("ClassifyError(%q) fatal = %v, want %v", tt.err, IsFatal(classified), tt.fatal)
			}
			if !errors.Is(classified, tt.err) {
				t.Errorf("classified error does not wrap the original")
			}
		})
	}
}

func TestClassifyErrorNil(t *testing.T) {
	if ClassifyError(nil) != nil {
		t.Error("nil must stay nil")
	}
}

func TestClassifyErrorIdempotent(t *testing.T) {
	fatal := &FatalGenerationError{Err: errors.New("boom")}
	if ClassifyError(fatal) != error(fatal) {
		t.Error("already-fatal error must pass through")
	}
	transient := &TransientGenerationError{Err: errors.New("boom")}
	if ClassifyError(transient) != error(transient) {
		t.Error("already-transient error must pass through")
	}

	// A transient wrapping fatal-looking text stays transient.
	wrapped := &TransientGenerationError{Err: errors.New("quota exceeded")}
	if IsFatal(ClassifyError(wrapped)) {
		t.Error("pre-classified transient must not be reclassified")
	}
}

func TestClassifyErrorWrappedChain(t *testing.T) {
	inner := errors.New("permission denied")
	outer := fmt.Errorf("request failed: %w", inner)
	if !IsFatal(ClassifyError(outer)) {
		t.Error("token match must work through wrapped error text")
	}
}
