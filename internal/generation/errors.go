package generation

import (
	"errors"
	"fmt"
	"strings"
)

// FatalGenerationError marks a credential, billing or model-availability
// failure. It aborts the whole campaign run immediately; the gateway
// never retries it and never absorbs it into fallback output.
type FatalGenerationError struct {
	Err error
}

func (e *FatalGenerationError) Error() string {
	return fmt.Sprintf("fatal generation error: %v", e.Err)
}

func (e *FatalGenerationError) Unwrap() error { return e.Err }

// TransientGenerationError marks a retryable failure: network, rate
// limit, timeout, malformed response.
type TransientGenerationError struct {
	Err error
}

func (e *TransientGenerationError) Error() string {
	return fmt.Sprintf("transient generation error: %v", e.Err)
}

func (e *TransientGenerationError) Unwrap() error { return e.Err }

// ValidationError marks a pre-run configuration or input problem. The
// run never starts when one is raised.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Token match against the error text decides fatality. Conservative on
// purpose: a misclassified transient costs one aborted run, a
// misclassified fatal can burn a whole campaign budget on a
// misconfigured credential.
var fatalTokens = []string{
	"api key",
	"authentication",
	"quota",
	"billing",
	"model not found",
	"permission",
}

// ClassifyError wraps an error as fatal or transient based on its text.
// Already-classified errors pass through unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var fatal *FatalGenerationError
	if errors.As(err, &fatal) {
		return err
	}
	var transient *TransientGenerationError
	if errors.As(err, &transient) {
		return err
	}

	text := strings.ToLower(err.Error())
	for _, token := range fatalTokens {
		if strings.Contains(text, token) {
			return &FatalGenerationError{Err: err}
		}
	}
	return &TransientGenerationError{Err: err}
}

// IsFatal reports whether an error is a fatal generation error.
func IsFatal(err error) bool {
	var fatal *FatalGenerationError
	return errors.As(err, &fatal)
}
