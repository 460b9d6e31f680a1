package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// ErrRecognizerUnavailable marks a recognizer that could not be initialised.
var ErrRecognizerUnavailable = errors.New("recognizer unavailable")

// Kind tells a caller whether retrying with the same or different input can help.
type Kind int

const (
	KindInternal Kind = iota
	KindUnavailable
	KindBadInput
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindBadInput:
		return "bad_input"
	default:
		return "internal"
	}
}

// RecognitionError reports a failed recognition call.
type RecognitionError struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("%s recognition failed (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first RecognitionError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var re *RecognitionError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}

func badInput(provider string, err error) *RecognitionError {
	return &RecognitionError{Provider: provider, Kind: KindBadInput, Err: err}
}

func internal(provider string, err error) *RecognitionError {
	return &RecognitionError{Provider: provider, Kind: KindInternal, Err: err}
}

// classify wraps an SDK or transport error with the matching kind.
func classify(provider string, err error) *RecognitionError {
	var re *RecognitionError
	if errors.As(err, &re) {
		return re
	}

	kind := KindInternal
	var (
		oaiErr    *openai.Error
		genaiErr  genai.APIError
		genaiPErr *genai.APIError
		netErr    net.Error
	)
	switch {
	case errors.Is(err, ErrRecognizerUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		kind = KindUnavailable
	case errors.As(err, &oaiErr):
		kind = kindForStatus(oaiErr.StatusCode)
	case errors.As(err, &genaiErr):
		kind = kindForStatus(genaiErr.Code)
	case errors.As(err, &genaiPErr):
		kind = kindForStatus(genaiPErr.Code)
	case errors.As(err, &netErr):
		kind = KindUnavailable
	}
	return &RecognitionError{Provider: provider, Kind: kind, Err: err}
}

func kindForStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized,
		code == http.StatusForbidden,
		code == http.StatusRequestTimeout,
		code == http.StatusTooManyRequests,
		code >= 500:
		return KindUnavailable
	case code >= 400:
		return KindBadInput
	default:
		return KindInternal
	}
}
