package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// NetworkError is returned for every failed API call: the API was unreachable
// or answered with a non-success status. Message is the API's own message when
// the error body could be decoded, otherwise a local fallback.
type NetworkError struct {
	Status  int    // HTTP status, 0 when no response was received
	Code    string // the "error" field of the API envelope, if any
	Message string
	Err     error // underlying transport or decode error, if any
}

func (e *NetworkError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is, or wraps, a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// errorEnvelope is the error body shape of the cine API.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// errorFromResponse translates a non-success response into a *NetworkError.
func errorFromResponse(resp *http.Response) *NetworkError {
	ne := &NetworkError{
		Status:  resp.StatusCode,
		Message: fallbackMessage(resp.StatusCode),
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		ne.Err = err
		return ne
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		ne.Err = fmt.Errorf("malformed error body: %w", err)
		return ne
	}
	ne.Code = env.Error
	if msg := strings.TrimSpace(env.Message); msg != "" {
		ne.Message = msg
	}
	return ne
}

func fallbackMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return "request failed: " + strings.ToLower(text)
	}
	return "request failed"
}

// transportError wraps a failure that happened before a response was read.
func transportError(op string, err error) *NetworkError {
	return &NetworkError{
		Message: fmt.Sprintf("%s: could not reach the server", op),
		Err:     err,
	}
}
