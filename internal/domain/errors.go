package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrAuth                = errors.New("api key invalid or quota exceeded")
	ErrBadRequest          = errors.New("invalid request format")
	ErrMalformedResponse   = errors.New("malformed completion response")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrStorageParse        = errors.New("stored chat history could not be parsed")
	ErrEmptyMessage        = errors.New("message is empty")
	ErrActiveRequest       = errors.New("active request exists")
	ErrSessionNotFound     = errors.New("session not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrNotEditable         = errors.New("only user messages can be edited")
	ErrModelNotFound       = errors.New("model not found")
	ErrBlobNotFound        = errors.New("blob not found")
	ErrNotFound            = errors.New("key not found")
)

// HTTPError is a non-2xx completion response without a more specific kind.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("api error %d", e.Status)
}

// CompletionError wraps every failure returned by the completion client.
type CompletionError struct {
	Provider string
	Err      error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s completion: %v", e.Provider, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}
