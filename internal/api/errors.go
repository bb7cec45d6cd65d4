package api

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError is returned by Transport.Do for any failed request.
//
// Failures fall into three groups:
//   - HTTP status outside 200-299 (Status set, Err nil)
//   - Malformed JSON in a 2xx response (Status set, Err is the decode error)
//   - Network or request construction failure (Status zero, Err set)
type TransportError struct {
	Method     string
	URL        string
	Status     int
	StatusText string

	// Body is the raw response body for non-2xx responses, capped.
	Body []byte

	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("HTTP %d: invalid JSON response: %v", e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.StatusText)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	default:
		return "transport error"
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ClientError reports whether the server rejected the request itself
// (4xx). Repeating such a request will not change the answer.
func (e *TransportError) ClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// IsTransportError returns the *TransportError in err's chain, if any.
func IsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// UploadErrorKind categorizes upload failures.
type UploadErrorKind string

const (
	// UploadCancelled means the caller aborted the transfer. It is not a
	// failure and must not be reported as one.
	UploadCancelled UploadErrorKind = "UPLOAD_CANCELLED"

	// UploadFailed means the server answered with a non-2xx status.
	UploadFailed UploadErrorKind = "UPLOAD_FAILED"

	// InvalidResponse means the server's 2xx body was not valid JSON.
	InvalidResponse UploadErrorKind = "INVALID_RESPONSE"

	// UploadNetwork means the transfer broke before a response arrived.
	UploadNetwork UploadErrorKind = "UPLOAD_NETWORK"

	// UploadTooLarge means the file exceeds the configured cap and was
	// never sent.
	UploadTooLarge UploadErrorKind = "UPLOAD_TOO_LARGE"
)

// Sentinels for errors.Is matching on the kind alone.
var (
	ErrUploadCancelled = &UploadError{Kind: UploadCancelled}
	ErrUploadFailed    = &UploadError{Kind: UploadFailed}
	ErrInvalidResponse = &UploadError{Kind: InvalidResponse}
	ErrUploadNetwork   = &UploadError{Kind: UploadNetwork}
	ErrUploadTooLarge  = &UploadError{Kind: UploadTooLarge}
)

// UploadError is returned by UploadTask.Wait.
type UploadError struct {
	Kind       UploadErrorKind
	Status     int
	StatusText string
	Err        error
}

func (e *UploadError) Error() string {
	switch e.Kind {
	case UploadCancelled:
		return "upload cancelled"
	case UploadFailed:
		return fmt.Sprintf("upload failed: %s", e.StatusText)
	case InvalidResponse:
		if e.Err != nil {
			return fmt.Sprintf("invalid response format: %v", e.Err)
		}
		return "invalid response format"
	case UploadNetwork:
		if e.Err != nil {
			return fmt.Sprintf("network error during upload: %v", e.Err)
		}
		return "network error during upload"
	case UploadTooLarge:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "file exceeds upload size limit"
	default:
		return string(e.Kind)
	}
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is matches any *UploadError of the same kind, so the package sentinels
// work with errors.Is.
func (e *UploadError) Is(target error) bool {
	var t *UploadError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Validation reports whether the server rejected the file itself. A 400
// from the upload endpoint is a validation failure and is never retried.
func (e *UploadError) Validation() bool {
	return e.Kind == UploadFailed && e.Status == http.StatusBadRequest
}

// IsUploadCancelled returns true if err is an intentional cancellation.
func IsUploadCancelled(err error) bool {
	return errors.Is(err, ErrUploadCancelled)
}
