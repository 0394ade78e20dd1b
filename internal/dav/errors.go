// Package dav implements a WebDAV client: authenticated request
// construction, per-account transport sessions, response classification,
// and multi-status PROPFIND parsing.
package dav

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for operation outcome classification.
// Use errors.Is(err, dav.ErrNotFound) to check.
var (
	ErrInvalidCredentials  = errors.New("dav: invalid credentials")
	ErrUnauthorized        = errors.New("dav: unauthorized")
	ErrForbidden           = errors.New("dav: forbidden")
	ErrNotFound            = errors.New("dav: not found")
	ErrConflict            = errors.New("dav: conflict")
	ErrInsufficientStorage = errors.New("dav: insufficient storage")
	ErrServerError         = errors.New("dav: server error")
	ErrUnknownStatus       = errors.New("dav: unknown status")
	ErrNetwork             = errors.New("dav: network failure")
	ErrUnreadableResponse  = errors.New("dav: unreadable response")
)

// DavError wraps a sentinel error with the originating HTTP status code
// and the server's error message body, when either is available.
type DavError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *DavError) Error() string {
	if e.StatusCode == 0 {
		if e.Message != "" {
			return fmt.Sprintf("dav: %s: %v", e.Message, e.Err)
		}

		return e.Err.Error()
	}

	if e.Message != "" {
		return fmt.Sprintf("dav: HTTP %d: %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("dav: HTTP %d: %v", e.StatusCode, e.Err)
}

func (e *DavError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes. Every non-2xx code maps to exactly
// one sentinel; codes with no specific meaning map to ErrUnknownStatus.
func classifyStatus(code int) error {
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusMethodNotAllowed, http.StatusConflict:
		// MKCOL on an existing resource answers 405, a missing parent
		// collection answers 409. Both are conflicts to the caller.
		return ErrConflict
	case http.StatusInsufficientStorage:
		return ErrInsufficientStorage
	default:
		if code >= http.StatusInternalServerError && code < 600 {
			return ErrServerError
		}

		return ErrUnknownStatus
	}
}

// classify maps a raw transport outcome to either success (nil) or one
// error from the closed taxonomy. A transport-level failure without a
// response, and a missing status code, both classify as ErrNetwork.
func classify(statusCode int, transportErr error) error {
	if transportErr != nil {
		return &DavError{Message: transportErr.Error(), Err: ErrNetwork}
	}

	if statusCode == 0 {
		return &DavError{Err: ErrNetwork}
	}

	sentinel := classifyStatus(statusCode)
	if sentinel == nil {
		return nil
	}

	return &DavError{StatusCode: statusCode, Err: sentinel}
}
