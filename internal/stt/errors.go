package stt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
)

// Kind classifies a transcription failure. The set is closed: retry
// eligibility and the user-facing message are total matches over it.
type Kind int

const (
	// Unknown covers failures no other kind explains.
	Unknown Kind = iota

	// Network kinds: the request never completed cleanly at the
	// transport/HTTP layer.
	NetworkRefused
	NetworkTimeout
	NetworkAuth
	NetworkOther

	// Service kinds: the provider answered and rejected the request.
	ServiceNotFound
	ServiceRateLimited
	ServiceOther

	// AudioFailure covers capture and encoding failures.
	AudioFailure

	// ConfigurationInvalid covers bad local settings (missing key, bad endpoint).
	ConfigurationInvalid
)

// IsNetwork reports whether the kind belongs to the Network family.
func (k Kind) IsNetwork() bool {
	switch k {
	case NetworkRefused, NetworkTimeout, NetworkAuth, NetworkOther:
		return true
	default:
		return false
	}
}

// Retryable reports whether a failure of this kind is worth retrying.
// Only Network kinds qualify; Service and Configuration failures repeat
// deterministically.
func (k Kind) Retryable() bool {
	return k.IsNetwork()
}

// Title returns the user-facing notification title for this kind.
// The mapping is a contract; tests verify it exactly.
func (k Kind) Title() string {
	switch k {
	case NetworkRefused, NetworkOther:
		return "Connection Failed"
	case NetworkTimeout:
		return "Connection Timed Out"
	case NetworkAuth:
		return "Authentication Failed"
	case ServiceNotFound:
		return "Model Not Found"
	case ServiceRateLimited:
		return "Rate Limited"
	case AudioFailure:
		return "Recording Failed"
	default:
		return "Error"
	}
}

func (k Kind) String() string {
	switch k {
	case NetworkRefused:
		return "network_refused"
	case NetworkTimeout:
		return "network_timeout"
	case NetworkAuth:
		return "network_auth"
	case NetworkOther:
		return "network"
	case ServiceNotFound:
		return "service_not_found"
	case ServiceRateLimited:
		return "service_rate_limited"
	case ServiceOther:
		return "service"
	case AudioFailure:
		return "audio"
	case ConfigurationInvalid:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error carries a classified failure. The classification is derived once
// at the adapter boundary and never mutated.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with the given kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the classification from err, or Unknown.
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return Unknown
}

// TitleOf returns the user-facing title for err's classification.
func TitleOf(err error) string {
	return KindOf(err).Title()
}

// Classify derives a classification from a raw transport error.
// Already-classified errors pass through unchanged.
func Classify(err error) *Error {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), os.IsTimeout(err):
		return NewError(NetworkTimeout, err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return NewError(NetworkRefused, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewError(NetworkTimeout, err)
		}
		return NewError(NetworkOther, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewError(NetworkOther, err)
	}

	return NewError(Unknown, err)
}

// ClassifyStatus derives a classification from an HTTP response status.
func ClassifyStatus(status int, err error) *Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(NetworkAuth, err)
	case status == http.StatusNotFound:
		return NewError(ServiceNotFound, err)
	case status == http.StatusTooManyRequests:
		return NewError(ServiceRateLimited, err)
	default:
		return NewError(ServiceOther, err)
	}
}
