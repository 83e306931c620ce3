package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a failed backend call. The kind decides both the retry
// policy and the user-facing message category.
type Kind int

const (
	// KindTimeout is a deadline hit on the request; retryable.
	KindTimeout Kind = iota
	// KindNetwork is a generic transport failure (DNS, refused
	// connection, reset); retryable.
	KindNetwork
	// KindPolicy is a TLS/certificate rejection. Retrying cannot fix a
	// policy failure, so these are never retried.
	KindPolicy
	// KindHTTP is a non-2xx status or an unsuccessful response envelope.
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindPolicy:
		return "policy"
	case KindHTTP:
		return "http"
	}
	return "unknown"
}

// Error is a classified backend call failure.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, when Kind == KindHTTP
	Message string // server-provided detail, may be empty
	Err     error  // underlying error, may be nil
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindHTTP && e.Message != "":
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	case e.Kind == KindHTTP:
		return fmt.Sprintf("backend returned %d", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return e.Kind.String() + " error"
}

func (e *Error) Unwrap() error { return e.Err }

// retryable reports whether another attempt could succeed.
func (e *Error) retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork:
		return true
	case KindHTTP:
		return e.Status >= 500 || e.Status == http.StatusTooManyRequests
	}
	return false
}

// UserMessage maps the error to a short, non-technical notification.
// Raw detail stays in logs unless detailed errors are enabled.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindTimeout:
		return "The server took too long to respond. Please try again."
	case KindNetwork:
		return "Could not reach the server. Check your connection."
	case KindPolicy:
		return "The server rejected the connection. This looks like a configuration problem."
	}
	switch {
	case e.Status == http.StatusUnauthorized:
		return "You need to sign in to do that."
	case e.Status == http.StatusForbidden:
		return "You don't have permission to do that."
	case e.Status == http.StatusNotFound:
		return "That wasn't found on the server."
	case e.Status == http.StatusTooManyRequests:
		return "You're doing that too often. Please wait a moment."
	case e.Status >= 500:
		return "The server had a problem. Please try again later."
	}
	return "Something went wrong talking to the server."
}

// classify wraps a transport error with its failure kind.
func classify(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}

	var (
		unknownAuthority x509.UnknownAuthorityError
		certInvalid      x509.CertificateInvalidError
		hostnameErr      x509.HostnameError
		recordHeaderErr  tls.RecordHeaderError
		certVerifyErr    *tls.CertificateVerificationError
	)
	if errors.As(err, &unknownAuthority) ||
		errors.As(err, &certInvalid) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &recordHeaderErr) ||
		errors.As(err, &certVerifyErr) {
		return &Error{Kind: KindPolicy, Err: err}
	}

	return &Error{Kind: KindNetwork, Err: err}
}
