package api

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", &url.Error{Op: "Get", URL: "x", Err: context.DeadlineExceeded}, KindTimeout},
		{"unknown authority", &url.Error{Op: "Get", URL: "x", Err: x509.UnknownAuthorityError{}}, KindPolicy},
		{"hostname mismatch", &url.Error{Op: "Get", URL: "x", Err: x509.HostnameError{Host: "x"}}, KindPolicy},
		{"plain transport", fmt.Errorf("connection refused"), KindNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if got.Kind != tt.want {
				t.Errorf("classify(%v) = %v, want %v", tt.err, got.Kind, tt.want)
			}
			if !errors.Is(got, tt.err) && got.Err != tt.err {
				t.Errorf("classified error should wrap the original")
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  *Error
		want bool
	}{
		{&Error{Kind: KindTimeout}, true},
		{&Error{Kind: KindNetwork}, true},
		{&Error{Kind: KindPolicy}, false},
		{&Error{Kind: KindHTTP, Status: http.StatusInternalServerError}, true},
		{&Error{Kind: KindHTTP, Status: http.StatusServiceUnavailable}, true},
		{&Error{Kind: KindHTTP, Status: http.StatusTooManyRequests}, true},
		{&Error{Kind: KindHTTP, Status: http.StatusBadRequest}, false},
		{&Error{Kind: KindHTTP, Status: http.StatusUnauthorized}, false},
		{&Error{Kind: KindHTTP, Status: http.StatusNotFound}, false},
	}
	for _, tt := range tests {
		if got := tt.err.retryable(); got != tt.want {
			t.Errorf("retryable(%v/%d) = %v, want %v", tt.err.Kind, tt.err.Status, got, tt.want)
		}
	}
}

func TestUserMessageCategories(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindHTTP, Status: http.StatusUnauthorized}, "You need to sign in to do that."},
		{&Error{Kind: KindHTTP, Status: http.StatusForbidden}, "You don't have permission to do that."},
		{&Error{Kind: KindHTTP, Status: http.StatusNotFound}, "That wasn't found on the server."},
		{&Error{Kind: KindHTTP, Status: http.StatusTooManyRequests}, "You're doing that too often. Please wait a moment."},
		{&Error{Kind: KindHTTP, Status: http.StatusBadGateway}, "The server had a problem. Please try again later."},
		{&Error{Kind: KindTimeout}, "The server took too long to respond. Please try again."},
	}
	for _, tt := range tests {
		if got := tt.err.UserMessage(); got != tt.want {
			t.Errorf("UserMessage(%v/%d) = %q, want %q", tt.err.Kind, tt.err.Status, got, tt.want)
		}
	}

	// Policy errors get their own distinct message.
	policy := (&Error{Kind: KindPolicy}).UserMessage()
	network := (&Error{Kind: KindNetwork}).UserMessage()
	if policy == network {
		t.Error("policy and network errors must surface differently")
	}
}
