package resilience

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient_Nil(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error must not be transient")
	}
}

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("overloaded"), 529)
	if !IsTransient(err) {
		t.Error("TransientError must be transient")
	}

	wrapped := fmt.Errorf("calling api: %w", err)
	if !IsTransient(wrapped) {
		t.Error("wrapped TransientError must be transient")
	}
}

func TestIsTransient_StringHeuristics(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"read tcp: connection reset by peer", true},
		{"net/http: TLS handshake timeout", true},
		{"dial tcp: i/o timeout", true},
		{"invalid request body", false},
		{"404 not found", false},
	}
	for _, tc := range cases {
		if got := IsTransient(errors.New(tc.msg)); got != tc.want {
			t.Errorf("IsTransient(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, status := range []int{408, 429, 500, 502, 503, 504, 529} {
		if !IsTransientHTTPStatus(status) {
			t.Errorf("expected %d to be transient", status)
		}
	}
	for _, status := range []int{200, 301, 400, 401, 403, 404, 422} {
		if IsTransientHTTPStatus(status) {
			t.Errorf("expected %d to be non-transient", status)
		}
	}
}
