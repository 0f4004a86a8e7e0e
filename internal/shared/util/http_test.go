package util

import (
	"net/http/httptest"
	"testing"
)

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		expected   string
	}{
		{name: "ForwardedFirstEntry", forwarded: "203.0.113.9, 10.0.0.1", remoteAddr: "10.0.0.2:1234", expected: "203.0.113.9"},
		{name: "RealIPFallback", realIP: "198.51.100.4", remoteAddr: "10.0.0.2:1234", expected: "198.51.100.4"},
		{name: "RemoteAddrFallback", remoteAddr: "192.0.2.7:5555", expected: "192.0.2.7"},
		{name: "RemoteAddrWithoutPort", remoteAddr: "192.0.2.7", expected: "192.0.2.7"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				r.Header.Set("X-Real-IP", tc.realIP)
			}
			if got := GetClientIP(r); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}
