package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newRequest(remote string, headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/events/17.09.2023", nil)
	r.RemoteAddr = remote
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestClientIP_DirectPeer(t *testing.T) {
	cases := map[string]string{
		"203.0.113.7:50412":     "203.0.113.7",
		"[fe80::2]:443":         "fe80::2",
		"198.51.100.20":         "198.51.100.20",
		"[2001:db8:aa::5]":      "2001:db8:aa::5",
		"[2001:db8:aa::5]:8080": "2001:db8:aa::5",
	}
	for remote, want := range cases {
		if got := ClientIP(newRequest(remote, nil), false); got != want {
			t.Errorf("ClientIP(%q) = %q, want %q", remote, got, want)
		}
	}
}

func TestClientIP_BehindProxy(t *testing.T) {
	const peer = "172.16.0.9:40000"

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"no headers", nil, "172.16.0.9"},
		{"x-forwarded-for chain", map[string]string{"X-Forwarded-For": "198.51.100.4, 172.16.0.2"}, "198.51.100.4"},
		{"x-forwarded-for with port", map[string]string{"X-Forwarded-For": "198.51.100.4:5555"}, "198.51.100.4"},
		{"x-real-ip only", map[string]string{"X-Real-IP": "192.0.2.33"}, "192.0.2.33"},
		{
			"forwarded wins over x-forwarded-for",
			map[string]string{"Forwarded": "for=192.0.2.60;by=172.16.0.1", "X-Forwarded-For": "198.51.100.4"},
			"192.0.2.60",
		},
		{"forwarded quoted ipv6", map[string]string{"Forwarded": `for="[2001:db8::9]:8443";proto=https`}, "2001:db8::9"},
		{"forwarded unknown", map[string]string{"Forwarded": "for=unknown", "X-Real-IP": "192.0.2.33"}, "192.0.2.33"},
		{"forwarded obfuscated", map[string]string{"Forwarded": "for=_gateway"}, "172.16.0.9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClientIP(newRequest(peer, tc.headers), true); got != tc.want {
				t.Errorf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClientIP_UntrustedHeadersIgnored(t *testing.T) {
	r := newRequest("172.16.0.9:40000", map[string]string{
		"Forwarded":       "for=192.0.2.60",
		"X-Forwarded-For": "198.51.100.4",
		"X-Real-IP":       "192.0.2.33",
	})
	if got := ClientIP(r, false); got != "172.16.0.9" {
		t.Errorf("ClientIP(trustProxy=false) = %q, want 172.16.0.9", got)
	}
}
