package httpapi

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name       string
		remote     string
		forwarded  string
		realIP     string
		want       string
	}{
		{"remote addr only", "203.0.113.9:4431", "", "", "203.0.113.9"},
		{"x-real-ip wins over remote", "10.0.0.1:80", "", "203.0.113.9", "203.0.113.9"},
		{"forwarded wins over real-ip", "10.0.0.1:80", "198.51.100.7", "203.0.113.9", "198.51.100.7"},
		{"forwarded first hop", "10.0.0.1:80", "198.51.100.7, 10.0.0.2, 10.0.0.3", "", "198.51.100.7"},
		{"forwarded with spaces", "10.0.0.1:80", "  198.51.100.7 , 10.0.0.2", "", "198.51.100.7"},
		{"empty forwarded falls through", "10.0.0.1:80", "   ", "203.0.113.9", "203.0.113.9"},
		{"remote without port", "203.0.113.9", "", "", "203.0.113.9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				r.Header.Set("X-Real-IP", tc.realIP)
			}

			assert.Equal(t, tc.want, ClientIP(r))
		})
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	assert.Empty(t, bearerToken(r))

	r.Header.Set("Authorization", "Bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", bearerToken(r))

	r.Header.Set("Authorization", "bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", bearerToken(r))

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Empty(t, bearerToken(r))

	r.Header.Set("Authorization", "Bearer ")
	assert.Empty(t, bearerToken(r))
}
