package security

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name: "cloudflare header wins",
			headers: map[string]string{
				"CF-Connecting-IP": "198.51.100.1",
				"X-Real-IP":        "198.51.100.2",
				"X-Forwarded-For":  "198.51.100.3",
			},
			want: "198.51.100.1",
		},
		{
			name: "real ip before forwarded for",
			headers: map[string]string{
				"X-Real-IP":       "198.51.100.2",
				"X-Forwarded-For": "198.51.100.3",
			},
			want: "198.51.100.2",
		},
		{
			name:    "first forwarded hop",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"},
			want:    "1.2.3.4",
		},
		{
			name:    "forwarded hop is trimmed",
			headers: map[string]string{"X-Forwarded-For": "  1.2.3.4  ,5.6.7.8"},
			want:    "1.2.3.4",
		},
		{
			name:    "lowercase header names",
			headers: map[string]string{"cf-connecting-ip": "2001:db8::1"},
			want:    "2001:db8::1",
		},
		{
			name:    "empty leading hop falls back",
			headers: map[string]string{"X-Forwarded-For": " , 5.6.7.8"},
			want:    UnknownClientIP,
		},
		{
			name:    "value is not validated",
			headers: map[string]string{"X-Real-IP": "not-an-ip"},
			want:    "not-an-ip",
		},
		{
			name: "no headers",
			want: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, ResolveClientIP(h))
		})
	}
}
