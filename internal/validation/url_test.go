package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		expectErr bool
	}{
		{name: "valid http URL", url: "http://127.0.0.1:3030", expectErr: false},
		{name: "valid https URL", url: "https://example.com", expectErr: false},
		{name: "valid URL with path", url: "http://localhost:3030/events", expectErr: false},
		{name: "LAN address", url: "http://192.168.1.20:3030", expectErr: false},

		{name: "javascript scheme", url: "javascript:alert('xss')", expectErr: true},
		{name: "file scheme", url: "file:///etc/passwd", expectErr: true},
		{name: "ftp scheme", url: "ftp://example.com", expectErr: true},

		{name: "semicolon injection", url: "http://localhost:3030;rm -rf /", expectErr: true},
		{name: "ampersand injection", url: "http://localhost:3030&calc", expectErr: true},
		{name: "backtick injection", url: "http://localhost:3030/`id`", expectErr: true},
		{name: "newline injection", url: "http://localhost:3030\nid", expectErr: true},
		{name: "space", url: "http://localhost:3030/a b", expectErr: true},

		{name: "missing host", url: "http:///path", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateHost(t *testing.T) {
	tests := []struct {
		host      string
		expectErr bool
	}{
		{"", false},
		{"127.0.0.1", false},
		{"0.0.0.0", false},
		{"localhost", false},
		{"::1", false},
		{"localhost;id", true},
		{"$(id)", true},
		{"host name", true},
		{"http://localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			err := ValidateHost(tt.host)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
