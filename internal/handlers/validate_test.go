package handlers_test

import (
	"strings"
	"testing"

	"github.com/serroba/shortlink/internal/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "https url", input: "https://example.com/a?b=c", want: "https://example.com/a?b=c"},
		{name: "http url with port", input: "http://example.com:8080/x", want: "http://example.com:8080/x"},
		{name: "uppercase scheme", input: "HTTPS://EXAMPLE.COM/path", want: "HTTPS://EXAMPLE.COM/path"},
		{name: "trims whitespace", input: "  https://example.com  ", want: "https://example.com"},
		{name: "empty", input: "", wantErr: true},
		{name: "only spaces", input: "   ", wantErr: true},
		{name: "relative path", input: "/just/a/path", wantErr: true},
		{name: "no scheme", input: "example.com/path", wantErr: true},
		{name: "ftp scheme", input: "ftp://example.com/file", wantErr: true},
		{name: "javascript scheme", input: "javascript:alert(1)", wantErr: true},
		{name: "missing host", input: "https:///path", wantErr: true},
		{name: "too long", input: "https://example.com/" + strings.Repeat("a", 2048), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := handlers.ValidateURL(tt.input)

			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateAlias(t *testing.T) {
	tests := []struct {
		alias   string
		wantErr bool
	}{
		{alias: "promo"},
		{alias: "my-link_2024"},
		{alias: "abc"},
		{alias: strings.Repeat("a", 32)},
		{alias: "ab", wantErr: true},
		{alias: strings.Repeat("a", 33), wantErr: true},
		{alias: "has space", wantErr: true},
		{alias: "slash/es", wantErr: true},
		{alias: "ünïcode", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			err := handlers.ValidateAlias(tt.alias)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsValidCode(t *testing.T) {
	assert.True(t, handlers.IsValidCode("0"))
	assert.True(t, handlers.IsValidCode("lYGhA16ahyf"))
	assert.True(t, handlers.IsValidCode("promo"))
	assert.False(t, handlers.IsValidCode(""))
	assert.False(t, handlers.IsValidCode("favicon.ico"))
	assert.False(t, handlers.IsValidCode(strings.Repeat("a", 33)))
}
