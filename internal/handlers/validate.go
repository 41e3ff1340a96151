package handlers

import (
	"errors"
	"net/url"
	"strings"
)

const (
	maxURLLength   = 2048
	minAliasLength = 3
	maxAliasLength = 32
)

var (
	errURLRequired  = errors.New("url is required")
	errURLTooLong   = errors.New("url must be at most 2048 characters")
	errURLScheme    = errors.New("url must be an absolute http or https url")
	errURLHost      = errors.New("url must include a host")
	errAliasLength  = errors.New("customAlias must be between 3 and 32 characters")
	errAliasCharset = errors.New("customAlias may only contain letters, digits, '-' and '_'")
)

// ValidateURL checks that raw is an absolute http(s) URL with a host and
// returns it with surrounding whitespace removed.
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	switch {
	case raw == "":
		return "", errURLRequired
	case len(raw) > maxURLLength:
		return "", errURLTooLong
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return "", errURLScheme
	}

	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return "", errURLScheme
	}

	if u.Hostname() == "" {
		return "", errURLHost
	}

	return raw, nil
}

// ValidateAlias checks a caller-chosen code.
func ValidateAlias(alias string) error {
	if len(alias) < minAliasLength || len(alias) > maxAliasLength {
		return errAliasLength
	}

	if !isCodeCharset(alias) {
		return errAliasCharset
	}

	return nil
}

// IsValidCode reports whether code could have been issued, either derived or
// as an alias. Anything else cannot exist and needs no lookup.
func IsValidCode(code string) bool {
	return code != "" && len(code) <= maxAliasLength && isCodeCharset(code)
}

func isCodeCharset(s string) bool {
	for i := range len(s) {
		c := s[i]

		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}

	return true
}
