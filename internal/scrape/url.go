package scrape

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL rejects submissions that do not look like a product page on
// the supported catalog domain.
var ErrInvalidURL = errors.New("not an amazon.com.br product URL")

var (
	asinPathRe = regexp.MustCompile(`/dp/([A-Z0-9]{10})(?:[/?]|$)`)

	allowedHosts = map[string]struct{}{
		"amazon.com.br":     {},
		"www.amazon.com.br": {},
	}
)

// ValidateProductURL checks raw against the product-page shape: an allow-listed
// amazon.com.br host and a /dp/<ASIN> path segment. It returns the parsed URL
// so callers can reuse it without re-parsing.
func ValidateProductURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrInvalidURL
	}
	if _, ok := allowedHosts[strings.ToLower(u.Hostname())]; !ok {
		return nil, ErrInvalidURL
	}
	if !asinPathRe.MatchString(u.Path) {
		return nil, ErrInvalidURL
	}
	return u, nil
}

// ParseASIN extracts the catalog identifier from a product URL path, or
// Unavailable when none is present.
func ParseASIN(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return Unavailable
	}
	m := asinPathRe.FindStringSubmatch(u.Path)
	if m == nil {
		return Unavailable
	}
	return m[1]
}
