package shared

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

var (
	curlHeaderRe = regexp.MustCompile(`(?:-H|--header)\s+(?:'([^']+)'|"([^"]+)")`)
	curlCookieRe = regexp.MustCompile(`(?:-b|--cookie)\s+(?:'([^']+)'|"([^"]+)")`)
)

// browserHeaderKeys are the request headers the YouTube Music proxy replays. Everything else a browser sends
// (accept-language, sec-* hints, content-length) is dropped.
var browserHeaderKeys = []string{"authorization", "user-agent", "x-goog-authuser", "x-origin", "origin", "x-goog-visitor-id"}

// BrowserHeaders holds the authenticated request headers copied from a signed-in YouTube Music browser session.
type BrowserHeaders struct {
	Headers map[string]string // lower-cased keys
	Cookie  string
}

// ParseCurlFile reads a file containing a "Copy as cURL" command and extracts its headers.
func ParseCurlFile(path string) (*BrowserHeaders, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}
	return ParseCurlCommand(string(content))
}

// ParseCurlCommand extracts headers and cookies from a cURL command.
//
// A -b/--cookie flag takes precedence over a Cookie header.
func ParseCurlCommand(cmd string) (*BrowserHeaders, error) {
	cmd = strings.ReplaceAll(cmd, "\\\n", " ")
	cmd = strings.ReplaceAll(cmd, "\\", "")

	out := &BrowserHeaders{Headers: make(map[string]string)}
	var headerCookie string

	for _, match := range curlHeaderRe.FindAllStringSubmatch(cmd, -1) {
		key, value, ok := strings.Cut(firstGroup(match), ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if key == "cookie" {
			headerCookie = value
			continue
		}
		out.Headers[key] = value
	}

	if match := curlCookieRe.FindStringSubmatch(cmd); match != nil {
		out.Cookie = firstGroup(match)
	} else {
		out.Cookie = headerCookie
	}

	if len(out.Headers) == 0 && out.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}
	return out, nil
}

func firstGroup(match []string) string {
	if match[1] != "" {
		return match[1]
	}
	return match[2]
}

// Validate reports whether the headers can authenticate against YouTube Music, which signs requests with the
// SAPISID cookie.
func (b *BrowserHeaders) Validate() error {
	if b.Cookie == "" {
		return fmt.Errorf("%w: no cookie in the copied request", ErrMissingCredentials)
	}
	if !strings.Contains(b.Cookie, "SAPISID=") {
		return fmt.Errorf("%w: cookie has no SAPISID, copy a request made while signed in", ErrInvalidCredentials)
	}
	return nil
}

// BrowserJSON returns the header map the proxy loads as its auth file, keeping only the replayed headers.
func (b *BrowserHeaders) BrowserJSON() map[string]string {
	out := map[string]string{"cookie": b.Cookie}
	for _, key := range browserHeaderKeys {
		if v, ok := b.Headers[key]; ok {
			out[key] = v
		}
	}
	if _, ok := out["x-goog-authuser"]; !ok {
		out["x-goog-authuser"] = "0"
	}
	return out
}

// ToHeadersRaw renders all headers as sorted "key: value" lines, cookie last.
func (b *BrowserHeaders) ToHeadersRaw() string {
	lines := make([]string, 0, len(b.Headers)+1)
	for _, key := range slices.Sorted(maps.Keys(b.Headers)) {
		lines = append(lines, key+": "+b.Headers[key])
	}
	if b.Cookie != "" {
		lines = append(lines, "cookie: "+b.Cookie)
	}
	return strings.Join(lines, "\n")
}

// WriteBrowserJSON validates the headers and writes them to path with owner-only permissions.
func (b *BrowserHeaders) WriteBrowserJSON(path string) error {
	if err := b.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(b.BrowserJSON(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode headers: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create headers directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write headers file: %w", err)
	}
	return nil
}
