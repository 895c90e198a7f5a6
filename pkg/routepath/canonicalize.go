// Package routepath derives and parses action submission paths and
// normalizes the page paths they hang off.
package routepath

import (
	"errors"
	"strings"
)

// Path errors.
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
	ErrQueryInBasePath      = errors.New("base path must not contain a query or fragment")
)

// CanonicalizePath normalizes a URL path:
//   - ensure a leading "/"
//   - collapse multiple slashes (/todos//a → /todos/a)
//   - drop "." segments and resolve ".." segments
//   - remove the trailing slash (except for root "/")
//
// Paths with a backslash, a NUL byte, a bad percent-escape, or a ".." that
// climbs above root are rejected. A query string is split off and returned
// separately, unmodified.
func CanonicalizePath(input string) (path, query string, err error) {
	if input == "" {
		return "/", "", nil
	}

	path, query, _ = strings.Cut(input, "?")

	if strings.Contains(path, "\\") {
		return "", "", ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return "", "", ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return "", "", err
		}
	}

	var segments []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(segments) == 0 {
				return "", "", ErrPathEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}

	return "/" + strings.Join(segments, "/"), query, nil
}

// ValidateBasePath checks that p can serve as the base of action paths.
// The path itself is not rewritten: action paths are derived from the base
// path verbatim.
func ValidateBasePath(p string) error {
	if p == "" || !strings.HasPrefix(p, "/") {
		return ErrInvalidPath
	}
	if strings.ContainsAny(p, "?#") {
		return ErrQueryInBasePath
	}
	_, _, err := CanonicalizePath(p)
	return err
}

// ValidateLocation checks a redirect target returned by an action endpoint.
// Only same-origin absolute paths are accepted; full URLs and
// protocol-relative URLs are rejected. The canonical path is returned with
// its query string, if any.
func ValidateLocation(location string) (string, error) {
	if strings.HasPrefix(location, "http://") ||
		strings.HasPrefix(location, "https://") ||
		strings.HasPrefix(location, "//") ||
		!strings.HasPrefix(location, "/") {
		return "", ErrInvalidPath
	}

	path, query, err := CanonicalizePath(location)
	if err != nil {
		return "", err
	}
	if query != "" {
		return path + "?" + query, nil
	}
	return path, nil
}

// validatePercentEscapes checks that every "%" starts a %XX hex escape.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
