package migration

import (
	"strings"
	"unicode/utf8"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"}

// NormalizePath returns the percent-decoded path component of a URL or raw path.
// Scheme, host, query and fragment are discarded. Input that cannot be decoded is
// returned with its path undecoded rather than rejected.
func NormalizePath(u string) string {
	if u == "" {
		return ""
	}
	_, _, p := splitURL(u)
	return unescapePath(p)
}

// Basename returns the final segment of the decoded URL or path. For absolute URLs without
// a path the host is the last segment.
func Basename(u string) string {
	if u == "" {
		return ""
	}
	scheme, host, p := splitURL(u)
	s := unescapePath(p)
	if scheme != "" {
		s = scheme + "://" + host + s
	}
	s = strings.TrimRight(s, "/")
	if s == "" {
		return ""
	}
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// IsImagePath reports whether p ends in one of the known image extensions.
func IsImagePath(p string) bool {
	p = strings.ToLower(p)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// ToSlug reduces a filename to a letters-only, lowercase key: the extension and every
// digit are dropped, so photo1.jpg and Photo_02.JPG share the slug "photo".
func ToSlug(name string) string {
	s := strings.ToLower(name)
	if i := strings.LastIndexByte(s, '.'); i >= 0 && isAlnumASCII(s[i+1:]) {
		s = s[:i]
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'a' && c <= 'z' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isAlnumASCII(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// splitURL splits u into scheme, host and path without validating it. net/url rejects
// inputs (bad escapes, control characters, colons in relative paths) that still carry a
// usable path, so the split is done by hand. Leading control characters and spaces are
// dropped, and tabs and line breaks are removed anywhere in u.
func splitURL(u string) (scheme, host, path string) {
	rest := strings.TrimLeftFunc(u, func(r rune) bool { return r <= ' ' })
	rest = strings.NewReplacer("\t", "", "\r", "", "\n", "").Replace(rest)
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest = rest[:i]
	}

	if i := strings.IndexByte(rest, ':'); i > 0 && isScheme(rest[:i]) {
		scheme = strings.ToLower(rest[:i])
		rest = rest[i+1:]
	}

	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			host, rest = rest[:i], rest[i:]
		} else {
			host, rest = rest, ""
		}
	}
	return scheme, host, rest
}

func isScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

// unescapePath decodes every valid %XX escape in p and leaves malformed ones as written.
// Decoded bytes that do not form valid UTF-8 become U+FFFD.
func unescapePath(p string) string {
	if !strings.Contains(p, "%") {
		return p
	}
	b := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '%' && i+2 < len(p) && isHex(p[i+1]) && isHex(p[i+2]) {
			b = append(b, unhex(p[i+1])<<4|unhex(p[i+2]))
			i += 2
			continue
		}
		b = append(b, p[i])
	}
	if !utf8.Valid(b) {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(b)
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
