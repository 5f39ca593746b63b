package dav

import (
	"fmt"
	"net/url"
	"strings"
)

// stripPrefix removes the mount prefix from an escaped URL path. Paths that
// do not carry the prefix are taken as relative to the virtual root, so the
// gateway works both behind a path-routing proxy and when addressed directly.
func stripPrefix(escapedPath string, prefix string) string {
	if prefix == "" {
		return escapedPath
	}
	if escapedPath == prefix {
		return "/"
	}
	if strings.HasPrefix(escapedPath, prefix+"/") {
		return escapedPath[len(prefix):]
	}
	return escapedPath
}

// splitSegments turns an escaped path into decoded segments. Empty segments
// are dropped, which collapses repeated and trailing slashes. Dot segments
// are rejected rather than stored as names. Splitting
// happens before decoding so an encoded slash stays inside its segment.
func splitSegments(escapedPath string) ([]string, error) {
	var segments []string
	for _, raw := range strings.Split(escapedPath, "/") {
		if raw == "" {
			continue
		}
		seg, err := url.PathUnescape(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding path segment %q: %w", raw, ErrBadRequest)
		}
		if seg == "" {
			continue
		}
		if seg == "." || seg == ".." {
			return nil, fmt.Errorf("dot segment %q: %w", seg, ErrBadRequest)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// buildHref renders segments as an href under prefix. Collections get a
// trailing slash.
func buildHref(prefix string, segments []string, collection bool) string {
	if len(segments) == 0 {
		return prefix + "/"
	}
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	href := prefix + "/" + strings.Join(escaped, "/")
	if collection {
		href += "/"
	}
	return href
}

// parseDestination extracts the target segments of a MOVE or COPY from the
// Destination header, which may be an absolute URL or an absolute path.
func parseDestination(header string, prefix string) ([]string, error) {
	if header == "" {
		return nil, fmt.Errorf("missing Destination header: %w", ErrBadRequest)
	}
	u, err := url.Parse(header)
	if err != nil {
		return nil, fmt.Errorf("parsing Destination %q: %w", header, ErrBadRequest)
	}
	escaped := u.EscapedPath()
	if escaped == "" {
		escaped = "/"
	}
	if !strings.HasPrefix(escaped, "/") {
		return nil, fmt.Errorf("destination %q is not an absolute path: %w", header, ErrBadRequest)
	}
	return splitSegments(stripPrefix(escaped, prefix))
}

// hasPrefixSegments reports whether path starts with all of prefix.
func hasPrefixSegments(path, prefix []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i := range prefix {
		if path[i] != prefix[i] {
			return false
		}
	}
	return true
}
