// Package ignore recognises the metadata files desktop clients scatter over
// every folder they open (Windows thumbnails, Finder state, autorun files).
// Such names are never written to the store and read as absent.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"
)

// DefaultPatterns are always applied regardless of config or ignore file.
// Album art written by Windows Media Player is named "AlbumArt_{GUID}_*.jpg".
var DefaultPatterns = []string{
	"desktop.ini",
	"thumbs.db",
	".ds_store",
	"folder.jpg",
	"folder.gif",
	"albumartsmall.jpg",
	"albumart_{*",
	".trashes",
	".spotlight-v100",
	".fseventsd",
	"autorun.inf",
}

// Matcher checks resource names against a set of glob patterns.
// Matching is on the last path segment only and ignores case, since the
// clients producing these files disagree on capitalisation.
type Matcher struct {
	patterns []string
}

// NewMatcher creates a Matcher from DefaultPatterns plus extra raw pattern
// strings. Blank lines and lines starting with '#' are skipped, as are
// patterns that path.Match would reject.
func NewMatcher(extra []string) *Matcher {
	m := &Matcher{}
	for _, raw := range append(append([]string{}, DefaultPatterns...), extra...) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p := strings.ToLower(raw)
		if _, err := path.Match(p, ""); err != nil {
			continue
		}
		m.patterns = append(m.patterns, p)
	}
	return m
}

// Match reports whether name should be ignored. name may be a bare segment
// or a slash-separated path; only its last element is considered.
func (m *Matcher) Match(name string) bool {
	name = strings.TrimRight(name, "/")
	if name == "" {
		return false
	}
	base := strings.ToLower(path.Base(name))
	for _, p := range m.patterns {
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}
	return false
}

// Patterns returns the active patterns, lower-cased.
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

// ParseFile reads an ignore file and returns the raw pattern lines.
// Returns nil and no error if the file does not exist.
func ParseFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
