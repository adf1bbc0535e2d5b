package usage

import (
	"path/filepath"
	"strings"

	"github.com/goodtune/screentime/internal/window"
)

// SelfMatcher recognises windows that belong to this program.
type SelfMatcher struct {
	executable string
	names      map[string]struct{}
}

// NewSelfMatcher matches windows whose executable is executable, or whose
// owner name, title or executable base name equals one of names.
func NewSelfMatcher(executable string, names []string) *SelfMatcher {
	m := &SelfMatcher{names: make(map[string]struct{}, len(names)+1)}

	if executable != "" {
		m.executable = filepath.Clean(executable)
		m.names[normaliseSelf(filepath.Base(executable))] = struct{}{}
	}
	for _, n := range names {
		if n = normaliseSelf(n); n != "" {
			m.names[n] = struct{}{}
		}
	}

	return m
}

// Match reports whether d is one of our own windows.
func (m *SelfMatcher) Match(d *window.Descriptor) bool {
	if m == nil || d == nil {
		return false
	}

	if m.executable != "" && d.Path != "" && filepath.Clean(d.Path) == m.executable {
		return true
	}

	candidates := []string{d.OwnerName, d.Title}
	if d.Path != "" {
		candidates = append(candidates, filepath.Base(d.Path))
	}
	for _, c := range candidates {
		if _, ok := m.names[normaliseSelf(c)]; ok && c != "" {
			return true
		}
	}

	return false
}

func normaliseSelf(s string) string {
	return strings.ToLower(trimExe(strings.TrimSpace(s)))
}
