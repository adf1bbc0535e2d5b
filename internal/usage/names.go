package usage

import "strings"

// UnknownApp is the display name used when a window has no usable name.
const UnknownApp = "Unknown"

// Aliases maps raw executable names to friendly display names. Lookups are
// case-insensitive.
type Aliases map[string]string

// NewAliases normalises the keys of m.
func NewAliases(m map[string]string) Aliases {
	a := make(Aliases, len(m))
	for k, v := range m {
		a[strings.ToLower(k)] = v
	}
	return a
}

// DisplayName strips a trailing ".exe" from raw and applies the alias map.
func (a Aliases) DisplayName(raw string) string {
	name := trimExe(strings.TrimSpace(raw))
	if name == "" {
		return UnknownApp
	}
	if alias, ok := a[strings.ToLower(name)]; ok {
		return alias
	}
	return name
}

func trimExe(name string) string {
	if len(name) >= 4 && strings.EqualFold(name[len(name)-4:], ".exe") {
		return name[:len(name)-4]
	}
	return name
}
