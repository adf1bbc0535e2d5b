//go:build linux

package window

// Default returns the provider for the current platform.
func Default() Provider {
	return &XProp{}
}
