//go:build !linux

package window

import "context"

type unsupported struct{}

func (unsupported) Foreground(context.Context) (*Descriptor, error) {
	return nil, ErrUnsupported
}

// Default returns the provider for the current platform.
func Default() Provider {
	return unsupported{}
}
