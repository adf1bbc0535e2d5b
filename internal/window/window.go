// Package window reports the window that currently holds user input focus.
package window

import (
	"context"
	"errors"
)

var (
	// ErrNoForeground is returned when the desktop reports no focused window.
	ErrNoForeground = errors.New("window: no foreground window")

	// ErrUnsupported is returned on platforms without a foreground provider.
	ErrUnsupported = errors.New("window: foreground detection not supported on this platform")
)

// Bounds is the on-screen rectangle of a window.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Descriptor describes the foreground window at the moment it was queried.
type Descriptor struct {
	OwnerName string `json:"ownerName"`
	PID       int    `json:"pid"`
	Title     string `json:"title"`
	Path      string `json:"path"`
	Bounds    Bounds `json:"bounds"`
}

// Name returns the owner name, falling back to the window title.
func (d Descriptor) Name() string {
	if d.OwnerName != "" {
		return d.OwnerName
	}
	return d.Title
}

// Provider queries the operating system for the foreground window.
// Implementations must honour ctx cancellation.
type Provider interface {
	Foreground(ctx context.Context) (*Descriptor, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (*Descriptor, error)

// Foreground calls f(ctx).
func (f ProviderFunc) Foreground(ctx context.Context) (*Descriptor, error) {
	return f(ctx)
}
