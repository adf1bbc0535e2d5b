package window

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// XProp reads the active window from an X11 session through the xprop utility.
type XProp struct {
	// Command is the xprop binary, "xprop" when empty.
	Command string

	// ProcRoot is the procfs mount used to resolve executable paths, "/proc" when empty.
	ProcRoot string
}

// Foreground implements Provider.
func (x *XProp) Foreground(ctx context.Context) (*Descriptor, error) {
	out, err := x.run(ctx, "-root", "_NET_ACTIVE_WINDOW")
	if err != nil {
		return nil, err
	}

	id, err := parseActiveWindowID(out)
	if err != nil {
		return nil, err
	}

	out, err = x.run(ctx, "-id", id, "_NET_WM_PID", "WM_CLASS", "_NET_WM_NAME", "WM_NAME")
	if err != nil {
		return nil, err
	}

	desc := parseWindowProperties(out)
	if desc.PID > 0 {
		desc.Path = x.executablePath(desc.PID)
		if desc.OwnerName == "" && desc.Path != "" {
			desc.OwnerName = filepath.Base(desc.Path)
		}
	}

	return desc, nil
}

func (x *XProp) run(ctx context.Context, args ...string) (string, error) {
	command := x.Command
	if command == "" {
		command = "xprop"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("xprop %s: %w", strings.Join(args, " "), ctx.Err())
		}
		return "", fmt.Errorf("xprop %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	return string(out), nil
}

func (x *XProp) executablePath(pid int) string {
	root := x.ProcRoot
	if root == "" {
		root = "/proc"
	}

	path, err := os.Readlink(filepath.Join(root, strconv.Itoa(pid), "exe"))
	if err != nil {
		return ""
	}
	return path
}

// parseActiveWindowID extracts the window id from
// "_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3a00007".
func parseActiveWindowID(out string) (string, error) {
	idx := strings.LastIndex(out, "#")
	if idx < 0 {
		return "", fmt.Errorf("unexpected xprop output %q", strings.TrimSpace(out))
	}

	fields := strings.Fields(strings.ReplaceAll(out[idx+1:], ",", " "))
	if len(fields) == 0 {
		return "", ErrNoForeground
	}

	id := fields[0]
	n, err := strconv.ParseUint(strings.TrimPrefix(id, "0x"), 16, 64)
	if err != nil {
		return "", fmt.Errorf("invalid window id %q: %w", id, err)
	}
	if n == 0 {
		return "", ErrNoForeground
	}

	return id, nil
}

// parseWindowProperties turns "NAME(TYPE) = value" lines into a Descriptor.
func parseWindowProperties(out string) *Descriptor {
	desc := &Descriptor{}
	var wmName string

	for _, line := range strings.Split(out, "\n") {
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if i := strings.Index(name, "("); i >= 0 {
			name = name[:i]
		}
		value = strings.TrimSpace(value)

		switch name {
		case "_NET_WM_PID":
			if pid, err := strconv.Atoi(value); err == nil {
				desc.PID = pid
			}
		case "WM_CLASS":
			// WM_CLASS carries "instance", "Class"; the class is the application name.
			parts := quotedStrings(value)
			if len(parts) > 0 {
				desc.OwnerName = parts[len(parts)-1]
			}
		case "_NET_WM_NAME":
			if parts := quotedStrings(value); len(parts) > 0 {
				desc.Title = parts[0]
			}
		case "WM_NAME":
			if parts := quotedStrings(value); len(parts) > 0 {
				wmName = parts[0]
			}
		}
	}

	if desc.Title == "" {
		desc.Title = wmName
	}

	return desc
}

func quotedStrings(value string) []string {
	var (
		parts   []string
		current strings.Builder
		inQuote bool
		escaped bool
	)

	for _, r := range value {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && inQuote:
			escaped = true
		case r == '"':
			if inQuote {
				parts = append(parts, current.String())
				current.Reset()
			}
			inQuote = !inQuote
		case inQuote:
			current.WriteRune(r)
		}
	}

	return parts
}
