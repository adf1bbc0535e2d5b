package usage

import (
	"time"
)

// TrackedApplication is an application observed in the foreground
type TrackedApplication struct {
	PID         int
	Name        string // owner name, falling back to window title
	OwnerName   string
	WindowTitle string
	Path        string
	FirstSeen   time.Time
	LastSeen    time.Time
}

// appKey identifies a TrackedApplication
type appKey struct {
	pid  int
	name string
}

// AppView is a tracked application as reported to callers
type AppView struct {
	Name               string    `json:"name"`
	PID                int       `json:"pid"`
	WindowTitle        string    `json:"windowTitle"`
	FirstSeen          time.Time `json:"firstSeen"`
	LastSeen           time.Time `json:"lastSeen"`
	UsageSeconds       int64     `json:"usageTime"`
	FormattedUsageTime string    `json:"formattedUsageTime"`
	IsActive           bool      `json:"isActive"`
}

// RunningApps is the result of a sampling tick or a running-apps query
type RunningApps struct {
	Success   bool      `json:"success"`
	Degraded  bool      `json:"degraded,omitempty"`
	Error     string    `json:"error,omitempty"`
	Apps      []AppView `json:"apps"`
	Timestamp time.Time `json:"timestamp"`
}
