package storage

import (
	"sort"
	"time"
)

// Placeholder presentation hints for entries produced by the tracker.
const (
	DefaultCategory = "Other"
	DefaultColor    = "#6366f1"
	DefaultIcon     = "📱"
)

// Default settings values.
const (
	DefaultTheme = "dark"
)

// AppUsageEntry is one application's usage within a day.
type AppUsageEntry struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Seconds  int64  `json:"time"`
	Color    string `json:"color"`
	Icon     string `json:"icon"`
}

// DayRecord aggregates the usage of one calendar day.
type DayRecord struct {
	Apps         []AppUsageEntry `json:"apps"`
	TotalSeconds int64           `json:"totalTime"`
	Date         string          `json:"date"`
}

// NewDayRecord builds a record for date whose total matches its entries.
func NewDayRecord(date string, apps []AppUsageEntry) DayRecord {
	rec := DayRecord{Apps: apps, Date: date}
	rec.Recompute()
	return rec
}

// Recompute restores the totalTime == Σ apps[].time invariant.
func (r *DayRecord) Recompute() {
	if r.Apps == nil {
		r.Apps = []AppUsageEntry{}
	}

	var total int64
	for _, app := range r.Apps {
		total += app.Seconds
	}
	r.TotalSeconds = total
}

// Settings holds user preferences persisted with the usage history.
type Settings struct {
	AutoStart      bool   `json:"autoStart"`
	Notifications  bool   `json:"notifications"`
	MinimizeToTray bool   `json:"minimizeToTray"`
	Theme          string `json:"theme"`
}

// DefaultSettings returns the settings used for a freshly created document.
func DefaultSettings() Settings {
	return Settings{
		AutoStart:      false,
		Notifications:  true,
		MinimizeToTray: true,
		Theme:          DefaultTheme,
	}
}

// SettingsPatch carries the settings fields a caller wants to change.
type SettingsPatch struct {
	AutoStart      *bool   `json:"autoStart,omitempty"`
	Notifications  *bool   `json:"notifications,omitempty"`
	MinimizeToTray *bool   `json:"minimizeToTray,omitempty"`
	Theme          *string `json:"theme,omitempty"`
}

// Apply merges the non-nil fields of p into s.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.AutoStart != nil {
		s.AutoStart = *p.AutoStart
	}
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	if p.MinimizeToTray != nil {
		s.MinimizeToTray = *p.MinimizeToTray
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	return s
}

// Statistics are aggregates derived from the stored days.
type Statistics struct {
	TotalDays    int   `json:"totalDays"`
	TotalTime    int64 `json:"totalTime"`
	AverageDaily int64 `json:"averageDaily"`
}

// Document is the durable usage history.
type Document struct {
	LastUpdated time.Time            `json:"lastUpdated"`
	Days        map[string]DayRecord `json:"days"`
	Settings    Settings             `json:"settings"`
	Statistics  Statistics           `json:"statistics"`
}

// SetDay stores rec under key, recomputing its total and the document statistics.
func (d *Document) SetDay(key string, rec DayRecord, now time.Time) {
	if d.Days == nil {
		d.Days = make(map[string]DayRecord)
	}
	rec.Date = key
	rec.Recompute()
	d.Days[key] = rec
	d.LastUpdated = now
	d.RefreshStatistics()
}

// RefreshStatistics recomputes the aggregate statistics from Days.
func (d *Document) RefreshStatistics() {
	var stats Statistics
	for _, rec := range d.Days {
		if len(rec.Apps) == 0 {
			continue
		}
		stats.TotalDays++
		stats.TotalTime += rec.TotalSeconds
	}
	if stats.TotalDays > 0 {
		stats.AverageDaily = stats.TotalTime / int64(stats.TotalDays)
	}
	d.Statistics = stats
}

// DayKeys returns the stored day keys in ascending order.
func (d *Document) DayKeys() []string {
	keys := make([]string, 0, len(d.Days))
	for k := range d.Days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SaveResult reports the outcome of a write.
type SaveResult struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ExportResult wraps a document handed out for export.
type ExportResult struct {
	Success   bool      `json:"success"`
	Data      *Document `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// DataInfo describes where the document lives.
type DataInfo struct {
	Backend    string `json:"backend"`
	DataPath   string `json:"dataPath"`
	BackupPath string `json:"backupPath"`
}
