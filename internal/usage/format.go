package usage

import "fmt"

// FormatDuration renders seconds as "Ns", "Mm", "Mm Ss", "Hh" or "Hh Mm".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}

	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		m, s := seconds/60, seconds%60
		if s > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%dm", m)
	default:
		h, m := seconds/3600, (seconds%3600)/60
		if m > 0 {
			return fmt.Sprintf("%dh %dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
}

// FormatHoursMinutes renders seconds as "Hh Mm", "Hh" or "Mm", dropping seconds.
func FormatHoursMinutes(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}

	h, m := seconds/3600, (seconds%3600)/60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
