package storage

import "time"

// SeedDays is the number of days seeded into a freshly created document.
const SeedDays = 7

// seedTemplates are the canned day templates used to seed a new document.
// Day offsets past the last template reuse it.
var seedTemplates = [][]AppUsageEntry{
	{
		{Name: "Safari", Category: "Social", Seconds: 420, Color: "#007AFF", Icon: "🌐"},
		{Name: "WeChat", Category: "Social", Seconds: 385, Color: "#1AAD19", Icon: "💬"},
		{Name: "Douyin", Category: "Entertainment", Seconds: 340, Color: "#FE2C55", Icon: "🎵"},
		{Name: "Bilibili", Category: "Entertainment", Seconds: 280, Color: "#00A1D6", Icon: "📺"},
		{Name: "Xcode", Category: "Productivity", Seconds: 260, Color: "#147EFB", Icon: "⚙️"},
		{Name: "QQ Music", Category: "Music", Seconds: 180, Color: "#31C27C", Icon: "🎶"},
		{Name: "Chrome", Category: "Utilities", Seconds: 150, Color: "#EA4335", Icon: "🌍"},
		{Name: "QQ", Category: "Social", Seconds: 120, Color: "#12B7F5", Icon: "🐧"},
	},
	{
		{Name: "VS Code", Category: "Productivity", Seconds: 480, Color: "#147EFB", Icon: "💻"},
		{Name: "Chrome", Category: "Utilities", Seconds: 360, Color: "#EA4335", Icon: "🌍"},
		{Name: "WeChat", Category: "Social", Seconds: 320, Color: "#1AAD19", Icon: "💬"},
		{Name: "Spotify", Category: "Music", Seconds: 240, Color: "#1DB954", Icon: "🎵"},
		{Name: "Notion", Category: "Productivity", Seconds: 180, Color: "#000000", Icon: "📝"},
		{Name: "Safari", Category: "Utilities", Seconds: 160, Color: "#007AFF", Icon: "🌐"},
		{Name: "Figma", Category: "Productivity", Seconds: 140, Color: "#F24E1E", Icon: "🎨"},
	},
	{
		{Name: "Netflix", Category: "Entertainment", Seconds: 380, Color: "#E50914", Icon: "🎬"},
		{Name: "Instagram", Category: "Social", Seconds: 290, Color: "#E4405F", Icon: "📷"},
		{Name: "YouTube", Category: "Entertainment", Seconds: 260, Color: "#FF0000", Icon: "📺"},
		{Name: "Douyin", Category: "Entertainment", Seconds: 220, Color: "#FE2C55", Icon: "🎵"},
		{Name: "WeChat", Category: "Social", Seconds: 180, Color: "#1AAD19", Icon: "💬"},
		{Name: "Safari", Category: "Utilities", Seconds: 140, Color: "#007AFF", Icon: "🌐"},
		{Name: "QQ Music", Category: "Music", Seconds: 120, Color: "#31C27C", Icon: "🎶"},
	},
}

// DefaultDocument synthesizes the document used when none can be read:
// SeedDays days of placeholder usage ending at now, and default settings.
func DefaultDocument(now time.Time) *Document {
	now = now.Round(0)
	doc := &Document{
		LastUpdated: now,
		Days:        make(map[string]DayRecord, SeedDays),
		Settings:    DefaultSettings(),
	}

	for offset := 0; offset < SeedDays; offset++ {
		key := DayKey(now.AddDate(0, 0, -offset))
		doc.Days[key] = NewDayRecord(key, seedDay(offset))
	}

	doc.RefreshStatistics()
	return doc
}

func seedDay(offset int) []AppUsageEntry {
	idx := min(offset, len(seedTemplates)-1)
	apps := make([]AppUsageEntry, len(seedTemplates[idx]))
	copy(apps, seedTemplates[idx])
	return apps
}
