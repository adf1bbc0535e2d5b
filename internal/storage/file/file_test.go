package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/screentime/internal/storage"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Backend, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "screentime")
	b, err := Open(filepath.Join(dir, "screen-time-data.json"), "")
	require.NoError(t, err)
	return b, dir
}

func TestOpenDefaultsBackupPath(t *testing.T) {
	b, dir := openTemp(t)

	info := b.Info()
	assert.Equal(t, "file", info.Backend)
	assert.Equal(t, filepath.Join(dir, "screen-time-data-backup.json"), info.BackupPath)
	assert.DirExists(t, dir)
}

func TestReadMissing(t *testing.T) {
	b, _ := openTemp(t)

	_, err := b.Read(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, b.Backup(context.Background()), storage.ErrNotFound)
}

func TestWriteAndBackup(t *testing.T) {
	b, dir := openTemp(t)
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, []byte(`{"v":1}`)))
	require.NoError(t, b.Backup(ctx))
	require.NoError(t, b.Write(ctx, []byte(`{"v":2}`)))

	got, err := b.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))

	backup, err := os.ReadFile(b.Info().BackupPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(backup))

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestEngineOnFileBackend(t *testing.T) {
	b, _ := openTemp(t)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local))
	engine := storage.NewEngine(b, clock, zerolog.Nop())
	ctx := context.Background()

	// Corrupt primary falls back to defaults without touching the file.
	require.NoError(t, b.Write(ctx, []byte("corrupt")))
	doc := engine.Load(ctx)
	assert.Len(t, doc.Days, storage.SeedDays)

	raw, err := b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "corrupt", string(raw))

	res := engine.SaveDay(ctx, "2024-03-15", storage.NewDayRecord("2024-03-15", []storage.AppUsageEntry{
		{Name: "Firefox", Category: storage.DefaultCategory, Seconds: 65},
	}))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, b.Info().DataPath, res.Path)

	backup, err := os.ReadFile(b.Info().BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "corrupt", string(backup))

	day := engine.Day(ctx, "2024-03-15")
	assert.Equal(t, int64(65), day.TotalSeconds)
}

func TestWriteFailureOnReadOnlyDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	b, dir := openTemp(t)
	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0755) })

	err := b.Write(context.Background(), []byte("{}"))
	assert.Error(t, err)
}
