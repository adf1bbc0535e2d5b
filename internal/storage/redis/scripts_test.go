package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a miniredis instance for testing Lua scripts
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func TestBackupDocumentScript(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()
	script := redis.NewScript(backupDocumentScript)
	k := newKeys("test")

	// Nothing to copy yet
	copied, err := script.Run(ctx, client, []string{k.document(), k.backup()}).Int()
	if err != nil {
		t.Fatalf("Script execution failed: %v", err)
	}
	if copied != 0 {
		t.Errorf("Expected 0 for missing document, got %d", copied)
	}
	if mr.Exists(k.backup()) {
		t.Error("Backup key should not be created when there is no document")
	}

	if err := mr.Set(k.document(), `{"days":{}}`); err != nil {
		t.Fatalf("Failed to seed document: %v", err)
	}

	copied, err = script.Run(ctx, client, []string{k.document(), k.backup()}).Int()
	if err != nil {
		t.Fatalf("Script execution failed: %v", err)
	}
	if copied != 1 {
		t.Errorf("Expected 1 after copying document, got %d", copied)
	}

	backup, err := mr.Get(k.backup())
	if err != nil {
		t.Fatalf("Failed to read backup: %v", err)
	}
	if backup != `{"days":{}}` {
		t.Errorf("Expected backup to match document, got %s", backup)
	}
}

func TestKeys(t *testing.T) {
	tests := []struct {
		prefix       string
		wantDocument string
		wantBackup   string
	}{
		{"", "screentime:document", "screentime:document:backup"},
		{"alice", "alice:document", "alice:document:backup"},
	}

	for _, tt := range tests {
		k := newKeys(tt.prefix)
		if got := k.document(); got != tt.wantDocument {
			t.Errorf("document(%q) = %s, want %s", tt.prefix, got, tt.wantDocument)
		}
		if got := k.backup(); got != tt.wantBackup {
			t.Errorf("backup(%q) = %s, want %s", tt.prefix, got, tt.wantBackup)
		}
	}
}
