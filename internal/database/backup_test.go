package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiybot/internal/config"
)

func TestBackupService_PerformBackup(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "source.db")

	logger := zerolog.Nop()
	src, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	src.Close()

	storage := t.TempDir()
	svc := NewBackupService(dbPath, config.BackupConfig{
		Enabled:     true,
		StoragePath: storage,
	}, &logger)

	require.NoError(t, svc.PerformBackup())

	entries, err := os.ReadDir(storage)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "kiybot_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".db"))

	// Копия — валидная база SQLite.
	restored, err := NewDB(filepath.Join(storage, entries[0].Name()), &logger)
	require.NoError(t, err)
	defer restored.Close()
}

func TestBackupService_CleanupOldBackups(t *testing.T) {
	logger := zerolog.Nop()
	storage := t.TempDir()

	old := filepath.Join(storage, "kiybot_20200101_000000.db")
	require.NoError(t, os.WriteFile(old, []byte("stale"), 0o644))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))

	fresh := filepath.Join(storage, "kiybot_20990101_000000.db")
	require.NoError(t, os.WriteFile(fresh, []byte("fresh"), 0o644))

	// Чужой файл с неподходящим именем удалён быть не должен.
	foreign := filepath.Join(storage, "notes.txt")
	require.NoError(t, os.WriteFile(foreign, []byte("keep"), 0o644))
	require.NoError(t, os.Chtimes(foreign, past, past))

	svc := NewBackupService("", config.BackupConfig{
		Enabled:       true,
		RetentionDays: 7,
		StoragePath:   storage,
	}, &logger)
	svc.CleanupOldBackups()

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.FileExists(t, foreign)
}
