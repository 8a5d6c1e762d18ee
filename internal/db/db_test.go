package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenMigratesSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "social.db")
	database, err := Open(DriverSQLite, path, 1)
	require.NoError(t, err)
	defer database.Close()

	for _, table := range []string{"users", "follows", "posts", "post_likes", "comments", "bookmarks", "conversations", "messages"} {
		var name string
		err := database.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "social.db")
	first, err := Open(DriverSQLite, path, 0)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(DriverSQLite, path, 0)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestSelfFollowRejectedBySchema(t *testing.T) {
	database, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "social.db"), 1)
	require.NoError(t, err)
	defer database.Close()

	_, err = database.Exec(`INSERT INTO users (id, username, email, password_hash, created_at) VALUES ('u1', 'a', 'a@x', 'h', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO follows (follower_id, followee_id, created_at) VALUES ('u1', 'u1', CURRENT_TIMESTAMP)`)
	require.Error(t, err)
}

func TestSQLiteSource(t *testing.T) {
	require.Equal(t, "a.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", sqliteSource("a.db"))
	require.Equal(t, "file:a.db?mode=rwc&_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", sqliteSource("file:a.db?mode=rwc"))
}
