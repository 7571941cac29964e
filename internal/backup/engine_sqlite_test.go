package backup

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createSQLiteDatabase creates a small real database for snapshot tests
func createSQLiteDatabase(t *testing.T, path string) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (name) VALUES ('alice'), ('bob')`)
	require.NoError(t, err)
}

func newTestSQLiteEngine(t *testing.T, sourcePath string) (*SQLiteEngine, string) {
	t.Helper()
	backupDir := t.TempDir()
	engine := NewSQLiteEngine(&SQLiteConfig{Path: sourcePath}, backupDir, nil)
	engine.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC)
	}
	return engine, backupDir
}

func TestSQLiteEngine_Kind(t *testing.T) {
	engine, _ := newTestSQLiteEngine(t, "/tmp/app.db")
	assert.Equal(t, EngineKindSQLite, engine.Kind())
}

func TestSQLiteEngine_Dump_Success(t *testing.T) {
	sourcePath := filepath.Join(t.TempDir(), "app.db")
	createSQLiteDatabase(t, sourcePath)
	engine, backupDir := newTestSQLiteEngine(t, sourcePath)

	artifact, err := engine.Dump(context.Background())
	require.NoError(t, err)
	require.NotNil(t, artifact)

	assert.Equal(t, EngineKindSQLite, artifact.Kind)
	assert.Equal(t, "sqlite_20250601_123045.db.gz", artifact.Basename())
	assert.Greater(t, artifact.Size, int64(0))

	// The decompressed snapshot is a SQLite database image
	file, err := os.Open(artifact.Path)
	require.NoError(t, err)
	defer file.Close()
	reader, err := gzip.NewReader(file)
	require.NoError(t, err)
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.True(t, len(content) >= 16)
	assert.Equal(t, "SQLite format 3\x00", string(content[:16]))

	// Snapshot temp file and partial file are both gone
	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSQLiteEngine_Dump_PathNotConfigured(t *testing.T) {
	engine, _ := newTestSQLiteEngine(t, "")

	_, err := engine.Dump(context.Background())
	require.Error(t, err)
	assert.Equal(t, BackupErrorTypeConfiguration, ErrorClass(err))
}

func TestSQLiteEngine_Dump_SourceMissing(t *testing.T) {
	engine, _ := newTestSQLiteEngine(t, filepath.Join(t.TempDir(), "missing.db"))

	_, err := engine.Dump(context.Background())
	require.Error(t, err)
	assert.Equal(t, BackupErrorTypeSourceNotFound, ErrorClass(err))
}

func TestSQLiteEngine_Dump_ConnectFailure(t *testing.T) {
	sourcePath := filepath.Join(t.TempDir(), "app.db")
	require.NoError(t, os.WriteFile(sourcePath, []byte("placeholder"), 0o644))
	engine, backupDir := newTestSQLiteEngine(t, sourcePath)

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	engine.openDB = func(path string) (*sql.DB, error) {
		return db, nil
	}

	mock.ExpectPing().WillReturnError(errors.New("database is locked"))

	_, err = engine.Dump(context.Background())
	require.Error(t, err)
	assert.Equal(t, BackupErrorTypeEngineUnavailable, ErrorClass(err))
	assert.NoError(t, mock.ExpectationsWereMet())

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLiteEngine_Dump_VacuumFailure(t *testing.T) {
	sourcePath := filepath.Join(t.TempDir(), "app.db")
	require.NoError(t, os.WriteFile(sourcePath, []byte("placeholder"), 0o644))
	engine, backupDir := newTestSQLiteEngine(t, sourcePath)

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	engine.openDB = func(path string) (*sql.DB, error) {
		return db, nil
	}

	mock.ExpectPing()
	mock.ExpectExec(regexp.QuoteMeta("VACUUM INTO ?")).
		WillReturnError(errors.New("disk I/O error"))

	_, err = engine.Dump(context.Background())
	require.Error(t, err)
	assert.Equal(t, BackupErrorTypeEngineUnavailable, ErrorClass(err))
	assert.NoError(t, mock.ExpectationsWereMet())

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLiteEngine_Dump_OpenFailure(t *testing.T) {
	sourcePath := filepath.Join(t.TempDir(), "app.db")
	require.NoError(t, os.WriteFile(sourcePath, []byte("placeholder"), 0o644))
	engine, _ := newTestSQLiteEngine(t, sourcePath)

	engine.openDB = func(path string) (*sql.DB, error) {
		return nil, errors.New("driver unavailable")
	}

	_, err := engine.Dump(context.Background())
	require.Error(t, err)
	assert.Equal(t, BackupErrorTypeEngineUnavailable, ErrorClass(err))
}
