package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"dbbackup/internal/logging"

	"github.com/klauspost/compress/gzip"
	_ "modernc.org/sqlite"
)

// SQLiteEngine backs up a SQLite database file. It performs a consistent
// online snapshot with VACUUM INTO instead of a raw file copy, so a
// concurrent writer cannot leave a torn page in the backup image.
type SQLiteEngine struct {
	config    *SQLiteConfig
	backupDir string
	logger    *logging.Logger
	now       func() time.Time

	// openDB is swappable for tests (go-sqlmock)
	openDB func(path string) (*sql.DB, error)
}

// NewSQLiteEngine creates a SQLite engine adapter
func NewSQLiteEngine(config *SQLiteConfig, backupDir string, logger *logging.Logger) *SQLiteEngine {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SQLiteEngine{
		config:    config,
		backupDir: backupDir,
		logger:    logger,
		now:       time.Now,
		openDB: func(path string) (*sql.DB, error) {
			return sql.Open("sqlite", "file:"+path+"?mode=ro")
		},
	}
}

// Kind returns the engine kind
func (se *SQLiteEngine) Kind() EngineKind {
	return EngineKindSQLite
}

// Dump produces sqlite_<timestamp>.db.gz in the backup directory
func (se *SQLiteEngine) Dump(ctx context.Context) (*Artifact, error) {
	if se.config.Path == "" {
		return nil, NewConfigurationError("sqlite database path is not configured", nil)
	}
	if _, err := os.Stat(se.config.Path); err != nil {
		return nil, NewSourceNotFoundError(fmt.Sprintf("sqlite database %s does not exist", se.config.Path), err)
	}

	createdAt := se.now()
	timestamp := createdAt.Format(TimestampLayout)
	finalPath := filepath.Join(se.backupDir, fmt.Sprintf("sqlite_%s.db.gz", timestamp))
	partialPath := finalPath + partialSuffix
	snapshotPath := filepath.Join(se.backupDir, fmt.Sprintf(".sqlite_snapshot_%s", timestamp))

	se.logger.Info(fmt.Sprintf("Starting SQLite backup: %s", se.config.Path))

	if err := se.snapshot(ctx, snapshotPath); err != nil {
		return nil, err
	}
	defer se.removeQuiet(snapshotPath)

	if err := se.compressSnapshot(snapshotPath, partialPath); err != nil {
		se.removeQuiet(partialPath)
		return nil, err
	}

	if err := os.Rename(partialPath, finalPath); err != nil {
		se.removeQuiet(partialPath)
		return nil, NewCompressionError("failed to finalize backup file", err)
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, NewCompressionError("failed to stat backup file", err)
	}

	se.logger.Info(fmt.Sprintf("SQLite backup written: %s (%d bytes)", finalPath, info.Size()))

	return &Artifact{
		Path:      finalPath,
		Kind:      EngineKindSQLite,
		CreatedAt: createdAt,
		Size:      info.Size(),
	}, nil
}

// snapshot writes a consistent copy of the source database to snapshotPath
func (se *SQLiteEngine) snapshot(ctx context.Context, snapshotPath string) error {
	db, err := se.openDB(se.config.Path)
	if err != nil {
		return NewEngineUnavailableError("failed to open sqlite database", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return NewEngineUnavailableError("failed to connect to sqlite database", err)
	}

	// VACUUM INTO refuses to overwrite an existing target
	se.removeQuiet(snapshotPath)

	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", snapshotPath); err != nil {
		se.removeQuiet(snapshotPath)
		return NewEngineUnavailableError("sqlite online backup failed", err)
	}
	return nil
}

// compressSnapshot streams the snapshot through gzip into partialPath
func (se *SQLiteEngine) compressSnapshot(snapshotPath, partialPath string) error {
	source, err := os.Open(snapshotPath)
	if err != nil {
		return NewCompressionError("failed to open sqlite snapshot", err)
	}
	defer source.Close()

	target, err := os.Create(partialPath)
	if err != nil {
		return NewCompressionError(fmt.Sprintf("failed to create backup file %s", partialPath), err)
	}

	gzWriter := gzip.NewWriter(target)
	_, copyErr := io.Copy(gzWriter, source)
	closeErr := gzWriter.Close()
	fileErr := target.Close()

	if copyErr != nil {
		return NewCompressionError("failed to compress sqlite snapshot", copyErr)
	}
	if closeErr != nil {
		return NewCompressionError("failed to finalize gzip stream", closeErr)
	}
	if fileErr != nil {
		return NewCompressionError("failed to close backup file", fileErr)
	}
	return nil
}

func (se *SQLiteEngine) removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		se.logger.Warn(fmt.Sprintf("Failed to remove %s: %v", path, err))
	}
}
