package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dbbackup/internal/logging"

	"github.com/klauspost/compress/gzip"
)

// Engine produces a single compressed backup artifact for one database
// engine. Implementations write exactly one file on success and leave
// nothing (or a non-terminal partial file) behind on failure.
type Engine interface {
	Kind() EngineKind
	Dump(ctx context.Context) (*Artifact, error)
}

// partialSuffix marks files still being written. A partial file never
// carries a terminal artifact suffix, so retention and health checks
// ignore it.
const partialSuffix = ".partial"

// PostgresEngine backs up a PostgreSQL database by streaming pg_dump
// output through a gzip compressor. The dump is never buffered fully in
// memory, so memory usage is bounded independent of database size.
type PostgresEngine struct {
	config    *PostgresConfig
	backupDir string
	runner    ProcessRunner
	logger    *logging.Logger
	now       func() time.Time
}

// NewPostgresEngine creates a PostgreSQL engine adapter
func NewPostgresEngine(config *PostgresConfig, backupDir string, runner ProcessRunner, logger *logging.Logger) *PostgresEngine {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &PostgresEngine{
		config:    config,
		backupDir: backupDir,
		runner:    runner,
		logger:    logger,
		now:       time.Now,
	}
}

// Kind returns the engine kind
func (pe *PostgresEngine) Kind() EngineKind {
	return EngineKindPostgres
}

// Dump produces postgres_<db>_<timestamp>.sql.gz in the backup directory.
// The dump is requested self-contained and re-creatable: drop-if-exists
// plus create statements are included so a restore needs no prior state.
func (pe *PostgresEngine) Dump(ctx context.Context) (*Artifact, error) {
	if !pe.config.HasCredentials() {
		return nil, NewConfigurationError("postgres connection parameters are incomplete (host, database and username are required)", nil)
	}

	if _, err := pe.runner.LookPath("pg_dump"); err != nil {
		return nil, NewEngineUnavailableError("pg_dump not found on PATH", err)
	}

	createdAt := pe.now()
	filename := fmt.Sprintf("postgres_%s_%s.sql.gz", pe.config.Database, createdAt.Format(TimestampLayout))
	finalPath := filepath.Join(pe.backupDir, filename)
	partialPath := finalPath + partialSuffix

	pe.logger.Info(fmt.Sprintf("Starting PostgreSQL backup: %s@%s:%d/%s", pe.config.Username, pe.config.Host, pe.config.Port, pe.config.Database))

	file, err := os.Create(partialPath)
	if err != nil {
		return nil, NewCompressionError(fmt.Sprintf("failed to create backup file %s", partialPath), err)
	}

	gzWriter := gzip.NewWriter(file)
	var stderr bytes.Buffer

	cmd := Command{
		Name: "pg_dump",
		Args: []string{
			"--host", pe.config.Host,
			"--port", strconv.Itoa(pe.config.Port),
			"--username", pe.config.Username,
			"--no-password",
			"--clean",
			"--if-exists",
			"--create",
			"--dbname", pe.config.Database,
		},
		Env:    []string{"PGPASSWORD=" + pe.config.Password},
		Stdout: gzWriter,
		Stderr: &stderr,
	}

	runErr := pe.runner.Run(ctx, cmd)
	closeErr := gzWriter.Close()
	fileErr := file.Close()

	if runErr != nil {
		pe.discardPartial(partialPath)
		return nil, pe.classifyDumpError(runErr, stderr.String())
	}
	if closeErr != nil {
		pe.discardPartial(partialPath)
		return nil, NewCompressionError("failed to finalize gzip stream", closeErr)
	}
	if fileErr != nil {
		pe.discardPartial(partialPath)
		return nil, NewCompressionError("failed to close backup file", fileErr)
	}

	if err := os.Rename(partialPath, finalPath); err != nil {
		pe.discardPartial(partialPath)
		return nil, NewCompressionError("failed to finalize backup file", err)
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, NewCompressionError("failed to stat backup file", err)
	}

	pe.logger.Info(fmt.Sprintf("PostgreSQL backup written: %s (%d bytes)", finalPath, info.Size()))

	return &Artifact{
		Path:      finalPath,
		Kind:      EngineKindPostgres,
		CreatedAt: createdAt,
		Size:      info.Size(),
	}, nil
}

// discardPartial removes a half-written backup file. Failure to remove is
// tolerable: the partial suffix keeps the file out of every artifact scan.
func (pe *PostgresEngine) discardPartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		pe.logger.Warn(fmt.Sprintf("Failed to remove partial backup file %s: %v", path, err))
	}
}

// classifyDumpError maps a pg_dump failure onto the error taxonomy using
// the captured stderr output.
func (pe *PostgresEngine) classifyDumpError(err error, stderr string) *BackupError {
	lowered := strings.ToLower(stderr)

	if errors.Is(err, exec.ErrNotFound) {
		return NewEngineUnavailableError("pg_dump not found", err)
	}
	if strings.Contains(lowered, "password authentication failed") ||
		strings.Contains(lowered, "authentication failed") ||
		strings.Contains(lowered, "no password supplied") ||
		strings.Contains(lowered, "permission denied") {
		return NewAuthenticationError("postgres authentication failed", err).WithContext("stderr", firstLine(stderr))
	}

	return NewEngineUnavailableError("pg_dump failed", err).WithContext("stderr", firstLine(stderr))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
