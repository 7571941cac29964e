package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dbbackup/internal/logging"
)

// RetentionResult reports the outcome of a retention sweep
type RetentionResult struct {
	Scanned        int           `json:"scanned"`
	Deleted        int           `json:"deleted"`
	BytesReclaimed int64         `json:"bytes_reclaimed"`
	Errors         []string      `json:"errors,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
	DryRun         bool          `json:"dry_run"`
}

// RetentionManager deletes compressed artifacts older than the configured
// retention age. Only files carrying a terminal artifact suffix are ever
// touched, so a backup that is mid-write (partial suffix) cannot be
// deleted out from under its writer. The sweep is idempotent: a second run
// with no new artifacts deletes nothing.
type RetentionManager struct {
	backupDir     string
	retentionDays int
	logger        *logging.Logger
	now           func() time.Time
}

// NewRetentionManager creates a retention manager for the backup directory
func NewRetentionManager(backupDir string, retentionDays int, logger *logging.Logger) *RetentionManager {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &RetentionManager{
		backupDir:     backupDir,
		retentionDays: retentionDays,
		logger:        logger,
		now:           time.Now,
	}
}

// Cleanup enumerates the backup directory and deletes every completed
// artifact whose modification time is older than now - retention_days.
// Per-file delete failures are collected and surfaced as a recoverable
// RETENTION_ERROR alongside the (still meaningful) result.
func (rm *RetentionManager) Cleanup(ctx context.Context, dryRun bool) (*RetentionResult, error) {
	start := rm.now()
	cutoff := start.AddDate(0, 0, -rm.retentionDays)
	result := &RetentionResult{DryRun: dryRun}

	rm.logger.Info(fmt.Sprintf("Applying retention policy: deleting artifacts older than %d days (dry run: %v)", rm.retentionDays, dryRun))

	entries, err := os.ReadDir(rm.backupDir)
	if err != nil {
		return result, NewRetentionError(fmt.Sprintf("failed to read backup directory %s", rm.backupDir), err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, NewRetentionError("retention sweep cancelled", err)
		}
		if entry.IsDir() || !IsCompleteArtifact(entry.Name()) {
			continue
		}
		result.Scanned++

		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("stat %s: %v", entry.Name(), err))
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(rm.backupDir, entry.Name())
		if dryRun {
			rm.logger.Info(fmt.Sprintf("Would delete expired artifact: %s (age %s)", entry.Name(), start.Sub(info.ModTime()).Round(time.Hour)))
			result.Deleted++
			result.BytesReclaimed += info.Size()
			continue
		}

		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", entry.Name(), err))
			rm.logger.Error(fmt.Sprintf("Failed to delete expired artifact %s: %v", path, err))
			continue
		}

		result.Deleted++
		result.BytesReclaimed += info.Size()
		rm.logger.Info(fmt.Sprintf("Deleted expired artifact: %s (%d bytes, created %s)", entry.Name(), info.Size(), info.ModTime().Format(time.RFC3339)))
	}

	result.ProcessingTime = time.Since(start)
	rm.logger.Info(fmt.Sprintf("Retention sweep complete: %d scanned, %d deleted, %d bytes reclaimed", result.Scanned, result.Deleted, result.BytesReclaimed))

	if len(result.Errors) > 0 {
		return result, NewRetentionError(fmt.Sprintf("retention sweep completed with %d failed deletions", len(result.Errors)), nil)
	}
	return result, nil
}
