package backup

import (
	"fmt"
	"os"
	"time"

	"dbbackup/internal/logging"
)

// HealthChecker confirms backups are being produced on schedule by
// inspecting the backup directory. It performs no mutation and is safe to
// run frequently, e.g. from a monitoring probe.
type HealthChecker struct {
	backupDir string
	maxAge    time.Duration
	logger    *logging.Logger
	now       func() time.Time
}

// NewHealthChecker creates a health checker for the backup directory
func NewHealthChecker(backupDir string, maxAge time.Duration, logger *logging.Logger) *HealthChecker {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &HealthChecker{
		backupDir: backupDir,
		maxAge:    maxAge,
		logger:    logger,
		now:       time.Now,
	}
}

// Check reports the freshness of the newest completed artifact. No
// artifact at all means NoBackupFound; an artifact older than the
// freshness threshold means BackupStale.
func (hc *HealthChecker) Check() (*HealthStatus, error) {
	status := &HealthStatus{
		MaxAge:    hc.maxAge,
		CheckedAt: hc.now(),
	}

	entries, err := os.ReadDir(hc.backupDir)
	if err != nil {
		status.State = HealthStateNoBackupFound
		return status, fmt.Errorf("failed to read backup directory %s: %w", hc.backupDir, err)
	}

	var newestName string
	var newestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() || !IsCompleteArtifact(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newestName == "" || info.ModTime().After(newestTime) {
			newestName = entry.Name()
			newestTime = info.ModTime()
		}
	}

	if newestName == "" {
		status.State = HealthStateNoBackupFound
		hc.logger.Error(fmt.Sprintf("Health check failed: no backup artifacts in %s", hc.backupDir))
		return status, nil
	}

	status.NewestArtifact = newestName
	status.Age = status.CheckedAt.Sub(newestTime)

	if status.Age > hc.maxAge {
		status.State = HealthStateBackupStale
		hc.logger.Error(fmt.Sprintf("Health check failed: newest artifact %s is %s old (max %s)", newestName, status.Age.Round(time.Minute), hc.maxAge))
		return status, nil
	}

	status.State = HealthStateOK
	hc.logger.Info(fmt.Sprintf("Health check passed: newest artifact %s is %s old", newestName, status.Age.Round(time.Minute)))
	return status, nil
}
