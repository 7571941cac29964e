package backup

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is embedded in every artifact filename. Lexicographic
// order of the encoded timestamp matches chronological order, so "latest"
// and "older than N days" are total orderings over the artifact set.
const TimestampLayout = "20060102_150405"

// EngineKind identifies what produced an artifact
type EngineKind string

const (
	EngineKindPostgres EngineKind = "postgres"
	EngineKindSQLite   EngineKind = "sqlite"
	EngineKindConfig   EngineKind = "config"
)

// Operation is the requested top-level operation
type Operation string

const (
	OperationPostgres    Operation = "postgres"
	OperationSQLite      Operation = "sqlite"
	OperationConfig      Operation = "config"
	OperationHealthCheck Operation = "health-check"
	OperationAll         Operation = "all"
)

// ParseOperation validates a CLI operation argument
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OperationPostgres, OperationSQLite, OperationConfig, OperationHealthCheck, OperationAll:
		return Operation(s), nil
	}
	return "", NewConfigurationError(fmt.Sprintf("unknown operation %q (expected postgres, sqlite, config, health-check or all)", s), nil)
}

// Artifact represents a single compressed backup file in the backup
// directory. Artifacts are write-once: no component mutates one after
// creation, and only the retention manager deletes them.
type Artifact struct {
	Path      string     `json:"path"`
	Kind      EngineKind `json:"kind"`
	CreatedAt time.Time  `json:"created_at"`
	Size      int64      `json:"size"`
	Verified  bool       `json:"verified"`
}

// Basename returns the artifact filename, which doubles as the remote
// object key on upload.
func (a *Artifact) Basename() string {
	return filepath.Base(a.Path)
}

// completeSuffixes are the terminal artifact extensions. Files without one
// of these suffixes are considered mid-write and are never deleted or
// reported by any component.
var completeSuffixes = []string{".sql.gz", ".db.gz", ".tar.gz"}

// IsCompleteArtifact reports whether a filename carries a terminal
// compressed-artifact suffix.
func IsCompleteArtifact(name string) bool {
	for _, suffix := range completeSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// StepStatus captures the outcome of one pipeline stage
type StepStatus struct {
	Name     string        `json:"name"`
	Success  bool          `json:"success"`
	Skipped  bool          `json:"skipped,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// JobResult is the ephemeral, per-invocation outcome of an operation.
// It is logged, never persisted.
type JobResult struct {
	ID         string          `json:"id"`
	Operation  Operation       `json:"operation"`
	Success    bool            `json:"success"`
	ErrorClass BackupErrorType `json:"error_class,omitempty"`
	Steps      []StepStatus    `json:"steps"`
	Artifacts  []*Artifact     `json:"artifacts"`
	Warnings   []string        `json:"warnings,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	Elapsed    time.Duration   `json:"elapsed"`
}

// NewJobResult creates a JobResult for an operation with a fresh job ID
func NewJobResult(op Operation) *JobResult {
	return &JobResult{
		ID:        uuid.New().String(),
		Operation: op,
		StartedAt: time.Now(),
	}
}

// AddWarning records a recoverable failure on the job
func (jr *JobResult) AddWarning(format string, args ...interface{}) {
	jr.Warnings = append(jr.Warnings, fmt.Sprintf(format, args...))
}

// HealthState is the outcome class of a health check
type HealthState string

const (
	HealthStateOK            HealthState = "ok"
	HealthStateNoBackupFound HealthState = "no_backup_found"
	HealthStateBackupStale   HealthState = "backup_stale"
)

// HealthStatus is computed on demand from the newest artifact's age.
// It is never stored.
type HealthStatus struct {
	State          HealthState   `json:"state"`
	NewestArtifact string        `json:"newest_artifact,omitempty"`
	Age            time.Duration `json:"age,omitempty"`
	MaxAge         time.Duration `json:"max_age"`
	CheckedAt      time.Time     `json:"checked_at"`
}

// Healthy reports whether the backup directory is fresh
func (hs *HealthStatus) Healthy() bool {
	return hs.State == HealthStateOK
}
