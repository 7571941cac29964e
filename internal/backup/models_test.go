package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperation(t *testing.T) {
	tests := []struct {
		input    string
		expected Operation
		wantErr  bool
	}{
		{"postgres", OperationPostgres, false},
		{"sqlite", OperationSQLite, false},
		{"config", OperationConfig, false},
		{"health-check", OperationHealthCheck, false},
		{"all", OperationAll, false},
		{"", "", true},
		{"mysql", "", true},
		{"ALL", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			op, err := ParseOperation(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, BackupErrorTypeConfiguration, ErrorClass(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, op)
		})
	}
}

func TestIsCompleteArtifact(t *testing.T) {
	tests := []struct {
		name     string
		complete bool
	}{
		{"postgres_app_20250101_120000.sql.gz", true},
		{"sqlite_20250101_120000.db.gz", true},
		{"config_20250101_120000.tar.gz", true},
		{"postgres_app_20250101_120000.sql.gz.partial", false},
		{"sqlite_20250101_120000.db.gz.corrupt", false},
		{".sqlite_snapshot_20250101_120000", false},
		{"notes.txt", false},
		{"backup.sql", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.complete, IsCompleteArtifact(tt.name))
		})
	}
}

func TestTimestampLayout_OrdersLexicographically(t *testing.T) {
	earlier := time.Date(2025, 1, 9, 23, 59, 59, 0, time.UTC)
	later := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	assert.Less(t, earlier.Format(TimestampLayout), later.Format(TimestampLayout))
}

func TestArtifact_Basename(t *testing.T) {
	artifact := &Artifact{Path: "/backups/sqlite_20250101_120000.db.gz"}
	assert.Equal(t, "sqlite_20250101_120000.db.gz", artifact.Basename())
}

func TestNewJobResult(t *testing.T) {
	result := NewJobResult(OperationAll)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, OperationAll, result.Operation)
	assert.False(t, result.StartedAt.IsZero())
	assert.Empty(t, result.Warnings)

	other := NewJobResult(OperationAll)
	assert.NotEqual(t, result.ID, other.ID)
}

func TestJobResult_AddWarning(t *testing.T) {
	result := NewJobResult(OperationPostgres)
	result.AddWarning("upload of %s failed: %v", "a.sql.gz", "timeout")

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "upload of a.sql.gz failed: timeout", result.Warnings[0])
}

func TestHealthStatus_Healthy(t *testing.T) {
	assert.True(t, (&HealthStatus{State: HealthStateOK}).Healthy())
	assert.False(t, (&HealthStatus{State: HealthStateNoBackupFound}).Healthy())
	assert.False(t, (&HealthStatus{State: HealthStateBackupStale}).Healthy())
}
