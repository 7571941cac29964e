package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGzipFile(t *testing.T, path, content string) {
	t.Helper()

	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	_, err := writer.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestIntegrityVerifier_Verify_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postgres_app_20250601_123045.sql.gz")
	writeGzipFile(t, path, "CREATE TABLE users (id int);\n")

	artifact := &Artifact{Path: path, Kind: EngineKindPostgres}
	verifier := NewIntegrityVerifier(nil)

	result, err := verifier.Verify(artifact)
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Greater(t, result.Size, int64(0))
	assert.True(t, artifact.Verified)
	assert.Equal(t, result.Size, artifact.Size)
	assert.FileExists(t, path)
}

func TestIntegrityVerifier_Verify_Truncated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sqlite_20250601_123045.db.gz")
	writeGzipFile(t, path, "SQLite format 3\x00 and lots of pages")

	// Cut off the gzip trailer so the CRC check cannot pass
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, content[:len(content)-6], 0o644))

	artifact := &Artifact{Path: path, Kind: EngineKindSQLite}
	verifier := NewIntegrityVerifier(nil)

	result, err := verifier.Verify(artifact)
	require.Error(t, err)
	assert.Equal(t, BackupErrorTypeIntegrity, ErrorClass(err))
	assert.False(t, result.Valid)
	assert.False(t, artifact.Verified)

	// Corrupt artifact is quarantined, not deleted
	assert.NoFileExists(t, path)
	assert.FileExists(t, path+".corrupt")
	assert.Equal(t, path+".corrupt", artifact.Path)
}

func TestIntegrityVerifier_Verify_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config_20250601_123045.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("this is not a gzip stream"), 0o644))

	artifact := &Artifact{Path: path, Kind: EngineKindConfig}
	verifier := NewIntegrityVerifier(nil)

	_, err := verifier.Verify(artifact)
	require.Error(t, err)
	assert.Equal(t, BackupErrorTypeIntegrity, ErrorClass(err))
	assert.FileExists(t, path+".corrupt")
}

func TestIntegrityVerifier_Verify_Missing(t *testing.T) {
	artifact := &Artifact{Path: filepath.Join(t.TempDir(), "missing.sql.gz")}
	verifier := NewIntegrityVerifier(nil)

	_, err := verifier.Verify(artifact)
	require.Error(t, err)
	assert.Equal(t, BackupErrorTypeIntegrity, ErrorClass(err))
}

func TestIntegrityVerifier_QuarantinedFileIsNotAnArtifact(t *testing.T) {
	assert.False(t, IsCompleteArtifact("sqlite_20250601_123045.db.gz.corrupt"))
}
