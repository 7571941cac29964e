package backup

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dbbackup/internal/logging"

	"github.com/klauspost/compress/gzip"
)

// ConfigArchiver snapshots auxiliary configuration directories into a
// single gzip tarball. The whole path is best-effort: missing directories
// are skipped with a warning and any failure is recoverable, never fatal
// to the overall job.
type ConfigArchiver struct {
	dirs      []string
	backupDir string
	logger    *logging.Logger
	now       func() time.Time
}

// NewConfigArchiver creates a config archiver over the given directories
func NewConfigArchiver(dirs []string, backupDir string, logger *logging.Logger) *ConfigArchiver {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &ConfigArchiver{
		dirs:      dirs,
		backupDir: backupDir,
		logger:    logger,
		now:       time.Now,
	}
}

// Archive produces config_<timestamp>.tar.gz in the backup directory
func (ca *ConfigArchiver) Archive(ctx context.Context) (*Artifact, error) {
	existing := make([]string, 0, len(ca.dirs))
	for _, dir := range ca.dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			ca.logger.Warn(fmt.Sprintf("Config directory %s does not exist, skipping", dir))
			continue
		}
		existing = append(existing, dir)
	}
	if len(existing) == 0 {
		return nil, NewConfigArchiveError("no configuration directories exist", nil)
	}

	createdAt := ca.now()
	finalPath := filepath.Join(ca.backupDir, fmt.Sprintf("config_%s.tar.gz", createdAt.Format(TimestampLayout)))
	partialPath := finalPath + partialSuffix

	file, err := os.Create(partialPath)
	if err != nil {
		return nil, NewConfigArchiveError(fmt.Sprintf("failed to create archive file %s", partialPath), err)
	}

	gzWriter := gzip.NewWriter(file)
	tarWriter := tar.NewWriter(gzWriter)

	var walkErr error
	for _, dir := range existing {
		if err := ctx.Err(); err != nil {
			walkErr = err
			break
		}
		if err := ca.addDirectory(tarWriter, dir); err != nil {
			walkErr = err
			break
		}
	}

	tarErr := tarWriter.Close()
	gzErr := gzWriter.Close()
	fileErr := file.Close()

	if walkErr != nil {
		ca.removeQuiet(partialPath)
		return nil, NewConfigArchiveError("failed to archive configuration directories", walkErr)
	}
	for _, err := range []error{tarErr, gzErr, fileErr} {
		if err != nil {
			ca.removeQuiet(partialPath)
			return nil, NewConfigArchiveError("failed to finalize config archive", err)
		}
	}

	if err := os.Rename(partialPath, finalPath); err != nil {
		ca.removeQuiet(partialPath)
		return nil, NewConfigArchiveError("failed to finalize config archive", err)
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, NewConfigArchiveError("failed to stat config archive", err)
	}

	ca.logger.Info(fmt.Sprintf("Config archive written: %s (%d dirs, %d bytes)", finalPath, len(existing), info.Size()))

	return &Artifact{
		Path:      finalPath,
		Kind:      EngineKindConfig,
		CreatedAt: createdAt,
		Size:      info.Size(),
	}, nil
}

// addDirectory writes one directory tree into the tarball. Entries are
// stored under the directory's path with the leading separator trimmed, so
// extraction recreates the original layout relative to the target root.
func (ca *ConfigArchiver) addDirectory(tarWriter *tar.Writer, dir string) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		// Regular files and directories only; sockets, devices and
		// symlink targets have no place in a config snapshot.
		if !info.Mode().IsRegular() && !info.IsDir() {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = strings.TrimPrefix(filepath.ToSlash(path), "/")
		if info.IsDir() {
			header.Name += "/"
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(tarWriter, file)
		return err
	})
}

func (ca *ConfigArchiver) removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		ca.logger.Warn(fmt.Sprintf("Failed to remove %s: %v", path, err))
	}
}
