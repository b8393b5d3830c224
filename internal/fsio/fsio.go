// Package fsio provides the atomic file primitives the control plane
// builds on: temp-file + rename writes, timestamped backups, and
// validated loads that fall back to the newest usable backup.
package fsio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/internal/logging"
)

// backupStampLayout renders UTC instants for backup filenames.
// Millisecond precision keeps rapid successive backups distinct, and the
// fixed width makes lexicographic order chronological.
const backupStampLayout = "2006-01-02T15:04:05.000Z07:00"

// WriteOptions control AtomicWrite.
type WriteOptions struct {
	// CreateDirs creates missing parent directories before writing.
	CreateDirs bool
	// Mode is the final file mode; 0 means 0644.
	Mode os.FileMode
}

// AtomicWrite writes data to path so that readers observe either the old
// content or the new content, never a partial file. The data lands in a
// temp file in the destination directory, is fsynced, then renamed over
// the destination. The temp file is removed on any failure.
func AtomicWrite(path string, data []byte, opts WriteOptions) error {
	dir := filepath.Dir(path)
	if opts.CreateDirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errdefs.Wrap(errdefs.KindWriteFailed, err, "create directories for %s", path)
		}
	}

	mode := opts.Mode
	if mode == 0 {
		mode = 0644
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return errdefs.Wrap(errdefs.KindWriteFailed, err, "create temp file for %s", path)
	}
	tmpPath := tmpFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return errdefs.Wrap(errdefs.KindWriteFailed, err, "write temp file for %s", path)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return errdefs.Wrap(errdefs.KindWriteFailed, err, "sync temp file for %s", path)
	}
	if err := tmpFile.Close(); err != nil {
		return errdefs.Wrap(errdefs.KindWriteFailed, err, "close temp file for %s", path)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return errdefs.Wrap(errdefs.KindWriteFailed, err, "chmod temp file for %s", path)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return errdefs.Wrap(errdefs.KindWriteFailed, err, "rename temp file over %s", path)
	}
	cleanup = false
	return nil
}

// CreateBackup copies path to a timestamped sibling before an overwrite,
// e.g. config.json to config.2026-01-02T15:04:05.000Z.json. It returns
// the backup path, or "" when there is nothing to back up.
func CreateBackup(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read %s for backup: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s for backup: %w", path, err)
	}

	backupPath := backupName(path, time.Now())
	if err := os.WriteFile(backupPath, data, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("write backup %s: %w", backupPath, err)
	}
	return backupPath, nil
}

// Validator rejects content that must not be returned by SafeLoad.
type Validator func(data []byte) error

// SafeLoad reads path and validates the content. When validation fails
// it walks the file's backups newest-first and returns the first one
// that validates, so callers recover the last good save after a
// corrupting write. Missing files report NOT_FOUND; a corrupt file with
// no usable backup reports CORRUPTED.
func SafeLoad(path string, validate Validator) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errdefs.NotFound("file not found: %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if validate == nil {
		return data, nil
	}
	vErr := validate(data)
	if vErr == nil {
		return data, nil
	}

	log := logging.WithComponent("fsio")
	for _, backup := range listBackups(path) {
		candidate, err := os.ReadFile(backup)
		if err != nil {
			continue
		}
		if err := validate(candidate); err != nil {
			continue
		}
		log.Warn().Str("path", path).Str("backup", backup).
			Msg("content failed validation, substituted latest backup")
		return candidate, nil
	}

	return nil, errdefs.Wrap(errdefs.KindCorrupted, vErr, "%s is corrupted and no usable backup exists", path)
}

// backupName derives the timestamped sibling name for path.
func backupName(path string, t time.Time) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	stamp := t.UTC().Format(backupStampLayout)
	return filepath.Join(filepath.Dir(path), base+"."+stamp+ext)
}

// listBackups returns path's backups sorted newest-first.
func listBackups(path string) []string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	dir := filepath.Dir(path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, base+".") || !strings.HasSuffix(name, ext) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, base+"."), ext)
		if _, err := time.Parse(backupStampLayout, stamp); err != nil {
			continue
		}
		backups = append(backups, filepath.Join(dir, name))
	}

	// Fixed-width stamps sort chronologically; reverse for newest-first.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups
}
