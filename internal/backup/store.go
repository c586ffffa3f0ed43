// Package backup manages point-in-time copies of the application data store:
// pre-deploy backups (consumed by rollback, cleaned by retention) and
// pre-rollback safety snapshots (append-only, never cleaned).
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yukyudata/deployops/internal/model"
)

const (
	backupPrefix   = "yukyudata_backup_"
	snapshotPrefix = "pre_rollback_"
	tsLayout       = "20060102_150405"
)

// ErrNoBackup is returned when rollback is requested but no backup artifact
// exists. The caller must treat this as fatal before any mutation.
var ErrNoBackup = fmt.Errorf("no backup artifact found")

// Store creates, resolves, restores, and prunes backup artifacts under a
// single backups directory.
type Store struct {
	dir     string
	livePth string
}

func NewStore(backupDir, liveDatabasePath string) *Store {
	return &Store{dir: backupDir, livePth: liveDatabasePath}
}

// Create copies the live data store to a timestamp-suffixed pre-deploy backup.
func (s *Store) Create(ctx context.Context, deploymentID string) (*model.BackupArtifact, error) {
	name := backupPrefix + time.Now().UTC().Format(tsLayout) + ".db"
	return s.copyLive(name, deploymentID, model.BackupKindPreDeploy)
}

// Snapshot copies the live data store to a pre-rollback safety snapshot.
// Snapshots are never auto-deleted.
func (s *Store) Snapshot(ctx context.Context, deploymentID string) (*model.BackupArtifact, error) {
	name := snapshotPrefix + time.Now().UTC().Format(tsLayout) + ".db"
	return s.copyLive(name, deploymentID, model.BackupKindPreRollback)
}

// ResolveLatest returns the most recent pre-deploy backup by mtime.
// Snapshots are not candidates. Returns ErrNoBackup when none exist.
func (s *Store) ResolveLatest(ctx context.Context) (*model.BackupArtifact, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, ErrNoBackup
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir %s: %w", s.dir, err)
	}

	var latest *model.BackupArtifact
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest == nil || info.ModTime().After(latest.CreatedAt) {
			latest = &model.BackupArtifact{
				Path:      filepath.Join(s.dir, e.Name()),
				Kind:      model.BackupKindPreDeploy,
				SizeBytes: info.Size(),
				CreatedAt: info.ModTime(),
			}
		}
	}
	if latest == nil {
		return nil, ErrNoBackup
	}
	return latest, nil
}

// Resolve returns the artifact at an exact recorded path, or ErrNoBackup if
// it no longer exists.
func (s *Store) Resolve(ctx context.Context, path string) (*model.BackupArtifact, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, ErrNoBackup
	}
	if err != nil {
		return nil, fmt.Errorf("stat backup %s: %w", path, err)
	}
	return &model.BackupArtifact{
		Path:      path,
		Kind:      model.BackupKindPreDeploy,
		SizeBytes: info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// Restore copies an artifact over the live data store. The write goes to a
// temp file next to the live store and is committed by rename, so a partial
// copy never replaces live data.
func (s *Store) Restore(ctx context.Context, artifactPath string) error {
	src, err := os.Open(artifactPath)
	if os.IsNotExist(err) {
		return ErrNoBackup
	}
	if err != nil {
		return fmt.Errorf("open backup %s: %w", artifactPath, err)
	}
	defer src.Close()

	dir := filepath.Dir(s.livePth)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".restore-*")
	if err != nil {
		return fmt.Errorf("create restore temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("copy backup into place: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync restored data store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close restored data store: %w", err)
	}

	if err := os.Rename(tmpName, s.livePth); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit restored data store: %w", err)
	}
	return nil
}

// Cleanup deletes pre-deploy backups older than the retention window and
// returns how many were removed. Pre-rollback snapshots are always kept.
func (s *Store) Cleanup(ctx context.Context, retentionDays int) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read backup dir %s: %w", s.dir, err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
				return removed, fmt.Errorf("remove expired backup %s: %w", e.Name(), err)
			}
			removed++
		}
	}
	return removed, nil
}

func (s *Store) copyLive(name, deploymentID, kind string) (*model.BackupArtifact, error) {
	src, err := os.Open(s.livePth)
	if err != nil {
		return nil, fmt.Errorf("open live data store %s: %w", s.livePth, err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir %s: %w", s.dir, err)
	}

	dst := filepath.Join(s.dir, name)
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create backup %s: %w", dst, err)
	}

	n, err := io.Copy(out, src)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return nil, fmt.Errorf("write backup %s: %w", dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return nil, fmt.Errorf("sync backup %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("close backup %s: %w", dst, err)
	}

	return &model.BackupArtifact{
		Path:         dst,
		DeploymentID: deploymentID,
		Kind:         kind,
		SizeBytes:    n,
		CreatedAt:    time.Now(),
	}, nil
}
