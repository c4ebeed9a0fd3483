// Package seed copies configured files from the canonical worktree into a
// freshly created worktree.
//
// Files are copied one at a time, in the order they are listed, to the same
// relative path in the destination. The first failure stops the copy; files
// already written stay where they are.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/shinji-kodama/vaihde/internal/model"
)

// Seeder copies files between worktrees.
type Seeder struct {
	logger *zap.Logger
}

// NewSeeder creates a Seeder. A nil logger disables logging.
func NewSeeder(logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{logger: logger}
}

// Seed copies every entry of files from canonical into dest.
//
// Entries are paths relative to both roots. A directory entry is copied
// recursively. Existing destination files are overwritten and the source
// permission bits are kept.
//
// Errors are *model.Error values naming the relative path that failed:
// CopySourceMissing when the entry does not exist in canonical,
// CopyWriteFailed when it cannot be read from canonical or written to dest.
func (s *Seeder) Seed(ctx context.Context, canonical, dest string, files []string) error {
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		src := filepath.Join(canonical, rel)
		info, err := os.Stat(src)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return model.PathError(model.KindCopySourceMissing, rel,
					fmt.Sprintf("copy source %s does not exist in %s", rel, canonical), nil)
			}
			return model.PathError(model.KindCopyWriteFailed, rel,
				fmt.Sprintf("cannot access copy source %s", rel), err)
		}

		dst := filepath.Join(dest, rel)
		if info.IsDir() {
			err = copyDir(src, dst)
		} else {
			err = copyFile(src, dst, info.Mode())
		}
		if err != nil {
			return model.PathError(model.KindCopyWriteFailed, rel,
				fmt.Sprintf("failed to copy %s", rel), err)
		}

		s.logger.Debug("copied", zap.String("path", rel), zap.String("dest", dst))
	}
	return nil
}

// copyDir copies the tree rooted at src to dst. Symbolic links inside the
// tree are skipped.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("error walking %s: %w", path, walkErr)
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		target := filepath.Join(dst, relPath)

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := os.MkdirAll(target, info.Mode().Perm()|0o700); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(path, target, info.Mode())
	})
}

// copyFile copies a single file, creating parent directories of dst and
// applying the permission bits of mode even when dst already exists.
// An existing symlink at dst is removed first, so the link target is left alone.
func copyFile(src, dst string, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(dst), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer in.Close()

	// A symlink at dst is replaced, never written through.
	if info, err := os.Lstat(dst); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("failed to replace symlink %s: %w", dst, err)
		}
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}

	// OpenFile only applies mode on creation and is subject to the umask.
	if err := os.Chmod(dst, mode.Perm()); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", dst, err)
	}
	return nil
}
