package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrInsufficientSpace reports that the destination filesystem cannot hold a file.
var ErrInsufficientSpace = errors.New("insufficient disk space")

// spaceHeadroom is kept free beyond the announced size.
const spaceHeadroom = 16 << 20

// FreeBytes returns the bytes available to unprivileged users on the
// filesystem holding dir.
func FreeBytes(dir string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", dir, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// EnsureFreeSpace fails with ErrInsufficientSpace when dir cannot hold need
// bytes plus a small headroom. A non-positive need always succeeds.
func EnsureFreeSpace(dir string, need int64) error {
	if need <= 0 {
		return nil
	}
	free, err := FreeBytes(dir)
	if err != nil {
		return err
	}
	if uint64(need)+spaceHeadroom > free {
		return fmt.Errorf("%w: need %d bytes, %d available in %s", ErrInsufficientSpace, need, free, dir)
	}
	return nil
}

// WriteAtomic streams r into dst through a temporary file in the same
// directory and renames it into place once complete. When size is
// non-negative the free space is checked first and the byte count verified.
// Partial files are removed on failure.
func WriteAtomic(dst string, r io.Reader, size int64) (int64, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory %s: %w", dir, err)
	}
	if err := EnsureFreeSpace(dir, size); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	written, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return written, fmt.Errorf("write %s: %w", dst, err)
	}
	if size >= 0 && written != size {
		cleanup()
		return written, fmt.Errorf("write size mismatch: expected %d bytes, wrote %d bytes", size, written)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return written, fmt.Errorf("sync %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return written, fmt.Errorf("close %s: %w", dst, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return written, fmt.Errorf("chmod %s: %w", dst, err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return written, fmt.Errorf("rename into %s: %w", dst, err)
	}
	return written, nil
}

// FileSize returns the size of a regular file.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", path)
	}
	return info.Size(), nil
}
