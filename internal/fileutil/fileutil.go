package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic replaces path with data by writing a temporary sibling and
// renaming it into place. The parent directory is created when missing.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// CopyFileVerified copies src to dst, then re-reads dst and compares its size
// and SHA-256 with what was read from src. dst is removed on mismatch. It
// returns the number of bytes copied.
func CopyFileVerified(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	srcHasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcHasher))
	if err != nil {
		_ = out.Close()
		return written, err
	}
	if err := out.Close(); err != nil {
		return written, err
	}
	if err := verifyCopy(dst, written, srcHasher.Sum(nil)); err != nil {
		_ = os.Remove(dst)
		return written, err
	}
	return written, nil
}

// verifyCopy hashes the file at path and checks it against the expected size
// and digest.
func verifyCopy(path string, size int64, sum []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reopen copy: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return fmt.Errorf("read copy: %w", err)
	}
	if n != size {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", size, n)
	}
	if !bytes.Equal(h.Sum(nil), sum) {
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}
