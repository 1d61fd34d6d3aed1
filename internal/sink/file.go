package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const (
	defaultFilePerm = 0o644
	defaultDirPerm  = 0o755
)

// FileSink writes the document to a local file.
type FileSink struct {
	path string
}

// NewFileSink returns a sink for path. Missing parent directories are
// created on write.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Location returns the file path.
func (s *FileSink) Location() string {
	return s.path
}

// Write replaces the file with data. Readers never observe a partially
// written file.
func (s *FileSink) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), defaultDirPerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return writeAtomic(s.path, data)
}

// writeAtomic writes to a temp file in the target directory and renames it
// over dest.
func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(defaultFilePerm); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// DirMirror writes the document into an existing directory. It never
// creates the directory: a missing directory means the mirror (e.g. a
// mounted drive) is not there.
type DirMirror struct {
	dir  string
	file *FileSink
}

// NewDirMirror returns a mirror writing dir/name.
func NewDirMirror(dir, name string) *DirMirror {
	return &DirMirror{
		dir:  dir,
		file: NewFileSink(filepath.Join(dir, name)),
	}
}

// Location returns the mirrored file path.
func (m *DirMirror) Location() string {
	return m.file.Location()
}

// Available reports whether the mirror directory exists.
func (m *DirMirror) Available(_ context.Context) error {
	info, err := os.Stat(m.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMirrorUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrMirrorUnavailable, m.dir)
	}
	return nil
}

// Write writes the file if the directory is available.
func (m *DirMirror) Write(ctx context.Context, data []byte) error {
	if err := m.Available(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeAtomic(m.file.Location(), data)
}
