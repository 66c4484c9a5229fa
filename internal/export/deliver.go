package export

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
)

// DirDeliverer writes artifacts into Dir, creating it if needed.
type DirDeliverer struct {
	Dir string
}

// Deliver writes atomically via a temp file + rename. Only the base name of
// a.Filename is used.
func (d DirDeliverer) Deliver(ctx context.Context, a Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.Dir == "" {
		return errors.New("output directory is empty")
	}
	name := filepath.Base(a.Filename)
	if name == "." || name == string(filepath.Separator) {
		return errors.New("invalid artifact filename")
	}

	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.Dir, ".icsconv-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(a.Data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(d.Dir, name))
}

// Path returns where an artifact named filename lands.
func (d DirDeliverer) Path(filename string) string {
	return filepath.Join(d.Dir, filepath.Base(filename))
}

// WriterDeliverer streams the artifact bytes to W, e.g. stdout.
type WriterDeliverer struct {
	W io.Writer
}

func (d WriterDeliverer) Deliver(ctx context.Context, a Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.W.Write(a.Data)
	return err
}
