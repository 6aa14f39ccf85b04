package driver

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/ulikunitz/xz"
)

// archiveDir packs the regular files of dir into a tar.xz at dest.
// Paths inside the archive are relative to dir.
func archiveDir(dir, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "create %s", dest)
	}
	defer out.Close()

	xzw, err := xz.NewWriter(out)
	if err != nil {
		return errors.Wrapf(err, "xz writer for %s", dest)
	}
	tw := tar.NewWriter(xzw)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "read %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := addFile(tw, dir, e.Name()); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return errors.Wrapf(err, "close tar %s", dest)
	}
	if err := xzw.Close(); err != nil {
		return errors.Wrapf(err, "close xz %s", dest)
	}
	return out.Close()
}

func addFile(tw *tar.Writer, dir, name string) error {
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return errors.Wrapf(err, "header for %s", path)
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return errors.Wrapf(err, "write header for %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return errors.Wrapf(err, "archive %s", path)
	}
	return nil
}
