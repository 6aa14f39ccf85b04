package grub

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"

	"github.com/fastcall-bench/kernelctl/internal/types"
)

// Persistence failures, matched with errors.Is.
var (
	ErrEntryNotFound = errors.New("boot entry not found")
	ErrPersist       = errors.New("bootloader regeneration failed")
)

// BackupSuffix is appended to the config path for the write-ahead
// backup taken before every write.
const BackupSuffix = ".prev.gz"

// Store owns the on-disk GRUB state for the duration of a
// reconciliation. No locking: one operator, one machine.
type Store struct {
	// ConfigPath is the directive file, usually /etc/default/grub.
	ConfigPath string

	// MenuPath is the generated entry list, usually
	// /boot/grub2/grub.cfg.
	MenuPath string

	// Regen is the bootloader-regeneration command run after a write,
	// e.g. ["grub2-mkconfig", "-o", "/boot/grub2/grub.cfg"].
	Regen []string

	// Run executes Regen.
	Run types.Runner
}

// Load parses the directive file.
func (s *Store) Load() (*Config, error) {
	data, err := os.ReadFile(s.ConfigPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.ConfigPath)
	}
	return Parse(string(data)), nil
}

// Write persists cfg and regenerates the bootloader configuration.
//
// The previous file content is gzip'd next to the config first, so a
// failed regeneration can be undone by hand. The file itself is
// written to a temp file and renamed, never partially. The
// regeneration command runs last, as the single irreversible action;
// its failure is ErrPersist and leaves the backup in place.
func (s *Store) Write(cfg *Config) error {
	prev, err := os.ReadFile(s.ConfigPath)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "read previous %s", s.ConfigPath)
	}
	if err == nil {
		if err := s.backup(prev); err != nil {
			return err
		}
	}

	if err := writeFileAtomic(s.ConfigPath, []byte(cfg.Render())); err != nil {
		return err
	}

	if len(s.Regen) > 0 {
		if _, err := s.Run.Run(s.Regen[0], s.Regen[1:]...); err != nil {
			return errors.Wrapf(ErrPersist, "%s: %v (previous config saved as %s)",
				s.Regen[0], err, s.ConfigPath+BackupSuffix)
		}
	}
	return nil
}

func (s *Store) backup(prev []byte) error {
	path := s.ConfigPath + BackupSuffix
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, "create backup %s", path)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(prev); err != nil {
		f.Close()
		return errors.Wrapf(err, "write backup %s", path)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return errors.Wrapf(err, "close backup %s", path)
	}
	return f.Close()
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "rename %s to %s", tmpName, path)
	}
	return nil
}
