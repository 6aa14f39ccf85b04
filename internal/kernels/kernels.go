// Package kernels enumerates the kernel images installed in the boot
// directory and resolves version tags against them.
package kernels

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Resolution failures, matched with errors.Is.
var (
	ErrKernelNotFound  = errors.New("kernel not found")
	ErrAmbiguousKernel = errors.New("ambiguous kernel tag")
)

const imagePrefix = "vmlinuz-"

// Image is one installed kernel: its version string and the path of
// the image file. Images are never modified by this tool.
type Image struct {
	Version string
	Path    string
}

// Store scans a boot directory for installed kernel images.
type Store struct {
	dir string
}

// NewStore returns a Store over dir (usually /boot).
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// List returns the installed kernel images sorted by version. The
// directory is re-scanned on every call. Backup images (*.old) and
// rescue entries are skipped.
func (s *Store) List() ([]Image, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read boot directory %s", s.dir)
	}

	var images []Image
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, imagePrefix) {
			continue
		}
		if strings.HasSuffix(name, ".old") || strings.HasSuffix(name, ".bak") {
			continue
		}
		version := strings.TrimPrefix(name, imagePrefix)
		if version == "" || strings.HasPrefix(version, "0-rescue") {
			continue
		}
		images = append(images, Image{
			Version: version,
			Path:    filepath.Join(s.dir, name),
		})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Version < images[j].Version })
	return images, nil
}

// Find resolves a version tag to a single installed image.
//
// An image whose version equals the tag wins outright. Otherwise all
// images whose version contains the tag are candidates; with several
// candidates the unique longest version is preferred (most specific
// match), and a remaining tie is ErrAmbiguousKernel. No candidate at
// all is ErrKernelNotFound.
func (s *Store) Find(tag string) (Image, error) {
	images, err := s.List()
	if err != nil {
		return Image{}, err
	}

	var candidates []Image
	for _, img := range images {
		if img.Version == tag {
			return img, nil
		}
		if strings.Contains(img.Version, tag) {
			candidates = append(candidates, img)
		}
	}

	switch len(candidates) {
	case 0:
		return Image{}, errors.Wrapf(ErrKernelNotFound, "no installed kernel image matches %q in %s", tag, s.dir)
	case 1:
		return candidates[0], nil
	}

	// Several candidates. The longest one wins only if it subsumes all
	// the others (e.g. "5.10-fastcall-lts" over "5.10-fastcall");
	// unrelated siblings stay ambiguous.
	longest := candidates[0]
	for _, c := range candidates[1:] {
		if len(c.Version) > len(longest.Version) {
			longest = c
		}
	}
	for _, c := range candidates {
		if !strings.Contains(longest.Version, c.Version) {
			return Image{}, errors.Wrapf(ErrAmbiguousKernel, "tag %q matches %d installed kernels", tag, len(candidates))
		}
	}
	return longest, nil
}
