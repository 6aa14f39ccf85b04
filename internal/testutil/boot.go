// Package testutil provides filesystem fixtures for kernelctl tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// BootDir creates a temporary boot directory containing a vmlinuz
// image (and matching initramfs) for each version and returns its
// path.
func BootDir(t *testing.T, versions ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, v := range versions {
		for _, name := range []string{"vmlinuz-" + v, "initramfs-" + v + ".img"} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte("stub"), 0o644); err != nil {
				t.Fatalf("failed to create %s: %v", name, err)
			}
		}
	}
	return dir
}

// WriteFile writes content to name inside dir and returns the full
// path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
