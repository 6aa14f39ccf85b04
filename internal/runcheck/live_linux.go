//go:build linux

package runcheck

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// liveRelease returns the running kernel's release string via uname.
// Build tags baked into the kernel (e.g. "-fastcall") appear here.
func liveRelease() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", errors.Wrap(err, "uname")
	}
	return unix.ByteSliceToString(uts.Release[:]), nil
}

// liveCmdline returns the command line the running kernel booted with.
func liveCmdline() (string, error) {
	data, err := os.ReadFile("/proc/cmdline")
	if err != nil {
		return "", errors.Wrap(err, "read /proc/cmdline")
	}
	return strings.TrimSpace(string(data)), nil
}
