package grub

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// FindMenuEntry locates the generated menu entry booting the given
// kernel version and returns its GRUB identifier: "N" for a top-level
// entry, "N>M" for an entry inside a submenu. The identifier is what
// GRUB_DEFAULT (and grub2-set-default) accepts.
//
// ErrEntryNotFound means grub.cfg has no entry for the version yet;
// the caller must regenerate the bootloader configuration first.
func (s *Store) FindMenuEntry(version string) (string, error) {
	data, err := os.ReadFile(s.MenuPath)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", s.MenuPath)
	}
	id, err := findMenuEntryIn(string(data), version)
	if err != nil {
		return "", errors.Wrapf(err, "kernel %q in %s", version, s.MenuPath)
	}
	return id, nil
}

// findMenuEntryIn scans grub.cfg line by line. It is not a real
// parser: it only looks at menuentry, submenu and linux lines, which
// is all the generated file guarantees. Block nesting is tracked by
// counting braces per line.
func findMenuEntryIn(grubcfg, version string) (string, error) {
	depth := 0    // brace nesting across the whole file
	top := -1     // index of the current top-level menu item
	sub := -1     // index inside the current submenu
	inSub := false
	subStart := 0 // depth at which the current submenu opened
	current := "" // identifier of the entry being scanned

	for _, raw := range strings.Split(grubcfg, "\n") {
		fields := strings.Fields(raw)
		if len(fields) > 0 {
			switch fields[0] {
			case "submenu":
				// Only one submenu level is generated; deeper nesting
				// is scanned but not numbered.
				if !inSub {
					top++
					sub = -1
					inSub = true
					subStart = depth
					current = ""
				}
			case "menuentry":
				if inSub {
					sub++
					current = strconv.Itoa(top) + ">" + strconv.Itoa(sub)
				} else {
					top++
					current = strconv.Itoa(top)
				}
				// Generated titles usually carry the version.
				if strings.Contains(raw, version) {
					return current, nil
				}
			case "linux", "linux16", "linuxefi":
				if current != "" && len(fields) > 1 && strings.Contains(fields[1], version) {
					return current, nil
				}
			}
		}
		depth += strings.Count(raw, "{") - strings.Count(raw, "}")
		if inSub && depth <= subStart {
			inSub = false
			current = ""
		}
	}
	return "", ErrEntryNotFound
}
