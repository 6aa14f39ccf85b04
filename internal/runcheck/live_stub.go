//go:build !linux

package runcheck

import (
	"github.com/cockroachdb/errors"
)

func liveRelease() (string, error) {
	return "", errors.New("live kernel checks are only supported on linux")
}

func liveCmdline() (string, error) {
	return "", errors.New("live kernel checks are only supported on linux")
}
