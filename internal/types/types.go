// Package types holds the structs and small interfaces shared across
// the kernelctl packages.
package types

import (
	"bytes"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/fastcall-bench/kernelctl/internal/cmdline"
)

// DesiredState is the input to a reconciliation: which installed
// kernel should boot next and how its command lines should change.
type DesiredState struct {
	// Version is the kernel version tag to boot, resolved against the
	// installed images by substring match.
	Version string

	// SetOpts are options to add or overwrite on the managed command
	// lines.
	SetOpts cmdline.Set

	// DeleteNames are option names to drop. A name also present in
	// SetOpts is set, not deleted.
	DeleteNames []string
}

// Expectation is what a benchmark step requires of the running system:
// a kernel whose release string contains KernelTag, and a live command
// line containing every option in Options.
type Expectation struct {
	KernelTag string
	Options   cmdline.Set
}

// Step is one configuration of a measurement campaign: boot this
// kernel with these options, then run these benchmarks.
type Step struct {
	Kernel     string
	Options    cmdline.Set
	Benchmarks []string
}

// Expectation returns the run expectation this step imposes.
func (s Step) Expectation() Expectation {
	return Expectation{KernelTag: s.Kernel, Options: s.Options}
}

// Plan is an ordered measurement campaign.
type Plan []Step

// Runner executes an external command and returns its combined output.
// It exists so tests can substitute command execution.
type Runner interface {
	Run(name string, args ...string) (string, error)
}

// ExecRunner runs commands on the local system.
type ExecRunner struct{}

// Run executes the command and returns stdout. On failure the error
// message includes both stdout and stderr.
func (ExecRunner) Run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		out := strings.TrimSpace(stdout.String() + "\n" + stderr.String())
		return "", errors.Wrapf(err, "%s: %s", name, out)
	}
	return stdout.String(), nil
}
