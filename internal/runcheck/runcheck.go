// Package runcheck verifies that the running system matches the
// kernel/option configuration a prior reconciliation prepared. It only
// reads and compares; on mismatch it hands the caller the corrective
// command to run.
package runcheck

import (
	"fmt"
	"strings"

	"github.com/fastcall-bench/kernelctl/internal/reconcile"
	"github.com/fastcall-bench/kernelctl/internal/types"
)

// Checker compares expectations against the live system. The readers
// are injectable for tests; NewChecker wires the real ones.
type Checker struct {
	Release func() (string, error)
	Cmdline func() (string, error)
}

// NewChecker returns a Checker reading the running kernel's release
// string and /proc/cmdline.
func NewChecker() *Checker {
	return &Checker{Release: liveRelease, Cmdline: liveCmdline}
}

// Result is the outcome of a check. A mismatch is normal control flow,
// not an error: callers branch on OK and print or execute Corrective.
type Result struct {
	OK         bool
	Release    string   // live kernel release string
	Mismatches []string // human-readable reasons, empty on match
	Corrective string   // ready-to-run command fixing the mismatch
}

// Check compares the live kernel identity and command line against the
// expectation.
//
// Matching is substring containment: the release string must contain
// the kernel tag, and the live command line must contain each expected
// option's rendering. Containment cannot tell "mitigations=off" from
// the same text inside an unrelated value; stricter callers would have
// to parse the live command line structurally.
func (c *Checker) Check(exp types.Expectation) (Result, error) {
	release, err := c.Release()
	if err != nil {
		return Result{}, err
	}
	cmdlineText, err := c.Cmdline()
	if err != nil {
		return Result{}, err
	}

	res := Result{OK: true, Release: release}
	if !strings.Contains(release, exp.KernelTag) {
		res.OK = false
		res.Mismatches = append(res.Mismatches,
			fmt.Sprintf("running kernel %q does not contain tag %q", release, exp.KernelTag))
	}
	for _, opt := range exp.Options {
		if !strings.Contains(cmdlineText, opt.Render()) {
			res.OK = false
			res.Mismatches = append(res.Mismatches,
				fmt.Sprintf("command line is missing %q", opt.Render()))
		}
	}
	if !res.OK {
		res.Corrective = reconcile.CorrectiveCommand(reconcile.DesiredFromExpectation(exp))
	}
	return res, nil
}
