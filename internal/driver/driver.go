// Package driver walks a measurement campaign across reboots. Each
// invocation checks whether the running system already matches the
// next step's configuration; if not it stops and reports the
// corrective command, the operator reconfigures and reboots, and the
// next invocation resumes where this one left off.
package driver

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/fastcall-bench/kernelctl/internal/runcheck"
	"github.com/fastcall-bench/kernelctl/internal/types"
)

// State of the campaign after a driver invocation.
type State int

const (
	// StateNeedsCheck is the entry state of every invocation.
	StateNeedsCheck State = iota
	// StateReady means the running system matches the current step.
	StateReady
	// StateNeedsReconfigure means the operator must apply the reported
	// corrective command and reboot; the process ends and a later
	// invocation re-enters StateNeedsCheck.
	StateNeedsReconfigure
	// StateDone means every step of the plan has completed.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNeedsCheck:
		return "needs-check"
	case StateReady:
		return "ready"
	case StateNeedsReconfigure:
		return "needs-reconfigure"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Driver runs benchmark steps against the current boot configuration.
type Driver struct {
	Checker *runcheck.Checker

	// Bench executes the benchmark binary; BenchCmd is its path. The
	// binary gets a single filter argument and prints CSV on stdout.
	Bench    types.Runner
	BenchCmd string

	// ResultsDir receives one fragment directory per step and one
	// archive per completed step.
	ResultsDir string
}

// Run executes as much of the plan as the current boot configuration
// allows. It returns StateDone when all steps have completed,
// StateNeedsReconfigure (with the corrective command already logged)
// when the next unfinished step needs a different configuration, and
// an error for benchmark or filesystem failures.
func (d *Driver) Run(plan types.Plan) (State, error) {
	runID := uuid.NewString()[:8]

	for i, step := range plan {
		stepDir := filepath.Join(d.ResultsDir, stepLabel(step))
		if stepFinished(stepDir) {
			log.Printf("step %d/%d (%s): already done, skipping", i+1, len(plan), stepLabel(step))
			continue
		}

		res, err := d.Checker.Check(step.Expectation())
		if err != nil {
			return StateNeedsCheck, err
		}
		if !res.OK {
			for _, m := range res.Mismatches {
				log.Printf("step %d/%d: %s", i+1, len(plan), m)
			}
			log.Printf("reconfigure with: %s", res.Corrective)
			log.Printf("then reboot and re-run the plan")
			return StateNeedsReconfigure, nil
		}

		log.Printf("step %d/%d (%s): configuration matches, running %d benchmarks",
			i+1, len(plan), stepLabel(step), len(step.Benchmarks))
		if err := d.runStep(stepDir, step, runID); err != nil {
			return StateReady, err
		}
	}
	return StateDone, nil
}

func (d *Driver) runStep(stepDir string, step types.Step, runID string) error {
	if err := os.MkdirAll(stepDir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", stepDir)
	}

	for _, bench := range step.Benchmarks {
		out, err := d.Bench.Run(d.BenchCmd, bench)
		if err != nil {
			// Keep the diagnostic output next to the fragments before
			// failing the invocation.
			diag := filepath.Join(stepDir, fragmentName(bench, runID)+".err")
			if werr := os.WriteFile(diag, []byte(err.Error()+"\n"), 0o644); werr != nil {
				log.Printf("warning: failed to write %s: %v", diag, werr)
			}
			return errors.Wrapf(err, "benchmark %q", bench)
		}
		frag := filepath.Join(stepDir, fragmentName(bench, runID)+".csv")
		if err := os.WriteFile(frag, []byte(out), 0o644); err != nil {
			return errors.Wrapf(err, "write %s", frag)
		}
		log.Printf("wrote %s", frag)
	}

	archive := filepath.Join(d.ResultsDir, stepLabel(step)+"-"+runID+".tar.xz")
	if err := archiveDir(stepDir, archive); err != nil {
		return err
	}
	log.Printf("archived %s", archive)

	marker := filepath.Join(stepDir, "done")
	if err := os.WriteFile(marker, []byte(runID+"\n"), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", marker)
	}
	return nil
}

// fragmentName mirrors the cycles-<benchmark>.csv naming of the
// result fragments, tagged with the run id so repeated campaigns do
// not overwrite each other.
func fragmentName(bench, runID string) string {
	return "cycles-" + sanitize(bench) + "-" + runID
}

// stepLabel names a step's fragment directory after its configuration,
// kernel first, options joined with "%" the way the result tree
// encodes mitigation settings.
func stepLabel(step types.Step) string {
	label := sanitize(step.Kernel)
	if opts := step.Options.Render(); opts != "" {
		label += "%" + sanitize(strings.ReplaceAll(opts, " ", "%"))
	}
	return label
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ':
			return '_'
		}
		return r
	}, s)
}

func stepFinished(stepDir string) bool {
	_, err := os.Stat(filepath.Join(stepDir, "done"))
	return err == nil
}
