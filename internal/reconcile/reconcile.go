// Package reconcile computes the persisted boot configuration needed
// for a desired kernel/option state. It never writes: the caller shows
// the summary, asks the operator, and only then persists, because the
// result decides whether the next boot succeeds.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/fastcall-bench/kernelctl/internal/cmdline"
	"github.com/fastcall-bench/kernelctl/internal/grub"
	"github.com/fastcall-bench/kernelctl/internal/kernels"
	"github.com/fastcall-bench/kernelctl/internal/types"
)

// Change is one field the reconciliation rewrites.
type Change struct {
	Key string
	Old string
	New string
}

// Summary describes a computed reconciliation for the confirmation
// prompt.
type Summary struct {
	Kernel  kernels.Image
	EntryID string
	Changes []Change
}

// Empty reports whether the reconciliation is a no-op.
func (s Summary) Empty() bool { return len(s.Changes) == 0 }

// String renders the summary for the operator.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "kernel: %s (%s), menu entry %s\n", s.Kernel.Version, s.Kernel.Path, s.EntryID)
	if s.Empty() {
		b.WriteString("no changes: configuration already matches\n")
		return b.String()
	}
	for _, c := range s.Changes {
		fmt.Fprintf(&b, "%s:\n  - %s\n  + %s\n", c.Key, c.Old, c.New)
	}
	return b.String()
}

// Reconciler turns a desired state into a new persisted config.
type Reconciler struct {
	Kernels *kernels.Store
	Grub    *grub.Store
}

// Reconcile resolves the desired kernel, locates its generated menu
// entry and applies the option diff to every managed command-line
// directive of cfg. The kernel is resolved before any option handling
// so a bad tag fails without partial application. cfg is not modified;
// the returned config is a rewritten copy.
func (r *Reconciler) Reconcile(st types.DesiredState, cfg *grub.Config) (*grub.Config, Summary, error) {
	img, err := r.Kernels.Find(st.Version)
	if err != nil {
		return nil, Summary{}, err
	}

	entryID, err := r.Grub.FindMenuEntry(img.Version)
	if err != nil {
		return nil, Summary{}, err
	}

	out := cfg.Clone()
	summary := Summary{Kernel: img, EntryID: entryID}

	if old := out.Default(); old != entryID {
		out.SetDefault(entryID)
		summary.Changes = append(summary.Changes, Change{
			Key: grub.KeyDefault,
			Old: old,
			New: entryID,
		})
	}

	for _, key := range grub.ManagedCmdlineKeys {
		old := out.Options(key)
		merged := old.Merge(st.SetOpts, st.DeleteNames)
		if merged.Render() == old.Render() {
			continue
		}
		out.SetOptions(key, merged)
		summary.Changes = append(summary.Changes, Change{
			Key: key,
			Old: old.Render(),
			New: merged.Render(),
		})
	}
	return out, summary, nil
}

// CorrectiveCommand renders the kernelctl invocation that would bring
// the persisted configuration to the desired state. The run checker
// hands it to the operator (or to automation) on mismatch.
func CorrectiveCommand(st types.DesiredState) string {
	parts := []string{"kernelctl", "set", "--version", st.Version}
	for _, t := range st.SetOpts {
		parts = append(parts, "--setopt", t.Render())
	}
	for _, name := range st.DeleteNames {
		parts = append(parts, "--delopt", name)
	}
	return strings.Join(parts, " ")
}

// DesiredFromExpectation lifts a run expectation into the desired
// state that would satisfy it.
func DesiredFromExpectation(exp types.Expectation) types.DesiredState {
	return types.DesiredState{
		Version: exp.KernelTag,
		SetOpts: append(cmdline.Set(nil), exp.Options...),
	}
}
