package reconcile

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/fastcall-bench/kernelctl/internal/cmdline"
	"github.com/fastcall-bench/kernelctl/internal/grub"
	"github.com/fastcall-bench/kernelctl/internal/kernels"
	"github.com/fastcall-bench/kernelctl/internal/testutil"
	"github.com/fastcall-bench/kernelctl/internal/types"
)

const testGrubDefault = `GRUB_TIMEOUT=5
GRUB_DEFAULT=0
GRUB_CMDLINE_LINUX="root=/dev/sda1 mitigations=auto quiet"
GRUB_CMDLINE_LINUX_DEFAULT="root=/dev/sda1 quiet"
GRUB_ENABLE_BLSCFG=false
`

const testGrubCfg = `menuentry 'Linux 5.10-fastcall' {
	linux /vmlinuz-5.10-fastcall root=/dev/sda1 ro
}
menuentry 'Linux 5.10-fccmp' {
	linux /vmlinuz-5.10-fccmp root=/dev/sda1 ro
}
`

type nopRunner struct{}

func (nopRunner) Run(string, ...string) (string, error) { return "", nil }

func newTestReconciler(t *testing.T) (*Reconciler, *grub.Config) {
	t.Helper()
	dir := t.TempDir()
	store := &grub.Store{
		ConfigPath: testutil.WriteFile(t, dir, "grub", testGrubDefault),
		MenuPath:   testutil.WriteFile(t, dir, "grub.cfg", testGrubCfg),
		Regen:      []string{"grub2-mkconfig", "-o", filepath.Join(dir, "grub.cfg")},
		Run:        nopRunner{},
	}
	cfg, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return &Reconciler{
		Kernels: kernels.NewStore(testutil.BootDir(t, "5.10-fastcall", "5.10-fccmp")),
		Grub:    store,
	}, cfg
}

func TestReconcile(t *testing.T) {
	r, cfg := newTestReconciler(t)

	st := types.DesiredState{
		Version:     "fastcall",
		SetOpts:     cmdline.Parse("mitigations=off nopti"),
		DeleteNames: []string{"quiet"},
	}
	out, summary, err := r.Reconcile(st, cfg)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if got := out.Default(); got != "0" {
		t.Errorf("Default() = %q, want %q", got, "0")
	}
	if got := out.Options(grub.KeyCmdline).Render(); got != "root=/dev/sda1 mitigations=off nopti" {
		t.Errorf("cmdline = %q", got)
	}
	if got := out.Options(grub.KeyCmdlineDefault).Render(); got != "root=/dev/sda1 mitigations=off nopti" {
		t.Errorf("default cmdline = %q", got)
	}

	// Untouched directives survive byte-identical.
	for _, verbatim := range []string{"GRUB_TIMEOUT=5", "GRUB_ENABLE_BLSCFG=false"} {
		if !strings.Contains(out.Render(), verbatim+"\n") {
			t.Errorf("line %q not preserved in output", verbatim)
		}
	}

	if summary.Kernel.Version != "5.10-fastcall" {
		t.Errorf("summary kernel = %q", summary.Kernel.Version)
	}
	if summary.EntryID != "0" {
		t.Errorf("summary entry = %q", summary.EntryID)
	}
	if len(summary.Changes) != 2 {
		t.Errorf("summary changes = %+v, want 2 entries", summary.Changes)
	}

	// The input config is untouched.
	if got := cfg.Options(grub.KeyCmdline).Render(); got != "root=/dev/sda1 mitigations=auto quiet" {
		t.Errorf("input config modified: %q", got)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	r, cfg := newTestReconciler(t)
	st := types.DesiredState{
		Version:     "fccmp",
		SetOpts:     cmdline.Parse("mitigations=off"),
		DeleteNames: []string{"quiet"},
	}

	once, _, err := r.Reconcile(st, cfg)
	if err != nil {
		t.Fatalf("first Reconcile() error = %v", err)
	}
	twice, summary, err := r.Reconcile(st, once)
	if err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}
	if once.Render() != twice.Render() {
		t.Errorf("second reconcile changed output:\n%q\nvs\n%q", once.Render(), twice.Render())
	}
	if !summary.Empty() {
		t.Errorf("second reconcile reports changes: %+v", summary.Changes)
	}
}

func TestReconcileDefaultChange(t *testing.T) {
	r, cfg := newTestReconciler(t)

	out, summary, err := r.Reconcile(types.DesiredState{Version: "fccmp"}, cfg)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if got := out.Default(); got != "1" {
		t.Errorf("Default() = %q, want %q", got, "1")
	}
	if len(summary.Changes) != 1 || summary.Changes[0].Key != grub.KeyDefault {
		t.Errorf("summary changes = %+v", summary.Changes)
	}
}

func TestReconcileFailsFast(t *testing.T) {
	r, cfg := newTestReconciler(t)

	_, _, err := r.Reconcile(types.DesiredState{Version: "6.1-unknown"}, cfg)
	if !errors.Is(err, kernels.ErrKernelNotFound) {
		t.Fatalf("Reconcile() error = %v, want ErrKernelNotFound", err)
	}

	_, _, err = r.Reconcile(types.DesiredState{Version: "5.10"}, cfg)
	if !errors.Is(err, kernels.ErrAmbiguousKernel) {
		t.Fatalf("Reconcile() error = %v, want ErrAmbiguousKernel", err)
	}
}

func TestReconcileEntryNotFound(t *testing.T) {
	r, cfg := newTestReconciler(t)

	// Installed kernel that grub.cfg does not list yet.
	r.Kernels = kernels.NewStore(testutil.BootDir(t, "6.1-fresh"))
	_, _, err := r.Reconcile(types.DesiredState{Version: "6.1-fresh"}, cfg)
	if !errors.Is(err, grub.ErrEntryNotFound) {
		t.Fatalf("Reconcile() error = %v, want ErrEntryNotFound", err)
	}
}

func TestCorrectiveCommand(t *testing.T) {
	st := types.DesiredState{
		Version:     "fastcall",
		SetOpts:     cmdline.Parse("mitigations=auto"),
		DeleteNames: []string{"nopti"},
	}
	want := "kernelctl set --version fastcall --setopt mitigations=auto --delopt nopti"
	if got := CorrectiveCommand(st); got != want {
		t.Errorf("CorrectiveCommand() = %q, want %q", got, want)
	}
}
