package driver

import (
	"testing"

	"github.com/fastcall-bench/kernelctl/internal/testutil"
)

func TestParsePlan(t *testing.T) {
	text := `# fastcall evaluation campaign
kernel=fastcall opts=mitigations=auto bench=noop,array64

kernel=fastcall opts=mitigations=off,nopti bench=noop
kernel=fccmp bench=noop
`
	plan, err := ParsePlan(text)
	if err != nil {
		t.Fatalf("ParsePlan() error = %v", err)
	}
	if len(plan) != 3 {
		t.Fatalf("ParsePlan() returned %d steps, want 3", len(plan))
	}

	if plan[0].Kernel != "fastcall" {
		t.Errorf("step 0 kernel = %q", plan[0].Kernel)
	}
	if got := plan[0].Options.Render(); got != "mitigations=auto" {
		t.Errorf("step 0 opts = %q", got)
	}
	if len(plan[0].Benchmarks) != 2 || plan[0].Benchmarks[1] != "array64" {
		t.Errorf("step 0 bench = %v", plan[0].Benchmarks)
	}

	if got := plan[1].Options.Render(); got != "mitigations=off nopti" {
		t.Errorf("step 1 opts = %q", got)
	}

	if plan[2].Kernel != "fccmp" || len(plan[2].Options) != 0 {
		t.Errorf("step 2 = %+v", plan[2])
	}
}

func TestParsePlanErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "bare field", text: "kernel=fastcall noop\n"},
		{name: "unknown field", text: "kernel=fastcall cpu=8 bench=noop\n"},
		{name: "missing kernel", text: "bench=noop\n"},
		{name: "missing benchmarks", text: "kernel=fastcall\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePlan(tt.text); err == nil {
				t.Errorf("ParsePlan(%q) succeeded, want error", tt.text)
			}
		})
	}
}

func TestLoadPlan(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "plan", "kernel=fastcall bench=noop\n")
	plan, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan() error = %v", err)
	}
	if len(plan) != 1 || plan[0].Kernel != "fastcall" {
		t.Errorf("LoadPlan() = %+v", plan)
	}

	if _, err := LoadPlan("/nonexistent/plan"); err == nil {
		t.Error("LoadPlan() on missing file succeeded")
	}
}
