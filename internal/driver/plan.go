package driver

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/fastcall-bench/kernelctl/internal/cmdline"
	"github.com/fastcall-bench/kernelctl/internal/types"
)

// LoadPlan reads a campaign plan file.
func LoadPlan(path string) (types.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read plan %s", path)
	}
	plan, err := ParsePlan(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "plan %s", path)
	}
	return plan, nil
}

// ParsePlan parses a plan: one step per line, blank lines and #
// comments ignored. Each step is whitespace-separated fields
//
//	kernel=<tag> opts=<opt,opt,...> bench=<name,name,...>
//
// where opts is optional. Option entries use the command-line token
// syntax (bare flag or key=value).
func ParsePlan(text string) (types.Plan, error) {
	var plan types.Plan
	for lineNo, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var step types.Step
		for _, field := range strings.Fields(line) {
			key, value, ok := strings.Cut(field, "=")
			if !ok {
				return nil, errors.Newf("line %d: field %q is not key=value", lineNo+1, field)
			}
			switch key {
			case "kernel":
				step.Kernel = value
			case "opts":
				for _, opt := range strings.Split(value, ",") {
					if opt != "" {
						step.Options = append(step.Options, cmdline.ParseToken(opt))
					}
				}
			case "bench":
				for _, b := range strings.Split(value, ",") {
					if b != "" {
						step.Benchmarks = append(step.Benchmarks, b)
					}
				}
			default:
				return nil, errors.Newf("line %d: unknown field %q", lineNo+1, key)
			}
		}
		if step.Kernel == "" {
			return nil, errors.Newf("line %d: missing kernel tag", lineNo+1)
		}
		if len(step.Benchmarks) == 0 {
			return nil, errors.Newf("line %d: missing benchmarks", lineNo+1)
		}
		plan = append(plan, step)
	}
	return plan, nil
}
