//go:build linux

// Command kernelctl manages the boot configuration of the fastcall
// benchmark hosts: it lists the installed kernels, reconciles the
// persisted GRUB configuration towards a desired kernel/option state,
// checks whether the running system already matches a configuration,
// and drives a measurement campaign across reboots.
//
// Exit codes: 0 success, 1 usage error or declined confirmation,
// 2 when a reconfigure (and reboot) is required.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/fastcall-bench/kernelctl/internal/cli"
	"github.com/fastcall-bench/kernelctl/internal/cmdline"
	"github.com/fastcall-bench/kernelctl/internal/driver"
	"github.com/fastcall-bench/kernelctl/internal/grub"
	"github.com/fastcall-bench/kernelctl/internal/kernels"
	"github.com/fastcall-bench/kernelctl/internal/reconcile"
	"github.com/fastcall-bench/kernelctl/internal/runcheck"
	"github.com/fastcall-bench/kernelctl/internal/types"
)

const (
	exitOK          = 0
	exitUsage       = 1
	exitReconfigure = 2
)

const usageText = `usage: kernelctl <command> [flags]

commands:
  list    list the installed kernel images
  set     reconcile the boot configuration towards a kernel/option state
  check   compare the running system against an expected configuration
  run     execute a measurement campaign plan
  help    show this text

run 'kernelctl <command> -h' for the flags of a command.
`

// paths groups the host locations every subcommand needs. No ambient
// globals: the struct is built from flags and passed down.
type paths struct {
	bootDir     string
	grubDefault string
	grubCfg     string
	regen       string
}

func (p *paths) register(fs *flag.FlagSet) {
	fs.StringVar(&p.bootDir, "boot-dir", "/boot", "directory containing the kernel images")
	fs.StringVar(&p.grubDefault, "grub-default", "/etc/default/grub", "GRUB directive file")
	fs.StringVar(&p.grubCfg, "grub-cfg", "/boot/grub2/grub.cfg", "generated GRUB entry list")
	fs.StringVar(&p.regen, "regen-cmd", "grub2-mkconfig -o /boot/grub2/grub.cfg",
		"bootloader regeneration command run after writing the config")
}

func (p *paths) grubStore() *grub.Store {
	return &grub.Store{
		ConfigPath: p.grubDefault,
		MenuPath:   p.grubCfg,
		Regen:      strings.Fields(p.regen),
		Run:        types.ExecRunner{},
	}
}

func main() {
	log.SetFlags(0)
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usageText)
		return exitUsage
	}
	switch args[0] {
	case "list":
		return cmdList(args[1:])
	case "set":
		return cmdSet(args[1:])
	case "check":
		return cmdCheck(args[1:])
	case "run":
		return cmdRun(args[1:])
	case "help", "-h", "--help":
		fmt.Print(usageText)
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", args[0], usageText)
		return exitUsage
	}
}

// parseFlags parses a subcommand's flags. A bad flag is a usage
// error (exit 1), never exit 2: code 2 is reserved for "reconfigure
// needed" and automation branches on it.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	switch err := fs.Parse(args); {
	case err == nil:
		return exitOK, true
	case errors.Is(err, flag.ErrHelp):
		return exitOK, false
	default:
		return exitUsage, false
	}
}

//nolint:forbidigo
func cmdList(args []string) int {
	var p paths
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	p.register(fs)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	images, err := kernels.NewStore(p.bootDir).List()
	cli.Must("list kernels", err)
	for _, img := range images {
		fmt.Printf("%s\t%s\n", img.Version, img.Path)
	}
	return exitOK
}

//nolint:forbidigo
func cmdSet(args []string) int {
	var (
		p       paths
		version string
		setopts cli.MultiFlag
		delopts cli.MultiFlag
	)
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	p.register(fs)
	fs.StringVar(&version, "version", "", "kernel version tag to boot next (required)")
	fs.Var(&setopts, "setopt", "boot option to add or overwrite (repeatable)")
	fs.Var(&delopts, "delopt", "boot option name to remove (repeatable)")
	fs.BoolVar(&cli.YesFlag, "yes", false, "automatic yes to prompts")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if version == "" {
		fmt.Fprintln(os.Stderr, "set: -version is required")
		fs.Usage()
		return exitUsage
	}

	st := types.DesiredState{Version: version, DeleteNames: delopts}
	for _, opt := range setopts {
		st.SetOpts = append(st.SetOpts, cmdline.ParseToken(opt))
	}

	store := p.grubStore()
	cfg, err := store.Load()
	if err != nil {
		log.Printf("error: %v", err)
		return exitUsage
	}

	r := &reconcile.Reconciler{Kernels: kernels.NewStore(p.bootDir), Grub: store}
	newCfg, summary, err := r.Reconcile(st, cfg)
	if err != nil {
		log.Printf("error: %v", err)
		if errors.Is(err, grub.ErrEntryNotFound) {
			log.Printf("hint: run %q to regenerate the entry list first", p.regen)
		}
		return exitUsage
	}

	fmt.Print(summary.String())
	if summary.Empty() {
		return exitOK
	}
	if !cli.AskYesNo("Apply this configuration?", true) {
		log.Printf("aborted, configuration untouched")
		return exitUsage
	}
	if err := store.Write(newCfg); err != nil {
		log.Printf("error: %v", err)
		return exitUsage
	}
	log.Printf("configuration written; reboot to apply")
	return exitOK
}

//nolint:forbidigo
func cmdCheck(args []string) int {
	var (
		version string
		expects cli.MultiFlag
	)
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.StringVar(&version, "version", "", "kernel tag the running system must contain (required)")
	fs.Var(&expects, "expect", "boot option the live command line must contain (repeatable)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if version == "" {
		fmt.Fprintln(os.Stderr, "check: -version is required")
		fs.Usage()
		return exitUsage
	}

	exp := types.Expectation{KernelTag: version}
	for _, opt := range expects {
		exp.Options = append(exp.Options, cmdline.ParseToken(opt))
	}

	res, err := runcheck.NewChecker().Check(exp)
	if err != nil {
		log.Printf("error: %v", err)
		return exitUsage
	}
	if res.OK {
		fmt.Printf("running kernel %s matches\n", res.Release)
		return exitOK
	}
	for _, m := range res.Mismatches {
		fmt.Println(m)
	}
	fmt.Printf("reconfigure with: %s\n", res.Corrective)
	return exitReconfigure
}

func cmdRun(args []string) int {
	var (
		planPath   string
		benchCmd   string
		resultsDir string
	)
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.StringVar(&planPath, "plan", "", "campaign plan file (required)")
	fs.StringVar(&benchCmd, "bench-cmd", "/usr/local/bin/fastcall-bench", "benchmark binary")
	fs.StringVar(&resultsDir, "results", "./results", "directory for result fragments")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if planPath == "" {
		fmt.Fprintln(os.Stderr, "run: -plan is required")
		fs.Usage()
		return exitUsage
	}

	plan, err := driver.LoadPlan(planPath)
	if err != nil {
		log.Printf("error: %v", err)
		return exitUsage
	}

	d := &driver.Driver{
		Checker:    runcheck.NewChecker(),
		Bench:      types.ExecRunner{},
		BenchCmd:   benchCmd,
		ResultsDir: resultsDir,
	}
	state, err := d.Run(plan)
	if err != nil {
		log.Printf("error: %v", err)
		return exitUsage
	}
	if state == driver.StateNeedsReconfigure {
		return exitReconfigure
	}
	log.Printf("campaign %s", state)
	return exitOK
}
