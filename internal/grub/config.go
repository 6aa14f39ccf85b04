// Package grub reads and writes the persisted GRUB configuration: the
// /etc/default/grub directive file and the generated grub.cfg entry
// list. Every line the tool does not touch survives a read/write cycle
// byte-identical.
package grub

import (
	"strings"

	"github.com/fastcall-bench/kernelctl/internal/cmdline"
)

// Directives managed by this tool. Everything else is opaque.
const (
	KeyDefault        = "GRUB_DEFAULT"
	KeyCmdline        = "GRUB_CMDLINE_LINUX"
	KeyCmdlineDefault = "GRUB_CMDLINE_LINUX_DEFAULT"
)

// ManagedCmdlineKeys are the boot-option directives reconciliation
// rewrites: the interactive boot line and the default boot line.
//
//nolint:gochecknoglobals
var ManagedCmdlineKeys = []string{KeyCmdline, KeyCmdlineDefault}

type line struct {
	raw   string // verbatim text, authoritative while !dirty
	key   string // directive name, "" for unrecognized lines
	value string // unquoted directive value
	dirty bool   // value was modified, re-render from key/value
}

func (l *line) render() string {
	if !l.dirty {
		return l.raw
	}
	return l.key + `="` + l.value + `"`
}

// Config is a parsed directive file. Lines keep their original order;
// modified directives are re-rendered, everything else stays verbatim.
type Config struct {
	lines             []*line
	noTrailingNewline bool
}

// Parse reads a directive file. A line is recognized as a directive
// when it is KEY=value with a managed KEY; surrounding single or
// double quotes around the value are stripped. All other lines,
// including comments and unknown directives, pass through opaquely.
func Parse(text string) *Config {
	cfg := &Config{
		noTrailingNewline: text != "" && !strings.HasSuffix(text, "\n"),
	}
	for _, raw := range splitLines(text) {
		l := &line{raw: raw}
		if key, value, ok := strings.Cut(raw, "="); ok && isManagedKey(key) {
			l.key = key
			l.value = unquote(value)
		}
		cfg.lines = append(cfg.lines, l)
	}
	return cfg
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

func isManagedKey(key string) bool {
	if key == KeyDefault {
		return true
	}
	for _, k := range ManagedCmdlineKeys {
		if key == k {
			return true
		}
	}
	return false
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// Render serializes the config back to file form.
func (c *Config) Render() string {
	var b strings.Builder
	for i, l := range c.lines {
		b.WriteString(l.render())
		if i < len(c.lines)-1 || !c.noTrailingNewline {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (c *Config) find(key string) *line {
	for _, l := range c.lines {
		if l.key == key {
			return l
		}
	}
	return nil
}

// Get returns the value of a managed directive and whether it is
// present.
func (c *Config) Get(key string) (string, bool) {
	if l := c.find(key); l != nil {
		return l.value, true
	}
	return "", false
}

// Set overwrites a managed directive, appending it when absent. The
// line is re-rendered only if the value actually changes, so an
// idempotent reconciliation leaves the file untouched.
func (c *Config) Set(key, value string) {
	if l := c.find(key); l != nil {
		if l.value != value {
			l.value = value
			l.dirty = true
		}
		return
	}
	c.lines = append(c.lines, &line{key: key, value: value, dirty: true})
}

// Default returns the default-boot-entry pointer (GRUB_DEFAULT).
func (c *Config) Default() string {
	v, _ := c.Get(KeyDefault)
	return v
}

// SetDefault sets the default-boot-entry pointer.
func (c *Config) SetDefault(id string) {
	c.Set(KeyDefault, id)
}

// Options returns a managed boot-option directive parsed as a token
// set. A missing directive yields an empty set.
func (c *Config) Options(key string) cmdline.Set {
	v, _ := c.Get(key)
	return cmdline.Parse(v)
}

// SetOptions stores a token set into a managed boot-option directive.
func (c *Config) SetOptions(key string, set cmdline.Set) {
	c.Set(key, set.Render())
}

// Clone returns an independent copy of the config.
func (c *Config) Clone() *Config {
	out := &Config{
		lines:             make([]*line, len(c.lines)),
		noTrailingNewline: c.noTrailingNewline,
	}
	for i, l := range c.lines {
		cp := *l
		out.lines[i] = &cp
	}
	return out
}
