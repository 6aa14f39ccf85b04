// Package cmdline models a kernel command line as an ordered set of
// option tokens, keyed by option name for merge and delete semantics.
package cmdline

import (
	"strings"
)

// Token is a single kernel command-line entry: a bare flag such as
// "quiet" or a key=value pair such as "mitigations=off". Merge and
// delete operations key on Name only.
type Token struct {
	Name     string
	Value    string
	HasValue bool
}

// Render returns the token in command-line form.
func (t Token) Render() string {
	if t.HasValue {
		return t.Name + "=" + t.Value
	}
	return t.Name
}

// ParseToken splits a single entry at the first '='. Entries without
// '=' become bare flags. Any content is accepted as opaque; values may
// themselves contain '=' (e.g. "console=ttyS0,115200").
func ParseToken(s string) Token {
	if name, value, ok := strings.Cut(s, "="); ok {
		return Token{Name: name, Value: value, HasValue: true}
	}
	return Token{Name: s}
}

// Set is an ordered sequence of tokens. Order is preserved for tokens
// the caller never touches; after Merge no two tokens share a name.
type Set []Token

// Parse splits text on whitespace into a Set. Unknown or unusual
// tokens are kept as opaque entries, never rejected.
func Parse(text string) Set {
	fields := strings.Fields(text)
	set := make(Set, 0, len(fields))
	for _, f := range fields {
		set = append(set, ParseToken(f))
	}
	return set
}

// Merge applies overrides and deletions to s and returns the result.
//
// Each base token keeps its original position: if its name appears in
// overrides, the override is emitted there (and consumed, so it is
// emitted only once); if its name is in deletions it is dropped;
// otherwise it passes through unchanged. Overrides not consumed by the
// base are appended at the end in their own order. A name present in
// both overrides and deletions is treated as a set. Deleting a name
// absent from the base is a silent no-op.
func (s Set) Merge(overrides Set, deletions []string) Set {
	override := make(map[string]Token, len(overrides))
	for _, t := range overrides {
		override[t.Name] = t
	}
	deleted := make(map[string]bool, len(deletions))
	for _, name := range deletions {
		if _, set := override[name]; !set {
			deleted[name] = true
		}
	}

	out := make(Set, 0, len(s)+len(overrides))
	consumed := make(map[string]bool, len(overrides))
	for _, t := range s {
		if o, ok := override[t.Name]; ok {
			if !consumed[t.Name] {
				out = append(out, o)
				consumed[t.Name] = true
			}
			continue
		}
		if deleted[t.Name] {
			continue
		}
		out = append(out, t)
	}
	for _, t := range overrides {
		if !consumed[t.Name] {
			out = append(out, override[t.Name])
			consumed[t.Name] = true
		}
	}
	return out
}

// Render joins the tokens with single spaces.
func (s Set) Render() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = t.Render()
	}
	return strings.Join(parts, " ")
}
