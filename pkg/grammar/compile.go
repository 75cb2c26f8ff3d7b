package grammar

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
)

// node is either literal regex text or a reference to a placeholder.
type node struct {
	literal string
	ref     string
}

func parseNodes(pattern string) []node {
	var out []node
	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(pattern, -1) {
		if loc[0] > last {
			out = append(out, node{literal: pattern[last:loc[0]]})
		}
		out = append(out, node{ref: pattern[loc[2]:loc[3]]})
		last = loc[1]
	}
	if last < len(pattern) {
		out = append(out, node{literal: pattern[last:]})
	}
	return out
}

// titleMarker stands in for {TITLE} in expanded templates.
const titleMarker = "\x00TITLE\x00"

// expand resolves every template to a regex with titleMarker in place
// of {TITLE}. Each atom is expanded once.
func (lib *Library) expand() error {
	atoms := make(map[string]Atom, len(lib.Atoms))
	for _, a := range lib.Atoms {
		atoms[a.Name] = a
	}
	memo := make(map[string]string, len(atoms))

	var resolve func(name string, stack []string) (string, error)
	resolve = func(name string, stack []string) (string, error) {
		if v, ok := memo[name]; ok {
			return v, nil
		}
		for _, s := range stack {
			if s == name {
				return "", fmt.Errorf("%w: %s", ErrPlaceholderCycle, strings.Join(append(stack, name), " -> "))
			}
		}
		if len(stack) >= MaxDepth {
			return "", fmt.Errorf("%w: %s", ErrIterationLimit, strings.Join(append(stack, name), " -> "))
		}
		atom, ok := atoms[name]
		if !ok {
			if len(stack) == 0 {
				return "", fmt.Errorf("%w: {%s}", ErrUnresolvedPlaceholder, name)
			}
			return "", fmt.Errorf("%w: {%s} in %s", ErrUnresolvedPlaceholder, name, stack[len(stack)-1])
		}

		var b strings.Builder
		for _, n := range parseNodes(atom.Pattern) {
			if n.ref == "" {
				b.WriteString(n.literal)
				continue
			}
			s, err := resolve(n.ref, append(stack, name))
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}
		out := b.String()
		if atom.Capture != "" {
			out = "(?P<" + atom.Capture + ">" + out + ")"
		}
		memo[name] = out
		return out, nil
	}

	for i := range lib.Templates {
		t := &lib.Templates[i]
		var b strings.Builder
		for _, n := range parseNodes(t.Pattern) {
			switch n.ref {
			case "":
				b.WriteString(n.literal)
			case TitlePlaceholder:
				b.WriteString(titleMarker)
			default:
				s, err := resolve(n.ref, nil)
				if err != nil {
					return fmt.Errorf("template %q: %w", t.Name, err)
				}
				b.WriteString(s)
			}
		}
		t.expanded = b.String()

		// Catch malformed regex syntax at load time.
		if _, err := regexp.Compile(bind(t.expanded, exactTitle)); err != nil {
			return fmt.Errorf("template %q: %w", t.Name, err)
		}
	}
	return nil
}

// Expanded returns the template regex with {TITLE} unbound.
func (t Template) Expanded() string {
	return strings.ReplaceAll(t.expanded, titleMarker, "{"+TitlePlaceholder+"}")
}

func bind(expanded, title string) string {
	return strings.ReplaceAll(expanded, titleMarker, "(?P<"+TitlePlaceholder+">"+title+")")
}

const exactTitle = ".+?"

// Mode selects anchored whole-string matching or unanchored search.
type Mode int

const (
	ModeExact Mode = iota
	ModeInText
)

func (m Mode) String() string {
	if m == ModeExact {
		return "exact"
	}
	return "in_text"
}

func (m Mode) includes(s Scope) bool {
	switch s {
	case ScopeBoth:
		return true
	case ScopeExact:
		return m == ModeExact
	case ScopeInText:
		return m == ModeInText
	}
	return false
}

// Pattern is one compiled template.
type Pattern struct {
	Name string
	re   *regexp.Regexp
}

// String returns the compiled expression.
func (p *Pattern) String() string { return p.re.String() }

// Grammar is an ordered list of compiled patterns for one mode and
// alias set. It is immutable and safe for concurrent use.
type Grammar struct {
	Mode     Mode
	Patterns []*Pattern
}

// CompileExact builds the anchored grammar with a free-form title.
func (lib *Library) CompileExact() (*Grammar, error) {
	return lib.compile(ModeExact, exactTitle)
}

// CompileInText builds the search grammar with TITLE restricted to the
// given aliases. An empty alias set yields a grammar with no patterns.
func (lib *Library) CompileInText(aliases []string) (*Grammar, error) {
	alt := TitleAlternation(aliases)
	if alt == "" {
		return &Grammar{Mode: ModeInText}, nil
	}
	return lib.compile(ModeInText, alt)
}

func (lib *Library) compile(mode Mode, title string) (*Grammar, error) {
	g := &Grammar{Mode: mode}
	for _, t := range lib.Templates {
		if !mode.includes(t.Scope) {
			continue
		}
		expr := bind(t.expanded, title)
		if mode == ModeExact {
			expr = `^\s*` + expr + `\s*$`
		}
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Name, err)
		}
		g.Patterns = append(g.Patterns, &Pattern{Name: t.Name, re: re})
	}
	return g, nil
}

// NormalizeAliases lowercases, trims and deduplicates aliases and sorts
// them longest first, then lexically.
func NormalizeAliases(aliases []string) []string {
	seen := make(map[string]bool, len(aliases))
	out := make([]string, 0, len(aliases))
	for _, a := range aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// TitleAlternation returns an alternation of the quoted aliases,
// longest first so the longest alias wins at a given position.
func TitleAlternation(aliases []string) string {
	norm := NormalizeAliases(aliases)
	quoted := make([]string, len(norm))
	for i, a := range norm {
		quoted[i] = regexp.QuoteMeta(a)
	}
	return strings.Join(quoted, "|")
}

// RawMatch is one regex occurrence with its named captures. Absent
// optional groups are not present in Captures.
type RawMatch struct {
	Pattern  string
	Span     law.Span
	Literal  string
	Captures map[string]string
}

// FindAll returns every non-overlapping occurrence of p in text.
func (p *Pattern) FindAll(text string) []RawMatch {
	names := p.re.SubexpNames()
	var out []RawMatch
	for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
		m := RawMatch{
			Pattern:  p.Name,
			Span:     law.Span{Start: loc[0], End: loc[1]},
			Literal:  text[loc[0]:loc[1]],
			Captures: make(map[string]string),
		}
		for i, name := range names {
			if name == "" || loc[2*i] < 0 {
				continue
			}
			if _, ok := m.Captures[name]; ok {
				continue
			}
			m.Captures[name] = text[loc[2*i]:loc[2*i+1]]
		}
		out = append(out, m)
	}
	return out
}
