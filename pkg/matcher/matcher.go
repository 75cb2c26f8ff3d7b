// Package matcher runs the citation grammar over text and turns regex
// captures into typed fragments.
package matcher

import (
	"regexp"
	"sort"
	"strings"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/grammar"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
)

// Match is one citation found by the grammar.
type Match struct {
	Pattern   string
	Span      law.Span
	Literal   string
	Title     string
	Fragments law.Fragments
}

// Capture names with special meaning. Any other capture whose lowercased
// name is an element type becomes a fragment of that type.
const (
	captureTitle    = grammar.TitlePlaceholder
	captureArticles = "ARTICLES"
)

var conjunctionRe = regexp.MustCompile(`(?i)\s*,\s*|\s+(?:en|of|t/m|tot en met)\s+`)

// Matcher applies a compiled grammar and the rewrite rules.
type Matcher struct {
	cache *grammar.Cache
	rules []Rule
}

// New returns a matcher over cache using DefaultRules.
func New(cache *grammar.Cache) *Matcher {
	return &Matcher{cache: cache, rules: DefaultRules()}
}

// WithRules returns a copy of m applying rules instead of the defaults.
func (m *Matcher) WithRules(rules ...Rule) *Matcher {
	return &Matcher{cache: m.cache, rules: rules}
}

// MatchExact treats the whole text as a single citation with a
// free-form title.
func (m *Matcher) MatchExact(text string) ([]Match, error) {
	g, err := m.cache.Exact()
	if err != nil {
		return nil, err
	}
	return m.run(g, text), nil
}

// MatchInText searches text for citations whose title is one of
// aliases. No aliases means no matches.
func (m *Matcher) MatchInText(text string, aliases []string) ([]Match, error) {
	if len(aliases) == 0 {
		return nil, nil
	}
	g, err := m.cache.InText(aliases)
	if err != nil {
		return nil, err
	}
	return m.run(g, text), nil
}

func (m *Matcher) run(g *grammar.Grammar, text string) []Match {
	claimed := make(map[law.Span]bool)
	var raw []grammar.RawMatch
	for _, p := range g.Patterns {
		for _, rm := range p.FindAll(text) {
			if claimed[rm.Span] {
				continue
			}
			claimed[rm.Span] = true
			raw = append(raw, rm)
		}
	}
	sort.SliceStable(raw, func(i, j int) bool { return raw[i].Span.Start < raw[j].Span.Start })

	var out []Match
	for _, rm := range raw {
		for _, match := range fromRaw(rm) {
			out = append(out, ApplyRules(match, m.rules...))
		}
	}
	return out
}

// fromRaw converts captures to fragments. A multi-article capture
// yields one match per article.
func fromRaw(rm grammar.RawMatch) []Match {
	title := strings.TrimSpace(rm.Captures[captureTitle])
	if title == "" {
		return nil
	}
	base := Match{
		Pattern: rm.Pattern,
		Span:    rm.Span,
		Literal: rm.Literal,
		Title:   title,
	}

	names := make([]string, 0, len(rm.Captures))
	for name := range rm.Captures {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := strings.TrimSpace(rm.Captures[name])
		if name == captureTitle || name == captureArticles || value == "" {
			continue
		}
		t, err := law.ParseElementType(strings.ToLower(name))
		if err != nil {
			continue
		}
		base.Fragments = base.Fragments.With(t, value)
	}
	base.Fragments = base.Fragments.Sorted()

	articles, ok := rm.Captures[captureArticles]
	if !ok {
		return []Match{base}
	}
	var out []Match
	for _, a := range SplitArticles(articles) {
		m := base
		m.Fragments = base.Fragments.With(law.ElementArticle, a).Sorted()
		out = append(out, m)
	}
	return out
}

// SplitArticles splits an enumeration such as "3, 4 en 5" into its
// article numbers.
func SplitArticles(s string) []string {
	var out []string
	for _, part := range conjunctionRe.Split(strings.TrimSpace(s), -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
