package matcher

import (
	"regexp"
	"strings"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
)

// Rule rewrites a match after the grammar has run.
type Rule struct {
	Name  string
	Apply func(Match) Match
}

// DefaultRules returns the rules applied by New.
func DefaultRules() []Rule {
	return []Rule{BWColonRule}
}

// ApplyRules runs rules over m in order.
func ApplyRules(m Match, rules ...Rule) Match {
	for _, r := range rules {
		m = r.Apply(m)
	}
	return m
}

var bwBookTitleRe = regexp.MustCompile(`(?i)^bw boek \d+`)

// IsBWTitle reports whether title names the Burgerlijk Wetboek.
func IsBWTitle(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	return t == "bw" || t == "burgerlijk wetboek" || bwBookTitleRe.MatchString(t)
}

// BWColonRule reads a colon article number cited against the BW as
// book:article, so "art. 7:658 BW" is article 658 of book 7. Other codes
// such as the Awb number articles as chapter:article and keep the colon.
var BWColonRule = Rule{
	Name: "bw-colon",
	Apply: func(m Match) Match {
		article, ok := m.Fragments.Get(law.ElementArticle)
		if !ok || !IsBWTitle(m.Title) {
			return m
		}
		book, rest, found := strings.Cut(article, ":")
		if !found || book == "" || rest == "" {
			return m
		}
		m.Fragments = m.Fragments.
			With(law.ElementBook, book).
			With(law.ElementArticle, rest).
			Sorted()
		return m
	},
}
