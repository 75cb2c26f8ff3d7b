package alias

import (
	"context"
	"regexp"
	"strings"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/store"
)

// Recognizer finds known aliases occurring as whole words in text. The
// result may contain duplicates, one entry per occurrence.
type Recognizer interface {
	FindAliases(ctx context.Context, text string) ([]string, error)
}

// TrieRecognizer scans text with a trie.
type TrieRecognizer struct {
	source *TrieSource
	trie   *Trie
}

// NewTrieRecognizer scans with a fixed trie.
func NewTrieRecognizer(t *Trie) *TrieRecognizer {
	return &TrieRecognizer{trie: t}
}

// NewLazyTrieRecognizer loads its trie from source on first use.
func NewLazyTrieRecognizer(source *TrieSource) *TrieRecognizer {
	return &TrieRecognizer{source: source}
}

func (r *TrieRecognizer) FindAliases(ctx context.Context, text string) ([]string, error) {
	t := r.trie
	if t == nil {
		var err error
		if t, err = r.source.Get(ctx); err != nil {
			return nil, err
		}
	}
	occ := t.FindAll(text)
	out := make([]string, 0, len(occ))
	for _, o := range occ {
		out = append(out, o.Alias)
	}
	return out, nil
}

// SQLRecognizer asks the store for aliases contained in the text and
// keeps those occurring on word boundaries.
type SQLRecognizer struct {
	store store.AliasStore
}

func NewSQLRecognizer(s store.AliasStore) *SQLRecognizer {
	return &SQLRecognizer{store: s}
}

func (r *SQLRecognizer) FindAliases(ctx context.Context, text string) ([]string, error) {
	candidates, err := r.store.AliasesInText(ctx, text, store.DefaultMaxRows)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, c := range candidates {
		key := strings.ToLower(c.Alias)
		if seen[key] {
			continue
		}
		seen[key] = true
		for range Occurrences(text, c.Alias) {
			out = append(out, c.Alias)
		}
	}
	return out, nil
}

// Occurrences returns the byte spans of whole-word, case-insensitive
// occurrences of alias in text, in order.
func Occurrences(text, alias string) []law.Span {
	if alias == "" {
		return nil
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(alias))
	var out []law.Span
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if startsOnBoundary(text, loc[0]) && endsOnBoundary(text, loc[1]) {
			out = append(out, law.Span{Start: loc[0], End: loc[1]})
		}
	}
	return out
}

// ContainsWord reports whether alias occurs in text as a whole word.
func ContainsWord(text, alias string) bool {
	return len(Occurrences(text, alias)) > 0
}
