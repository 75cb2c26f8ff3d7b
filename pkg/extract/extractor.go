// Package extract finds law citations in text and resolves them to
// links. Exact mode treats the input as one citation; in-text mode
// locates citations inside a longer document.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/alias"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/grammar"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/logging"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/matcher"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/resolve"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/store"
)

// Backend is the part of the store the pipeline reads.
type Backend interface {
	store.AliasStore
	store.LawStore
}

// Extractor runs the extraction pipeline. It holds no per-call state
// and is safe for concurrent use when its recognizer and store are.
type Extractor struct {
	aliases    *alias.Service
	recognizer alias.Recognizer
	matcher    *matcher.Matcher
	resolver   *resolve.Resolver
	log        *logging.Logger
}

// Options configures New. Zero values select the defaults.
type Options struct {
	// Recognizer finds aliases for in-text mode. Defaults to the SQL
	// recognizer over the backend.
	Recognizer alias.Recognizer
	// Grammar replaces the built-in citation grammar.
	Grammar *grammar.Library
	// CacheSize bounds the number of compiled in-text grammars.
	CacheSize int
	Logger    *logging.Logger
}

// New builds an extractor over b.
func New(b Backend, opts Options) (*Extractor, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	lib := opts.Grammar
	if lib == nil {
		var err error
		if lib, err = grammar.Default(); err != nil {
			return nil, fmt.Errorf("loading grammar: %w", err)
		}
	}
	cache, err := grammar.NewCache(lib, opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("grammar cache: %w", err)
	}
	// Compile the exact grammar now so a broken grammar fails at startup.
	if _, err := cache.Exact(); err != nil {
		return nil, fmt.Errorf("compiling grammar: %w", err)
	}

	rec := opts.Recognizer
	if rec == nil {
		rec = alias.NewSQLRecognizer(b)
	}
	svc := alias.NewService(b)
	return &Extractor{
		aliases:    svc,
		recognizer: rec,
		matcher:    matcher.New(cache),
		resolver:   resolve.New(b, svc, log),
		log:        log,
	}, nil
}

// Extract runs the pipeline in the given mode.
func (e *Extractor) Extract(ctx context.Context, text string, mode grammar.Mode) ([]law.Link, error) {
	if mode == grammar.ModeExact {
		return e.ExtractExact(ctx, text)
	}
	return e.ExtractInText(ctx, text)
}

// ExtractExact resolves text as a single citation. Without a grammar
// match it falls back to aliases containing the text, then to the
// longest alias the text starts with. More than one result is logged
// as ambiguous and all results are returned.
func (e *Extractor) ExtractExact(ctx context.Context, text string) ([]law.Link, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}

	start := time.Now()
	matches, err := e.matcher.MatchExact(text)
	if err != nil {
		return nil, err
	}
	e.log.Debug("matched patterns", "mode", grammar.ModeExact, "matches", len(matches), "elapsed", time.Since(start))

	var links []law.Link
	if len(matches) == 0 {
		links, err = e.exactFallback(ctx, text, trimmed)
		if err != nil {
			return nil, err
		}
	}
	for _, m := range matches {
		start := time.Now()
		recs, err := e.resolver.Resolve(ctx, resolve.Query{
			Fragments:     m.Fragments,
			Title:         m.Title,
			ExpandAliases: true,
		})
		if err != nil {
			return nil, err
		}
		e.log.Debug("queried laws", "title", m.Title, "records", len(recs), "elapsed", time.Since(start))
		for _, rec := range recs {
			links = append(links, law.NewLink(rec, m.Fragments, m.Span, m.Literal))
		}
	}

	links = dedupeByElement(links)
	if len(links) > 1 {
		e.log.Warn("ambiguous citation", "text", trimmed, "results", len(links))
	}
	return links, nil
}

func (e *Extractor) exactFallback(ctx context.Context, text, trimmed string) ([]law.Link, error) {
	start := time.Now()
	found, err := e.aliases.Matching(ctx, trimmed, alias.WildcardBoth)
	if err != nil {
		return nil, fmt.Errorf("alias lookup: %w", err)
	}
	if len(found) == 0 {
		prefix, ok, err := e.aliases.LongestPrefix(ctx, trimmed)
		if err != nil {
			return nil, fmt.Errorf("alias lookup: %w", err)
		}
		if ok {
			found = []store.Alias{prefix}
		}
	}
	e.log.Debug("retrieved aliases", "mode", grammar.ModeExact, "aliases", len(found), "elapsed", time.Since(start))
	if len(found) == 0 {
		return nil, nil
	}

	recs, err := e.resolver.StatuteRecords(ctx, found)
	if err != nil {
		return nil, err
	}
	span := law.Span{Start: 0, End: len(text)}
	links := make([]law.Link, 0, len(recs))
	for _, rec := range recs {
		links = append(links, law.NewLink(rec, nil, span, text))
	}
	return links, nil
}

// ExtractInText finds every citation of a known alias in text. When
// aliases occur but no citation grammar matches, each alias occurrence
// is reported as a statute-level citation.
func (e *Extractor) ExtractInText(ctx context.Context, text string) ([]law.Link, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	start := time.Now()
	found, err := e.recognizer.FindAliases(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("recognizing aliases: %w", err)
	}
	e.log.Debug("retrieved aliases", "mode", grammar.ModeInText, "aliases", len(found), "elapsed", time.Since(start))
	if len(found) == 0 {
		return nil, nil
	}

	start = time.Now()
	matches, err := e.matcher.MatchInText(text, found)
	if err != nil {
		return nil, err
	}
	e.log.Debug("matched patterns", "mode", grammar.ModeInText, "matches", len(matches), "elapsed", time.Since(start))
	if len(matches) == 0 {
		matches = aliasMatches(text, found)
	}

	type key struct {
		span      law.Span
		fragments string
	}
	seen := make(map[key]bool)
	var links []law.Link
	start = time.Now()
	for _, m := range matches {
		recs, err := e.resolver.Resolve(ctx, resolve.Query{Fragments: m.Fragments, Title: m.Title})
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			k := key{m.Span, m.Fragments.Key()}
			if seen[k] {
				continue
			}
			seen[k] = true
			links = append(links, law.NewLink(rec, m.Fragments, m.Span, m.Literal))
		}
	}
	e.log.Debug("queried laws", "mode", grammar.ModeInText, "links", len(links), "elapsed", time.Since(start))
	return links, nil
}

// aliasMatches builds title-only matches for recognised aliases. An
// alias reported n times maps to its first n occurrences.
func aliasMatches(text string, found []string) []matcher.Match {
	counts := make(map[string]int)
	var order []string
	for _, a := range found {
		k := strings.ToLower(a)
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}

	var out []matcher.Match
	for _, a := range order {
		spans := alias.Occurrences(text, a)
		if len(spans) > counts[a] {
			spans = spans[:counts[a]]
		}
		for _, sp := range spans {
			lit := text[sp.Start:sp.End]
			out = append(out, matcher.Match{Span: sp, Literal: lit, Title: lit})
		}
	}
	return out
}

func dedupeByElement(links []law.Link) []law.Link {
	type key struct {
		statute string
		element int64
	}
	seen := make(map[key]bool, len(links))
	out := links[:0]
	for _, l := range links {
		k := key{l.Resource.StatuteID, l.Resource.ElementID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, l)
	}
	return out
}
