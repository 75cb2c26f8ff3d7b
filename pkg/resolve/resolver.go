// Package resolve maps a citation title and its fragments to law
// elements in the store.
package resolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/alias"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/logging"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/store"
)

// Query is one citation to resolve.
type Query struct {
	Fragments law.Fragments
	Title     string
	// ExpandAliases allows the title to be widened to related aliases,
	// such as "BW" to "BW Boek 5" when book 5 is cited. Used when the
	// title is free text rather than a recognised alias.
	ExpandAliases bool
}

// Resolver finds the law elements a citation refers to. Every
// resolvable fragment must match within a single statute.
type Resolver struct {
	laws    store.LawStore
	aliases *alias.Service
	log     *logging.Logger
}

// New returns a resolver. A nil logger discards output.
func New(laws store.LawStore, aliases *alias.Service, log *logging.Logger) *Resolver {
	if log == nil {
		log = logging.Nop()
	}
	return &Resolver{laws: laws, aliases: aliases, log: log}
}

// FindLaws returns the narrowest element of each statute known by
// aliasText that contains every resolvable fragment.
func (r *Resolver) FindLaws(ctx context.Context, fragments law.Fragments, aliasText string) ([]law.Record, error) {
	q, ok := lawQuery(fragments)
	if !ok || strings.TrimSpace(aliasText) == "" {
		return nil, nil
	}
	q.Alias = strings.TrimSpace(aliasText)
	return r.laws.FindLaws(ctx, q)
}

// FindLawsInStatute is FindLaws restricted to one statute.
func (r *Resolver) FindLawsInStatute(ctx context.Context, fragments law.Fragments, statuteID string) ([]law.Record, error) {
	q, ok := lawQuery(fragments)
	if !ok || statuteID == "" {
		return nil, nil
	}
	q.StatuteID = statuteID
	return r.laws.FindLaws(ctx, q)
}

func lawQuery(fragments law.Fragments) (store.LawQuery, bool) {
	res := fragments.Resolvable()
	if len(res) == 0 {
		return store.LawQuery{}, false
	}
	q := store.LawQuery{Constraints: make([]store.Constraint, len(res))}
	for i, f := range res {
		q.Constraints[i] = store.Constraint{Type: f.Type, Number: f.Number}
	}
	q.Target = q.Constraints[len(q.Constraints)-1]
	return q, true
}

// Resolve returns the records q refers to. Element-level matches are
// tried through the title, its widened aliases and its longest known
// prefix; failing those the statutes named by the title are returned
// without element precision. No match is an empty result.
func (r *Resolver) Resolve(ctx context.Context, q Query) ([]law.Record, error) {
	title := strings.TrimSpace(q.Title)
	if title == "" {
		return nil, nil
	}
	start := time.Now()
	defer func() {
		r.log.Debug("resolved citation", "title", title, "fragments", q.Fragments.Key(), "elapsed", time.Since(start))
	}()

	if len(q.Fragments.Resolvable()) > 0 {
		recs, err := r.resolveElements(ctx, q, title)
		if err != nil || len(recs) > 0 {
			return recs, err
		}
	}

	candidates, err := r.statuteCandidates(ctx, q, title)
	if err != nil {
		return nil, err
	}
	return r.statuteRecords(ctx, candidates)
}

func (r *Resolver) resolveElements(ctx context.Context, q Query, title string) ([]law.Record, error) {
	recs, err := r.FindLaws(ctx, q.Fragments, title)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", title, err)
	}
	if len(recs) > 0 {
		return recs, nil
	}

	if q.ExpandAliases {
		book, _ := q.Fragments.Get(law.ElementBook)
		cands, err := r.aliases.ForTitle(ctx, title, book)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: alias candidates: %w", title, err)
		}
		var out []law.Record
		for _, id := range statuteIDs(cands) {
			found, err := r.FindLawsInStatute(ctx, q.Fragments, id)
			if err != nil {
				return nil, fmt.Errorf("resolve %q in %s: %w", title, id, err)
			}
			out = append(out, found...)
		}
		if len(out) > 0 {
			return dedupe(out), nil
		}
	}

	prefix, ok, err := r.aliases.LongestPrefix(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: prefix alias: %w", title, err)
	}
	if !ok {
		return nil, nil
	}
	recs, err = r.FindLawsInStatute(ctx, q.Fragments, prefix.StatuteID)
	if err != nil {
		return nil, fmt.Errorf("resolve %q in %s: %w", title, prefix.StatuteID, err)
	}
	return recs, nil
}

// statuteCandidates names the statutes a title refers to: exact alias
// matches first, then widened aliases, then the longest prefix alias.
func (r *Resolver) statuteCandidates(ctx context.Context, q Query, title string) ([]store.Alias, error) {
	if q.ExpandAliases {
		if book, ok := q.Fragments.Get(law.ElementBook); ok {
			found, err := r.aliases.ForTitle(ctx, title, book)
			if err != nil {
				return nil, fmt.Errorf("resolve %q: alias candidates: %w", title, err)
			}
			if len(found) > 0 {
				return found, nil
			}
		}
	}

	found, err := r.aliases.Exact(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: exact alias: %w", title, err)
	}
	if len(found) > 0 {
		return found, nil
	}

	if q.ExpandAliases {
		found, err = r.aliases.ForTitle(ctx, title, "")
		if err != nil {
			return nil, fmt.Errorf("resolve %q: alias candidates: %w", title, err)
		}
		if len(found) > 0 {
			return found, nil
		}
	}

	prefix, ok, err := r.aliases.LongestPrefix(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: prefix alias: %w", title, err)
	}
	if !ok {
		return nil, nil
	}
	return []store.Alias{prefix}, nil
}

// StatuteRecords returns statute-level records for the statutes of the
// given aliases.
func (r *Resolver) StatuteRecords(ctx context.Context, aliases []store.Alias) ([]law.Record, error) {
	return r.statuteRecords(ctx, aliases)
}

func (r *Resolver) statuteRecords(ctx context.Context, aliases []store.Alias) ([]law.Record, error) {
	titles := make(map[string]string, len(aliases))
	for _, a := range aliases {
		if _, ok := titles[a.StatuteID]; !ok {
			titles[a.StatuteID] = a.Alias
		}
	}
	var out []law.Record
	for _, id := range statuteIDs(aliases) {
		rec, ok, err := r.laws.Statute(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("statute %s: %w", id, err)
		}
		if !ok || rec.Title == "" {
			rec = law.Record{Type: law.ElementStatute, StatuteID: id, Title: titles[id]}
		}
		out = append(out, rec)
	}
	return out, nil
}

func statuteIDs(aliases []store.Alias) []string {
	seen := make(map[string]bool, len(aliases))
	var out []string
	for _, a := range aliases {
		if a.StatuteID == "" || seen[a.StatuteID] {
			continue
		}
		seen[a.StatuteID] = true
		out = append(out, a.StatuteID)
	}
	return out
}

func dedupe(recs []law.Record) []law.Record {
	type key struct {
		statute string
		element int64
	}
	seen := make(map[key]bool, len(recs))
	out := recs[:0]
	for _, rec := range recs {
		k := key{rec.StatuteID, rec.ElementID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, rec)
	}
	return out
}
