// Package alias looks up statute aliases and recognises them in text.
package alias

import (
	"context"
	"fmt"
	"strings"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/store"
)

// Wildcard selects which sides of a pattern are open in Matching.
type Wildcard int

const (
	WildcardNone Wildcard = iota
	WildcardLeft
	WildcardRight
	WildcardBoth
)

// Service answers alias lookups against a store.
type Service struct {
	store store.AliasStore
}

func NewService(s store.AliasStore) *Service {
	return &Service{store: s}
}

// Exact returns aliases equal to text, ignoring case.
func (s *Service) Exact(ctx context.Context, text string) ([]store.Alias, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return s.store.ExactAliases(ctx, text)
}

// Prefix returns aliases that are a prefix of text, longest first.
func (s *Service) Prefix(ctx context.Context, text string) ([]store.Alias, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return s.store.PrefixAliases(ctx, text, store.DefaultMaxRows)
}

// LongestPrefix returns the longest alias that is a prefix of text.
func (s *Service) LongestPrefix(ctx context.Context, text string) (store.Alias, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return store.Alias{}, false, nil
	}
	found, err := s.store.PrefixAliases(ctx, text, 1)
	if err != nil {
		return store.Alias{}, false, err
	}
	if len(found) == 0 {
		return store.Alias{}, false, nil
	}
	return found[0], true, nil
}

// Matching returns the longest alias per statute matching text with the
// given wildcard sides. LIKE metacharacters in text match literally.
func (s *Service) Matching(ctx context.Context, text string, w Wildcard) ([]store.Alias, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	pattern := store.EscapeLike(text)
	if w == WildcardLeft || w == WildcardBoth {
		pattern = "%" + pattern
	}
	if w == WildcardRight || w == WildcardBoth {
		pattern += "%"
	}
	return s.store.MatchingAliases(ctx, pattern)
}

// ForTitle resolves a citation title to candidate aliases. When a book
// number is known the book-qualified form "{title} boek {n}" is tried
// first, then the bare title, both right-wildcarded.
func (s *Service) ForTitle(ctx context.Context, title, book string) ([]store.Alias, error) {
	if book != "" {
		found, err := s.Matching(ctx, fmt.Sprintf("%s boek %s", strings.TrimSpace(title), book), WildcardRight)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return found, nil
		}
	}
	return s.Matching(ctx, title, WildcardRight)
}

// AliasesOf returns every alias of a statute.
func (s *Service) AliasesOf(ctx context.Context, statuteID string) ([]string, error) {
	return s.store.AliasesOf(ctx, statuteID)
}
