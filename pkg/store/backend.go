// Package store provides read access to the law database: statute
// aliases, law elements and the case-law links pointing at them. Two
// backends are supported, PostgreSQL and SQLite, behind a single Store
// interface.
package store

import (
	"context"
	"errors"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
)

// ErrUnsupportedURL is returned by Open for database URLs whose scheme
// is not recognised.
var ErrUnsupportedURL = errors.New("unsupported database url")

// Alias is a known name of a statute.
type Alias struct {
	Alias     string
	StatuteID string
}

// Constraint restricts a law query to statutes containing an element of
// the given type and number. Numbers compare case-insensitively.
type Constraint struct {
	Type   law.ElementType
	Number string
}

// LawQuery describes a resolution query. Exactly one of Alias or
// StatuteID selects the candidate statutes.
type LawQuery struct {
	Constraints []Constraint
	Target      Constraint
	Alias       string
	StatuteID   string
}

// CaseRef is a court decision citing a law element.
type CaseRef struct {
	ECLI      string
	Title     string
	Source    string
	Opschrift string
}

// ElementKey identifies a law element by statute and label.
type ElementKey struct {
	StatuteID string
	ElementID int64
}

// AliasStore answers alias lookups.
type AliasStore interface {
	// ExactAliases returns aliases equal to text, case-insensitively.
	ExactAliases(ctx context.Context, text string) ([]Alias, error)
	// MatchingAliases returns, per statute, the longest alias matching the
	// LIKE pattern. Callers escape the pattern with EscapeLike.
	MatchingAliases(ctx context.Context, pattern string) ([]Alias, error)
	// PrefixAliases returns aliases that are a prefix of text, longest first.
	PrefixAliases(ctx context.Context, text string, limit int) ([]Alias, error)
	// AliasesInText returns aliases occurring anywhere in text.
	AliasesInText(ctx context.Context, text string, limit int) ([]Alias, error)
	// AliasesOf returns every alias of a statute.
	AliasesOf(ctx context.Context, statuteID string) ([]string, error)
	// DistinctAliases returns every distinct lowercased alias.
	DistinctAliases(ctx context.Context) ([]string, error)
}

// LawStore resolves law elements.
type LawStore interface {
	FindLaws(ctx context.Context, q LawQuery) ([]law.Record, error)
	Statute(ctx context.Context, statuteID string) (law.Record, bool, error)
}

// CaseStore looks up case law citing law elements.
type CaseStore interface {
	CasesByElement(ctx context.Context, key ElementKey, limit int) ([]CaseRef, error)
	CaseCounts(ctx context.Context, keys []ElementKey) (map[ElementKey]int, error)
}

// Store is the full read surface plus lifecycle operations.
type Store interface {
	AliasStore
	LawStore
	CaseStore

	// InitSchema creates the tables and indexes if they do not exist.
	InitSchema(ctx context.Context) error
	// Seed loads statutes, aliases, elements and cases in one transaction.
	Seed(ctx context.Context, f *Fixture) error
	Close() error
}

// DefaultMaxRows caps the rows returned by the law and alias queries.
const DefaultMaxRows = 50

// DefaultMaxCases caps the rows returned by CasesByElement.
const DefaultMaxCases = 5000
