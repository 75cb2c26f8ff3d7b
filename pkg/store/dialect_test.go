package store

import (
	"strings"
	"testing"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
)

func TestDollarPlaceholders(t *testing.T) {
	got := dollarPlaceholders("SELECT a FROM t WHERE b = ? AND c IN (?, ?)")
	want := "SELECT a FROM t WHERE b = $1 AND c IN ($2, $3)"
	if got != want {
		t.Errorf("dollarPlaceholders = %q, want %q", got, want)
	}
}

func TestBuildFindLawsArgs(t *testing.T) {
	q, args := buildFindLaws(LawQuery{
		Constraints: []Constraint{{law.ElementBook, "5"}, {law.ElementArticle, "7.57H"}},
		Target:      Constraint{law.ElementArticle, "7.57H"},
		Alias:       "BW",
	})
	if n := strings.Count(q, "?"); n != len(args) {
		t.Fatalf("Placeholder count %d does not match %d args", n, len(args))
	}
	if args[3] != "7.57h" {
		t.Errorf("Expected lowercased number, got %v", args[3])
	}
	if args[1] != "5" || args[0] != "boek" {
		t.Errorf("Unexpected first constraint args: %v %v", args[0], args[1])
	}
	if args[5] != 2 {
		t.Errorf("Expected constraint count 2, got %v", args[5])
	}
}

func TestEscapeLike(t *testing.T) {
	if got := EscapeLike(`50%_a\b`); got != `50\%\_a\\b` {
		t.Errorf("EscapeLike = %q", got)
	}
}

func TestRedact(t *testing.T) {
	if got := redact("postgres://user:pw@db:5432/x"); got != "postgres://***@db:5432/x" {
		t.Errorf("redact = %q", got)
	}
	if got := redact("sqlite://file.db"); got != "sqlite://file.db" {
		t.Errorf("redact = %q", got)
	}
}

func TestSchemaStatementsListElementTypes(t *testing.T) {
	ddl := strings.Join(sqliteSchema, "\n")
	for _, typ := range law.ElementTypes() {
		if !strings.Contains(ddl, "'"+typ.DBValue()+"'") {
			t.Errorf("Schema missing element type %s", typ.DBValue())
		}
	}
}
