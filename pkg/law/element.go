// Package law defines the domain types shared by the link extraction
// pipeline: structural element types, citation fragments, resolved law
// records and the links returned to callers.
package law

import (
	"fmt"
	"strings"
)

// ElementType represents the structural kind of a law element.
// Values are ordered from least to most specific.
type ElementType int

const (
	ElementStatute ElementType = iota
	ElementBook
	ElementPart
	ElementTitlePart
	ElementChapter
	ElementArticle
	ElementParagraph
	ElementSubParagraph
	ElementSection
)

var elementNames = [...]string{
	ElementStatute:      "statute",
	ElementBook:         "book",
	ElementPart:         "part",
	ElementTitlePart:    "title_part",
	ElementChapter:      "chapter",
	ElementArticle:      "article",
	ElementParagraph:    "paragraph",
	ElementSubParagraph: "subparagraph",
	ElementSection:      "section",
}

// Dutch vocabulary stored in the law_element.type column.
var elementDBValues = [...]string{
	ElementStatute:      "wet",
	ElementBook:         "boek",
	ElementPart:         "deel",
	ElementTitlePart:    "titeldeel",
	ElementChapter:      "hoofdstuk",
	ElementArticle:      "artikel",
	ElementParagraph:    "paragraaf",
	ElementSubParagraph: "subparagraaf",
	ElementSection:      "afdeling",
}

// ElementTypes lists every element type in specificity order.
func ElementTypes() []ElementType {
	types := make([]ElementType, 0, len(elementNames))
	for t := range elementNames {
		types = append(types, ElementType(t))
	}
	return types
}

// String returns the English name used in output.
func (t ElementType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("element(%d)", int(t))
	}
	return elementNames[t]
}

// DBValue returns the value stored in the database type column.
func (t ElementType) DBValue() string {
	if !t.Valid() {
		return ""
	}
	return elementDBValues[t]
}

// Valid reports whether t is a known element type.
func (t ElementType) Valid() bool {
	return t >= ElementStatute && int(t) < len(elementNames)
}

// Resolvable reports whether the type may be used as a resolution
// constraint. Subparagraphs are carried in output only, the database
// does not track them per statute.
func (t ElementType) Resolvable() bool {
	return t.Valid() && t != ElementSubParagraph
}

// ParseElementType accepts either the English name or the Dutch
// database value, case-insensitively.
func ParseElementType(s string) (ElementType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i := range elementNames {
		if elementNames[i] == s || elementDBValues[i] == s {
			return ElementType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown element type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ElementType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid element type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ElementType) UnmarshalText(b []byte) error {
	parsed, err := ParseElementType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Label returns the capitalised Dutch label, as used in element titles
// ("Artikel 1", "Boek 5").
func (t ElementType) Label() string {
	v := t.DBValue()
	if v == "" {
		return ""
	}
	return strings.ToUpper(v[:1]) + v[1:]
}
