// Package grammar compiles the citation grammar: a library of named
// regular expression atoms composed into citation templates.
package grammar

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed grammar.yaml
var defaultGrammar []byte

var (
	// ErrPlaceholderCycle is returned when atoms reference each other in
	// a loop.
	ErrPlaceholderCycle = errors.New("placeholder cycle")
	// ErrUnresolvedPlaceholder is returned for a reference to an unknown
	// atom.
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
	// ErrIterationLimit is returned when atom nesting exceeds MaxDepth.
	ErrIterationLimit = errors.New("placeholder nesting exceeds limit")
)

// MaxDepth bounds how deeply atoms may reference other atoms.
const MaxDepth = 10

// TitlePlaceholder is bound at compile time, never defined as an atom.
const TitlePlaceholder = "TITLE"

// Scope restricts a template to a matching mode.
type Scope string

const (
	ScopeBoth   Scope = "both"
	ScopeExact  Scope = "exact"
	ScopeInText Scope = "in_text"
)

// Atom is a named regular expression fragment.
type Atom struct {
	Name    string `yaml:"name"`
	Capture string `yaml:"capture,omitempty"`
	Pattern string `yaml:"pattern"`
}

// Template is a citation shape built from atoms and {TITLE}.
type Template struct {
	Name     string   `yaml:"name"`
	Scope    Scope    `yaml:"scope"`
	Examples []string `yaml:"examples,omitempty"`
	Pattern  string   `yaml:"pattern"`

	expanded string
}

// Library is a validated, expanded grammar definition.
type Library struct {
	Name      string     `yaml:"name"`
	Version   string     `yaml:"version"`
	Atoms     []Atom     `yaml:"atoms"`
	Templates []Template `yaml:"templates"`
}

// Default returns the built-in grammar.
func Default() (*Library, error) {
	return Parse(defaultGrammar)
}

// MustDefault returns the built-in grammar and panics if it is invalid.
func MustDefault() *Library {
	lib, err := Default()
	if err != nil {
		panic(fmt.Sprintf("grammar: built-in grammar: %v", err))
	}
	return lib
}

// Load reads a grammar file.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading grammar: %w", err)
	}
	lib, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lib, nil
}

// Parse decodes, validates and expands a grammar.
func Parse(data []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if errs := lib.Validate(); len(errs) > 0 {
		return nil, errs
	}
	if err := lib.expand(); err != nil {
		return nil, err
	}
	return &lib, nil
}

// ValidationError describes one problem in a grammar definition.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(errs), strings.Join(messages, "\n  - "))
}

var (
	placeholderRe = regexp.MustCompile(`\{([A-Z][A-Z0-9_]*(?:\|[A-Z][A-Z0-9_]*)?)\}`)
	atomNameRe    = regexp.MustCompile(`^[A-Z][A-Z0-9_]*(?:\|[A-Z][A-Z0-9_]*)?$`)
	captureNameRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// Validate checks names, scopes and capture groups. Placeholder
// resolution is checked when the library is expanded.
func (lib *Library) Validate() ValidationErrors {
	var errs ValidationErrors
	seen := make(map[string]bool)
	captures := make(map[string]bool)

	for i, a := range lib.Atoms {
		field := fmt.Sprintf("atoms[%d]", i)
		switch {
		case a.Name == "":
			errs = append(errs, ValidationError{Field: field + ".name", Message: "required field is missing"})
		case a.Name == TitlePlaceholder:
			errs = append(errs, ValidationError{Field: field + ".name", Message: "TITLE is reserved"})
		case !atomNameRe.MatchString(a.Name):
			errs = append(errs, ValidationError{Field: field + ".name", Message: "must be upper case, optionally KIND|NAME", Value: a.Name})
		case seen[a.Name]:
			errs = append(errs, ValidationError{Field: field + ".name", Message: "duplicate atom", Value: a.Name})
		}
		seen[a.Name] = true

		if a.Pattern == "" {
			errs = append(errs, ValidationError{Field: field + ".pattern", Message: "required field is missing"})
		}
		if a.Capture != "" {
			if !captureNameRe.MatchString(a.Capture) || a.Capture == TitlePlaceholder {
				errs = append(errs, ValidationError{Field: field + ".capture", Message: "invalid capture name", Value: a.Capture})
			} else if captures[a.Capture] {
				errs = append(errs, ValidationError{Field: field + ".capture", Message: "capture defined twice", Value: a.Capture})
			}
			captures[a.Capture] = true
		}
		for _, m := range placeholderRe.FindAllStringSubmatch(a.Pattern, -1) {
			if m[1] == TitlePlaceholder {
				errs = append(errs, ValidationError{Field: field + ".pattern", Message: "atoms may not reference TITLE"})
			}
		}
	}

	if len(lib.Templates) == 0 {
		errs = append(errs, ValidationError{Field: "templates", Message: "at least one template is required"})
	}
	names := make(map[string]bool)
	for i, t := range lib.Templates {
		field := fmt.Sprintf("templates[%d]", i)
		if t.Name == "" {
			errs = append(errs, ValidationError{Field: field + ".name", Message: "required field is missing"})
		} else if names[t.Name] {
			errs = append(errs, ValidationError{Field: field + ".name", Message: "duplicate template", Value: t.Name})
		}
		names[t.Name] = true

		switch t.Scope {
		case ScopeBoth, ScopeExact, ScopeInText:
		default:
			errs = append(errs, ValidationError{Field: field + ".scope", Message: "must be both, exact or in_text", Value: t.Scope})
		}
		if !strings.Contains(t.Pattern, "{"+TitlePlaceholder+"}") {
			errs = append(errs, ValidationError{Field: field + ".pattern", Message: "must contain {TITLE}"})
		}
	}
	return errs
}
