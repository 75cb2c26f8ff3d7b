package grammar

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func firstMatch(t *testing.T, g *Grammar, text string) (RawMatch, bool) {
	t.Helper()
	for _, p := range g.Patterns {
		if ms := p.FindAll(text); len(ms) > 0 {
			return ms[0], true
		}
	}
	return RawMatch{}, false
}

func TestDefaultGrammarLoads(t *testing.T) {
	lib, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	if len(lib.Templates) != 5 {
		t.Errorf("Expected 5 templates, got %d", len(lib.Templates))
	}

	exact, err := lib.CompileExact()
	if err != nil {
		t.Fatalf("CompileExact failed: %v", err)
	}
	var names []string
	for _, p := range exact.Patterns {
		names = append(names, p.Name)
	}
	want := "article-of-book,article-title,title-book-article,colon-title"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("Exact patterns = %s, want %s", got, want)
	}

	inText, err := lib.CompileInText([]string{"bw"})
	if err != nil {
		t.Fatalf("CompileInText failed: %v", err)
	}
	names = names[:0]
	for _, p := range inText.Patterns {
		names = append(names, p.Name)
	}
	want = "article-of-book,article-title,title-book-article,articles-title"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("In-text patterns = %s, want %s", got, want)
	}
}

func TestExactCaptures(t *testing.T) {
	g, err := MustDefault().CompileExact()
	if err != nil {
		t.Fatalf("CompileExact failed: %v", err)
	}

	tests := []struct {
		input   string
		pattern string
		want    map[string]string
	}{
		{
			input:   "Art. 5:1 lid 2 BW",
			pattern: "article-title",
			want:    map[string]string{"ARTICLE": "5:1", "SUBPARAGRAPH": "2", "TITLE": "BW"},
		},
		{
			input:   "Artikel 4:8 Algemene wet bestuursrecht (hoor en wederhoor)",
			pattern: "article-title",
			want:    map[string]string{"ARTICLE": "4:8", "TITLE": "Algemene wet bestuursrecht (hoor en wederhoor)"},
		},
		{
			input:   "Artikel 7.57H WHW",
			pattern: "article-title",
			want:    map[string]string{"ARTICLE": "7.57H", "TITLE": "WHW"},
		},
		{
			input:   "Artikel 1 van boek 5 van het Burgerlijk Wetboek",
			pattern: "article-of-book",
			want:    map[string]string{"ARTICLE": "1", "BOOK": "5", "TITLE": "Burgerlijk Wetboek"},
		},
		{
			input:   "Artikel 1 lid 2 van boek 5 van het Burgerlijk Wetboek",
			pattern: "article-of-book",
			want:    map[string]string{"ARTICLE": "1", "SUBPARAGRAPH": "2", "BOOK": "5", "TITLE": "Burgerlijk Wetboek"},
		},
		{
			input:   "Burgerlijk Wetboek Boek 5, Artikel 1",
			pattern: "title-book-article",
			want:    map[string]string{"ARTICLE": "1", "BOOK": "5", "TITLE": "Burgerlijk Wetboek"},
		},
		{
			input:   "Artikel 7:658 van het BW",
			pattern: "article-title",
			want:    map[string]string{"ARTICLE": "7:658", "TITLE": "BW"},
		},
		{
			input:   "5:1 BW",
			pattern: "colon-title",
			want:    map[string]string{"ARTICLE": "5:1", "TITLE": "BW"},
		},
		{
			input:   "  3:2 awb ",
			pattern: "colon-title",
			want:    map[string]string{"ARTICLE": "3:2", "TITLE": "awb"},
		},
		{
			input:   "art. 1b-c Wet X",
			pattern: "article-title",
			want:    map[string]string{"ARTICLE": "1b-c", "TITLE": "Wet X"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, ok := firstMatch(t, g, tt.input)
			if !ok {
				t.Fatalf("No match for %q", tt.input)
			}
			if m.Pattern != tt.pattern {
				t.Errorf("Pattern = %s, want %s", m.Pattern, tt.pattern)
			}
			if fmt.Sprint(m.Captures) != fmt.Sprint(tt.want) {
				t.Errorf("Captures = %v, want %v", m.Captures, tt.want)
			}
			if m.Span.Start != 0 || m.Span.End != len(tt.input) {
				t.Errorf("Exact span = %v, want whole input", m.Span)
			}
		})
	}
}

func TestExactRejectsBareNumbers(t *testing.T) {
	g, _ := MustDefault().CompileExact()
	for _, input := range []string{"artikel 5", "5:1", "hello"} {
		if m, ok := firstMatch(t, g, input); ok {
			t.Errorf("Unexpected match for %q: %+v", input, m)
		}
	}
}

func TestInTextCaptures(t *testing.T) {
	lib := MustDefault()

	t.Run("longest_alias_wins", func(t *testing.T) {
		g, err := lib.CompileInText([]string{"burgerlijk wetboek", "burgerlijk wetboek boek 7"})
		if err != nil {
			t.Fatalf("CompileInText failed: %v", err)
		}
		text := "Zie Burgerlijk Wetboek Boek 7, Artikel 658 voor details"
		m, ok := firstMatch(t, g, text)
		if !ok {
			t.Fatal("Expected a match")
		}
		if m.Captures["TITLE"] != "Burgerlijk Wetboek Boek 7" || m.Captures["ARTICLE"] != "658" {
			t.Errorf("Unexpected captures %v", m.Captures)
		}
		if m.Literal != "Burgerlijk Wetboek Boek 7, Artikel 658" {
			t.Errorf("Literal = %q", m.Literal)
		}
		if text[m.Span.Start:m.Span.End] != m.Literal {
			t.Error("Span does not cover literal")
		}
	})

	t.Run("book_capture", func(t *testing.T) {
		g, _ := lib.CompileInText([]string{"burgerlijk wetboek"})
		m, ok := firstMatch(t, g, "Burgerlijk Wetboek Boek 7, Artikel 658")
		if !ok {
			t.Fatal("Expected a match")
		}
		if m.Captures["BOOK"] != "7" || m.Captures["TITLE"] != "Burgerlijk Wetboek" {
			t.Errorf("Unexpected captures %v", m.Captures)
		}
	})

	t.Run("multiple_articles", func(t *testing.T) {
		g, _ := lib.CompileInText([]string{"bw"})
		var found []RawMatch
		for _, p := range g.Patterns {
			found = append(found, p.FindAll("zie artt. 6:162, 6:163 BW")...)
		}
		if len(found) != 1 || found[0].Pattern != "articles-title" {
			t.Fatalf("Expected one articles-title match, got %+v", found)
		}
		if found[0].Captures["ARTICLES"] != "6:162, 6:163" {
			t.Errorf("ARTICLES = %q", found[0].Captures["ARTICLES"])
		}
	})

	t.Run("aliases_are_quoted", func(t *testing.T) {
		g, err := lib.CompileInText([]string{"wet (x)"})
		if err != nil {
			t.Fatalf("CompileInText failed: %v", err)
		}
		if _, ok := firstMatch(t, g, "artikel 3 wet x"); ok {
			t.Error("Parentheses in alias must match literally")
		}
		if _, ok := firstMatch(t, g, "artikel 3 Wet (X)"); !ok {
			t.Error("Expected literal alias match")
		}
	})

	t.Run("empty_alias_set", func(t *testing.T) {
		g, err := lib.CompileInText(nil)
		if err != nil {
			t.Fatalf("CompileInText failed: %v", err)
		}
		if len(g.Patterns) != 0 {
			t.Errorf("Expected no patterns, got %d", len(g.Patterns))
		}
	})
}

func TestNormalizeAliases(t *testing.T) {
	got := NormalizeAliases([]string{"BW", "Awb", "bw ", "", "Burgerlijk Wetboek", "awb"})
	want := []string{"burgerlijk wetboek", "awb", "bw"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("NormalizeAliases = %v, want %v", got, want)
	}
	if alt := TitleAlternation([]string{"a.b", "c"}); alt != `a\.b|c` {
		t.Errorf("TitleAlternation = %q", alt)
	}
}

func TestTemplateExpanded(t *testing.T) {
	lib := MustDefault()
	for _, tmpl := range lib.Templates {
		exp := tmpl.Expanded()
		if !strings.Contains(exp, "{TITLE}") {
			t.Errorf("%s: expanded pattern lost {TITLE}: %s", tmpl.Name, exp)
		}
		if placeholderRe.MatchString(strings.ReplaceAll(exp, "{TITLE}", "")) {
			t.Errorf("%s: unresolved placeholder in %s", tmpl.Name, exp)
		}
	}
}

const tmplTail = `
templates:
  - name: t
    scope: both
    pattern: '{A}{TITLE}'
`

func TestParseErrors(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		_, err := Parse([]byte(`
atoms:
  - {name: A, pattern: 'x{B}'}
  - {name: B, pattern: 'y{C}'}
  - {name: C, pattern: '{A}'}
` + tmplTail))
		if !errors.Is(err, ErrPlaceholderCycle) {
			t.Fatalf("Expected ErrPlaceholderCycle, got %v", err)
		}
		if !strings.Contains(err.Error(), "A -> B -> C -> A") {
			t.Errorf("Expected cycle path in error, got %v", err)
		}
	})

	t.Run("self_reference", func(t *testing.T) {
		_, err := Parse([]byte(`
atoms:
  - {name: A, pattern: 'x{A}'}
` + tmplTail))
		if !errors.Is(err, ErrPlaceholderCycle) {
			t.Fatalf("Expected ErrPlaceholderCycle, got %v", err)
		}
	})

	t.Run("unresolved", func(t *testing.T) {
		_, err := Parse([]byte(`
atoms:
  - {name: A, pattern: '{MISSING}'}
` + tmplTail))
		if !errors.Is(err, ErrUnresolvedPlaceholder) {
			t.Fatalf("Expected ErrUnresolvedPlaceholder, got %v", err)
		}
	})

	t.Run("depth_limit", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("atoms:\n")
		b.WriteString("  - {name: A, pattern: '{A0}'}\n")
		for i := 0; i < MaxDepth+1; i++ {
			fmt.Fprintf(&b, "  - {name: A%d, pattern: 'x{A%d}'}\n", i, i+1)
		}
		fmt.Fprintf(&b, "  - {name: A%d, pattern: 'x'}\n", MaxDepth+1)
		_, err := Parse([]byte(b.String() + tmplTail))
		if !errors.Is(err, ErrIterationLimit) {
			t.Fatalf("Expected ErrIterationLimit, got %v", err)
		}
	})

	t.Run("within_depth_limit", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("atoms:\n")
		b.WriteString("  - {name: A, pattern: '{A1}'}\n")
		for i := 1; i < MaxDepth-1; i++ {
			fmt.Fprintf(&b, "  - {name: A%d, pattern: 'x{A%d}'}\n", i, i+1)
		}
		fmt.Fprintf(&b, "  - {name: A%d, pattern: 'x'}\n", MaxDepth-1)
		if _, err := Parse([]byte(b.String() + tmplTail)); err != nil {
			t.Fatalf("Expected nesting of %d to be accepted: %v", MaxDepth, err)
		}
	})

	t.Run("bad_regex", func(t *testing.T) {
		_, err := Parse([]byte(`
atoms:
  - {name: A, pattern: '(x'}
` + tmplTail))
		if err == nil {
			t.Fatal("Expected regex error")
		}
	})

	t.Run("validation", func(t *testing.T) {
		_, err := Parse([]byte(`
atoms:
  - {name: TITLE, pattern: 'x'}
  - {name: lower, pattern: 'x'}
  - {name: B, capture: TITLE, pattern: 'x'}
templates:
  - {name: t, scope: sometimes, pattern: 'no title'}
`))
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("Expected ValidationErrors, got %v", err)
		}
		if len(verrs) != 5 {
			t.Errorf("Expected 5 validation errors, got %d: %v", len(verrs), verrs)
		}
	})
}

func TestCache(t *testing.T) {
	c, err := NewCache(MustDefault(), 4)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}

	a, err := c.InText([]string{"BW", "Awb"})
	if err != nil {
		t.Fatalf("InText failed: %v", err)
	}
	b, _ := c.InText([]string{"awb", "bw", "bw"})
	if a != b {
		t.Error("Expected the same grammar for equivalent alias sets")
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 cached grammar, got %d", c.Len())
	}

	empty, _ := c.InText(nil)
	if len(empty.Patterns) != 0 || c.Len() != 1 {
		t.Error("Empty alias set must not be compiled or cached")
	}

	e1, err := c.Exact()
	if err != nil {
		t.Fatalf("Exact failed: %v", err)
	}
	e2, _ := c.Exact()
	if e1 != e2 {
		t.Error("Expected exact grammar to be built once")
	}

	for i := 0; i < 10; i++ {
		_, _ = c.InText([]string{fmt.Sprintf("alias%d", i)})
	}
	if c.Len() != 4 {
		t.Errorf("Expected cache bounded at 4, got %d", c.Len())
	}
}
