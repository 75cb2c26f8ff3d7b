package alias

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Trie is a prefix tree over lowercased alias strings. It is not safe
// for concurrent mutation; once built it is read-only.
type Trie struct {
	root *trieNode
	size int
}

type trieNode struct {
	children map[rune]*trieNode
	terminal bool
}

// NewTrie builds a trie over keys. Keys are lowercased and trimmed;
// empty keys are ignored.
func NewTrie(keys []string) *Trie {
	t := &Trie{root: &trieNode{}}
	for _, k := range keys {
		t.Insert(k)
	}
	return t
}

// Keys are persisted one per line.
var lineBreaks = strings.NewReplacer("\n", " ", "\r", " ")

// Insert adds key. It reports whether the key was new.
func (t *Trie) Insert(key string) bool {
	key = strings.ToLower(strings.TrimSpace(lineBreaks.Replace(key)))
	if key == "" {
		return false
	}
	n := t.root
	for _, r := range key {
		if n.children == nil {
			n.children = make(map[rune]*trieNode)
		}
		child, ok := n.children[r]
		if !ok {
			child = &trieNode{}
			n.children[r] = child
		}
		n = child
	}
	if n.terminal {
		return false
	}
	n.terminal = true
	t.size++
	return true
}

// Len returns the number of keys.
func (t *Trie) Len() int { return t.size }

// Contains reports whether key is present.
func (t *Trie) Contains(key string) bool {
	n := t.root
	for _, r := range strings.ToLower(key) {
		n = n.children[r]
		if n == nil {
			return false
		}
	}
	return n.terminal
}

// Prefixes returns every key that is a prefix of s, shortest first. s
// must already be lowercased.
func (t *Trie) Prefixes(s string) []string {
	var out []string
	t.walk(s, func(end int) bool {
		out = append(out, s[:end])
		return true
	})
	return out
}

// walk calls fn with the byte end offset of every key that prefixes s.
// Walking stops when fn returns false.
func (t *Trie) walk(s string, fn func(end int) bool) {
	n := t.root
	for i, r := range s {
		n = n.children[r]
		if n == nil {
			return
		}
		if n.terminal && !fn(i+utf8.RuneLen(r)) {
			return
		}
	}
}

// Keys returns every key in lexical order.
func (t *Trie) Keys() []string {
	out := make([]string, 0, t.size)
	var buf []rune
	var visit func(n *trieNode)
	visit = func(n *trieNode) {
		if n.terminal {
			out = append(out, string(buf))
		}
		for r, child := range n.children {
			buf = append(buf, r)
			visit(child)
			buf = buf[:len(buf)-1]
		}
	}
	visit(t.root)
	sort.Strings(out)
	return out
}

// FindAll scans text for whole-word alias occurrences. Scanning starts
// only at word starts; at each start the longest key ending on a word
// boundary is kept. Results are lowercased and may repeat.
func (t *Trie) FindAll(text string) []Occurrence {
	lowered := strings.ToLower(text)
	var out []Occurrence
	prev := rune(-1)
	for i, r := range lowered {
		atStart := prev == -1 || !isWordRune(prev) || !isWordRune(r)
		prev = r
		if !atStart {
			continue
		}
		rest := lowered[i:]
		best := 0
		t.walk(rest, func(end int) bool {
			if endsOnBoundary(rest, end) {
				best = end
			}
			return true
		})
		if best > 0 {
			out = append(out, Occurrence{Alias: rest[:best], Start: i, End: i + best})
		}
	}
	return out
}

// Occurrence is an alias found at a byte range of the lowercased text.
type Occurrence struct {
	Alias string
	Start int
	End   int
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// endsOnBoundary reports whether s[:end] ends at a word boundary. A key
// ending in a non-word rune needs no boundary after it.
func endsOnBoundary(s string, end int) bool {
	last, _ := utf8.DecodeLastRuneInString(s[:end])
	if !isWordRune(last) || end == len(s) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(s[end:])
	return !isWordRune(next)
}

// startsOnBoundary reports whether s[start:] begins at a word boundary.
func startsOnBoundary(s string, start int) bool {
	if start == 0 {
		return true
	}
	first, _ := utf8.DecodeRuneInString(s[start:])
	if !isWordRune(first) {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(s[:start])
	return !isWordRune(prev)
}
