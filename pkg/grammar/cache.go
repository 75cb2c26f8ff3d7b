package grammar

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of in-text grammars kept.
const DefaultCacheSize = 256

// Cache holds compiled grammars: the exact grammar, built once, and in-text
// grammars keyed by alias set.
type Cache struct {
	lib *Library

	exactOnce sync.Once
	exact     *Grammar
	exactErr  error

	inText *lru.Cache[string, *Grammar]
}

// NewCache returns a cache over lib holding up to size in-text grammars.
func NewCache(lib *Library, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *Grammar](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lib: lib, inText: c}, nil
}

// Library returns the grammar definition behind the cache.
func (c *Cache) Library() *Library { return c.lib }

// Exact returns the anchored grammar.
func (c *Cache) Exact() (*Grammar, error) {
	c.exactOnce.Do(func() {
		c.exact, c.exactErr = c.lib.CompileExact()
	})
	return c.exact, c.exactErr
}

// InText returns the search grammar for aliases, compiling it on a miss.
func (c *Cache) InText(aliases []string) (*Grammar, error) {
	norm := NormalizeAliases(aliases)
	if len(norm) == 0 {
		return &Grammar{Mode: ModeInText}, nil
	}
	key := aliasSetKey(norm)
	if g, ok := c.inText.Get(key); ok {
		return g, nil
	}
	g, err := c.lib.CompileInText(norm)
	if err != nil {
		return nil, err
	}
	c.inText.Add(key, g)
	return g, nil
}

// Len returns the number of cached in-text grammars.
func (c *Cache) Len() int { return c.inText.Len() }

func aliasSetKey(norm []string) string {
	sum := sha256.Sum256([]byte(strings.Join(norm, "\x00")))
	return hex.EncodeToString(sum[:])
}
