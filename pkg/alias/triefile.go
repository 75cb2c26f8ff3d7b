package alias

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/logging"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/store"
)

const trieHeader = "# linkextractor alias trie v1"

// WriteTo writes one key per line after a version header.
func (t *Trie) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	write := func(s string) error {
		m, err := bw.WriteString(s)
		n += int64(m)
		return err
	}
	if err := write(trieHeader + "\n"); err != nil {
		return n, err
	}
	for _, k := range t.Keys() {
		if err := write(k + "\n"); err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// ReadTrie reads a trie written by WriteTo.
func ReadTrie(r io.Reader) (*Trie, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read trie: %w", err)
		}
		return nil, fmt.Errorf("read trie: empty input")
	}
	if sc.Text() != trieHeader {
		return nil, fmt.Errorf("read trie: unexpected header %q", sc.Text())
	}
	t := NewTrie(nil)
	for sc.Scan() {
		t.Insert(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read trie: %w", err)
	}
	return t, nil
}

// SaveTrie writes t to path atomically.
func SaveTrie(path string, t *Trie) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".trie-*")
	if err != nil {
		return fmt.Errorf("save trie: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := t.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("save trie: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save trie: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save trie: %w", err)
	}
	return nil
}

// LoadTrie reads the trie at path.
func LoadTrie(path string) (*Trie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadTrie(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// BuildTrie builds a trie from every distinct alias in the store.
func BuildTrie(ctx context.Context, s store.AliasStore) (*Trie, error) {
	keys, err := s.DistinctAliases(ctx)
	if err != nil {
		return nil, fmt.Errorf("build trie: %w", err)
	}
	return NewTrie(keys), nil
}

// TrieSource lazily provides the process-wide trie: loaded from Path
// when present, otherwise built from the store and saved to Path. The
// first successful or failed load is remembered.
type TrieSource struct {
	Path  string
	Store store.AliasStore
	Log   *logging.Logger

	once sync.Once
	trie *Trie
	err  error
}

// Get returns the trie, loading it on first use.
func (s *TrieSource) Get(ctx context.Context) (*Trie, error) {
	s.once.Do(func() {
		s.trie, s.err = s.load(ctx)
	})
	return s.trie, s.err
}

func (s *TrieSource) logger() *logging.Logger {
	if s.Log == nil {
		return logging.Nop()
	}
	return s.Log
}

func (s *TrieSource) load(ctx context.Context) (*Trie, error) {
	log := s.logger()
	if s.Path != "" {
		t, err := LoadTrie(s.Path)
		if err == nil {
			log.Debug("trie loaded", "path", s.Path, "keys", t.Len())
			return t, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if s.Store == nil {
		return nil, fmt.Errorf("trie %s not found and no store to build from", s.Path)
	}
	t, err := BuildTrie(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	log.Info("trie built", "keys", t.Len())
	if s.Path != "" {
		if err := SaveTrie(s.Path, t); err != nil {
			log.Warn("trie not saved", "path", s.Path, "error", err)
		}
	}
	return t, nil
}
