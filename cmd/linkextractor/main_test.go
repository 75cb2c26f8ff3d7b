package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/config"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	a.close()
	return out.String(), err
}

func TestReadInput(t *testing.T) {
	got, err := readInput([]string{"Art.", "5:1", "BW"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Art. 5:1 BW", got)

	got, err = readInput(nil, strings.NewReader("zie artikel 4:8 Awb\n"))
	require.NoError(t, err)
	assert.Equal(t, "zie artikel 4:8 Awb\n", got)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	writeText(&buf, nil)
	assert.Equal(t, "No links found.\n", buf.String())

	n := 2
	link := law.NewLink(
		law.Record{StatuteID: "BWBR0005290", ElementID: 7658, Title: "Burgerlijk Wetboek Boek 7, Artikel 658"},
		law.Fragments{{Type: law.ElementArticle, Number: "658"}, {Type: law.ElementBook, Number: "7"}},
		law.Span{Start: 0, End: 13}, "art. 7:658 BW")
	buf.Reset()
	writeText(&buf, []evalResult{{Link: link, Cases: &n}})
	assert.Equal(t,
		"1. BWBR0005290 7658 \"art. 7:658 BW\" [0:13] element book=7 article=658 cases=2  Burgerlijk Wetboek Boek 7, Artikel 658\n",
		buf.String())
}

func TestMissingDatabase(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvDatabaseURL, "")

	_, err := run(t, "eval", "--exact", "Art. 7:658 BW")
	assert.ErrorIs(t, err, config.ErrMissingDatabaseURL)
}

func TestCommandsEndToEnd(t *testing.T) {
	fixture, err := filepath.Abs(filepath.Join("..", "..", "pkg", "store", "storetest", "testdata", "fixture.yaml"))
	require.NoError(t, err)

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.EnvDatabaseURL, "sqlite:///links.db")
	t.Setenv(config.EnvTriePath, "")
	t.Setenv(config.EnvLogMode, "dev")

	out, err := run(t, "db", "seed", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 7 statutes")

	t.Run("eval_exact_json", func(t *testing.T) {
		out, err := run(t, "eval", "--exact", "--format", "json", "--cases", "Art. 7:658 BW")
		require.NoError(t, err)
		var results []evalResult
		require.NoError(t, json.Unmarshal([]byte(out), &results))
		require.Len(t, results, 1)
		assert.Equal(t, "BWBR0005290", results[0].Resource.StatuteID)
		assert.Equal(t, int64(7658), results[0].Resource.ElementID)
		require.NotNil(t, results[0].Cases)
		assert.Equal(t, 1, *results[0].Cases)
	})

	t.Run("eval_in_text_trie", func(t *testing.T) {
		out, err := run(t, "eval", "Het bestuursorgaan heeft artikel 4:8 Awb geschonden.")
		require.NoError(t, err)
		assert.Contains(t, out, "BWBR0005537 408")
		assert.FileExists(t, filepath.Join(dir, config.DefaultTriePath))
	})

	t.Run("eval_no_result", func(t *testing.T) {
		out, err := run(t, "eval", "--no-trie", "geen verwijzing")
		require.NoError(t, err)
		assert.Equal(t, "No links found.\n", out)
	})

	t.Run("bad_format", func(t *testing.T) {
		_, err := run(t, "eval", "--format", "xml", "5:1 BW")
		assert.Error(t, err)
	})

	t.Run("cases", func(t *testing.T) {
		out, err := run(t, "cases", "BWBR0005537", "408")
		require.NoError(t, err)
		assert.Contains(t, out, "ECLI:NL:RVS:2020:100")
		assert.Contains(t, out, "2 cases")
	})

	t.Run("trie_build", func(t *testing.T) {
		out, err := run(t, "trie", "build", "--trie", "rebuilt.trie")
		require.NoError(t, err)
		assert.Contains(t, out, "rebuilt.trie")
		assert.FileExists(t, filepath.Join(dir, "rebuilt.trie"))
	})
}
