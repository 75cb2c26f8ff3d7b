package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/extract"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/store/storetest"
)

func writeSample(t *testing.T, root, ecli, text string, truth []GroundTruthLink) string {
	t.Helper()
	dir := filepath.Join(root, ecli)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, CaseTextFile), []byte(text), 0o644))
	data, err := json.Marshal(truth)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, CaseLinksFile), data, 0o644))
	return dir
}

func link(statute string, start, end int) law.Link {
	return law.NewLink(law.Record{StatuteID: statute, ElementID: 1}, nil, law.Span{Start: start, End: end}, "")
}

func TestCompare(t *testing.T) {
	text := "Op grond van art. 7:658 BW en art. 6:162 BW, zie ook de Awb."
	truth := []GroundTruthLink{
		{StatuteID: "BWBR0005290", Opschrift: "art. 7:658 BW"},
		{StatuteID: "BWBR0005289", Opschrift: "art. 6:162 BW"},
		{StatuteID: "BWBR0001827", Opschrift: "artikel 353 lid 1 Rv"},
	}
	links := []law.Link{
		link("BWBR0005290", 13, 26),
		link("BWBR0005288", 30, 43),
		link("BWBR0005537", 56, 59),
	}

	r := Compare(text, truth, links)
	assert.Equal(t, 3, r.GroundTruth)
	assert.Equal(t, 2, r.Located)
	assert.Equal(t, 1, r.Found)
	require.Len(t, r.Missed, 1)
	assert.Equal(t, "BWBR0005289", r.Missed[0].Link.StatuteID)
	assert.Equal(t, law.Span{Start: 30, End: 43}, r.Missed[0].Span)
	require.Len(t, r.Extra, 1)
	assert.Equal(t, "BWBR0005537", r.Extra[0].Resource.StatuteID)
}

func TestCompareCaseInsensitive(t *testing.T) {
	r := Compare("ARTIKEL 4:8 AWB", []GroundTruthLink{{StatuteID: "X", Opschrift: "artikel 4:8 Awb"}}, []law.Link{link("X", 0, 15)})
	assert.Equal(t, 1, r.Found)
	assert.Empty(t, r.Missed)
	assert.Empty(t, r.Extra)
}

func TestEvaluate(t *testing.T) {
	ext, err := extract.New(storetest.Open(t), extract.Options{})
	require.NoError(t, err)

	root := t.TempDir()
	first := writeSample(t, root, "ECLI:NL:HR:2019:1734",
		"De werkgever is op grond van art. 7:658 BW aansprakelijk.",
		[]GroundTruthLink{{StatuteID: "BWBR0005290", ElementID: 7658, Opschrift: "art. 7:658 BW", Source: "lido-ref"}})
	writeSample(t, root, "ECLI:NL:RVS:2020:100",
		"Het bestuursorgaan heeft artikel 4:8 Awb geschonden. Zie ook art. 3:2 Awb.",
		[]GroundTruthLink{{StatuteID: "BWBR0005537", ElementID: 408, Opschrift: "artikel 4:8 Awb", Source: "lido-ref"}})
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.txt"), []byte("not a sample"), 0o644))

	report, err := Evaluate(context.Background(), root, ext, Options{Concurrency: 2})
	require.NoError(t, err)
	require.Len(t, report.Samples, 2)
	assert.Equal(t, "ECLI:NL:HR:2019:1734", report.Samples[0].ECLI)
	assert.Equal(t, Totals{Samples: 2, GroundTruth: 2, Located: 2, Found: 2, Missed: 0, Extra: 1}, report.Totals)
	assert.InDelta(t, 1.0, report.Totals.Recall(), 1e-9)

	var written SampleReport
	data, err := os.ReadFile(filepath.Join(first, AnalysisFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, 1, written.Found)
}

type failing struct{}

func (failing) ExtractInText(context.Context, string) ([]law.Link, error) {
	return nil, errors.New("store closed")
}

func TestEvaluateStopsOnError(t *testing.T) {
	root := t.TempDir()
	writeSample(t, root, "ECLI:NL:HR:2019:1", "art. 7:658 BW", nil)

	_, err := Evaluate(context.Background(), root, failing{}, Options{})
	assert.ErrorContains(t, err, "store closed")
}

func TestEvaluateMissingDir(t *testing.T) {
	_, err := Evaluate(context.Background(), filepath.Join(t.TempDir(), "nope"), failing{}, Options{})
	assert.Error(t, err)
}

type countingExtractor struct {
	calls int
}

func (c *countingExtractor) ExtractExact(context.Context, string) ([]law.Link, error) {
	c.calls++
	return []law.Link{{}}, nil
}

func TestBench(t *testing.T) {
	ext := &countingExtractor{}
	results, err := Bench(context.Background(), ext, []string{"a", "b"}, 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 6, ext.calls)
	for _, r := range results {
		assert.Equal(t, 3, r.Iterations)
		assert.Equal(t, 1, r.Results)
		assert.LessOrEqual(t, r.Min, r.Median)
		assert.LessOrEqual(t, r.Median, r.Max)
	}
}

func TestBenchDefaultQueries(t *testing.T) {
	ext, err := extract.New(storetest.Open(t), extract.Options{})
	require.NoError(t, err)
	results, err := Bench(context.Background(), ext, DefaultQueries, 1)
	require.NoError(t, err)
	assert.Len(t, results, len(DefaultQueries))
}

func TestSummarize(t *testing.T) {
	r := summarize("q", 0, []time.Duration{4, 1, 3, 2})
	assert.Equal(t, time.Duration(1), r.Min)
	assert.Equal(t, time.Duration(4), r.Max)
	assert.Equal(t, time.Duration(2), r.Mean)
	assert.Equal(t, time.Duration(2), r.Median)
}

func TestLoadQueries(t *testing.T) {
	dir := t.TempDir()

	bare := filepath.Join(dir, "bare.yaml")
	require.NoError(t, os.WriteFile(bare, []byte("- Art. 7:658 BW\n- 3:2 awb\n"), 0o644))
	got, err := LoadQueries(bare)
	require.NoError(t, err)
	assert.Equal(t, []string{"Art. 7:658 BW", "3:2 awb"}, got)

	keyed := filepath.Join(dir, "keyed.yaml")
	require.NoError(t, os.WriteFile(keyed, []byte("queries:\n  - 5:1 BW\n"), 0o644))
	got, err = LoadQueries(keyed)
	require.NoError(t, err)
	assert.Equal(t, []string{"5:1 BW"}, got)

	_, err = LoadQueries(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
