package analyze

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
)

// DefaultQueries is a set of citations seen in practice, covering every
// citation form the grammar knows and some it does not.
var DefaultQueries = []string{
	"Art. 7:658 BW",
	"Artikel 7:658 BW",
	"Artikel 7:658 Burgerlijk Wetboek",
	"Artikel 7:658 van het BW",
	"Artikel 7:658 van het BW boek 7",
	"Artikel 658 van boek 7 van het Burgerlijk Wetboek",
	"Artikel 658 van het boek 7 van het Burgerlijk Wetboek",
	"Burgerlijk Wetboek Boek 7, Artikel 658",
	"Burgerlijk Wetboek, Artikel 658",
	"Artikel 658 van Boek 7 BW",
	"Art. 7:658 van het Burgerlijk Wetboek",
	"Burgerlijk Wetboek",
	"Artikel 1:75 Wet op het financieel toezicht",
	"1:75 Wft",
	"Artikel 3:2 Algemene wet bestuursrecht (zorgvuldigheidsbeginsel)",
	"3:2 awb",
	"Artikel 4:8 Algemene wet bestuursrecht (hoor en wederhoor)",
	"4:8 Awb",
	"Verordening (EG) nr. 1618/1999",
	"Artikel 7.28 WHW",
	"Artikel 7.57H WHW",
	"5:1 BW",
	"art. 2:346 lid 1, aanhef en onder e BW",
	"Art. 5:1 lid 2 BW",
}

// ExactExtractor is the exact-mode extraction under benchmark.
type ExactExtractor interface {
	ExtractExact(ctx context.Context, text string) ([]law.Link, error)
}

// BenchResult holds the timings of one query.
type BenchResult struct {
	Query      string        `json:"query"`
	Results    int           `json:"results"`
	Iterations int           `json:"iterations"`
	Min        time.Duration `json:"min"`
	Mean       time.Duration `json:"mean"`
	Median     time.Duration `json:"median"`
	Max        time.Duration `json:"max"`
}

type queryFile struct {
	Queries []string `yaml:"queries"`
}

// LoadQueries reads a YAML query list, either a bare sequence or a
// mapping with a queries key.
func LoadQueries(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	var list []string
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var f queryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Queries, nil
}

// Bench runs each query through exact extraction iterations times.
func Bench(ctx context.Context, ext ExactExtractor, queries []string, iterations int) ([]BenchResult, error) {
	if iterations <= 0 {
		iterations = 1
	}
	out := make([]BenchResult, 0, len(queries))
	for _, q := range queries {
		times := make([]time.Duration, 0, iterations)
		var results int
		for i := 0; i < iterations; i++ {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			start := time.Now()
			links, err := ext.ExtractExact(ctx, q)
			if err != nil {
				return out, fmt.Errorf("query %q: %w", q, err)
			}
			times = append(times, time.Since(start))
			results = len(links)
		}
		out = append(out, summarize(q, results, times))
	}
	return out, nil
}

func summarize(query string, results int, times []time.Duration) BenchResult {
	sorted := append([]time.Duration(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, t := range sorted {
		total += t
	}
	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return BenchResult{
		Query:      query,
		Results:    results,
		Iterations: n,
		Min:        sorted[0],
		Mean:       total / time.Duration(n),
		Median:     median,
		Max:        sorted[n-1],
	}
}
