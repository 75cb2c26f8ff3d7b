// Package analyze measures extraction quality against the case-law
// links recorded for court decisions and benchmarks query latency.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/logging"
)

// Files making up a case sample directory.
const (
	CaseTextFile  = "full_text.txt"
	CaseLinksFile = "links_lido.json"
	AnalysisFile  = "analysis.json"
)

// Extractor is the in-text extraction under evaluation.
type Extractor interface {
	ExtractInText(ctx context.Context, text string) ([]law.Link, error)
}

// GroundTruthLink is one entry of links_lido.json.
type GroundTruthLink struct {
	Type      string `json:"type"`
	Number    string `json:"number"`
	StatuteID string `json:"bwb_id"`
	ElementID int64  `json:"bwb_label_id"`
	Title     string `json:"title"`
	Opschrift string `json:"opschrift"`
	Source    string `json:"source"`
}

// Occurrence is a ground-truth link located in the case text.
type Occurrence struct {
	Link GroundTruthLink `json:"link"`
	Span law.Span        `json:"span"`
}

// SampleReport is the analysis of one case.
type SampleReport struct {
	ECLI        string       `json:"ecli"`
	TextLength  int          `json:"text_length"`
	GroundTruth int          `json:"ground_truth"`
	Located     int          `json:"located"`
	Found       int          `json:"found"`
	Missed      []Occurrence `json:"missed"`
	Extra       []law.Link   `json:"extra"`
}

// Totals sums sample reports.
type Totals struct {
	Samples     int `json:"samples"`
	GroundTruth int `json:"ground_truth"`
	Located     int `json:"located"`
	Found       int `json:"found"`
	Missed      int `json:"missed"`
	Extra       int `json:"extra"`
}

// Recall is found over located ground-truth links.
func (t Totals) Recall() float64 {
	if t.Located == 0 {
		return 0
	}
	return float64(t.Found) / float64(t.Located)
}

func (t *Totals) add(r *SampleReport) {
	t.Samples++
	t.GroundTruth += r.GroundTruth
	t.Located += r.Located
	t.Found += r.Found
	t.Missed += len(r.Missed)
	t.Extra += len(r.Extra)
}

// Report is the outcome of Evaluate, samples ordered by ECLI.
type Report struct {
	Samples []*SampleReport `json:"samples"`
	Totals  Totals          `json:"totals"`
}

// Options configures Evaluate.
type Options struct {
	// Concurrency bounds the samples processed at once. Defaults to
	// the number of CPUs.
	Concurrency int
	Logger      *logging.Logger
}

// Evaluate analyses every sample directory under dir and writes an
// analysis file into each.
func Evaluate(ctx context.Context, dir string, ext Extractor, opts Options) (*Report, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	samples, err := sampleDirs(dir)
	if err != nil {
		return nil, err
	}
	log.Info("starting analysis", "dir", dir, "samples", len(samples))

	var (
		mu     sync.Mutex
		report Report
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, sample := range samples {
		g.Go(func() error {
			r, err := EvaluateSample(ctx, sample, ext)
			if err != nil {
				return err
			}
			if err := writeJSON(filepath.Join(sample, AnalysisFile), r); err != nil {
				return err
			}
			log.Info("analysed sample", "ecli", r.ECLI, "length", r.TextLength,
				"links", r.GroundTruth, "found", r.Found, "missed", len(r.Missed), "extra", len(r.Extra))

			mu.Lock()
			report.Samples = append(report.Samples, r)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Samples, func(i, j int) bool { return report.Samples[i].ECLI < report.Samples[j].ECLI })
	for _, r := range report.Samples {
		report.Totals.add(r)
	}
	return &report, nil
}

func sampleDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := os.Stat(filepath.Join(path, CaseTextFile)); err != nil {
			continue
		}
		out = append(out, path)
	}
	return out, nil
}

// EvaluateSample compares extraction on one sample directory with its
// ground truth. The directory name is taken as the ECLI.
func EvaluateSample(ctx context.Context, sample string, ext Extractor) (*SampleReport, error) {
	text, err := os.ReadFile(filepath.Join(sample, CaseTextFile))
	if err != nil {
		return nil, fmt.Errorf("reading case text: %w", err)
	}
	truth, err := readGroundTruth(filepath.Join(sample, CaseLinksFile))
	if err != nil {
		return nil, err
	}
	links, err := ext.ExtractInText(ctx, string(text))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(sample), err)
	}
	r := Compare(string(text), truth, links)
	r.ECLI = filepath.Base(sample)
	return r, nil
}

func readGroundTruth(path string) ([]GroundTruthLink, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ground truth: %w", err)
	}
	var out []GroundTruthLink
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Compare scores extracted links against ground truth. A ground-truth
// link is located when its opschrift occurs in the text and found when
// an extracted link for the same statute overlaps one of those
// occurrences. Extracted links overlapping no occurrence are extra.
func Compare(text string, truth []GroundTruthLink, links []law.Link) *SampleReport {
	r := &SampleReport{TextLength: len(text), GroundTruth: len(truth), Missed: []Occurrence{}, Extra: []law.Link{}}

	var all []Occurrence
	for _, gt := range truth {
		occ := locate(text, gt)
		if len(occ) == 0 {
			continue
		}
		r.Located++
		all = append(all, occ...)

		hit := false
		for _, o := range occ {
			for _, l := range links {
				if l.Resource.StatuteID == gt.StatuteID && overlaps(l.Context.Span, o.Span) {
					hit = true
				}
			}
		}
		if hit {
			r.Found++
		} else {
			r.Missed = append(r.Missed, occ[0])
		}
	}

	for _, l := range links {
		covered := false
		for _, o := range all {
			if overlaps(l.Context.Span, o.Span) {
				covered = true
				break
			}
		}
		if !covered {
			r.Extra = append(r.Extra, l)
		}
	}
	return r
}

func locate(text string, gt GroundTruthLink) []Occurrence {
	if gt.Opschrift == "" {
		return nil
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(gt.Opschrift))
	var out []Occurrence
	for _, loc := range re.FindAllStringIndex(text, -1) {
		out = append(out, Occurrence{Link: gt, Span: law.Span{Start: loc[0], End: loc[1]}})
	}
	return out
}

func overlaps(a, b law.Span) bool {
	return a.Start < b.End && b.Start < a.End
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
