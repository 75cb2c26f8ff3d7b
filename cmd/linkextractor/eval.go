package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/grammar"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/store"
)

// evalResult is a link with an optional count of citing cases.
type evalResult struct {
	law.Link
	Cases *int `json:"cases,omitempty"`
}

func evalCmd(a *app) *cobra.Command {
	var (
		exact     bool
		format    string
		withCases bool
		noTrie    bool
	)

	cmd := &cobra.Command{
		Use:   "eval [text]",
		Short: "Extract law links from text",
		Long: `Extract links to legislation from the given text, or from stdin when
no text is given.

Examples:
  linkextractor eval --exact "Art. 7:658 BW"
  linkextractor eval < uitspraak.txt
  echo "zie artikel 4:8 Awb" | linkextractor eval --format json --cases`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (use text or json)", format)
			}
			text, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			ext, err := a.extractor(!noTrie)
			if err != nil {
				return err
			}

			mode := grammar.ModeInText
			if exact {
				mode = grammar.ModeExact
			}
			links, err := ext.Extract(ctx, text, mode)
			if err != nil {
				return err
			}

			results := make([]evalResult, len(links))
			for i, l := range links {
				results[i] = evalResult{Link: l}
			}
			if withCases {
				if err := annotateCases(cmd, a.store, results); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			writeText(out, results)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&exact, "exact", "e", false, "Treat the input as a single citation")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&withCases, "cases", false, "Count the cases citing each result")
	cmd.Flags().BoolVar(&noTrie, "no-trie", false, "Find aliases with SQL instead of the alias trie")

	return cmd
}

// readInput joins the arguments, or reads r when there are none.
func readInput(args []string, r io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := r.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", fmt.Errorf("no text given: pass it as an argument or on stdin")
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func annotateCases(cmd *cobra.Command, s store.CaseStore, results []evalResult) error {
	keys := make([]store.ElementKey, 0, len(results))
	for _, r := range results {
		keys = append(keys, store.ElementKey{StatuteID: r.Resource.StatuteID, ElementID: r.Resource.ElementID})
	}
	counts, err := s.CaseCounts(cmd.Context(), keys)
	if err != nil {
		return err
	}
	for i, k := range keys {
		n := counts[k]
		results[i].Cases = &n
	}
	return nil
}

// writeText prints one line per result.
func writeText(w io.Writer, results []evalResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No links found.")
		return
	}
	for i, r := range results {
		label := "-"
		if r.Resource.ElementID != 0 {
			label = fmt.Sprintf("%d", r.Resource.ElementID)
		}
		var frags []string
		for _, f := range r.Fragment {
			frags = append(frags, f.Type.String()+"="+f.Number)
		}
		fmt.Fprintf(w, "%d. %s %s %q [%d:%d] %s", i+1, r.Resource.StatuteID, label,
			r.Context.Literal, r.Context.Span.Start, r.Context.Span.End, r.Precision)
		if len(frags) > 0 {
			fmt.Fprintf(w, " %s", strings.Join(frags, " "))
		}
		if r.Cases != nil {
			fmt.Fprintf(w, " cases=%d", *r.Cases)
		}
		fmt.Fprintf(w, "  %s\n", r.Resource.Title)
	}
}
