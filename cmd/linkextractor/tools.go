package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/alias"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/analyze"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/store"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/watch"
)

func casesCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "cases <bwb-id> [label-id]",
		Short: "List cases citing a statute or law element",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := store.ElementKey{StatuteID: args[0]}
			if len(args) == 2 {
				id, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid label id %q: %w", args[1], err)
				}
				key.ElementID = id
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			cases, err := a.store.CasesByElement(cmd.Context(), key, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range cases {
				fmt.Fprintf(out, "%s\t%s\t%s\n", c.ECLI, c.Source, c.Opschrift)
			}
			fmt.Fprintf(out, "%d cases\n", len(cases))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", store.DefaultMaxCases, "Maximum number of cases")
	return cmd
}

func benchCmd(a *app) *cobra.Command {
	var (
		iterations  int
		queriesFile string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time exact-mode extraction over a list of queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			queries := analyze.DefaultQueries
			if queriesFile != "" {
				var err error
				if queries, err = analyze.LoadQueries(queriesFile); err != nil {
					return err
				}
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			ext, err := a.extractor(false)
			if err != nil {
				return err
			}
			results, err := analyze.Bench(cmd.Context(), ext, queries, iterations)
			if err != nil {
				return err
			}
			for i, r := range results {
				a.log.Info("query performance",
					"n", i,
					"query", r.Query,
					"results", r.Results,
					"iterations", r.Iterations,
					"min", r.Min.Round(time.Microsecond),
					"mean", r.Mean.Round(time.Microsecond),
					"median", r.Median.Round(time.Microsecond),
					"max", r.Max.Round(time.Microsecond))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 1, "Runs per query")
	cmd.Flags().StringVarP(&queriesFile, "queries", "q", "", "YAML file with queries")
	return cmd
}

func analyzeCmd(a *app) *cobra.Command {
	var (
		concurrency int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <samples-dir>",
		Short: "Compare in-text extraction with case-law ground truth",
		Long: `Analyze every case sample under the directory. A sample is a directory
named after the ECLI holding full_text.txt and links_lido.json. The
analysis of each sample is written to analysis.json in its directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			ext, err := a.extractor(true)
			if err != nil {
				return err
			}
			report, err := analyze.Evaluate(cmd.Context(), args[0], ext, analyze.Options{
				Concurrency: concurrency,
				Logger:      a.log,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report.Totals)
			}
			t := report.Totals
			fmt.Fprintf(out, "Samples:      %d\n", t.Samples)
			fmt.Fprintf(out, "Ground truth: %d (%d located in text)\n", t.GroundTruth, t.Located)
			fmt.Fprintf(out, "Found:        %d\n", t.Found)
			fmt.Fprintf(out, "Missed:       %d\n", t.Missed)
			fmt.Fprintf(out, "Extra:        %d\n", t.Extra)
			fmt.Fprintf(out, "Recall:       %.3f\n", t.Recall())
			return nil
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Samples processed at once (default: number of CPUs)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print totals as JSON")
	return cmd
}

func watchCmd(a *app) *cobra.Command {
	var existing bool

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Extract links from text files as they appear in a directory",
		Long: `Watch a directory for new or changed *.txt files and write the in-text
extraction result of each to <name>.links.json next to it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			ext, err := a.extractor(true)
			if err != nil {
				return err
			}
			w := watch.New(args[0], ext, a.log)
			if existing {
				if _, err := w.ProcessExisting(ctx); err != nil {
					return err
				}
			}
			if err := w.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			w.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&existing, "existing", false, "Process files already in the directory first")
	return cmd
}

func trieCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trie",
		Short: "Manage the alias trie",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Rebuild the alias trie from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			t, err := alias.BuildTrie(cmd.Context(), a.store)
			if err != nil {
				return err
			}
			if err := alias.SaveTrie(a.cfg.TriePath, t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d aliases to %s\n", t.Len(), a.cfg.TriePath)
			return nil
		},
	})
	return cmd
}

func dbCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the law database",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			if err := a.store.InitSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema ready.")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load statutes, aliases and cases from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := store.LoadFixture(args[0])
			if err != nil {
				return err
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			if err := a.store.InitSchema(cmd.Context()); err != nil {
				return err
			}
			if err := a.store.Seed(cmd.Context(), f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d statutes and %d cases.\n", len(f.Statutes), len(f.Cases))
			return nil
		},
	})
	return cmd
}
