package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/alias"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/config"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/extract"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/grammar"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/logging"
	"github.com/MaastrichtU-BISS/linkextractor/pkg/store"
)

var version = "0.1.0"

// app holds what the commands share: flags, configuration, logger and
// the open store.
type app struct {
	flags config.Overrides

	cfg   *config.Config
	log   *logging.Logger
	store store.Store
}

func main() {
	a := &app{}
	rootCmd := newRootCmd(a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "linkextractor",
		Short: "Extract links to Dutch legislation from legal text",
		Long: `linkextractor finds citations of Dutch statutes such as
"art. 7:658 BW" or "Artikel 4:8 Algemene wet bestuursrecht" and resolves
them to BWB identifiers and law element labels.

It works in two modes:
  - exact:   the input is a single citation
  - in text: citations are located inside a longer document`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.flags.DatabaseURL, "database", "d", "", "Database URL (overrides DB_URL)")
	pf.StringVar(&a.flags.TriePath, "trie", "", "Alias trie file (overrides LINKEXTRACTOR_TRIE_PATH)")
	pf.StringVar(&a.flags.GrammarPath, "grammar", "", "Citation grammar YAML (overrides LINKEXTRACTOR_GRAMMAR)")
	pf.BoolVarP(&a.flags.Verbose, "verbose", "v", false, "Log debug output and timings")

	rootCmd.AddCommand(evalCmd(a))
	rootCmd.AddCommand(casesCmd(a))
	rootCmd.AddCommand(benchCmd(a))
	rootCmd.AddCommand(analyzeCmd(a))
	rootCmd.AddCommand(watchCmd(a))
	rootCmd.AddCommand(trieCmd(a))
	rootCmd.AddCommand(dbCmd(a))
	return rootCmd
}

// open loads configuration, builds the logger and connects to the
// database.
func (a *app) open(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	cfg, err := config.Load(a.flags)
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	log, err := logging.New(cfg.LogMode, cfg.Verbose)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	s, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	log.Debug("database opened", "url", cfg.DatabaseURL)

	a.cfg, a.log, a.store = cfg, log, s
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing database", "error", err)
		}
		a.store = nil
	}
	if a.log != nil {
		a.log.Sync()
	}
}

func (a *app) trieSource() *alias.TrieSource {
	return &alias.TrieSource{Path: a.cfg.TriePath, Store: a.store, Log: a.log}
}

// extractor builds the pipeline. useTrie selects the trie recognizer for
// in-text mode, otherwise aliases are found with SQL.
func (a *app) extractor(useTrie bool) (*extract.Extractor, error) {
	opts := extract.Options{Logger: a.log}
	if a.cfg.GrammarPath != "" {
		lib, err := grammar.Load(a.cfg.GrammarPath)
		if err != nil {
			return nil, err
		}
		opts.Grammar = lib
	}
	if useTrie {
		opts.Recognizer = alias.NewLazyTrieRecognizer(a.trieSource())
	}
	return extract.New(a.store, opts)
}
