package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/avessey/litscan/internal/config"
	"github.com/avessey/litscan/internal/engine"
	"github.com/avessey/litscan/internal/feedsrc"
	"github.com/avessey/litscan/internal/fulltext"
	"github.com/avessey/litscan/internal/journal"
	"github.com/avessey/litscan/internal/notion"
	"github.com/avessey/litscan/internal/pipeline"
	"github.com/avessey/litscan/internal/pubmed"
	"github.com/avessey/litscan/internal/queries"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "litscan",
	Short:   "Scheduled literature monitoring",
	Long:    "Litscan polls PubMed for configured queries, extracts structured findings with an LLM, correlates each batch, and files new papers into a Notion database.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(queriesCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("litscan", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/litscan/",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
		} else {
			if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Printf("Created config: %s\n", target)
		}

		queryFile := filepath.Join(config.ConfigDir(), "queries.txt")
		if _, err := os.Stat(queryFile); err == nil {
			fmt.Printf("Query list already exists: %s\n", queryFile)
		} else {
			if err := os.WriteFile(queryFile, config.DefaultQueriesTxt, 0o644); err != nil {
				return fmt.Errorf("writing query list: %w", err)
			}
			fmt.Printf("Created query list: %s\n", queryFile)
		}

		fmt.Println("Edit the config to set API key env vars, then add queries with 'litscan queries add'.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run history and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openJournal()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		qs, err := queries.Load(cfg.Queries.File)
		if err != nil {
			fmt.Printf("Queries: none (%v)\n\n", err)
		} else {
			fmt.Printf("Queries: %d configured\n\n", len(qs))
		}

		fmt.Println("Runs:")
		fmt.Printf("  Total: %d\n", stats.TotalRuns)
		fmt.Printf("  Papers written: %d\n", stats.TotalWritten)
		fmt.Printf("  Papers failed: %d\n", stats.TotalFailed)
		if stats.LastStarted != "" {
			fmt.Printf("  Last run: %s\n", stats.LastStarted)
		} else {
			fmt.Println("  Last run: never")
		}
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full scan: fetch -> dedup -> analyze -> synthesize -> write",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, db, err := buildOrchestrator()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		result := o.Run(cmd.Context())
		printResult(result)
		return nil
	},
}

// --- watch command ---

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a scan now and repeat on the configured interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, db, err := buildOrchestrator()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		interval := cfg.Schedule.Interval()
		fmt.Printf("Watching (every %s). Press Ctrl+C to stop.\n", interval)

		printResult(o.Run(ctx))

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				fmt.Println("\nStopped.")
				return nil
			case <-ticker.C:
				printResult(o.Run(ctx))
			}
		}
	},
}

func printResult(r *pipeline.Result) {
	fmt.Println("\nScan complete:")
	fmt.Printf("  Queries: %d\n", r.Queries)
	fmt.Printf("  Papers found: %d\n", r.Found)
	fmt.Printf("  New: %d\n", r.New)
	fmt.Printf("  Duplicates skipped: %d\n", r.Duplicates)
	fmt.Printf("  Written: %d\n", r.Written)
	if r.Failed > 0 {
		fmt.Printf("  Failed: %d\n", r.Failed)
	}
}

// --- queries command ---

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Manage the search query list",
}

var queriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured queries",
	RunE: func(cmd *cobra.Command, args []string) error {
		qs, err := queries.Load(cfg.Queries.File)
		if err != nil {
			return err
		}
		if len(qs) == 0 {
			fmt.Println("No queries defined. Add one with: litscan queries add")
			return nil
		}
		fmt.Println("Queries:")
		for i, q := range qs {
			fmt.Printf("  [%d] %s\n", i+1, q)
		}
		return nil
	},
}

var queriesAddCmd = &cobra.Command{
	Use:   "add [query]",
	Short: "Add a search query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := queries.Add(cfg.Queries.File, args[0]); err != nil {
			return err
		}
		fmt.Printf("Added query: %s\n", args[0])
		return nil
	},
}

var queriesRemoveCmd = &cobra.Command{
	Use:   "remove [query]",
	Short: "Remove a search query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := queries.Remove(cfg.Queries.File, args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("query not found: %s", args[0])
		}
		fmt.Printf("Removed query: %s\n", args[0])
		return nil
	},
}

func init() {
	queriesCmd.AddCommand(queriesListCmd)
	queriesCmd.AddCommand(queriesAddCmd)
	queriesCmd.AddCommand(queriesRemoveCmd)
}

// buildOrchestrator wires every collaborator from config and environment.
// The journal is best-effort: a failure to open it is reported but does
// not block the scan.
func buildOrchestrator() (*pipeline.Orchestrator, *journal.DB, error) {
	qs, err := queries.Load(cfg.Queries.File)
	if err != nil {
		return nil, nil, fmt.Errorf("loading queries: %w (run 'litscan init')", err)
	}
	if len(qs) == 0 && len(cfg.Feeds) == 0 {
		return nil, nil, fmt.Errorf("no queries or feeds configured; add one with 'litscan queries add'")
	}

	timeout := cfg.Pacing.CallTimeout()

	provider := engine.CreateProvider(cfg.Engine, timeout)
	if provider == nil {
		return nil, nil, fmt.Errorf("no analysis engine configured; set %s or %s", cfg.Engine.GeminiKeyEnv, cfg.Engine.OpenAIKeyEnv)
	}

	token := os.Getenv(cfg.Store.TokenEnv)
	databaseID := os.Getenv(cfg.Store.DatabaseIDEnv)
	if token == "" || databaseID == "" {
		return nil, nil, fmt.Errorf("store not configured; set %s and %s", cfg.Store.TokenEnv, cfg.Store.DatabaseIDEnv)
	}
	store := notion.NewClient(cfg.Store.BaseURL, token, databaseID, timeout)

	source := pubmed.NewClient(cfg.Source.BaseURL, cfg.Source.APIKeyEnv, timeout, cfg.Pacing.FetchDelay(), os.Getenv)

	var feeds pipeline.FeedSource
	if len(cfg.Feeds) > 0 {
		feeds = feedsrc.NewParser(cfg.Feeds)
	}

	db, err := openJournal()
	if err != nil {
		log.Printf("Journal unavailable, running without run history: %v", err)
		db = nil
	}

	ft := fulltext.NewFetcher(timeout)

	return pipeline.New(cfg, qs, source, feeds, provider, store, ft, db), db, nil
}

func openJournal() (*journal.DB, error) {
	return journal.Open(filepath.Join(cfg.GetDataDir(), "litscan.db"))
}
