package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TobiSchelling/trendfinder/internal/config"
	"github.com/TobiSchelling/trendfinder/internal/database"
	"github.com/TobiSchelling/trendfinder/internal/digest"
	"github.com/TobiSchelling/trendfinder/internal/logging"
	"github.com/TobiSchelling/trendfinder/internal/pipeline"
	"github.com/TobiSchelling/trendfinder/internal/server"
	"github.com/TobiSchelling/trendfinder/internal/trends"
)

var version = "dev"

var (
	verbose    bool
	jsonLogs   bool
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
	env        = viper.New()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "trendfinder",
	Short:   "Find trending topics in the news",
	Long:    "trendfinder searches news sources, groups similar headlines, and asks an LLM to name and rank the trends.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			setupLogging("info")
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err == nil:
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		case configPath == "":
			cfg = config.Default()
		default:
			return err
		}

		if err := applyEnv(cfg, env); err != nil {
			return err
		}
		setupLogging(cfg.Logging.Level)
		if path != "" {
			logger.Debug().Str("path", path).Msg("using config file")
		} else {
			logger.Debug().Msg("no config file found, using built-in defaults")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit logs as JSON lines")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	env.SetEnvPrefix("TRENDFINDER")
	env.AutomaticEnv()

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

func setupLogging(level string) {
	if verbose {
		level = "debug"
	}
	if jsonLogs {
		logger = logging.NewJSON(level, os.Stderr)
	} else {
		logger = logging.New(level, os.Stderr)
	}
	log.Logger = logger
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("trendfinder", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/trendfinder/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, API keys, and LLM provider.")
		return nil
	},
}

// --- find command ---

var (
	maxResults int
	asJSON     bool
	asMarkdown bool
	noSave     bool
	noNotify   bool
	dryRun     bool
)

var findCmd = &cobra.Command{
	Use:   "find [query]",
	Short: "Find and rank trends for a query",
	RunE: func(cmd *cobra.Command, args []string) error {
		if asJSON && asMarkdown {
			return fmt.Errorf("--json and --markdown are mutually exclusive")
		}

		query := strings.Join(args, " ")
		limit, err := resolveMaxResults(cfg.Trends.MaxResults, maxResults, cmd.Flags().Changed("max-results"))
		if err != nil {
			return err
		}

		var db *database.DB
		if !noSave || dryRun {
			db, err = openDB()
			if err != nil {
				return err
			}
			defer db.Close()
		}

		pipe := pipeline.New(cfg, db, logger)
		if dryRun {
			printSteps(os.Stdout, pipe.DryRun(query).Steps)
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := pipe.Run(ctx, query, limit, pipeline.RunOptions{NoSave: noSave, NoNotify: noNotify})
		if err != nil {
			return err
		}

		switch {
		case asJSON:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Trends)
		case asMarkdown:
			fmt.Print(digest.Markdown(result.Query, result.Trends))
		default:
			printSteps(os.Stdout, result.Steps)
			fmt.Println()
			printTrends(os.Stdout, result.Trends)
			if result.RunID != "" {
				fmt.Printf("\nSaved as run %s. Run 'trendfinder serve' to browse it.\n", result.RunID)
			}
		}
		return nil
	},
}

func init() {
	findCmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "Maximum number of trends (default from config)")
	findCmd.Flags().BoolVar(&asJSON, "json", false, "Print the ranked list as JSON")
	findCmd.Flags().BoolVar(&asMarkdown, "markdown", false, "Print the ranked list as a Markdown digest")
	findCmd.Flags().BoolVar(&noSave, "no-save", false, "Do not store the run")
	findCmd.Flags().BoolVar(&noNotify, "no-notify", false, "Do not publish the digest")
	findCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
}

// resolveMaxResults picks the flag value over the configured one and rejects
// a non-positive limit before anything is opened or contacted.
func resolveMaxResults(configured, flag int, flagSet bool) (int, error) {
	limit := configured
	if flagSet {
		limit = flag
	}
	if limit <= 0 {
		return 0, fmt.Errorf("--max-results %d: %w", limit, trends.ErrInvalidMaxResults)
	}
	return limit, nil
}

// --- history command ---

var (
	historyQuery string
	historySince string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(database.RunFilter{Query: historyQuery, Since: historySince, Limit: historyLimit})
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs stored yet. Start one with: trendfinder find <query>")
			return nil
		}
		printRuns(os.Stdout, runs)
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyQuery, "query", "q", "", "Only runs whose query contains this text")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only runs at or after this RFC 3339 time")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum number of runs")
}

// --- show command ---

var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the trends of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := db.GetRun(args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %s not found", args[0])
		}

		switch {
		case asJSON:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run.Trends)
		case asMarkdown:
			fmt.Print(digest.Markdown(run.Query, run.Trends))
		default:
			fmt.Printf("Run %s: %q, %s\n\n", run.ID, run.Query, run.CreatedAt)
			printTrends(os.Stdout, run.Trends)
		}
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&asJSON, "json", false, "Print the ranked list as JSON")
	showCmd.Flags().BoolVar(&asMarkdown, "markdown", false, "Print the ranked list as a Markdown digest")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv, err := server.New(db, pipeline.New(cfg, db, logger), server.Options{
			DefaultQuery:      cfg.Trends.Query,
			DefaultMaxResults: cfg.Trends.MaxResults,
			Logger:            logger,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return srv.Serve(ctx, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on (default from config)")
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		printStatus(os.Stdout, cfg, db.Path(), stats)
		return nil
	},
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "trendfinder.db")
	return database.Open(dbPath)
}
