package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/jward/devana"
	"github.com/jward/devana/internal/config"
)

var (
	flagDB       string
	flagFormat   string
	flagLogLevel string
	flagConfig   string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// logger is installed by the root command before any subcommand runs.
var logger = slog.New(tint.NewHandler(os.Stderr, nil))

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "devana",
	Short:         "Semantic model of C++ declarations",
	Long:          "Devana builds a resolved semantic model of C++ headers (scopes, declarations, names, template specializations and annotations) for code generators.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		level, err := parseLogLevel(flagLogLevel)
		if err != nil {
			return err
		}
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
		return nil
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .devana/model.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .devana/devana.yaml found from the source directory upward)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(checkCmd)
}

// parseLogLevel maps a --log-level value to a slog level.
func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", s)
	}
	return level, nil
}

var flagNoExport bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Build the model of a source tree and export it",
	Long:  "Parses the C++ sources under path, builds the semantic model, prints its diagnostics and writes it to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagNoExport, "no-export", false, "build and report diagnostics without writing the database")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	engine, err := newEngine(targetDir)
	if err != nil {
		return err
	}
	m, err := engine.BuildDirectory(ctx, targetDir)
	if err != nil {
		return fmt.Errorf("building: %w", err)
	}
	buildDuration := time.Since(start)

	formatDiagnosticsText(os.Stderr, m.Diagnostics())
	if n := m.DroppedDiagnostics(); n > 0 {
		fmt.Fprintf(os.Stderr, "%d more diagnostics not shown\n", n)
	}

	fmt.Fprintf(os.Stderr, "Built %s in %s (%d files, %d entities, %d diagnostics)\n",
		targetDir,
		buildDuration.Round(time.Millisecond),
		len(m.Files()), m.Len(), len(m.Diagnostics()),
	)
	if flagNoExport {
		return nil
	}

	dbPath := resolveDBPath(findRepoRoot(targetDir))
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	if err := engine.Export(ctx, m, dbPath); err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}

// newEngine loads configuration for dir and creates an Engine.
func newEngine(dir string) (*devana.Engine, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadFromPath(flagConfig)
	} else {
		cfg, err = config.Load(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	engine, err := devana.New(devana.WithConfig(cfg), devana.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

// buildModel builds the model of a file or directory.
func buildModel(ctx context.Context, target string) (*devana.Model, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", target, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("path not found: %s", abs)
	}
	dir := abs
	if !info.IsDir() {
		dir = filepath.Dir(abs)
	}
	engine, err := newEngine(dir)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return engine.BuildDirectory(ctx, abs)
	}
	return engine.BuildFiles(ctx, abs)
}

// resolveTargetDir returns the absolute path of the directory to build.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, config.ConfigDirName, "model.db")
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
