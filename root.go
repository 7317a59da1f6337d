package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"student-harvester/config"
	"student-harvester/pipeline"
	"student-harvester/services"
	"student-harvester/storage"
	"student-harvester/utils"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Without a subcommand it harvests.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "student-harvester",
		Short: "Harvest a paginated student table and impute missing scores",
		Long: `student-harvester drives a rendered student table page by page, collects
every row, fills missing scores with the mean of the student's hometown
(falling back to the dataset mean) and exports the result as CSV.

Settings come from defaults, then the YAML file given with --config, then
HARVEST_* environment variables, then flags.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runHarvestCmd,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	addHarvestFlags(cmd)

	cmd.AddCommand(NewHarvestCmd())
	cmd.AddCommand(NewVersionCmd())
	return cmd
}

// NewHarvestCmd creates the harvest command.
func NewHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Run one harvest and write the cleaned CSV",
		Long: `Harvest loads the source, walks every page until the table signals its
end, imputes missing scores and writes students_cleaned.csv, students_raw.csv
and harvest_report.md into the output directory.

Examples:
  # Harvest the local dev server
  student-harvester harvest --source http://localhost:5173

  # Watch the browser and keep results in SQLite as well
  student-harvester harvest --headless=false --sqlite ./output/students.db`,
		Args: cobra.NoArgs,
		RunE: runHarvestCmd,
	}
	addHarvestFlags(cmd)
	return cmd
}

func addHarvestFlags(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().StringP("config", "c", "", "YAML configuration file")
	cmd.Flags().StringP("source", "s", d.SourceLocation, "Location of the student table")
	cmd.Flags().StringP("out", "o", d.OutputDirectory, "Output directory")
	cmd.Flags().Duration("settle-delay", d.SettleDelay, "Wait after each navigation before reading")
	cmd.Flags().Duration("render-timeout", d.RenderTimeout, "Maximum wait for table rows per page")
	cmd.Flags().Duration("run-timeout", d.RunTimeout, "Deadline for the whole harvest (0 disables)")
	cmd.Flags().Int("max-pages", d.MaxPages, "Abort when the source offers more pages than this")
	cmd.Flags().Bool("headless", d.Headless, "Run Chrome headless")
	cmd.Flags().String("missing-hometown", d.MissingHometown, "Policy for rows without hometown: isolated or shared")
	cmd.Flags().String("sqlite", "", "Also store cleaned students in this SQLite file")
	cmd.Flags().String("database-url", "", "Also store cleaned students in PostgreSQL")
}

// buildConfig layers changed flags over the file and environment settings
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.SourceLocation, _ = flags.GetString("source")
	}
	if flags.Changed("out") {
		cfg.OutputDirectory, _ = flags.GetString("out")
	}
	if flags.Changed("settle-delay") {
		cfg.SettleDelay, _ = flags.GetDuration("settle-delay")
	}
	if flags.Changed("render-timeout") {
		cfg.RenderTimeout, _ = flags.GetDuration("render-timeout")
	}
	if flags.Changed("run-timeout") {
		cfg.RunTimeout, _ = flags.GetDuration("run-timeout")
	}
	if flags.Changed("max-pages") {
		cfg.MaxPages, _ = flags.GetInt("max-pages")
	}
	if flags.Changed("headless") {
		cfg.Headless, _ = flags.GetBool("headless")
	}
	if flags.Changed("missing-hometown") {
		cfg.MissingHometown, _ = flags.GetString("missing-hometown")
	}
	if flags.Changed("sqlite") {
		cfg.SQLitePath, _ = flags.GetString("sqlite")
	}
	if flags.Changed("database-url") {
		cfg.DatabaseURL, _ = flags.GetString("database-url")
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runHarvestCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := utils.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger.Slog())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ================== Bootstrap ====================
	logger.Info("Student Harvesting System")
	logger.Info("Source: %s", cfg.SourceLocation)
	logger.Info("Settle delay: %v | Render timeout: %v | Max pages: %d",
		cfg.SettleDelay, cfg.RenderTimeout, cfg.MaxPages)

	p := pipeline.New(cfg, pipeline.BrowserOpener(cfg, logger), logger)

	// =================== Optional stores ========================
	closers, err := attachStores(ctx, cfg, p, logger)
	defer func() {
		for _, c := range closers {
			if cerr := c(); cerr != nil {
				logger.Warn("Closing store failed: %v", cerr)
			}
		}
	}()
	if err != nil {
		return err
	}

	// =============== Harvest, clean, export ======================
	res, err := p.Run(ctx)
	if res != nil {
		services.PrintInsightReport(cmd.OutOrStdout(), res.Insights)
		fmt.Fprintln(cmd.OutOrStdout(), " Cleaned data →", res.CleanedPath)
		if res.ReportPath != "" {
			fmt.Fprintln(cmd.OutOrStdout(), " Run report   →", res.ReportPath)
		}
	}
	return err
}

// attachStores opens the configured database sinks and registers them with p
func attachStores(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *utils.Logger) ([]func() error, error) {
	var closers []func() error

	if cfg.SQLitePath != "" {
		w, err := storage.NewSQLiteWriter(cfg.SQLitePath, p.RunID(), logger)
		if err != nil {
			return closers, fmt.Errorf("cannot open SQLite store: %w", err)
		}
		closers = append(closers, w.Close)
		p.AddStore(w)
	}

	if cfg.DatabaseURL != "" {
		w, err := storage.NewPostgresWriter(ctx, cfg.DatabaseURL, p.RunID(), cfg.MaxRetries, logger)
		if err != nil {
			logger.Error("Make sure PostgreSQL is running and HARVEST_DATABASE_URL is correct")
			return closers, fmt.Errorf("cannot connect to PostgreSQL: %w", err)
		}
		closers = append(closers, w.Close)
		p.AddStore(w)
	}
	return closers, nil
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
