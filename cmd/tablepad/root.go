package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nao1215/tablepad"
	"github.com/nao1215/tablepad/internal/config"
	"github.com/nao1215/tablepad/internal/logging"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	envFile string
	cfg     *config.Config
	logger  *zap.Logger
	out     io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}

	rootCmd := &cobra.Command{
		Use:   "tablepad",
		Short: "Query CSV, JSON lines and Parquet files with SQL",
		Long: `tablepad materializes an uploaded CSV, JSON lines or Parquet file into a
table named after the file, runs SQL against it and exports results as
CSV, JSON lines, Parquet or XLSX.

Every command opens its own engine session on the store file and tears
it down before exiting. Uploading a file clears the store first.

Example:
  tablepad upload sales.csv
  tablepad query "SELECT region, SUM(amount) FROM sales GROUP BY region"
  tablepad export --format parquet --out totals.parquet "SELECT * FROM sales"
  tablepad serve --addr :8080`,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./tablepad.yaml or $HOME/.tablepad/tablepad.yaml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("store", "tablepad.db", "store file path")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.Bool("read-only", false, "reject statements that modify the store in query and export")

	_ = a.v.BindPFlag("store.path", flags.Lookup("store"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = a.v.BindPFlag("query.read_only", flags.Lookup("read-only"))

	rootCmd.AddCommand(
		a.newServeCmd(),
		a.newUploadCmd(),
		a.newQueryCmd(),
		a.newExportCmd(),
		a.newResetCmd(),
	)
	return rootCmd
}

// init loads configuration and builds the logger.
func (a *app) init(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// workbench builds a workbench over the configured store.
func (a *app) workbench() *tablepad.Workbench {
	sessions := tablepad.NewSessionManager(a.cfg.Store.Path).WithLogger(a.logger)
	return tablepad.NewWorkbench(tablepad.NewStore(a.cfg.Store.Path), sessions).
		WithLogger(a.logger).
		WithDefaultQuery(a.cfg.Query.DefaultSQL).
		WithReadOnlyQueries(a.cfg.Query.ReadOnly)
}
