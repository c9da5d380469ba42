package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rahulmohamw/SSM-Silver-scraper-V0/config"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/logging"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "silverscrape",
	Short: "Scrape the SMM silver rate into an append-only CSV dataset",
	Long: `silverscrape fetches the published SMM silver rate from its source page,
extracts the rate and its as-of date, and appends one timestamped row to a
CSV dataset together with a screenshot and a structured run log.

Invoked with no arguments it performs exactly one run, which is how the
scheduler calls it.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd)
	},
}

// Execute runs the root command. A failed run (any non-OK status) surfaces
// as a non-zero process exit for the invoking scheduler.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadApp builds the configuration and logger shared by all commands.
func loadApp() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, logging.NewLogger(cfg.Logging), nil
}
