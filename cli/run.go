package cli

import (
	"github.com/spf13/cobra"

	"github.com/rahulmohamw/SSM-Silver-scraper-V0/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Perform one scrape run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd)
	},
}

func runOnce(cmd *cobra.Command) error {
	cfg, logger, err := loadApp()
	if err != nil {
		return err
	}

	logger.Info().Str("url", cfg.Source.URL).Msg("starting scrape run")

	p := pipeline.New(cfg, logger)
	rec, err := p.Run(cmd.Context())
	if err != nil {
		logger.Error().Err(err).Str("status", string(rec.Status)).Msg("run failed")
		return err
	}

	logger.Info().Str("status", string(rec.Status)).Msg("run succeeded")
	return nil
}
