package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbaumgartner/flipradar/internal/config"
	"github.com/mbaumgartner/flipradar/pkg/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one scan cycle and exit",
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx := cmd.Context()

	eng, st, err := buildEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := eng.RunScan(ctx); err != nil {
		return fmt.Errorf("running scan: %w", err)
	}

	return nil
}
