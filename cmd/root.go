package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hydrosense/potability-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "potability-cli",
	Short: "Water potability prediction workflow",
	Long:  "Validates water-chemistry measurements against regulatory guidelines, queries the remote potability classifier with bounded retries, and blends the verdict with local compliance.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
