package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether the prediction service is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newServiceClient()
		if !client.CheckReachable(cmd.Context()) {
			cmd.SilenceUsage = true
			return eris.Errorf("prediction service at %s is not reachable", cfg.Service.BaseURL)
		}
		fmt.Printf("prediction service at %s is reachable\n", cfg.Service.BaseURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
