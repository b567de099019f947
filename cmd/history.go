package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent prediction results",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		records, err := env.Store.ListPredictions(cmd.Context(), historyLimit)
		if err != nil {
			return eris.Wrap(err, "list predictions")
		}
		if len(records) == 0 {
			fmt.Println("no predictions recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tSTATUS\tSCORE\tRISK\tSOURCE")
		for _, rec := range records {
			p := rec.Response.Prediction
			if p == nil {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%.3f\t%s\t%s\n",
				rec.CreatedAt.Format("2006-01-02 15:04:05"),
				p.Status, p.PotabilityScore, p.RiskLevel, rec.Source,
			)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "max number of records to show")
	rootCmd.AddCommand(historyCmd)
}
