package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "List the water-chemistry parameters and their guideline ranges",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tLABEL\tUNIT\tVALID\tOPTIMAL\tNOTE")
		for _, p := range env.Registry.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%g-%g\t%g-%g\t%s\n",
				p.Key, p.Label, p.Unit,
				p.Min, p.Max,
				p.OptimalMin, p.OptimalMax,
				p.OptimalNote,
			)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(paramsCmd)
}
