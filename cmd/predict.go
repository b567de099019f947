package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/hydrosense/potability-cli/internal/model"
)

var (
	predictValues    map[string]*string
	predictFromCache bool
	predictJSON      bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict potability for one water sample",
	Long:  "Validates the nine measurements, then either synthesizes a local verdict (fully compliant input) or queries the remote classifier and blends the result with regulatory compliance.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		raw := make(map[string]string, len(model.ParameterKeys))
		for key, val := range predictValues {
			if cmd.Flags().Changed(key) {
				raw[key] = *val
			}
		}

		if predictFromCache {
			cached, err := env.Store.LastInput(ctx)
			if err != nil {
				return eris.Wrap(err, "load cached input")
			}
			if cached == nil {
				return eris.New("no cached input found; run predict with explicit values first")
			}
			for key, v := range cached.Values() {
				if _, set := raw[key]; !set {
					raw[key] = strconv.FormatFloat(v, 'f', -1, 64)
				}
			}
		} else {
			// Every key must be present so validation reports the missing ones.
			for _, key := range model.ParameterKeys {
				if _, set := raw[key]; !set {
					raw[key] = ""
				}
			}
		}

		resp := env.newOrchestrator().Predict(ctx, raw)
		if err := printResponse(resp, predictJSON); err != nil {
			return err
		}
		if !resp.Success {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return eris.New(resp.Error)
		}
		return nil
	},
}

func init() {
	predictValues = make(map[string]*string, len(model.ParameterKeys))
	for _, key := range model.ParameterKeys {
		predictValues[key] = predictCmd.Flags().String(key, "", fmt.Sprintf("measured %s value", key))
	}
	predictCmd.Flags().BoolVar(&predictFromCache, "from-cache", false, "fill unset fields from the last validated input")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "print the raw JSON response")
	rootCmd.AddCommand(predictCmd)
}

// printResponse renders a response either as indented JSON or as a short
// human-readable report.
func printResponse(resp *model.PredictionResponse, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(resp), "encode response")
	}

	if !resp.Success {
		fmt.Printf("FAILED: %s\n", resp.Error)
		for _, d := range resp.Details {
			fmt.Printf("  - %s\n", d)
		}
		return nil
	}

	p := resp.Prediction
	fmt.Printf("Status:     %s\n", p.Status)
	fmt.Printf("Score:      %.3f\n", p.PotabilityScore)
	fmt.Printf("Confidence: %.3f\n", p.Confidence)
	fmt.Printf("Risk:       %s\n", p.RiskLevel)
	if resp.Recommendation != "" {
		fmt.Printf("Note:       %s\n", resp.Recommendation)
	}
	for _, w := range resp.Warnings {
		fmt.Printf("Warning:    %s\n", w)
	}
	return nil
}
