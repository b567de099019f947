package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hydrosense/potability-cli/internal/model"
)

var (
	batchInput       string
	batchOutput      string
	batchLimit       int
	batchConcurrency int
)

// batchRow pairs a CSV row number with its prediction outcome.
type batchRow struct {
	Row      int                       `json:"row"`
	Response *model.PredictionResponse `json:"response"`
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Predict potability for a CSV of water samples",
	Long:  "Reads samples from a CSV whose header names the nine measurement columns, runs predictions concurrently, and writes one JSON line per row.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		in, err := os.Open(batchInput)
		if err != nil {
			return eris.Wrapf(err, "open input %s", batchInput)
		}
		defer in.Close()

		out := os.Stdout
		if batchOutput != "" && batchOutput != "-" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrapf(err, "create output %s", batchOutput)
			}
			defer f.Close()
			out = f
		}

		rows, err := readSamples(in, batchLimit)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			zap.L().Info("no samples found")
			return nil
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.Concurrency
		}

		zap.L().Info("processing batch",
			zap.Int("samples", len(rows)),
			zap.Int("concurrency", concurrency),
		)

		var mu sync.Mutex
		enc := json.NewEncoder(out)
		var succeeded, failed atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i, raw := range rows {
			raw := raw
			row := i + 1
			g.Go(func() error {
				resp := env.newOrchestrator().Predict(gctx, raw)
				if resp.Success {
					succeeded.Add(1)
				} else {
					failed.Add(1)
					zap.L().Warn("sample failed",
						zap.Int("row", row),
						zap.String("error", resp.Error),
					)
				}

				mu.Lock()
				defer mu.Unlock()
				// Individual failures are reported per line, never abort the batch.
				return eris.Wrap(enc.Encode(batchRow{Row: row, Response: resp}), "write result")
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "batch processing")
		}

		zap.L().Info("batch complete",
			zap.Int64("succeeded", succeeded.Load()),
			zap.Int64("failed", failed.Load()),
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchInput, "input", "i", "", "CSV file of samples (required)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "JSONL output file (default stdout)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of samples to process (0 = all)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "concurrent predictions (default from config)")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// readSamples parses the CSV into raw key→text maps, one per data row. The
// header row names the measurement columns; unknown columns are carried
// through so validation can reject them.
func readSamples(r io.Reader, limit int) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read csv header")
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var rows []map[string]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read csv row")
		}

		raw := make(map[string]string, len(model.ParameterKeys))
		for _, key := range model.ParameterKeys {
			raw[key] = ""
		}
		for i, col := range header {
			if i < len(record) {
				raw[col] = record[i]
			}
		}
		rows = append(rows, raw)

		if limit > 0 && len(rows) >= limit {
			break
		}
	}
	return rows, nil
}
