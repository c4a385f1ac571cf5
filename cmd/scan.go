package main

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datavex/intel-cli/internal/pipeline"
)

var scanCmd = &cobra.Command{
	Use:   "scan <company name>",
	Short: "Run the full pipeline for one company",
	Long: `Runs every stage for the named company: evidence discovery, signal
classification, scoring, state, decision, and narrative. Fresh cached stage
results are reused; the verdict is persisted and printed as JSON.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		name := strings.Join(args, " ")
		scan, err := env.pipeline.Submit(ctx, name)
		if err != nil {
			var busy *pipeline.BusyError
			if errors.As(err, &busy) {
				zap.L().Error("another scan is in flight", zap.String("scan", busy.ScanID))
			}
			return err
		}

		out, err := env.pipeline.Run(ctx, scan)
		if err != nil {
			return err
		}

		zap.L().Info("scan finished",
			zap.String("scan", out.ScanID),
			zap.String("company", out.CompanyKey),
			zap.Float64("opportunity", out.Breakdown.OpportunityScore),
			zap.String("priority", string(out.Breakdown.Priority)),
			zap.String("strategy", string(out.Decision.Strategy)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
