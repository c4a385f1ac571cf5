// datavex is the sales intelligence CLI: it scans companies through the
// signal pipeline and serves the query API over the results.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datavex/intel-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "datavex",
	Short: "Company signal scanning and opportunity scoring",
	Long: `datavex runs the evidence-to-verdict pipeline: it pulls a company's
evidence feeds, classifies signals, scores the opportunity, and persists a
queryable verdict. One scan runs at a time.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		return config.InitLogger(cfg.Log)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
