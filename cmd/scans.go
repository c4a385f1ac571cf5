package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/datavex/intel-cli/internal/model"
	"github.com/datavex/intel-cli/internal/store"
)

var (
	scansStatus  string
	scansCompany string
	scansLimit   int
)

var scansCmd = &cobra.Command{
	Use:   "scans [scan id]",
	Short: "List scans, or show one by id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if len(args) == 1 {
			scan, err := st.GetScan(ctx, args[0])
			if err != nil {
				return err
			}
			return enc.Encode(scan)
		}

		scans, err := st.ListScans(ctx, store.ScanFilter{
			Status:     model.ScanStatus(scansStatus),
			CompanyKey: scansCompany,
			Limit:      scansLimit,
		})
		if err != nil {
			return err
		}
		return enc.Encode(scans)
	},
}

func init() {
	scansCmd.Flags().StringVar(&scansStatus, "status", "", "filter by status (queued|running|completed|failed)")
	scansCmd.Flags().StringVar(&scansCompany, "company", "", "filter by company key")
	scansCmd.Flags().IntVar(&scansLimit, "limit", 20, "maximum scans to list")
	rootCmd.AddCommand(scansCmd)
}
