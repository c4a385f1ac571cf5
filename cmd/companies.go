package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datavex/intel-cli/internal/model"
	"github.com/datavex/intel-cli/internal/store"
)

var (
	companiesMinScore   int
	companiesConfidence string
	companiesSort       string
	companiesLimit      int
	companiesFull       bool
)

var companiesCmd = &cobra.Command{
	Use:   "companies [company key]",
	Short: "List scored companies, or show one by key",
	Long: `Without arguments, lists company records sorted by score. With a key,
prints the full record including the persisted scan outcome.`,
	Args: cobra.MaximumNArgs(1),
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
			rec, err := st.GetCompany(ctx, args[0])
			if err != nil {
				return err
			}
			if !companiesFull {
				rec.Data = nil
			}
			return enc.Encode(rec)
		}

		recs, err := st.ListCompanies(ctx, store.CompanyFilter{
			MinScore:   companiesMinScore,
			Confidence: model.Priority(strings.ToUpper(companiesConfidence)),
			Sort:       companiesSort,
			Limit:      companiesLimit,
		})
		if err != nil {
			return err
		}
		// Listings show the indexed columns only.
		for i := range recs {
			recs[i].Data = nil
		}
		return enc.Encode(recs)
	},
}

func init() {
	companiesCmd.Flags().IntVar(&companiesMinScore, "min-score", 0, "minimum opportunity score (0-100)")
	companiesCmd.Flags().StringVar(&companiesConfidence, "confidence", "", "filter by confidence (high|medium|low)")
	companiesCmd.Flags().StringVar(&companiesSort, "sort", "score", "sort order: score, name, or updated")
	companiesCmd.Flags().IntVar(&companiesLimit, "limit", 20, "maximum companies to list")
	companiesCmd.Flags().BoolVar(&companiesFull, "full", false, "include the full scan outcome for a single company")
	rootCmd.AddCommand(companiesCmd)
}
