package main

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/viability-cli/internal/model"
)

var (
	analyzeAddress  string
	analyzeCategory string
	analyzeTicket   string
	analyzeCountry  string
	analyzePlaceID  string
	analyzeCompact  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one site-viability analysis and print the result as JSON",
	Example: `  viability-cli analyze --address "Av. Corrientes 1234, CABA" --category CAFE --ticket 9000
  viability-cli analyze --address "Thames 1500" --category BAR --ticket mid --country AR`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.AnalyzeRequest{
			Address:          analyzeAddress,
			BusinessCategory: model.BusinessCategory(strings.ToUpper(strings.TrimSpace(analyzeCategory))),
			AvgTicket:        model.ParseAvgTicket(strings.TrimSpace(analyzeTicket)),
			CountryBias:      analyzeCountry,
			PlaceID:          analyzePlaceID,
		}

		resp, err := env.Analyzer.Analyze(cmd.Context(), req)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		if !analyzeCompact {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(resp)
	},
}

func categoryList() string {
	cats := model.DefaultCatalog().Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeAddress, "address", "", "street address to analyze")
	analyzeCmd.Flags().StringVar(&analyzeCategory, "category", "", "business category: "+categoryList())
	analyzeCmd.Flags().StringVar(&analyzeTicket, "ticket", "", "average ticket: an amount or low|mid|high")
	analyzeCmd.Flags().StringVar(&analyzeCountry, "country", "", "ISO country bias (default AR)")
	analyzeCmd.Flags().StringVar(&analyzePlaceID, "place-id", "", "provider place id, skips address geocoding")
	analyzeCmd.Flags().BoolVar(&analyzeCompact, "compact", false, "print compact JSON")
	_ = analyzeCmd.MarkFlagRequired("address")
	_ = analyzeCmd.MarkFlagRequired("category")
	rootCmd.AddCommand(analyzeCmd)
}
