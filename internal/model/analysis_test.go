package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/viability-cli/internal/resilience"
)

func TestAnalyzeRequest_Validate(t *testing.T) {
	catalog := DefaultCatalog()
	valid := AnalyzeRequest{Address: "Av. Santa Fe 1500, CABA", BusinessCategory: CategoryCafe}
	require.NoError(t, valid.Validate(catalog))

	tests := []struct {
		name   string
		mutate func(r *AnalyzeRequest)
	}{
		{"short address", func(r *AnalyzeRequest) { r.Address = " ab " }},
		{"long address", func(r *AnalyzeRequest) { r.Address = strings.Repeat("x", MaxAddressLen+1) }},
		{"unknown category", func(r *AnalyzeRequest) { r.BusinessCategory = "CASINO" }},
		{"bad country", func(r *AnalyzeRequest) { r.CountryBias = "ARG" }},
		{"negative ticket", func(r *AnalyzeRequest) { r.AvgTicket = TicketAmount(-10) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := r.Validate(catalog)
			require.Error(t, err)
			assert.Equal(t, resilience.KindInvalidInput, resilience.KindOf(err))
		})
	}
}

func TestAnalyzeRequest_ValidateCategoryStatus(t *testing.T) {
	err := AnalyzeRequest{Address: "Calle Falsa 123", BusinessCategory: "ZOO"}.Validate(DefaultCatalog())
	e, ok := resilience.As(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_CATEGORY", e.Status)
}

func TestDefaultCatalog(t *testing.T) {
	cat := DefaultCatalog()
	assert.Len(t, cat, 16)

	cafe, ok := cat.Profile(CategoryCafe)
	require.True(t, ok)
	assert.Equal(t, []string{"cafe", "bakery", "meal_takeaway"}, cafe.Types)
	assert.Equal(t, "cafeteria", cafe.Keyword)
	assert.True(t, cafe.IsFood)

	gym, _ := cat.Profile(CategoryGym)
	assert.False(t, gym.IsFood)
	assert.Empty(t, gym.Keyword)

	cats := cat.Categories()
	assert.Equal(t, CategoryBar, cats[0])
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  GYM:
    types: [gym, sports_club]
    keyword: crossfit
`), 0o600))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	gym, _ := cat.Profile(CategoryGym)
	assert.Equal(t, []string{"gym", "sports_club"}, gym.Types)
	assert.Equal(t, "crossfit", gym.Keyword)

	bar, _ := cat.Profile(CategoryBar)
	assert.Equal(t, []string{"bar"}, bar.Types)
}

func TestLoadCatalog_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("categories:\n  CASINO:\n    types: [casino]\n"), 0o600))
	_, err = LoadCatalog(unknown)
	assert.ErrorContains(t, err, "unknown category")

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("categories:\n  GYM:\n    food: true\n"), 0o600))
	_, err = LoadCatalog(empty)
	assert.ErrorContains(t, err, "needs types")
}

func TestAnalysisResponse_CloneIsDeep(t *testing.T) {
	rating, price := 4.5, 2
	ticket := TicketAmount(9000)
	pdf := "/reports/req_1.pdf"
	orig := &AnalysisResponse{
		RequestID: "req_1",
		Input:     InputEcho{AvgTicket: &ticket},
		HardMetrics: HardMetrics{
			PriceLevelDistribution: map[string]int{"1": 1, "2": 0, "3": 0, "4": 0},
		},
		CompetitorsTop: []Competitor{{PlaceID: "a", Rating: &rating, PriceLevel: &price, Types: []string{}}},
		MapData:        MapData{CompetitorsTop: []Competitor{{PlaceID: "a", Rating: &rating, PriceLevel: &price}}},
		Report:         ReportLinks{PDFURL: &pdf},
		Insights:       []string{"one"},
	}

	c := orig.Clone()
	c.RequestID = "req_2"
	c.HardMetrics.PriceLevelDistribution["1"] = 9
	c.CompetitorsTop[0].PlaceID = "b"
	c.Insights[0] = "changed"
	*c.Input.AvgTicket.Amount = 20000
	*c.CompetitorsTop[0].Rating = 1.0
	*c.CompetitorsTop[0].PriceLevel = 4
	*c.MapData.CompetitorsTop[0].Rating = 2.0
	*c.MapData.CompetitorsTop[0].PriceLevel = 3
	*c.Report.PDFURL = "/reports/req_2.pdf"

	assert.Equal(t, "req_1", orig.RequestID)
	assert.Equal(t, 1, orig.HardMetrics.PriceLevelDistribution["1"])
	assert.Equal(t, "a", orig.CompetitorsTop[0].PlaceID)
	assert.Equal(t, "one", orig.Insights[0])
	assert.InDelta(t, 9000, *orig.Input.AvgTicket.Amount, 0)
	assert.InDelta(t, 4.5, *orig.CompetitorsTop[0].Rating, 0)
	assert.Equal(t, 2, *orig.CompetitorsTop[0].PriceLevel)
	assert.InDelta(t, 4.5, *orig.MapData.CompetitorsTop[0].Rating, 0)
	assert.Equal(t, 2, *orig.MapData.CompetitorsTop[0].PriceLevel)
	assert.Equal(t, "/reports/req_1.pdf", *orig.Report.PDFURL)
	assert.NotNil(t, c.CompetitorsTop[0].Types)
	assert.Nil(t, (*AnalysisResponse)(nil).Clone())
}

func TestParseAngle(t *testing.T) {
	a, ok := ParseAngle("take-away")
	assert.True(t, ok)
	assert.Equal(t, AngleTakeAway, a)

	_, ok = ParseAngle("delivery")
	assert.False(t, ok)
}
