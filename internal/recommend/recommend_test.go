package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/energyinsight/energyinsight/internal/llm"
	"github.com/energyinsight/energyinsight/pkg/models"
)

type stubClient struct {
	reply string
	err   error
}

func (s *stubClient) Chat(context.Context, []llm.Message, *llm.Options) (string, error) {
	return s.reply, s.err
}

func sampleSummary() *models.Summary {
	return &models.Summary{
		Stats: []models.StatCard{
			{Title: "Total Consumption", Value: 40.6, Unit: "kWh"},
			{Title: "Total Cost", Value: 14.0, Unit: "€"},
		},
		Insights: &models.Insights{
			TopExpensiveDays: []models.DailyCostSnapshot{
				{Date: "2025-03-02", KWh: 22.1, Cost: 8.10},
				{Date: "2025-03-01", KWh: 18.5, Cost: 5.90},
			},
			PeakWindow:  &models.PeakWindow{StartHour: 18, EndHour: 21, AvgKWhPerDay: 25},
			ShiftKWh:    7.5,
			DaysCovered: 2,
			CO2Factor:   0.45,
		},
	}
}

func modelReply() string {
	rec := func(category string) string {
		return `{"category":"` + category + `","impact":{"value":"€10","period":"per_month"},` +
			`"tips":["a","b","c"],` +
			`"content":{"en":{"title":"T","impact":"I","tips":["a","b","c"]},` +
			`"fr":{"title":"T","impact":"I","tips":["a","b","c"]}}}`
	}
	return `{"recommendations":[` + rec("cost_saving") + `,` + rec("co2_reduction") + `,` + rec("efficiency") + `]}`
}

func TestApplyUsesModelReply(t *testing.T) {
	g := New(&stubClient{reply: modelReply()}, zap.NewNop())
	summary := sampleSummary()

	g.Apply(context.Background(), summary)

	require.Len(t, summary.Recommendations, 3)
	assert.Equal(t, CategoryCostSaving, summary.Recommendations[0].Category)
	assert.Equal(t, "€10", summary.Recommendations[0].Impact.Value)
}

func TestApplyFallsBackWhenModelFails(t *testing.T) {
	g := New(&stubClient{err: errors.New("provider down")}, zap.NewNop())
	summary := sampleSummary()

	g.Apply(context.Background(), summary)

	require.Len(t, summary.Recommendations, 3)
	assert.Equal(t, CategoryCostSaving, summary.Recommendations[0].Category)
	assert.Equal(t, CategoryCO2Reduction, summary.Recommendations[1].Category)
	assert.Equal(t, CategoryEfficiency, summary.Recommendations[2].Category)
}

func TestApplyFallsBackOnInvalidEnvelope(t *testing.T) {
	cases := map[string]string{
		"not json":           "here are some ideas",
		"too few":            `{"recommendations":[]}`,
		"unknown category":   `{"recommendations":[{"category":"x"},{"category":"y"},{"category":"z"}]}`,
		"duplicate category": `{"recommendations":[{"category":"cost_saving"},{"category":"cost_saving"},{"category":"efficiency"}]}`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			g := New(&stubClient{reply: reply}, zap.NewNop())
			summary := sampleSummary()
			g.Apply(context.Background(), summary)

			require.Len(t, summary.Recommendations, 3)
			require.NotNil(t, summary.Recommendations[0].Content)
			assert.NotEmpty(t, summary.Recommendations[0].Content.FR.Tips)
		})
	}
}

func TestApplyWithoutClientUsesFallbacks(t *testing.T) {
	g := New(nil, zap.NewNop())
	summary := sampleSummary()

	g.Apply(context.Background(), summary)
	require.Len(t, summary.Recommendations, 3)
}

func TestFallbacksAreDataGrounded(t *testing.T) {
	recs := Fallbacks(sampleSummary())
	require.Len(t, recs, 3)

	cost := recs[0]
	assert.Equal(t, "€8.10", cost.Impact.Value)
	assert.Contains(t, cost.Content.EN.Title, "2025-03-02")
	assert.Contains(t, cost.Content.FR.Title, "2025-03-02")

	co2 := recs[1]
	assert.Equal(t, "9.1 kg CO₂", co2.Impact.Value) // 40.6 kWh × 0.45 / 2 days

	eff := recs[2]
	assert.Equal(t, "7.5 kWh", eff.Impact.Value)
	assert.Contains(t, eff.Content.EN.Title, "18:00")
	require.Len(t, eff.Tips, 3)
}

func TestFallbacksOnSparseSummary(t *testing.T) {
	recs := Fallbacks(&models.Summary{})
	require.Len(t, recs, 3)
	assert.Equal(t, "€0", recs[0].Impact.Value)
	assert.Equal(t, "0.0 kg CO₂", recs[1].Impact.Value)
	assert.Equal(t, "0.0 kWh", recs[2].Impact.Value)
	for _, rec := range recs {
		require.NotNil(t, rec.Content)
		assert.Len(t, rec.Content.EN.Tips, 3)
		assert.Len(t, rec.Content.FR.Tips, 3)
	}
}
