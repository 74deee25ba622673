package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/energyinsight/energyinsight/internal/llm"
	"github.com/energyinsight/energyinsight/pkg/models"
)

// Recommendation categories, always produced in this order
const (
	CategoryCostSaving   = "cost_saving"
	CategoryCO2Reduction = "co2_reduction"
	CategoryEfficiency   = "efficiency"
)

const systemPrompt = `You are Energy Insight's virtual energy manager. Use the provided analytics summary and insights to craft actionable, data-backed recommendations. Always produce exactly three entries with the categories cost_saving, co2_reduction, and efficiency. Respond ONLY with valid JSON matching this schema: {"recommendations":[{"category":"cost_saving"|"co2_reduction"|"efficiency","impact":{"value":string,"period":string},"tips":[string,string,string],"content":{"en":{"title":string,"impact":string,"tips":[string,string,string]},"fr":{"title":string,"impact":string,"tips":[string,string,string]}}}]}. Impact.value must include the numeric value with unit (for example "€300" or "5 kg CO₂") and impact.period must be a simple identifier such as "per_month", "per_year", or "per_day". Each tips array must contain exactly three concise items, specific to the supplied data, and free of Markdown or numbering. Do not add explanatory text outside the JSON.`

// Generator produces bilingual recommendations for a summary. The model is
// optional: every category has a deterministic, data-grounded fallback, so a
// missing or failing provider never blocks the upload path.
type Generator struct {
	client llm.Client
	log    *zap.Logger
}

// New creates a recommendation generator. client may be nil.
func New(client llm.Client, log *zap.Logger) *Generator {
	return &Generator{client: client, log: log.With(zap.String("component", "recommend"))}
}

// Apply fills summary.Recommendations in place
func (g *Generator) Apply(ctx context.Context, summary *models.Summary) {
	if summary == nil {
		return
	}
	if g.client != nil {
		if recs, err := g.fromModel(ctx, summary); err == nil {
			summary.Recommendations = recs
			return
		} else {
			g.log.Warn("model recommendations failed, using fallbacks", zap.Error(err))
		}
	}
	summary.Recommendations = Fallbacks(summary)
}

type envelope struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

func (g *Generator) fromModel(ctx context.Context, summary *models.Summary) ([]models.Recommendation, error) {
	payload, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}

	reply, err := g.client.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: string(payload)},
	}, &llm.Options{Temperature: 0.2, JSONOnly: true})
	if err != nil {
		return nil, err
	}

	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")

	var env envelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &env); err != nil {
		return nil, fmt.Errorf("decoding recommendations: %w", err)
	}
	if err := validate(env.Recommendations); err != nil {
		return nil, err
	}
	return env.Recommendations, nil
}

func validate(recs []models.Recommendation) error {
	if len(recs) != 3 {
		return fmt.Errorf("expected 3 recommendations, got %d", len(recs))
	}
	seen := map[string]bool{}
	for _, rec := range recs {
		switch rec.Category {
		case CategoryCostSaving, CategoryCO2Reduction, CategoryEfficiency:
		default:
			return fmt.Errorf("unknown category %q", rec.Category)
		}
		if seen[rec.Category] {
			return fmt.Errorf("duplicate category %q", rec.Category)
		}
		seen[rec.Category] = true
		if rec.Content == nil || len(rec.Content.EN.Tips) == 0 || len(rec.Content.FR.Tips) == 0 {
			return fmt.Errorf("category %q missing localized content", rec.Category)
		}
	}
	return nil
}

// Fallbacks builds deterministic recommendations from the summary alone
func Fallbacks(summary *models.Summary) []models.Recommendation {
	return []models.Recommendation{
		fallbackCost(summary),
		fallbackCO2(summary),
		fallbackEfficiency(summary),
	}
}

func fallbackCost(summary *models.Summary) models.Recommendation {
	in := summary.Insights
	dayLabel := "your period"
	impact := "€0"
	avgLabel := "€0"
	if in != nil && len(in.TopExpensiveDays) > 0 {
		top := in.TopExpensiveDays[0]
		dayLabel = top.Date
		impact = formatEuro(top.Cost)
		if in.DaysCovered > 0 {
			var total float64
			for _, d := range in.TopExpensiveDays {
				total += d.Cost
			}
			avgLabel = formatEuro(total / float64(len(in.TopExpensiveDays)))
		}
	}
	return build(CategoryCostSaving, impact, "per_day",
		models.RecommendationText{
			Title:  fmt.Sprintf("Reduce %s spend", dayLabel),
			Impact: fmt.Sprintf("Moving peak loads trims spend versus a typical %s day.", avgLabel),
			Tips: []string{
				fmt.Sprintf("Check which circuits pushed %s to %s.", dayLabel, impact),
				fmt.Sprintf("Aim for days that track closer to %s.", avgLabel),
				"Shift wash and heat runs away from expensive evenings.",
			},
		},
		models.RecommendationText{
			Title:  fmt.Sprintf("Calmer le coût du %s", dayLabel),
			Impact: fmt.Sprintf("Reporter les pics rapproche vos journées de la moyenne %s.", avgLabel),
			Tips: []string{
				fmt.Sprintf("Repérez les postes qui montent %s à %s.", dayLabel, impact),
				fmt.Sprintf("Visez des journées proches de %s.", avgLabel),
				"Planifiez lavage ou chauffage hors des soirées chargées.",
			},
		})
}

func fallbackCO2(summary *models.Summary) models.Recommendation {
	in := summary.Insights
	daily := 0.0
	if in != nil && in.DaysCovered > 0 {
		var totalKWh float64
		for _, s := range summary.Stats {
			if s.Title == "Total Consumption" {
				totalKWh = s.Value
			}
		}
		daily = totalKWh * in.CO2Factor / float64(in.DaysCovered)
	}
	impact := fmt.Sprintf("%.1f kg CO₂", daily)
	return build(CategoryCO2Reduction, impact, "per_day",
		models.RecommendationText{
			Title:  "Lower daily CO₂",
			Impact: fmt.Sprintf("Trimming idle loads keeps emissions near %s per day.", impact),
			Tips: []string{
				"Keep efficient devices on when demand spikes.",
				"Dial HVAC by 1°C on weekday evenings to curb base load.",
				"Disconnect chargers and media boxes overnight to stop idle draw.",
			},
		},
		models.RecommendationText{
			Title:  "Réduire le CO₂ quotidien",
			Impact: fmt.Sprintf("Limiter les usages passifs fixe l'empreinte autour de %s par jour.", impact),
			Tips: []string{
				"Gardez les appareils sobres actifs quand la demande monte.",
				"Adaptez chauffage ou climatisation de 1°C les soirs de semaine.",
				"Débranchez chargeurs et box la nuit pour couper la veille.",
			},
		})
}

func fallbackEfficiency(summary *models.Summary) models.Recommendation {
	in := summary.Insights
	windowLabel := "your peak hours"
	shift := 0.0
	if in != nil {
		shift = in.ShiftKWh
		if in.PeakWindow != nil {
			windowLabel = fmt.Sprintf("%02d:00–%02d:00", in.PeakWindow.StartHour, in.PeakWindow.EndHour)
		}
	}
	impact := fmt.Sprintf("%.1f kWh", shift)
	return build(CategoryEfficiency, impact, "per_day",
		models.RecommendationText{
			Title:  fmt.Sprintf("Shift load out of %s", windowLabel),
			Impact: fmt.Sprintf("About %s could move to off-peak hours each day.", impact),
			Tips: []string{
				fmt.Sprintf("Delay dishwasher and laundry starts past %s.", windowLabel),
				"Pre-heat or pre-cool rooms before the peak window begins.",
				"Put timers on the heaviest appliances to automate the shift.",
			},
		},
		models.RecommendationText{
			Title:  fmt.Sprintf("Décaler la charge hors %s", windowLabel),
			Impact: fmt.Sprintf("Environ %s peuvent passer en heures creuses chaque jour.", impact),
			Tips: []string{
				fmt.Sprintf("Retardez lave-vaisselle et lessive après %s.", windowLabel),
				"Chauffez ou rafraîchissez les pièces avant la pointe.",
				"Programmez les gros appareils pour automatiser le décalage.",
			},
		})
}

func build(category, impactValue, period string, en, fr models.RecommendationText) models.Recommendation {
	return models.Recommendation{
		Category: category,
		Impact:   models.RecommendationImpact{Value: impactValue, Period: period},
		Tips:     en.Tips,
		Content:  &models.RecommendationContent{EN: en, FR: fr},
	}
}

func formatEuro(v float64) string {
	if v <= 0 {
		return "€0"
	}
	if v >= 100 {
		return fmt.Sprintf("€%.0f", v)
	}
	return fmt.Sprintf("€%.2f", v)
}
