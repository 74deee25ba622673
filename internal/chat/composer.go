package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/energyinsight/energyinsight/internal/llm"
	"github.com/energyinsight/energyinsight/pkg/models"
)

// Composer renders sandbox results (or the lack of them) into a
// natural-language answer. It touches no data itself.
type Composer struct {
	client llm.Client
	log    *zap.Logger
	now    func() time.Time
}

// NewComposer creates an answer composer
func NewComposer(client llm.Client, log *zap.Logger) *Composer {
	return &Composer{
		client: client,
		log:    log.With(zap.String("component", "composer")),
		now:    time.Now,
	}
}

// Compose produces the assistant's reply. When the model is unavailable or
// fails, a deterministic prose fallback built from the rows takes over so the
// user always gets an answer.
func (c *Composer) Compose(ctx context.Context, question, analysis, executedSQL string, result *models.SandboxResult) string {
	if c.client != nil {
		if answer, err := c.composeWithModel(ctx, question, analysis, executedSQL, result); err == nil && answer != "" {
			return answer
		} else if err != nil {
			c.log.Warn("model composition failed, using fallback", zap.Error(err))
		}
	}
	return fallbackAnswer(analysis, result)
}

func (c *Composer) composeWithModel(ctx context.Context, question, analysis, executedSQL string, result *models.SandboxResult) (string, error) {
	var rows []map[string]any
	if result != nil {
		rows = result.Rows
	}
	payload, err := json.Marshal(map[string]any{
		"question":     question,
		"analysis":     analysis,
		"executed_sql": executedSQL,
		"result_rows":  rows,
	})
	if err != nil {
		return "", fmt.Errorf("encoding composer payload: %w", err)
	}

	today := c.now().UTC().Format("2006-01-02")
	messages := []llm.Message{
		{Role: "system", Content: composerSystemPrompt(today)},
		{Role: "user", Content: string(payload)},
	}
	return c.client.Chat(ctx, messages, &llm.Options{Temperature: 0.2})
}

const fallbackRowDisplay = 5

// fallbackAnswer summarizes whatever the sandbox produced without a model
func fallbackAnswer(analysis string, result *models.SandboxResult) string {
	if result == nil || result.RowCount == 0 {
		if analysis != "" {
			return analysis
		}
		return "I don't have enough data to answer that. Try asking about a specific metric or time period in your uploaded readings."
	}

	var b strings.Builder
	if analysis != "" {
		b.WriteString(analysis)
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "I found %d matching record", result.RowCount)
	if result.RowCount != 1 {
		b.WriteString("s")
	}
	if result.Truncated {
		b.WriteString(" (truncated)")
	}
	b.WriteString(".")

	shown := result.Rows
	if len(shown) > fallbackRowDisplay {
		shown = shown[:fallbackRowDisplay]
	}
	for _, row := range shown {
		parts := make([]string, 0, len(result.Columns))
		for _, col := range result.Columns {
			parts = append(parts, fmt.Sprintf("%s: %s", col, formatValue(row[col])))
		}
		b.WriteString("\n- ")
		b.WriteString(strings.Join(parts, ", "))
	}
	return b.String()
}

func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return "—"
	case float64:
		return humanize.CommafWithDigits(value, 2)
	case int64:
		return humanize.Comma(value)
	case string:
		return value
	default:
		return fmt.Sprintf("%v", value)
	}
}
