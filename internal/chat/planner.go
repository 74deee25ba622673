package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/energyinsight/energyinsight/internal/config"
	"github.com/energyinsight/energyinsight/internal/llm"
	"github.com/energyinsight/energyinsight/pkg/models"
)

// ErrUnparsableIntent is returned when the model's reply cannot be decoded
// into a plan. Callers recover it into a conversational fallback.
var ErrUnparsableIntent = errors.New("planner returned an unparsable intent")

// Plan is the planner's decision for one question: a short restatement of the
// intent and at most one candidate read statement. An empty SQL field means
// the question needs no data query.
type Plan struct {
	Analysis string `json:"analysis"`
	SQL      string `json:"sql"`
}

// NeedsQuery reports whether the plan carries a candidate statement
func (p *Plan) NeedsQuery() bool {
	return p.SQL != ""
}

// Planner turns a natural-language question plus conversation context into a
// candidate statement over the fixed sandbox schema. It never sees user
// identifiers; scoping happens at execution time.
type Planner struct {
	client llm.Client
	cfg    *config.Config
	log    *zap.Logger
	now    func() time.Time
}

// NewPlanner creates a planner backed by the given model client
func NewPlanner(client llm.Client, cfg *config.Config, log *zap.Logger) *Planner {
	return &Planner{
		client: client,
		cfg:    cfg,
		log:    log.With(zap.String("component", "planner")),
		now:    time.Now,
	}
}

type planEnvelope struct {
	Analysis string  `json:"analysis"`
	SQL      *string `json:"sql"`
}

// Plan asks the model for a candidate statement. Prior turns are forwarded as
// conversation context ahead of the new prompt.
func (p *Planner) Plan(ctx context.Context, prompt string, history []models.ChatMessage) (*Plan, error) {
	today := p.now().UTC().Format("2006-01-02")

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: plannerSystemPrompt(today, p.cfg.SQLRowLimit),
	})
	for _, turn := range history {
		role := turn.Role
		if role == "" {
			role = "user"
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: prompt})

	reply, err := p.client.Chat(ctx, messages, &llm.Options{Temperature: 0, JSONOnly: true})
	if err != nil {
		return nil, fmt.Errorf("calling planner model: %w", err)
	}

	var envelope planEnvelope
	if err := json.Unmarshal([]byte(stripFences(reply)), &envelope); err != nil {
		p.log.Warn("planner reply was not valid JSON", zap.Error(err))
		return nil, ErrUnparsableIntent
	}

	plan := &Plan{Analysis: envelope.Analysis}
	if envelope.SQL != nil {
		plan.SQL = strings.TrimSpace(*envelope.SQL)
	}
	return plan, nil
}

// stripFences removes markdown code fences some models wrap JSON in
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
