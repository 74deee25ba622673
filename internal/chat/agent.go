package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/energyinsight/energyinsight/internal/config"
	"github.com/energyinsight/energyinsight/internal/llm"
	"github.com/energyinsight/energyinsight/internal/sandbox"
	"github.com/energyinsight/energyinsight/pkg/models"
)

// Store supplies the acting user's rows for sandbox execution
type Store interface {
	SnapshotForUser(userID string) (sandbox.Snapshot, error)
}

// Agent orchestrates one chat request: plan a statement, execute it in the
// sandbox over the caller's own rows, compose an answer. Every failure path
// degrades into a conversational reply; nothing here surfaces as a hard error.
type Agent struct {
	planner  *Planner
	composer *Composer
	executor *sandbox.Executor
	store    Store
	log      *zap.Logger
}

// NewAgent wires the chat pipeline together
func NewAgent(client llm.Client, store Store, cfg *config.Config, log *zap.Logger) *Agent {
	return &Agent{
		planner:  NewPlanner(client, cfg, log),
		composer: NewComposer(client, log),
		executor: sandbox.New(cfg, log),
		store:    store,
		log:      log.With(zap.String("component", "chat")),
	}
}

// Run answers one prompt for one user
func (a *Agent) Run(ctx context.Context, userID, prompt string, history []models.ChatMessage) (*models.ChatResponse, error) {
	if userID == "" {
		return nil, errors.New("user context is required for chat analysis")
	}

	analysis := ""
	executedSQL := ""
	var result *models.SandboxResult

	plan, err := a.planner.Plan(ctx, prompt, history)
	switch {
	case errors.Is(err, ErrUnparsableIntent):
		a.log.Warn("falling back to conversational answer", zap.Error(err))
	case err != nil:
		a.log.Warn("planner unavailable", zap.Error(err))
	default:
		analysis = plan.Analysis
		if plan.NeedsQuery() {
			result, executedSQL, analysis = a.execute(ctx, userID, plan)
		}
	}

	if result == nil || result.RowCount == 0 {
		if analysis == "" {
			analysis = "No matching records were found. Ask about a specific metric or time period."
		}
	}

	answer := a.composer.Compose(ctx, prompt, analysis, executedSQL, result)

	return &models.ChatResponse{
		ID:       "resp-" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Role:     "assistant",
		Content:  answer,
		Analysis: analysis,
		SQL:      executedSQL,
	}, nil
}

// execute runs the plan's statement in the sandbox. Rejections, timeouts and
// engine errors all collapse into analysis notes for the composer; security
// detail stays in the logs.
func (a *Agent) execute(ctx context.Context, userID string, plan *Plan) (*models.SandboxResult, string, string) {
	snap, err := a.store.SnapshotForUser(userID)
	if err != nil {
		a.log.Error("loading user snapshot", zap.Error(err))
		return nil, "", "Data retrieval issue: the stored readings could not be loaded."
	}

	result, executed, err := a.executor.Execute(ctx, plan.SQL, snap)
	switch {
	case errors.Is(err, sandbox.ErrRejectedStatement):
		a.log.Warn("sandbox rejected statement", zap.Error(err))
		return nil, "", "Data request rejected: the question could not be mapped to a safe read query."
	case errors.Is(err, sandbox.ErrExecutionTimeout):
		a.log.Warn("sandbox execution timed out")
		return nil, "", "Data retrieval issue: the request took too long to evaluate."
	case err != nil:
		a.log.Warn("sandbox execution failed", zap.Error(err))
		return nil, "", "Data retrieval issue: the request could not be evaluated."
	}

	analysis := plan.Analysis
	if analysis == "" {
		analysis = fmt.Sprintf("Found %d matching records.", result.RowCount)
	}
	return result, executed, analysis
}
