package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
)

// Engine schedules a lead-processing run. Implementations must execute each
// accepted input at least once.
type Engine interface {
	Start(ctx context.Context, input entity.LeadProcessingInput) (*Handle, error)
}

// Runner executes a workflow to completion.
type Runner interface {
	Run(ctx context.Context, input entity.LeadProcessingInput) (*entity.LeadProcessingResult, error)
}

type Handle struct {
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
}

// NewHandle keys a run by event id and start time.
func NewHandle(eventID string, now time.Time) *Handle {
	return &Handle{
		WorkflowID: fmt.Sprintf("lead-processing-%s-%d", eventID, now.UnixMilli()),
		RunID:      uuid.New().String(),
	}
}

// LocalEngine runs workflows on goroutines inside the current process. Runs
// are lost if the process dies, so it is meant for development and tests.
type LocalEngine struct {
	ctx        context.Context
	runner     Runner
	wg         sync.WaitGroup
	OnComplete func(h Handle, result *entity.LeadProcessingResult, err error)
}

func NewLocalEngine(ctx context.Context, runner Runner) *LocalEngine {
	return &LocalEngine{ctx: ctx, runner: runner}
}

func (e *LocalEngine) Start(_ context.Context, input entity.LeadProcessingInput) (*Handle, error) {
	h := NewHandle(input.EventID, time.Now())

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		result, err := e.runner.Run(e.ctx, input)
		if err != nil {
			logger.Error("Lead workflow failed", zap.String("workflowId", h.WorkflowID), zap.Error(err))
		} else {
			logger.Info("Lead workflow completed", zap.String("workflowId", h.WorkflowID), zap.String("leadId", result.LeadID))
		}
		if e.OnComplete != nil {
			e.OnComplete(*h, result, err)
		}
	}()

	return h, nil
}

// Wait blocks until every started run has finished.
func (e *LocalEngine) Wait() {
	e.wg.Wait()
}
