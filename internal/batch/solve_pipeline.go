package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackzampolin/problembook/internal/jobs"
)

// StartBatchSolve registers a job that solves problemIDs in order with the
// named provider ("" selects the default provider).
func (p *Processor) StartBatchSolve(ctx context.Context, problemIDs []string, provider string) (string, error) {
	id := p.jobs.CreateJob(jobs.BatchSolve(problemIDs, provider))
	if len(problemIDs) == 0 {
		return p.reject(id, fmt.Errorf("%w: problem_ids is empty", ErrInvalidRequest))
	}

	ids := append([]string(nil), problemIDs...)
	go p.runBatchSolve(background(ctx), id, ids, provider)
	return id, nil
}

func (p *Processor) runBatchSolve(ctx context.Context, jobID string, problemIDs []string, provider string) {
	start := time.Now()
	logger := p.logger.With("job_id", jobID, "provider", provider)
	total := len(problemIDs)
	result := SolveResult{Errors: []string{}}
	touched := map[string]bool{}

	for _, problemID := range problemIDs {
		if p.jobs.IsCancelled(jobID) {
			logger.Info("batch solve cancelled", "processed", result.Processed)
			return
		}
		p.jobs.UpdateProgress(jobID, float64(result.Processed)/float64(total)*100,
			fmt.Sprintf("Solving problem %s", problemID))

		attempted, err := p.solveOne(ctx, problemID, provider, touched)
		result.Processed++
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			logger.Warn("solve failed", "problem_id", problemID, "error", err)
		} else {
			result.Succeeded++
		}

		if attempted && p.solveDelay > 0 {
			select {
			case <-time.After(p.solveDelay):
			case <-ctx.Done():
			}
		}
	}

	if p.exporter != nil {
		for bookID := range touched {
			p.exporter.Invalidate(bookID)
		}
	}
	result.DurationSecs = seconds(time.Since(start))
	logger.Info("batch solve complete",
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"duration", time.Since(start))
	p.jobs.CompleteJob(jobID, result)
}

// solveOne solves and stores one problem. attempted reports whether a
// provider was called. Problems that already have a solution succeed
// without a call.
func (p *Processor) solveOne(ctx context.Context, problemID, provider string, touched map[string]bool) (attempted bool, err error) {
	problem, err := p.store.GetProblem(ctx, problemID)
	if err != nil {
		return false, fmt.Errorf("Problem %s: not found", problemID)
	}
	if problem.HasSolution {
		return false, nil
	}

	solution, err := p.solver.Solve(ctx, problem, provider, "")
	if err != nil {
		return true, fmt.Errorf("Problem %s: %v", problemID, err)
	}
	if err := p.store.SaveSolution(ctx, solution); err != nil {
		return true, fmt.Errorf("Problem %s: failed to save solution - %v", problemID, err)
	}
	touched[bookOf(problemID)] = true
	if err := p.store.UpdateProblemSolutionStatus(ctx, problemID, true); err != nil {
		return true, fmt.Errorf("Problem %s: failed to update solution status - %v", problemID, err)
	}
	return true, nil
}

// bookOf returns the book segment of a problem id.
func bookOf(problemID string) string {
	book, _, _ := strings.Cut(problemID, ":")
	return book
}
