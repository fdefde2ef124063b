package approval

import (
	"context"
	"log/slog"
)

// Step is one stage of an ordered workflow operating on shared state S.
// A best-effort step that fails is recorded but does not stop the workflow.
type Step[S any] struct {
	Name       string
	Run        func(ctx context.Context, state *S) error
	BestEffort bool
}

// Outcome records how far a workflow got.
type Outcome struct {
	Completed []string
	Failed    string
	Err       error
	// Skipped lists best-effort steps that failed.
	Skipped map[string]error
}

// OK reports whether every blocking step completed.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// runSteps executes steps in order and stops at the first blocking failure.
// Nothing is compensated.
func runSteps[S any](ctx context.Context, state *S, steps []Step[S], logger *slog.Logger) Outcome {
	out := Outcome{Completed: make([]string, 0, len(steps))}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			out.Failed, out.Err = step.Name, err
			return out
		}
		err := step.Run(ctx, state)
		if err == nil {
			out.Completed = append(out.Completed, step.Name)
			continue
		}
		if step.BestEffort {
			if out.Skipped == nil {
				out.Skipped = map[string]error{}
			}
			out.Skipped[step.Name] = err
			logger.WarnContext(ctx, "workflow step failed, continuing", slog.String("step", step.Name), slog.Any("error", err))
			continue
		}
		logger.ErrorContext(ctx, "workflow step failed", slog.String("step", step.Name), slog.Any("error", err))
		out.Failed, out.Err = step.Name, err
		return out
	}
	return out
}
