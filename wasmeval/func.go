package wasmeval

import "context"

// EvaluatorFunc adapts a function to an Evaluator.
type EvaluatorFunc func(ctx context.Context, args Args) (Result, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, args Args) (Result, error) {
	return f(ctx, args)
}
