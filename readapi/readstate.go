package readapi

import (
	"context"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/persistence"
)

// ReadState is the orchestrator: it ensures only one evaluation pipeline
// run is in flight per process at a time, via a singleflight.Group keyed
// by processId.
//
// A caller requesting a target at or before the in-flight run's target
// attaches to it and, once it completes, reads a truncated view straight
// from persistence rather than trusting the in-flight call's own result.
// A caller requesting a later target waits for the in-flight run to
// finish and then starts its own.
func (a *API) ReadState(ctx context.Context, processID string, to ordinate.Ordinate) (domain.Evaluation, error) {
	for {
		a.m.Lock()
		current, running := a.targets[processID]

		if running && to.After(current) {
			a.m.Unlock()
			a.sf.Do(processID, noopFuture) // wait for the older run to finish
			continue
		}

		if running {
			a.m.Unlock()
			a.sf.Do(processID, noopFuture) // attach to the run already in flight
			return a.evaluationAtOrBefore(ctx, processID, to)
		}

		if a.targets == nil {
			a.targets = map[string]ordinate.Ordinate{}
		}
		a.targets[processID] = to
		a.m.Unlock()

		v, err, _ := a.sf.Do(processID, func() (any, error) {
			return a.Pipeline.Run(ctx, processID, to)
		})

		a.m.Lock()
		delete(a.targets, processID)
		a.m.Unlock()

		if err != nil {
			return domain.Evaluation{}, err
		}
		return v.(domain.Evaluation), nil
	}
}

func noopFuture() (any, error) { return nil, nil }

// PendingReadStates returns the processIds with a pipeline run currently
// in flight, for observability.
func (a *API) PendingReadStates() []string {
	a.m.Lock()
	defer a.m.Unlock()

	ids := make([]string, 0, len(a.targets))
	for id := range a.targets {
		ids = append(ids, id)
	}
	return ids
}

func (a *API) evaluationAtOrBefore(ctx context.Context, processID string, to ordinate.Ordinate) (domain.Evaluation, error) {
	rows, err := a.Store.FindEvaluations(ctx, persistence.EvaluationQuery{
		ProcessID: processID,
		To:        to,
		Sort:      persistence.Descending,
		Limit:     1,
	})
	if err != nil {
		return domain.Evaluation{}, err
	}

	if len(rows) == 0 {
		return domain.Evaluation{}, cuerr.NotFound("evaluation", processID)
	}

	return rows[0], nil
}

// ReadResult resolves messageID to its scheduling ordinate via the SU and
// returns the evaluation it produced, running the pipeline if necessary.
func (a *API) ReadResult(ctx context.Context, processID, messageID string) (domain.Evaluation, error) {
	meta, err := a.SU.LoadMessageMeta(ctx, messageID)
	if err != nil {
		return domain.Evaluation{}, err
	}

	return a.ReadState(ctx, processID, meta.Ordinate)
}

// ReadResults is a pure query against persistence: it never triggers an
// evaluation.
func (a *API) ReadResults(ctx context.Context, q persistence.EvaluationQuery) ([]domain.Evaluation, error) {
	return a.Store.FindEvaluations(ctx, q)
}

// ReadCronResults is a pure query against persistence, restricted to
// synthetic cron evaluations.
func (a *API) ReadCronResults(ctx context.Context, processID string, from, to ordinate.Ordinate, limit int) ([]domain.Evaluation, error) {
	return a.Store.FindEvaluations(ctx, persistence.EvaluationQuery{
		ProcessID: processID,
		From:      from,
		To:        to,
		OnlyCron:  true,
		Limit:     limit,
		Sort:      persistence.Ascending,
	})
}
