package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/persistence"
)

// FindEvaluation returns a single evaluation by its composite key.
func (s *Store) FindEvaluation(ctx context.Context, processID string, ord ordinate.Ordinate, cron bool) (domain.Evaluation, error) {
	var data []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM cu_evaluation WHERE process_id = ? AND ordinate = ? AND cron = ?
	`, processID, ord.String(), boolToInt(cron)).Scan(&data)
	if err == sql.ErrNoRows {
		return domain.Evaluation{}, cuerr.NotFound("evaluation", processID+"@"+ord.String())
	}
	if err != nil {
		return domain.Evaluation{}, err
	}

	var e domain.Evaluation
	if err := json.Unmarshal(data, &e); err != nil {
		return domain.Evaluation{}, err
	}

	return e, nil
}

// SaveEvaluation appends an evaluation row.
func (s *Store) SaveEvaluation(ctx context.Context, e domain.Evaluation) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cu_evaluation (process_id, ordinate, cron, message_id, deep_hash, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (process_id, ordinate, cron) DO UPDATE SET
			message_id = excluded.message_id,
			deep_hash  = excluded.deep_hash,
			data       = excluded.data
	`, e.ProcessID, e.Ordinate.String(), boolToInt(e.Cron), e.MessageID, e.DeepHash, data)
	return err
}

// FindEvaluations returns the evaluations matching q, ordered by q.Sort.
// q.From and q.To are both inclusive bounds.
//
// The range filter is applied in Go, not SQL, since ordinate's total
// order is a big-integer comparison the stored text column's lexical
// ordering doesn't match; see boltstore's FindEvaluations for the same
// constraint.
func (s *Store) FindEvaluations(ctx context.Context, q persistence.EvaluationQuery) ([]domain.Evaluation, error) {
	query := `SELECT data FROM cu_evaluation WHERE process_id = ?`
	args := []any{q.ProcessID}

	if q.OnlyCron {
		query += ` AND cron = 1`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Evaluation
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var e domain.Evaluation
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}

		if q.From != "" && e.Ordinate.Before(q.From) {
			continue
		}
		if q.To != "" && e.Ordinate.After(q.To) {
			continue
		}

		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if q.Sort == persistence.Descending {
			return out[i].Ordinate.After(out[j].Ordinate)
		}
		return out[i].Ordinate.Before(out[j].Ordinate)
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}

	return out, nil
}

// FindMessageBefore returns the evaluation that already applied the
// message identified by lookup, if any.
func (s *Store) FindMessageBefore(ctx context.Context, lookup persistence.MessageLookup) (domain.Evaluation, error) {
	var query string
	var arg string

	if lookup.DeepHash != "" {
		query = `SELECT data FROM cu_evaluation WHERE process_id = ? AND deep_hash = ? LIMIT 1`
		arg = lookup.DeepHash
	} else {
		query = `SELECT data FROM cu_evaluation WHERE process_id = ? AND message_id = ? LIMIT 1`
		arg = lookup.MessageID
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, query, lookup.ProcessID, arg).Scan(&data)
	if err == sql.ErrNoRows {
		return domain.Evaluation{}, cuerr.NotFound("message", lookup.ProcessID)
	}
	if err != nil {
		return domain.Evaluation{}, err
	}

	var e domain.Evaluation
	if err := json.Unmarshal(data, &e); err != nil {
		return domain.Evaluation{}, err
	}

	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
