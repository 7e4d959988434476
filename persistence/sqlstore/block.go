package sqlstore

import (
	"context"
	"encoding/json"

	"github.com/permaweb/cu/domain"
)

// FindBlocks returns the cached blocks with height in [min, max].
func (s *Store) FindBlocks(ctx context.Context, min, max uint64) ([]domain.Block, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM cu_block WHERE height >= ? AND height <= ? ORDER BY height
	`, min, max)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Block
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var b domain.Block
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}

		out = append(out, b)
	}

	return out, rows.Err()
}

// SaveBlocks merges blocks into the cache.
func (s *Store) SaveBlocks(ctx context.Context, blocks []domain.Block) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, b := range blocks {
		data, err := json.Marshal(b)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cu_block (height, data) VALUES (?, ?)
			ON CONFLICT (height) DO UPDATE SET data = excluded.data
		`, b.Height, data); err != nil {
			return err
		}
	}

	return tx.Commit()
}
