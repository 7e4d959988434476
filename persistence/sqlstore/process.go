package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
)

// FindProcess returns the process with the given id.
func (s *Store) FindProcess(ctx context.Context, id string) (domain.Process, error) {
	var data []byte

	err := s.db.QueryRowContext(ctx, `SELECT data FROM cu_process WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return domain.Process{}, cuerr.NotFound("process", id)
	}
	if err != nil {
		return domain.Process{}, err
	}

	var p domain.Process
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Process{}, err
	}

	return p, nil
}

// SaveProcess upserts a process.
func (s *Store) SaveProcess(ctx context.Context, p domain.Process) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cu_process (id, data) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data
	`, p.ID, data)
	return err
}
