package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
)

// FindModule returns the module with the given id.
func (s *Store) FindModule(ctx context.Context, id string) (domain.Module, error) {
	var data []byte

	err := s.db.QueryRowContext(ctx, `SELECT data FROM cu_module WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return domain.Module{}, cuerr.NotFound("module", id)
	}
	if err != nil {
		return domain.Module{}, err
	}

	var mod domain.Module
	if err := json.Unmarshal(data, &mod); err != nil {
		return domain.Module{}, err
	}

	return mod, nil
}

// SaveModule upserts a module.
func (s *Store) SaveModule(ctx context.Context, mod domain.Module) error {
	data, err := json.Marshal(mod)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cu_module (id, data) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data
	`, mod.ID, data)
	return err
}
