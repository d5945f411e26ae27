package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sorteio-bolsas/inscription-service/internal/model"
)

// GeographyRepository reads the state and municipality reference tables.
type GeographyRepository struct {
	db *pgxpool.Pool
}

// NewGeographyRepository constructs a GeographyRepository.
func NewGeographyRepository(db *pgxpool.Pool) *GeographyRepository {
	return &GeographyRepository{db: db}
}

func (r *GeographyRepository) FindStateByID(ctx context.Context, id int64) (*model.State, error) {
	var s model.State
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, name, uf FROM states WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.UF)
	if err != nil {
		return nil, classify("find state", err)
	}
	return &s, nil
}

func (r *GeographyRepository) FindStateByUF(ctx context.Context, uf string) (*model.State, error) {
	var s model.State
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, name, uf FROM states WHERE uf = upper($1)`, uf,
	).Scan(&s.ID, &s.Name, &s.UF)
	if err != nil {
		return nil, classify("find state by uf", err)
	}
	return &s, nil
}

// FindMunicipality returns the municipality named exactly name within
// stateID. Duplicate names resolve to the lowest code.
func (r *GeographyRepository) FindMunicipality(ctx context.Context, name string, stateID int64) (*model.Municipality, error) {
	var m model.Municipality
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT code, name, state_id
		 FROM municipalities
		 WHERE name = $1 AND state_id = $2
		 ORDER BY code
		 LIMIT 1`,
		name, stateID,
	).Scan(&m.Code, &m.Name, &m.StateID)
	if err != nil {
		return nil, classify("find municipality", err)
	}
	return &m, nil
}

// ListStates returns all states ordered by name.
func (r *GeographyRepository) ListStates(ctx context.Context) ([]model.State, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT id, name, uf FROM states ORDER BY name`)
	if err != nil {
		return nil, classify("list states", err)
	}
	defer rows.Close()

	var states []model.State
	for rows.Next() {
		var s model.State
		if err := rows.Scan(&s.ID, &s.Name, &s.UF); err != nil {
			return nil, classify("scan state", err)
		}
		states = append(states, s)
	}
	return states, rows.Err()
}

// ListMunicipalities returns the municipalities of stateID ordered by name.
func (r *GeographyRepository) ListMunicipalities(ctx context.Context, stateID int64) ([]model.Municipality, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT code, name, state_id FROM municipalities WHERE state_id = $1 ORDER BY name`,
		stateID,
	)
	if err != nil {
		return nil, classify("list municipalities", err)
	}
	defer rows.Close()

	var out []model.Municipality
	for rows.Next() {
		var m model.Municipality
		if err := rows.Scan(&m.Code, &m.Name, &m.StateID); err != nil {
			return nil, classify("scan municipality", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
