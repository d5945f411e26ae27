package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sorteio-bolsas/inscription-service/internal/model"
)

// DrawRepository handles persistence for draws.
type DrawRepository struct {
	db *pgxpool.Pool
}

// NewDrawRepository constructs a DrawRepository.
func NewDrawRepository(db *pgxpool.Pool) *DrawRepository {
	return &DrawRepository{db: db}
}

const drawColumns = `id, name, description, allow_multiple, active, total_slots,
	start_date, end_date, url, created_by, created_at`

// CreateDraw inserts d and fills in its generated id and creation time.
func (r *DrawRepository) CreateDraw(ctx context.Context, d *model.Draw) error {
	d.CreatedAt = time.Now().UTC()
	err := conn(ctx, r.db).QueryRow(ctx,
		`INSERT INTO draws (name, description, allow_multiple, active, total_slots,
		                    start_date, end_date, url, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		d.Name, d.Description, d.AllowMultiple, d.Active, d.TotalSlots,
		d.StartDate, d.EndDate, d.URL, d.CreatedBy, d.CreatedAt,
	).Scan(&d.ID)
	return classify("insert draw", err)
}

// GetDraw returns a single draw or ErrNotFound.
func (r *DrawRepository) GetDraw(ctx context.Context, id int64) (*model.Draw, error) {
	var d model.Draw
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+drawColumns+` FROM draws WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.Description, &d.AllowMultiple, &d.Active, &d.TotalSlots,
		&d.StartDate, &d.EndDate, &d.URL, &d.CreatedBy, &d.CreatedAt)
	if err != nil {
		return nil, classify("get draw", err)
	}
	return &d, nil
}

// ListDraws returns draws ordered by creation time descending.
func (r *DrawRepository) ListDraws(ctx context.Context, activeOnly bool) ([]model.Draw, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+drawColumns+`
		 FROM draws
		 WHERE NOT $1::boolean OR active
		 ORDER BY created_at DESC, id DESC`,
		activeOnly,
	)
	if err != nil {
		return nil, classify("list draws", err)
	}
	defer rows.Close()

	var draws []model.Draw
	for rows.Next() {
		var d model.Draw
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.AllowMultiple, &d.Active, &d.TotalSlots,
			&d.StartDate, &d.EndDate, &d.URL, &d.CreatedBy, &d.CreatedAt); err != nil {
			return nil, classify("scan draw", err)
		}
		draws = append(draws, d)
	}
	return draws, rows.Err()
}
