package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sorteio-bolsas/inscription-service/internal/model"
)

// InscriptionRepository handles persistence for inscriptions and winners.
type InscriptionRepository struct {
	db *pgxpool.Pool
}

// NewInscriptionRepository constructs an InscriptionRepository.
func NewInscriptionRepository(db *pgxpool.Pool) *InscriptionRepository {
	return &InscriptionRepository{db: db}
}

// InscriptionExists reports whether personID is already inscribed in drawID.
func (r *InscriptionRepository) InscriptionExists(ctx context.Context, personID string, drawID int64) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM inscriptions WHERE person_id = $1 AND draw_id = $2)`,
		personID, drawID,
	).Scan(&exists)
	if err != nil {
		return false, classify("check inscription", err)
	}
	return exists, nil
}

// CreateInscription inserts ins, assigning its id and registration time.
//
// ─────────────────────────────────────────────────────────────────────────────
// DUPLICATE REGISTRATION
// ─────────────────────────────────────────────────────────────────────────────
//
// A caller-side "does it exist?" query followed by this INSERT is not atomic:
//
//	request A: InscriptionExists(p, d) → false
//	request B: InscriptionExists(p, d) → false
//	request A: INSERT (p, d)
//	request B: INSERT (p, d)
//
// The inscriptions_person_draw_key unique index makes the second INSERT fail
// with 23505, reported here as ErrConflict. The pre-check only exists to
// return the same answer before touching the index.
//
// A missing person, draw or course fails the foreign keys and is reported as
// ErrReference.
// ─────────────────────────────────────────────────────────────────────────────
func (r *InscriptionRepository) CreateInscription(ctx context.Context, ins *model.Inscription) error {
	ins.ID = uuid.New().String()
	ins.RegisteredAt = time.Now().UTC()

	_, err := conn(ctx, r.db).Exec(ctx,
		`INSERT INTO inscriptions (id, draw_id, person_id, course_id, registered_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ins.ID, ins.DrawID, ins.PersonID, ins.CourseID, ins.RegisteredAt, ins.CreatedBy,
	)
	return classify("insert inscription", err)
}

const inscriptionDetailQuery = `
	SELECT i.id, i.draw_id, i.person_id, i.course_id, i.registered_at, i.created_by,
	       COALESCE(p.full_name, ''), COALESCE(c.name, ''), COALESCE(d.description, ''),
	       EXISTS (SELECT 1 FROM winners w WHERE w.inscription_id = i.id)
	FROM inscriptions i
	LEFT JOIN people  p ON p.id = i.person_id
	LEFT JOIN courses c ON c.id = i.course_id
	LEFT JOIN draws   d ON d.id = i.draw_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanInscriptionDetail(row scanner) (model.InscriptionDetail, error) {
	var d model.InscriptionDetail
	err := row.Scan(&d.ID, &d.DrawID, &d.PersonID, &d.CourseID, &d.RegisteredAt, &d.CreatedBy,
		&d.PersonName, &d.CourseName, &d.DrawDescription, &d.Winner)
	return d, err
}

// GetInscription returns one inscription with its joined names or ErrNotFound.
func (r *InscriptionRepository) GetInscription(ctx context.Context, id string) (*model.InscriptionDetail, error) {
	d, err := scanInscriptionDetail(conn(ctx, r.db).QueryRow(ctx, inscriptionDetailQuery+` WHERE i.id = $1`, id))
	if err != nil {
		return nil, classify("get inscription", err)
	}
	return &d, nil
}

// ListInscriptions returns every inscription, newest first.
func (r *InscriptionRepository) ListInscriptions(ctx context.Context) ([]model.InscriptionDetail, error) {
	rows, err := conn(ctx, r.db).Query(ctx, inscriptionDetailQuery+` ORDER BY i.registered_at DESC`)
	if err != nil {
		return nil, classify("list inscriptions", err)
	}
	defer rows.Close()

	var out []model.InscriptionDetail
	for rows.Next() {
		d, err := scanInscriptionDetail(rows)
		if err != nil {
			return nil, classify("scan inscription", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteInscription removes an inscription and, by cascade, its winner row.
func (r *InscriptionRepository) DeleteInscription(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM inscriptions WHERE id = $1`, id)
	if err != nil {
		return classify("delete inscription", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateWinner promotes an inscription. winners_inscription_key turns a
// second promotion into ErrConflict; the first row is never overwritten.
func (r *InscriptionRepository) CreateWinner(ctx context.Context, w *model.Winner) error {
	w.ID = uuid.New().String()
	w.CreatedAt = time.Now().UTC()

	_, err := conn(ctx, r.db).Exec(ctx,
		`INSERT INTO winners (id, inscription_id, modality, institution, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		w.ID, w.InscriptionID, w.Modality, w.Institution, w.CreatedAt,
	)
	return classify("insert winner", err)
}

// GetWinnerByInscription returns the winner row of an inscription or ErrNotFound.
func (r *InscriptionRepository) GetWinnerByInscription(ctx context.Context, inscriptionID string) (*model.Winner, error) {
	var w model.Winner
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, inscription_id, modality, institution, created_at
		 FROM winners WHERE inscription_id = $1`,
		inscriptionID,
	).Scan(&w.ID, &w.InscriptionID, &w.Modality, &w.Institution, &w.CreatedAt)
	if err != nil {
		return nil, classify("get winner", err)
	}
	return &w, nil
}

// ListWinners returns winners joined with the winning person, in promotion order.
func (r *InscriptionRepository) ListWinners(ctx context.Context) ([]model.WinnerDetail, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT w.id, w.inscription_id, w.modality, w.institution, w.created_at,
		        i.draw_id, p.id, p.full_name, p.cpf, p.email
		 FROM winners w
		 JOIN inscriptions i ON i.id = w.inscription_id
		 JOIN people p ON p.id = i.person_id
		 ORDER BY w.created_at ASC, w.id ASC`,
	)
	if err != nil {
		return nil, classify("list winners", err)
	}
	defer rows.Close()

	var out []model.WinnerDetail
	for rows.Next() {
		var w model.WinnerDetail
		if err := rows.Scan(&w.ID, &w.InscriptionID, &w.Modality, &w.Institution, &w.CreatedAt,
			&w.DrawID, &w.PersonID, &w.PersonName, &w.PersonCPF, &w.PersonEmail); err != nil {
			return nil, classify("scan winner", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
