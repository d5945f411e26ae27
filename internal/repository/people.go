package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sorteio-bolsas/inscription-service/internal/model"
)

// PersonRepository handles persistence for people.
type PersonRepository struct {
	db *pgxpool.Pool
}

// NewPersonRepository constructs a PersonRepository.
func NewPersonRepository(db *pgxpool.Pool) *PersonRepository {
	return &PersonRepository{db: db}
}

// InscriptionExistsForCPF reports whether the person holding cpf already has
// an inscription under drawID.
func (r *PersonRepository) InscriptionExistsForCPF(ctx context.Context, cpf string, drawID int64) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1
		   FROM inscriptions i
		   JOIN people p ON p.id = i.person_id
		   WHERE p.cpf = $1 AND i.draw_id = $2
		 )`,
		cpf, drawID,
	).Scan(&exists)
	if err != nil {
		return false, classify("check inscription by cpf", err)
	}
	return exists, nil
}

// FindPersonByCPF returns the person with the normalized cpf or ErrNotFound.
func (r *PersonRepository) FindPersonByCPF(ctx context.Context, cpf string) (*model.Person, error) {
	var p model.Person
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, cpf, full_name, email, phone, municipality_code, created_by, created_at
		 FROM people WHERE cpf = $1`,
		cpf,
	).Scan(&p.ID, &p.CPF, &p.FullName, &p.Email, &p.Phone, &p.MunicipalityCode, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		return nil, classify("find person", err)
	}
	return &p, nil
}

// CreatePerson inserts p, assigning its id and creation time. A second row
// with the same cpf fails with ErrConflict.
func (r *PersonRepository) CreatePerson(ctx context.Context, p *model.Person) error {
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now().UTC()

	_, err := conn(ctx, r.db).Exec(ctx,
		`INSERT INTO people (id, cpf, full_name, email, phone, municipality_code, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.CPF, p.FullName, p.Email, p.Phone, p.MunicipalityCode, p.CreatedBy, p.CreatedAt,
	)
	return classify("insert person", err)
}
