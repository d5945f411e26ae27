package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sorteio-bolsas/inscription-service/internal/model"
)

// CourseRepository reads the course catalogue.
type CourseRepository struct {
	db *pgxpool.Pool
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListCourses returns active courses ordered by name. A zero institutionID
// or modalityID matches any value.
func (r *CourseRepository) ListCourses(ctx context.Context, institutionID, modalityID int64) ([]model.Course, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT id, name, institution_id, modality_id, active
		 FROM courses
		 WHERE active
		   AND ($1::bigint = 0 OR institution_id = $1)
		   AND ($2::bigint = 0 OR modality_id = $2)
		 ORDER BY name`,
		institutionID, modalityID,
	)
	if err != nil {
		return nil, classify("list courses", err)
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.InstitutionID, &c.ModalityID, &c.Active); err != nil {
			return nil, classify("scan course", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}
