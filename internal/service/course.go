package service

import (
	"context"

	"github.com/sorteio-bolsas/inscription-service/internal/apperr"
	"github.com/sorteio-bolsas/inscription-service/internal/model"
)

// CourseService lists the course catalogue.
type CourseService struct {
	base
	courses CourseStore
}

func NewCourseService(courses CourseStore, opts ...Option) *CourseService {
	return &CourseService{base: newBase(opts), courses: courses}
}

// ListCourses returns active courses, optionally filtered by institution and
// modality (zero means any).
func (s *CourseService) ListCourses(ctx context.Context, institutionID, modalityID int64) ([]model.Course, error) {
	if institutionID < 0 || modalityID < 0 {
		return nil, apperr.Validation("institution and modality must be positive integers")
	}
	var out []model.Course
	err := s.read(ctx, "list_courses", func(ctx context.Context) error {
		var err error
		out, err = s.courses.ListCourses(ctx, institutionID, modalityID)
		return err
	})
	if err != nil {
		return nil, storageFailure(err, "failed to list courses")
	}
	return out, nil
}
