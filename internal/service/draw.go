package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sorteio-bolsas/inscription-service/internal/apperr"
	"github.com/sorteio-bolsas/inscription-service/internal/model"
	"github.com/sorteio-bolsas/inscription-service/internal/repository"
)

const (
	defaultTotalSlots = 3
	drawCreatedBy     = "admin"
)

// DrawService manages the draw catalogue.
type DrawService struct {
	base
	draws DrawStore
}

// NewDrawService constructs a DrawService.
func NewDrawService(draws DrawStore, opts ...Option) *DrawService {
	return &DrawService{base: newBase(opts), draws: draws}
}

// Create validates the request and stores a new draw.
func (s *DrawService) Create(ctx context.Context, req model.CreateDrawRequest) (*model.Draw, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, apperr.Validation("name, startDate and endDate are required")
	}
	if req.EndDate.Before(req.StartDate.Time) {
		return nil, apperr.Validation("endDate must not be before startDate")
	}
	if req.TotalSlots <= 0 {
		req.TotalSlots = defaultTotalSlots
	}

	d := &model.Draw{
		Name:          req.Name,
		Description:   strings.TrimSpace(req.Description),
		AllowMultiple: req.AllowMultiple,
		Active:        req.Active,
		TotalSlots:    req.TotalSlots,
		StartDate:     req.StartDate.UTC(),
		EndDate:       req.EndDate.UTC(),
		URL:           strings.TrimSpace(req.URL),
		CreatedBy:     drawCreatedBy,
	}
	err := s.write(ctx, "create_draw", func(ctx context.Context) error {
		return s.draws.CreateDraw(ctx, d)
	})
	if err != nil {
		err = storageFailure(err, "failed to create draw")
		s.reject(ctx, "create_draw", err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "draw created", "draw_id", d.ID, "name", d.Name)
	return d, nil
}

// Get returns a single draw.
func (s *DrawService) Get(ctx context.Context, id int64) (*model.Draw, error) {
	if id <= 0 {
		return nil, apperr.NotFound("draw not found")
	}
	var d *model.Draw
	err := s.read(ctx, "get_draw", func(ctx context.Context) error {
		var err error
		d, err = s.draws.GetDraw(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("draw not found")
		}
		return nil, storageFailure(err, "failed to load draw")
	}
	return d, nil
}

// List returns all draws, newest first.
func (s *DrawService) List(ctx context.Context) ([]model.Draw, error) {
	return s.list(ctx, false)
}

// ListActive returns only draws flagged active.
func (s *DrawService) ListActive(ctx context.Context) ([]model.Draw, error) {
	return s.list(ctx, true)
}

func (s *DrawService) list(ctx context.Context, activeOnly bool) ([]model.Draw, error) {
	var out []model.Draw
	err := s.read(ctx, "list_draws", func(ctx context.Context) error {
		var err error
		out, err = s.draws.ListDraws(ctx, activeOnly)
		return err
	})
	if err != nil {
		return nil, storageFailure(err, "failed to list draws")
	}
	return out, nil
}
