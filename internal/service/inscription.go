package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/sorteio-bolsas/inscription-service/internal/apperr"
	"github.com/sorteio-bolsas/inscription-service/internal/cpf"
	"github.com/sorteio-bolsas/inscription-service/internal/model"
	"github.com/sorteio-bolsas/inscription-service/internal/repository"
)

// InscriptionService records inscriptions and winner promotions.
//
// Every draw takes at most one inscription per person; the draw's
// allow-multiple flag is informational only.
type InscriptionService struct {
	base
	store InscriptionStore
}

// NewInscriptionService constructs an InscriptionService.
func NewInscriptionService(store InscriptionStore, opts ...Option) *InscriptionService {
	return &InscriptionService{base: newBase(opts), store: store}
}

// Register records a person's inscription in a draw.
func (s *InscriptionService) Register(ctx context.Context, req model.RegisterRequest) (*model.RegisterResponse, error) {
	const op = "register_inscription"
	resp, err := s.register(ctx, req)
	if err != nil {
		s.reject(ctx, op, err)
		return nil, err
	}
	s.metrics.IncInscriptionsRegistered()
	s.logger.InfoContext(ctx, "inscription registered",
		"inscription_id", resp.InscriptionID, "draw_id", req.DrawID, "person_id", req.PersonID)
	return resp, nil
}

func (s *InscriptionService) register(ctx context.Context, req model.RegisterRequest) (*model.RegisterResponse, error) {
	req.PersonID = strings.TrimSpace(req.PersonID)
	if req.DrawID <= 0 || req.PersonID == "" || req.CourseID <= 0 {
		return nil, apperr.Validation("drawId, personId and courseId are required")
	}
	if _, err := uuid.Parse(req.PersonID); err != nil {
		return nil, apperr.Validation("personId is malformed")
	}
	createdBy := strings.TrimSpace(req.CreatedBy)
	if createdBy == "" {
		createdBy = model.DefaultCreatedBy
	}

	var exists bool
	err := s.read(ctx, "check_inscription", func(ctx context.Context) error {
		var err error
		exists, err = s.store.InscriptionExists(ctx, req.PersonID, req.DrawID)
		return err
	})
	if err != nil {
		return nil, storageFailure(err, "failed to check existing inscription")
	}
	if exists {
		return nil, apperr.Conflict("person already registered for this draw")
	}

	ins := &model.Inscription{
		DrawID:    req.DrawID,
		PersonID:  req.PersonID,
		CourseID:  req.CourseID,
		CreatedBy: createdBy,
	}
	err = s.write(ctx, "create_inscription", func(ctx context.Context) error {
		return s.store.CreateInscription(ctx, ins)
	})
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil, apperr.Wrap(err, apperr.KindConflict, "person already registered for this draw")
	case errors.Is(err, repository.ErrReference):
		return nil, apperr.Wrap(err, apperr.KindNotFound, "person, draw or course not found")
	case err != nil:
		return nil, storageFailure(err, "failed to save inscription")
	}
	return &model.RegisterResponse{InscriptionID: ins.ID}, nil
}

// MarkWinner moves an inscription from pending to won. An inscription wins
// at most once; later calls fail with a conflict and change nothing.
func (s *InscriptionService) MarkWinner(ctx context.Context, inscriptionID string, req model.MarkWinnerRequest) (bool, error) {
	const op = "mark_winner"
	if err := s.markWinner(ctx, inscriptionID, req); err != nil {
		s.reject(ctx, op, err)
		return false, err
	}
	s.metrics.IncWinnersPromoted()
	s.logger.InfoContext(ctx, "inscription promoted to winner", "inscription_id", inscriptionID)
	return true, nil
}

func (s *InscriptionService) markWinner(ctx context.Context, inscriptionID string, req model.MarkWinnerRequest) error {
	if _, err := uuid.Parse(inscriptionID); err != nil {
		return apperr.NotFound("inscription not found")
	}
	req.Modality = strings.TrimSpace(req.Modality)
	req.Institution = strings.TrimSpace(req.Institution)
	if req.Modality == "" || req.Institution == "" {
		return apperr.Validation("modality and institution are required")
	}

	w := &model.Winner{
		InscriptionID: inscriptionID,
		Modality:      req.Modality,
		Institution:   req.Institution,
	}
	err := s.write(ctx, "create_winner", func(ctx context.Context) error {
		return s.store.CreateWinner(ctx, w)
	})
	switch {
	case errors.Is(err, repository.ErrConflict):
		return apperr.Wrap(err, apperr.KindConflict, "inscription already won")
	case errors.Is(err, repository.ErrReference):
		return apperr.Wrap(err, apperr.KindNotFound, "inscription not found")
	case err != nil:
		return storageFailure(err, "failed to promote winner")
	}
	return nil
}

// ListWinners returns winners in promotion order, with the CPF in its
// display form.
func (s *InscriptionService) ListWinners(ctx context.Context) ([]model.WinnerDetail, error) {
	var out []model.WinnerDetail
	err := s.read(ctx, "list_winners", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListWinners(ctx)
		return err
	})
	if err != nil {
		return nil, storageFailure(err, "failed to list winners")
	}
	for i := range out {
		out[i].PersonCPF = cpf.Format(out[i].PersonCPF)
	}
	return out, nil
}

// Winner returns the promotion record of an inscription.
func (s *InscriptionService) Winner(ctx context.Context, inscriptionID string) (*model.Winner, error) {
	if _, err := uuid.Parse(inscriptionID); err != nil {
		return nil, apperr.NotFound("winner not found")
	}
	var w *model.Winner
	err := s.read(ctx, "get_winner", func(ctx context.Context) error {
		var err error
		w, err = s.store.GetWinnerByInscription(ctx, inscriptionID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("winner not found")
		}
		return nil, storageFailure(err, "failed to load winner")
	}
	return w, nil
}

// Get returns a single inscription by id.
func (s *InscriptionService) Get(ctx context.Context, id string) (*model.InscriptionDetail, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("inscription not found")
	}
	var d *model.InscriptionDetail
	err := s.read(ctx, "get_inscription", func(ctx context.Context) error {
		var err error
		d, err = s.store.GetInscription(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("inscription not found")
		}
		return nil, storageFailure(err, "failed to load inscription")
	}
	return d, nil
}

// List returns every inscription, newest first.
func (s *InscriptionService) List(ctx context.Context) ([]model.InscriptionDetail, error) {
	var out []model.InscriptionDetail
	err := s.read(ctx, "list_inscriptions", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListInscriptions(ctx)
		return err
	})
	if err != nil {
		return nil, storageFailure(err, "failed to list inscriptions")
	}
	return out, nil
}

// Delete removes an inscription (administrative action).
func (s *InscriptionService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("inscription not found")
	}
	err := s.write(ctx, "delete_inscription", func(ctx context.Context) error {
		return s.store.DeleteInscription(ctx, id)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("inscription not found")
		}
		return storageFailure(err, "failed to delete inscription")
	}
	s.logger.InfoContext(ctx, "inscription deleted", "inscription_id", id)
	return nil
}
