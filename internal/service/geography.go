package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/sorteio-bolsas/inscription-service/internal/apperr"
	"github.com/sorteio-bolsas/inscription-service/internal/model"
	"github.com/sorteio-bolsas/inscription-service/internal/repository"
)

// GeographyService resolves free-text locations to reference codes.
type GeographyService struct {
	base
	store GeographyStore
	cache MunicipalityCache
	group singleflight.Group
}

// NewGeographyService constructs a GeographyService. cache may be nil.
func NewGeographyService(store GeographyStore, cache MunicipalityCache, opts ...Option) *GeographyService {
	return &GeographyService{base: newBase(opts), store: store, cache: cache}
}

// ResolveState accepts a numeric state id or a two-letter UF.
func (s *GeographyService) ResolveState(ctx context.Context, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, apperr.NotFound("state not found")
	}

	var state *model.State
	err := s.read(ctx, "find_state", func(ctx context.Context) error {
		var err error
		if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
			state, err = s.store.FindStateByID(ctx, id)
		} else {
			state, err = s.store.FindStateByUF(ctx, strings.ToUpper(ref))
		}
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperr.NotFound("state not found")
		}
		return 0, storageFailure(err, "failed to resolve state")
	}
	return state.ID, nil
}

// ResolveMunicipality returns the code of the municipality named exactly
// cityName (surrounding spaces ignored) within stateID. When the data holds
// duplicates the lowest code wins.
func (s *GeographyService) ResolveMunicipality(ctx context.Context, cityName string, stateID int64) (int64, error) {
	name := strings.TrimSpace(cityName)
	if name == "" || stateID <= 0 {
		return 0, apperr.NotFound("municipality not found")
	}

	if code, ok := s.cached(ctx, stateID, name); ok {
		return code, nil
	}

	var (
		code int64
		err  error
	)
	if withinTx(ctx) {
		code, err = s.findMunicipality(ctx, name, stateID)
	} else {
		code, err = s.sharedFindMunicipality(ctx, name, stateID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperr.NotFound("municipality not found")
		}
		return 0, storageFailure(err, "failed to resolve municipality")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, stateID, name, code); err != nil {
			s.logger.WarnContext(ctx, "municipality cache write failed", "state_id", stateID, "error", err)
		}
	}
	return code, nil
}

// sharedFindMunicipality collapses concurrent lookups of one name. The shared
// query ignores the cancellation of whichever caller started it; every caller
// still returns as soon as its own ctx is done.
func (s *GeographyService) sharedFindMunicipality(ctx context.Context, name string, stateID int64) (int64, error) {
	key := fmt.Sprintf("%d:%s", stateID, name)
	ch := s.group.DoChan(key, func() (any, error) {
		return s.findMunicipality(context.WithoutCancel(ctx), name, stateID)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int64), nil
	case <-ctx.Done():
		return 0, asTimeout(ctx, ctx.Err())
	}
}

// findMunicipality reads through the store. Inside a transaction it runs on
// the caller's tx and is never shared.
func (s *GeographyService) findMunicipality(ctx context.Context, name string, stateID int64) (int64, error) {
	var m *model.Municipality
	err := s.read(ctx, "find_municipality", func(ctx context.Context) error {
		var err error
		m, err = s.store.FindMunicipality(ctx, name, stateID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return m.Code, nil
}

// cached consults the cache. Cache errors are logged and treated as a miss.
func (s *GeographyService) cached(ctx context.Context, stateID int64, name string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	code, ok, err := s.cache.Get(ctx, stateID, name)
	switch {
	case err != nil:
		s.metrics.IncGeoCache("error")
		s.logger.WarnContext(ctx, "municipality cache read failed", "state_id", stateID, "error", err)
		return 0, false
	case ok:
		s.metrics.IncGeoCache("hit")
		return code, true
	default:
		s.metrics.IncGeoCache("miss")
		return 0, false
	}
}

// ListStates returns all states ordered by name.
func (s *GeographyService) ListStates(ctx context.Context) ([]model.State, error) {
	var states []model.State
	err := s.read(ctx, "list_states", func(ctx context.Context) error {
		var err error
		states, err = s.store.ListStates(ctx)
		return err
	})
	if err != nil {
		return nil, storageFailure(err, "failed to list states")
	}
	return states, nil
}

// ListMunicipalities returns the municipalities of a state ordered by name.
func (s *GeographyService) ListMunicipalities(ctx context.Context, stateID int64) ([]model.Municipality, error) {
	if stateID <= 0 {
		return nil, apperr.Validation("state id must be a positive integer")
	}
	var out []model.Municipality
	err := s.read(ctx, "list_municipalities", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListMunicipalities(ctx, stateID)
		return err
	})
	if err != nil {
		return nil, storageFailure(err, "failed to list municipalities")
	}
	return out, nil
}
