package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/sorteio-bolsas/inscription-service/internal/apperr"
	"github.com/sorteio-bolsas/inscription-service/internal/cpf"
	"github.com/sorteio-bolsas/inscription-service/internal/model"
	"github.com/sorteio-bolsas/inscription-service/internal/repository"
)

// PersonService resolves a submitted identity to one person record.
type PersonService struct {
	base
	people PersonStore
	geo    *GeographyService
	tx     Transactor
}

// NewPersonService constructs a PersonService with its dependencies.
func NewPersonService(people PersonStore, geo *GeographyService, tx Transactor, opts ...Option) *PersonService {
	return &PersonService{base: newBase(opts), people: people, geo: geo, tx: tx}
}

// FindOrCreate returns the person holding req.CPF, creating it when absent.
//
// The steps run in one transaction and short-circuit on the first failure:
//  1. reject when the CPF already has an inscription in req.DrawID;
//  2. return an existing person untouched;
//  3. resolve state and municipality;
//  4. insert the person. people_cpf_key turns a concurrent duplicate into a conflict.
func (s *PersonService) FindOrCreate(ctx context.Context, req model.CreatePersonRequest) (*model.PersonResult, error) {
	const op = "find_or_create_person"

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)

	if err := validatePerson(req); err != nil {
		s.reject(ctx, op, err)
		return nil, err
	}
	number := cpf.Normalize(req.CPF)

	var result model.PersonResult
	err := s.inTx(ctx, s.tx, op, func(ctx context.Context) error {
		var inscribed bool
		err := s.read(ctx, "check_inscription_by_cpf", func(ctx context.Context) error {
			var err error
			inscribed, err = s.people.InscriptionExistsForCPF(ctx, number, req.DrawID)
			return err
		})
		if err != nil {
			return storageFailure(err, "failed to check existing inscription")
		}
		if inscribed {
			return apperr.Conflict("already registered for this draw")
		}

		var existing *model.Person
		err = s.read(ctx, "find_person", func(ctx context.Context) error {
			var err error
			existing, err = s.people.FindPersonByCPF(ctx, number)
			return err
		})
		switch {
		case err == nil:
			result = model.PersonResult{PersonID: existing.ID, Created: false}
			return nil
		case !errors.Is(err, repository.ErrNotFound):
			return storageFailure(err, "failed to load person")
		}

		stateID, err := s.geo.ResolveState(ctx, req.State)
		if err != nil {
			return err
		}
		code, err := s.geo.ResolveMunicipality(ctx, req.City, stateID)
		if err != nil {
			return err
		}

		person := &model.Person{
			CPF:              number,
			FullName:         req.FullName,
			Email:            req.Email,
			Phone:            req.Phone,
			MunicipalityCode: code,
			CreatedBy:        req.Email,
		}
		err = s.write(ctx, "create_person", func(ctx context.Context) error {
			return s.people.CreatePerson(ctx, person)
		})
		switch {
		case errors.Is(err, repository.ErrConflict):
			return apperr.Wrap(err, apperr.KindConflict, "a person with this cpf already exists")
		case errors.Is(err, repository.ErrReference):
			return apperr.Wrap(err, apperr.KindNotFound, "municipality not found")
		case err != nil:
			return storageFailure(err, "failed to create person")
		}
		result = model.PersonResult{PersonID: person.ID, Created: true}
		return nil
	})
	if err != nil {
		err = storageFailure(err, "failed to register person")
		s.reject(ctx, op, err)
		return nil, err
	}

	if result.Created {
		s.metrics.IncPeopleCreated()
		s.logger.InfoContext(ctx, "person created", "person_id", result.PersonID, "draw_id", req.DrawID)
	}
	return &result, nil
}

func validatePerson(req model.CreatePersonRequest) error {
	if req.FullName == "" || strings.TrimSpace(req.CPF) == "" || req.Email == "" || req.DrawID <= 0 {
		return apperr.Validation("fullName, cpf, email and drawId are required")
	}
	if !isValidEmail(req.Email) {
		return apperr.Validation("email is not a valid email address")
	}
	if !cpf.Valid(req.CPF) {
		return apperr.Validation("cpf is invalid")
	}
	return nil
}

// isValidEmail accepts a bare RFC 5322 address, without display name, whose
// domain contains a dot.
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	return strings.Contains(email[strings.LastIndex(email, "@")+1:], ".")
}
