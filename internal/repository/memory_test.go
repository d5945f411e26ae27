package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/sorteio-bolsas/inscription-service/internal/model"
)

// =============================================================================
// Memory Store Test Suite
// =============================================================================
// The memory store backs local runs and every service test, so it has to
// reproduce the schema's uniqueness and foreign-key behaviour.

type MemoryStoreSuite struct {
	suite.Suite
	store  *Memory
	drawID int64
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
	s.store.SeedReference()
	d := &model.Draw{
		Name:      "Bolsas 2025.1",
		Active:    true,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.store.CreateDraw(context.Background(), d))
	s.drawID = d.ID
}

func (s *MemoryStoreSuite) person(cpf string) *model.Person {
	p := &model.Person{CPF: cpf, FullName: "Ana Silva", Email: "ana@x.com", MunicipalityCode: 2611606}
	s.Require().NoError(s.store.CreatePerson(context.Background(), p))
	return p
}

func (s *MemoryStoreSuite) TestPeople() {
	ctx := context.Background()
	p := s.person("52998224725")
	s.NotEmpty(p.ID)
	s.False(p.CreatedAt.IsZero())

	found, err := s.store.FindPersonByCPF(ctx, "52998224725")
	s.Require().NoError(err)
	s.Equal(p.ID, found.ID)

	_, err = s.store.FindPersonByCPF(ctx, "11144477735")
	s.ErrorIs(err, ErrNotFound)

	err = s.store.CreatePerson(ctx, &model.Person{CPF: "52998224725", MunicipalityCode: 2611606})
	s.ErrorIs(err, ErrConflict)

	err = s.store.CreatePerson(ctx, &model.Person{CPF: "11144477735", MunicipalityCode: 1})
	s.ErrorIs(err, ErrReference)
}

func (s *MemoryStoreSuite) TestInscriptions() {
	ctx := context.Background()
	p := s.person("52998224725")

	exists, err := s.store.InscriptionExistsForCPF(ctx, "52998224725", s.drawID)
	s.Require().NoError(err)
	s.False(exists)

	ins := &model.Inscription{DrawID: s.drawID, PersonID: p.ID, CourseID: 1, CreatedBy: "system"}
	s.Require().NoError(s.store.CreateInscription(ctx, ins))

	exists, err = s.store.InscriptionExistsForCPF(ctx, "52998224725", s.drawID)
	s.Require().NoError(err)
	s.True(exists)
	exists, err = s.store.InscriptionExists(ctx, p.ID, s.drawID)
	s.Require().NoError(err)
	s.True(exists)

	err = s.store.CreateInscription(ctx, &model.Inscription{DrawID: s.drawID, PersonID: p.ID, CourseID: 2})
	s.ErrorIs(err, ErrConflict)

	err = s.store.CreateInscription(ctx, &model.Inscription{DrawID: s.drawID, PersonID: uuid.NewString(), CourseID: 2})
	s.ErrorIs(err, ErrReference)

	d, err := s.store.GetInscription(ctx, ins.ID)
	s.Require().NoError(err)
	s.Equal("Ana Silva", d.PersonName)
	s.Equal("Administração", d.CourseName)
}

func (s *MemoryStoreSuite) TestWinners() {
	ctx := context.Background()
	p := s.person("52998224725")
	ins := &model.Inscription{DrawID: s.drawID, PersonID: p.ID, CourseID: 1}
	s.Require().NoError(s.store.CreateInscription(ctx, ins))

	s.Require().NoError(s.store.CreateWinner(ctx, &model.Winner{InscriptionID: ins.ID, Modality: "integral", Institution: "UFPE"}))
	err := s.store.CreateWinner(ctx, &model.Winner{InscriptionID: ins.ID, Modality: "parcial", Institution: "UPE"})
	s.ErrorIs(err, ErrConflict)

	err = s.store.CreateWinner(ctx, &model.Winner{InscriptionID: uuid.NewString(), Modality: "integral", Institution: "UFPE"})
	s.ErrorIs(err, ErrReference)

	w, err := s.store.GetWinnerByInscription(ctx, ins.ID)
	s.Require().NoError(err)
	s.Equal("integral", w.Modality)

	s.Require().NoError(s.store.DeleteInscription(ctx, ins.ID))
	_, err = s.store.GetWinnerByInscription(ctx, ins.ID)
	s.ErrorIs(err, ErrNotFound)
	winners, err := s.store.ListWinners(ctx)
	s.Require().NoError(err)
	s.Empty(winners)

	s.ErrorIs(s.store.DeleteInscription(ctx, ins.ID), ErrNotFound)
}

func (s *MemoryStoreSuite) TestConcurrentCreatePerson() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	var ok, conflict atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.CreatePerson(ctx, &model.Person{CPF: "52998224725", MunicipalityCode: 2611606})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrConflict):
				conflict.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), ok.Load())
	s.Equal(int32(goroutines-1), conflict.Load())
}

func (s *MemoryStoreSuite) TestInTxSerialises() {
	ctx := context.Background()
	var inside, maxInside atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.store.InTx(ctx, func(context.Context) error {
				n := inside.Add(1)
				if n > maxInside.Load() {
					maxInside.Store(n)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	s.Equal(int32(1), maxInside.Load())
}

func (s *MemoryStoreSuite) TestReferenceLookups() {
	ctx := context.Background()

	st, err := s.store.FindStateByUF(ctx, "pe")
	s.Require().NoError(err)
	s.Equal(int64(26), st.ID)

	_, err = s.store.FindStateByID(ctx, 99)
	s.ErrorIs(err, ErrNotFound)

	m, err := s.store.FindMunicipality(ctx, "Olinda", 26)
	s.Require().NoError(err)
	s.Equal(int64(2609600), m.Code)

	draws, err := s.store.ListDraws(ctx, true)
	s.Require().NoError(err)
	s.Len(draws, 1)
}
