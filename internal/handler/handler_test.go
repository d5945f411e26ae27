package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sorteio-bolsas/inscription-service/internal/model"
	"github.com/sorteio-bolsas/inscription-service/internal/repository"
	"github.com/sorteio-bolsas/inscription-service/internal/service"
)

type HandlerSuite struct {
	suite.Suite
	store  *repository.Memory
	router http.Handler
	drawID int64
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func newServices(store *repository.Memory) Services {
	geo := service.NewGeographyService(store, nil)
	return Services{
		People:       service.NewPersonService(store, geo, store),
		Inscriptions: service.NewInscriptionService(store),
		Draws:        service.NewDrawService(store),
		Geography:    geo,
		Courses:      service.NewCourseService(store),
	}
}

func (s *HandlerSuite) SetupTest() {
	s.store = repository.NewMemory()
	s.store.SeedReference()
	d := &model.Draw{
		Name:      "Bolsas 2025.1",
		Active:    true,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.store.CreateDraw(context.Background(), d))
	s.drawID = d.ID

	s.router = Routes(New(newServices(s.store), s.store, nil), nil, []string{"*"}, nil)
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, dst any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), dst))
}

func (s *HandlerSuite) errorMessage(rec *httptest.ResponseRecorder) string {
	var body model.ErrorResponse
	s.decode(rec, &body)
	return body.Error
}

func (s *HandlerSuite) anaSilva(city string) map[string]any {
	return map[string]any{
		"fullName": "Ana Silva",
		"cpf":      "52998224725",
		"email":    "ana@x.com",
		"phone":    "81999990000",
		"city":     city,
		"state":    "PE",
		"drawId":   s.drawID,
	}
}

func (s *HandlerSuite) TestRegistrationFlow() {
	rec := s.do(http.MethodPost, "/people", s.anaSilva("Recife"))
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var person model.PersonResult
	s.decode(rec, &person)
	s.True(person.Created)

	rec = s.do(http.MethodPost, "/people", s.anaSilva("Recife"))
	s.Require().Equal(http.StatusOK, rec.Code)
	var again model.PersonResult
	s.decode(rec, &again)
	s.False(again.Created)
	s.Equal(person.PersonID, again.PersonID)

	rec = s.do(http.MethodPost, "/inscriptions", map[string]any{
		"drawId": s.drawID, "personId": person.PersonID, "courseId": 1,
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var reg model.RegisterResponse
	s.decode(rec, &reg)
	s.NotEmpty(reg.InscriptionID)

	rec = s.do(http.MethodPost, "/people", s.anaSilva("Recife"))
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("already registered for this draw", s.errorMessage(rec))

	rec = s.do(http.MethodPost, "/inscriptions", map[string]any{
		"drawId": s.drawID, "personId": person.PersonID, "courseId": 2,
	})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/inscriptions/"+reg.InscriptionID, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var detail model.InscriptionDetail
	s.decode(rec, &detail)
	s.Equal("Ana Silva", detail.PersonName)
	s.False(detail.Winner)
}

func (s *HandlerSuite) TestUnknownCityIsBadRequest() {
	rec := s.do(http.MethodPost, "/people", s.anaSilva("Atlantis"))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("municipality not found", s.errorMessage(rec))

	_, err := s.store.FindPersonByCPF(context.Background(), "52998224725")
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *HandlerSuite) TestCreatePersonValidation() {
	body := s.anaSilva("Recife")
	body["cpf"] = "11144477736"
	rec := s.do(http.MethodPost, "/people", body)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("cpf is invalid", s.errorMessage(rec))

	body = s.anaSilva("Recife")
	body["nickname"] = "ana"
	rec = s.do(http.MethodPost, "/people", body)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestMarkWinner() {
	person := &model.Person{CPF: "11144477735", FullName: "Bruno Lima", Email: "bruno@x.com", MunicipalityCode: 2611606}
	s.Require().NoError(s.store.CreatePerson(context.Background(), person))
	ins := &model.Inscription{DrawID: s.drawID, PersonID: person.ID, CourseID: 1, CreatedBy: "system"}
	s.Require().NoError(s.store.CreateInscription(context.Background(), ins))

	path := "/inscriptions/" + ins.ID + "/winner"
	rec := s.do(http.MethodPatch, path, map[string]string{"modality": "integral", "institution": "UFPE"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.JSONEq(`{"winner":true}`, rec.Body.String())

	rec = s.do(http.MethodPatch, path, map[string]string{"modality": "parcial", "institution": "UPE"})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, path, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var win model.Winner
	s.decode(rec, &win)
	s.Equal("integral", win.Modality)
	s.Equal("UFPE", win.Institution)

	rec = s.do(http.MethodPatch, "/inscriptions/"+"00000000-0000-0000-0000-000000000000/winner",
		map[string]string{"modality": "integral", "institution": "UFPE"})
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/winners", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var winners []model.WinnerDetail
	s.decode(rec, &winners)
	s.Require().Len(winners, 1)
	s.Equal("integral", winners[0].Modality)
	s.Equal("bruno@x.com", winners[0].PersonEmail)
	s.Equal("111.444.777-35", winners[0].PersonCPF)

	rec = s.do(http.MethodDelete, "/inscriptions/"+ins.ID, nil)
	s.Equal(http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/inscriptions/"+ins.ID, nil)
	s.Equal(http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodGet, path, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestEmptyListsAreArrays() {
	for _, path := range []string{"/inscriptions", "/winners"} {
		rec := s.do(http.MethodGet, path, nil)
		s.Require().Equal(http.StatusOK, rec.Code, path)
		s.Equal("[]\n", rec.Body.String(), path)
	}
}

func (s *HandlerSuite) TestDraws() {
	rec := s.do(http.MethodPost, "/draws", map[string]any{
		"name": "Bolsas 2024.2", "startDate": "2024-08-01T00:00:00Z", "endDate": "2024-09-01T00:00:00Z",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Draw
	s.decode(rec, &created)
	s.Equal(3, created.TotalSlots)

	rec = s.do(http.MethodPost, "/draws", map[string]any{
		"name": "Bolsas 2025.2", "startDate": "2025-08-01", "endDate": "2025-09-15",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var dated model.Draw
	s.decode(rec, &dated)
	s.True(dated.StartDate.Equal(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)), dated.StartDate)
	s.True(dated.EndDate.Equal(time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)), dated.EndDate)

	rec = s.do(http.MethodGet, "/draws", nil)
	var all []model.Draw
	s.decode(rec, &all)
	s.Len(all, 3)

	rec = s.do(http.MethodGet, "/draws/active", nil)
	var active []model.Draw
	s.decode(rec, &active)
	s.Require().Len(active, 1)
	s.Equal(s.drawID, active[0].ID)

	rec = s.do(http.MethodGet, "/draws/abc", nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/draws", map[string]any{
		"name": "bad", "startDate": "2024-09-01T00:00:00Z", "endDate": "2024-08-01T00:00:00Z",
	})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/draws", map[string]any{
		"name": "bad", "startDate": "01/08/2024", "endDate": "2024-09-01",
	})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/draws/active", nil)
	s.Contains(rec.Body.String(), `"startDate":"2025-01-01T00:00:00Z"`)
	s.NotContains(rec.Body.String(), "start_date")
}

func (s *HandlerSuite) TestReferenceData() {
	rec := s.do(http.MethodGet, "/states", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var states []model.State
	s.decode(rec, &states)
	s.Len(states, 3)

	rec = s.do(http.MethodGet, "/states/26/municipalities", nil)
	var cities []model.Municipality
	s.decode(rec, &cities)
	s.Len(cities, 3)

	rec = s.do(http.MethodGet, "/states/zero/municipalities", nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/municipalities/resolve?state=pe&city=Olinda", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.JSONEq(`{"stateId":26,"code":2609600}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/municipalities/resolve?state=PE&city=Atlantis", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("municipality not found", s.errorMessage(rec))

	rec = s.do(http.MethodGet, "/municipalities/resolve?state=ZZ&city=Olinda", nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/courses?institution=1&modality=2", nil)
	var courses []model.Course
	s.decode(rec, &courses)
	s.Require().Len(courses, 1)
	s.Equal("Pedagogia", courses[0].Name)

	rec = s.do(http.MethodGet, "/courses?modality=x", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthCheck(t *testing.T) {
	store := repository.NewMemory()

	ok := Routes(New(newServices(store), store, nil), nil, nil, nil)
	rec := httptest.NewRecorder()
	ok.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := Routes(New(newServices(store), failingPinger{}, nil), nil, nil, nil)
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORS(t *testing.T) {
	store := repository.NewMemory()
	router := Routes(New(newServices(store), store, nil), nil, []string{"https://sorteio.example.com"}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/people", nil)
	req.Header.Set("Origin", "https://sorteio.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://sorteio.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
