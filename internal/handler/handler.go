// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sorteio-bolsas/inscription-service/internal/apperr"
	"github.com/sorteio-bolsas/inscription-service/internal/model"
	"github.com/sorteio-bolsas/inscription-service/internal/service"
)

// Pinger reports storage reachability for the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Pingers reports the first failure among its members.
type Pingers []Pinger

func (ps Pingers) Ping(ctx context.Context) error {
	for _, p := range ps {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Handler holds all HTTP handlers for the inscription API.
type Handler struct {
	people       *service.PersonService
	inscriptions *service.InscriptionService
	draws        *service.DrawService
	geo          *service.GeographyService
	courses      *service.CourseService
	pinger       Pinger
	logger       *slog.Logger
}

// Services groups the dependencies of a Handler.
type Services struct {
	People       *service.PersonService
	Inscriptions *service.InscriptionService
	Draws        *service.DrawService
	Geography    *service.GeographyService
	Courses      *service.CourseService
}

// New constructs a Handler.
func New(svc Services, pinger Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		people:       svc.People,
		inscriptions: svc.Inscriptions,
		draws:        svc.Draws,
		geo:          svc.Geography,
		courses:      svc.Courses,
		pinger:       pinger,
		logger:       logger,
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// writeServiceError maps a service failure to its status and client-safe message.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, apperr.HTTPStatus(apperr.KindOf(err)), apperr.Message(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// int64Param parses a positive integer URL parameter.
func int64Param(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return v, err == nil && v > 0
}

// int64Query parses an optional non-negative query parameter; absent is 0.
func int64Query(r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	return v, err == nil && v >= 0
}

// emptyIfNil returns an empty slice rather than null for better client
// compatibility.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// ─── People ───────────────────────────────────────────────────────────────────

// CreatePerson handles POST /people
// Finds the person holding the CPF or creates one. An unresolvable city or
// state is a client error here, so NotFound is reported as 400.
func (h *Handler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePersonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.people.FindOrCreate(r.Context(), req)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			writeError(w, http.StatusBadRequest, apperr.Message(err))
			return
		}
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// ─── Inscriptions ─────────────────────────────────────────────────────────────

// Register handles POST /inscriptions
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.inscriptions.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// ListInscriptions handles GET /inscriptions
func (h *Handler) ListInscriptions(w http.ResponseWriter, r *http.Request) {
	list, err := h.inscriptions.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

// GetInscription handles GET /inscriptions/{id}
func (h *Handler) GetInscription(w http.ResponseWriter, r *http.Request) {
	ins, err := h.inscriptions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ins)
}

// DeleteInscription handles DELETE /inscriptions/{id}
func (h *Handler) DeleteInscription(w http.ResponseWriter, r *http.Request) {
	if err := h.inscriptions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// MarkWinner handles PATCH /inscriptions/{id}/winner
func (h *Handler) MarkWinner(w http.ResponseWriter, r *http.Request) {
	var req model.MarkWinnerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	won, err := h.inscriptions.MarkWinner(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"winner": won})
}

// GetWinner handles GET /inscriptions/{id}/winner
func (h *Handler) GetWinner(w http.ResponseWriter, r *http.Request) {
	win, err := h.inscriptions.Winner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, win)
}

// ListWinners handles GET /winners
// Winners are returned in the order they were promoted.
func (h *Handler) ListWinners(w http.ResponseWriter, r *http.Request) {
	list, err := h.inscriptions.ListWinners(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

// ─── Draws ────────────────────────────────────────────────────────────────────

// CreateDraw handles POST /draws
func (h *Handler) CreateDraw(w http.ResponseWriter, r *http.Request) {
	var req model.CreateDrawRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	d, err := h.draws.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// ListDraws handles GET /draws
func (h *Handler) ListDraws(w http.ResponseWriter, r *http.Request) {
	list, err := h.draws.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

// ListActiveDraws handles GET /draws/active
func (h *Handler) ListActiveDraws(w http.ResponseWriter, r *http.Request) {
	list, err := h.draws.ListActive(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

// GetDraw handles GET /draws/{id}
func (h *Handler) GetDraw(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "draw not found")
		return
	}
	d, err := h.draws.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ─── Reference data ───────────────────────────────────────────────────────────

// ListStates handles GET /states
func (h *Handler) ListStates(w http.ResponseWriter, r *http.Request) {
	list, err := h.geo.ListStates(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

// ListMunicipalities handles GET /states/{id}/municipalities
func (h *Handler) ListMunicipalities(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "state id must be a positive integer")
		return
	}
	list, err := h.geo.ListMunicipalities(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

// ResolveMunicipality handles GET /municipalities/resolve?state=&city=
// It answers with the codes a POST /people with the same city and state
// would store.
func (h *Handler) ResolveMunicipality(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stateID, err := h.geo.ResolveState(r.Context(), q.Get("state"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	code, err := h.geo.ResolveMunicipality(r.Context(), q.Get("city"), stateID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.MunicipalityMatch{StateID: stateID, Code: code})
}

// ListCourses handles GET /courses?institution=&modality=
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	institution, ok1 := int64Query(r, "institution")
	modality, ok2 := int64Query(r, "modality")
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "institution and modality must be positive integers")
		return
	}
	list, err := h.courses.ListCourses(r.Context(), institution, modality)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
