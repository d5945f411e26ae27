package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sorteio-bolsas/inscription-service/internal/model"
)

// Memory is an in-process store with the same uniqueness and reference
// rules as the PostgreSQL schema. It backs STORE_DRIVER=memory and tests.
type Memory struct {
	// txMu serialises InTx callers; mu guards the maps.
	txMu sync.Mutex
	mu   sync.RWMutex

	states         map[int64]model.State
	municipalities map[int64]model.Municipality
	courses        map[int64]model.Course
	draws          map[int64]model.Draw
	people         map[string]model.Person
	peopleByCPF    map[string]string
	inscriptions   map[string]model.Inscription
	winners        map[string]model.Winner // keyed by inscription id
	winnerOrder    []string                // inscription ids in promotion order

	nextDrawID int64
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		states:         map[int64]model.State{},
		municipalities: map[int64]model.Municipality{},
		courses:        map[int64]model.Course{},
		draws:          map[int64]model.Draw{},
		people:         map[string]model.Person{},
		peopleByCPF:    map[string]string{},
		inscriptions:   map[string]model.Inscription{},
		winners:        map[string]model.Winner{},
	}
}

// InTx runs fn while holding the store-wide transaction lock. Writes made by
// fn are not rolled back if it fails.
func (m *Memory) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx)
}

func (m *Memory) Ping(context.Context) error { return nil }

// ─── Reference data ───────────────────────────────────────────────────────────

func (m *Memory) AddState(s model.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s.ID] = s
}

func (m *Memory) AddMunicipality(mu model.Municipality) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.municipalities[mu.Code] = mu
}

func (m *Memory) AddCourse(c model.Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
}

// SeedReference loads a small reference data set for local runs.
func (m *Memory) SeedReference() {
	for _, s := range []model.State{
		{ID: 26, Name: "Pernambuco", UF: "PE"},
		{ID: 35, Name: "São Paulo", UF: "SP"},
		{ID: 33, Name: "Rio de Janeiro", UF: "RJ"},
	} {
		m.AddState(s)
	}
	for _, mu := range []model.Municipality{
		{Code: 2611606, Name: "Recife", StateID: 26},
		{Code: 2607901, Name: "Jaboatão dos Guararapes", StateID: 26},
		{Code: 2609600, Name: "Olinda", StateID: 26},
		{Code: 3550308, Name: "São Paulo", StateID: 35},
		{Code: 3304557, Name: "Rio de Janeiro", StateID: 33},
	} {
		m.AddMunicipality(mu)
	}
	for _, c := range []model.Course{
		{ID: 1, Name: "Administração", InstitutionID: 1, ModalityID: 1, Active: true},
		{ID: 2, Name: "Ciência da Computação", InstitutionID: 1, ModalityID: 1, Active: true},
		{ID: 3, Name: "Pedagogia", InstitutionID: 1, ModalityID: 2, Active: true},
	} {
		m.AddCourse(c)
	}
}

func (m *Memory) FindStateByID(_ context.Context, id int64) (*model.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) FindStateByUF(_ context.Context, uf string) (*model.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.states {
		if strings.EqualFold(s.UF, uf) {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindMunicipality(_ context.Context, name string, stateID int64) (*model.Municipality, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *model.Municipality
	for _, mu := range m.municipalities {
		if mu.StateID != stateID || mu.Name != name {
			continue
		}
		if best == nil || mu.Code < best.Code {
			found := mu
			best = &found
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (m *Memory) ListStates(context.Context) ([]model.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.State, 0, len(m.states))
	for _, s := range m.states {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) ListMunicipalities(_ context.Context, stateID int64) ([]model.Municipality, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Municipality
	for _, mu := range m.municipalities {
		if mu.StateID == stateID {
			out = append(out, mu)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) ListCourses(_ context.Context, institutionID, modalityID int64) ([]model.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Course
	for _, c := range m.courses {
		if !c.Active {
			continue
		}
		if institutionID != 0 && c.InstitutionID != institutionID {
			continue
		}
		if modalityID != 0 && c.ModalityID != modalityID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ─── Draws ────────────────────────────────────────────────────────────────────

func (m *Memory) CreateDraw(_ context.Context, d *model.Draw) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextDrawID++
	d.ID = m.nextDrawID
	d.CreatedAt = time.Now().UTC()
	m.draws[d.ID] = *d
	return nil
}

func (m *Memory) GetDraw(_ context.Context, id int64) (*model.Draw, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.draws[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *Memory) ListDraws(_ context.Context, activeOnly bool) ([]model.Draw, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Draw
	for _, d := range m.draws {
		if activeOnly && !d.Active {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ─── People ───────────────────────────────────────────────────────────────────

func (m *Memory) InscriptionExistsForCPF(_ context.Context, cpf string, drawID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	personID, ok := m.peopleByCPF[cpf]
	if !ok {
		return false, nil
	}
	return m.inscribedLocked(personID, drawID), nil
}

func (m *Memory) FindPersonByCPF(_ context.Context, cpf string) (*model.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.peopleByCPF[cpf]
	if !ok {
		return nil, ErrNotFound
	}
	p := m.people[id]
	return &p, nil
}

func (m *Memory) CreatePerson(_ context.Context, p *model.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.peopleByCPF[p.CPF]; dup {
		return ErrConflict
	}
	if _, ok := m.municipalities[p.MunicipalityCode]; !ok {
		return ErrReference
	}
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now().UTC()
	m.people[p.ID] = *p
	m.peopleByCPF[p.CPF] = p.ID
	return nil
}

// ─── Inscriptions & winners ───────────────────────────────────────────────────

func (m *Memory) inscribedLocked(personID string, drawID int64) bool {
	for _, ins := range m.inscriptions {
		if ins.PersonID == personID && ins.DrawID == drawID {
			return true
		}
	}
	return false
}

func (m *Memory) InscriptionExists(_ context.Context, personID string, drawID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inscribedLocked(personID, drawID), nil
}

func (m *Memory) CreateInscription(_ context.Context, ins *model.Inscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[ins.PersonID]; !ok {
		return ErrReference
	}
	if _, ok := m.draws[ins.DrawID]; !ok {
		return ErrReference
	}
	if _, ok := m.courses[ins.CourseID]; !ok {
		return ErrReference
	}
	if m.inscribedLocked(ins.PersonID, ins.DrawID) {
		return ErrConflict
	}
	ins.ID = uuid.New().String()
	ins.RegisteredAt = time.Now().UTC()
	m.inscriptions[ins.ID] = *ins
	return nil
}

func (m *Memory) detailLocked(ins model.Inscription) model.InscriptionDetail {
	_, won := m.winners[ins.ID]
	return model.InscriptionDetail{
		Inscription:     ins,
		PersonName:      m.people[ins.PersonID].FullName,
		CourseName:      m.courses[ins.CourseID].Name,
		DrawDescription: m.draws[ins.DrawID].Description,
		Winner:          won,
	}
}

func (m *Memory) GetInscription(_ context.Context, id string) (*model.InscriptionDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ins, ok := m.inscriptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	d := m.detailLocked(ins)
	return &d, nil
}

func (m *Memory) ListInscriptions(context.Context) ([]model.InscriptionDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.InscriptionDetail, 0, len(m.inscriptions))
	for _, ins := range m.inscriptions {
		out = append(out, m.detailLocked(ins))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.After(out[j].RegisteredAt) })
	return out, nil
}

func (m *Memory) DeleteInscription(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inscriptions[id]; !ok {
		return ErrNotFound
	}
	delete(m.inscriptions, id)
	if _, won := m.winners[id]; won {
		delete(m.winners, id)
		for i, insID := range m.winnerOrder {
			if insID == id {
				m.winnerOrder = append(m.winnerOrder[:i], m.winnerOrder[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (m *Memory) CreateWinner(_ context.Context, w *model.Winner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inscriptions[w.InscriptionID]; !ok {
		return ErrReference
	}
	if _, won := m.winners[w.InscriptionID]; won {
		return ErrConflict
	}
	w.ID = uuid.New().String()
	w.CreatedAt = time.Now().UTC()
	m.winners[w.InscriptionID] = *w
	m.winnerOrder = append(m.winnerOrder, w.InscriptionID)
	return nil
}

func (m *Memory) GetWinnerByInscription(_ context.Context, inscriptionID string) (*model.Winner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.winners[inscriptionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}

func (m *Memory) ListWinners(context.Context) ([]model.WinnerDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.WinnerDetail, 0, len(m.winnerOrder))
	for _, insID := range m.winnerOrder {
		w := m.winners[insID]
		ins := m.inscriptions[insID]
		p := m.people[ins.PersonID]
		out = append(out, model.WinnerDetail{
			Winner:      w,
			DrawID:      ins.DrawID,
			PersonID:    p.ID,
			PersonName:  p.FullName,
			PersonCPF:   p.CPF,
			PersonEmail: p.Email,
		})
	}
	return out, nil
}
