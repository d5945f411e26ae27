// Package model defines the core domain types for the scholarship draw system.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultCreatedBy tags inscriptions submitted without an explicit creator.
const DefaultCreatedBy = "system"

// Person is a deduplicated individual, keyed by normalized CPF.
type Person struct {
	ID               string    `json:"id"`
	CPF              string    `json:"cpf"`
	FullName         string    `json:"fullName"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	MunicipalityCode int64     `json:"municipalityCode"`
	CreatedBy        string    `json:"createdBy"`
	CreatedAt        time.Time `json:"createdAt"`
}

// State is a federative unit.
type State struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	UF   string `json:"uf"`
}

// Municipality is a city-level division identified by its IBGE code.
type Municipality struct {
	Code    int64  `json:"code"`
	Name    string `json:"name"`
	StateID int64  `json:"stateId"`
}

// Course is a course offered by an institution under a modality.
type Course struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	InstitutionID int64  `json:"institutionId"`
	ModalityID    int64  `json:"modalityId"`
	Active        bool   `json:"active"`
}

// Draw is a scholarship raffle that accepts inscriptions.
type Draw struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	AllowMultiple bool      `json:"allowMultiple"`
	Active        bool      `json:"active"`
	TotalSlots    int       `json:"totalSlots"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	URL           string    `json:"url"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Inscription is a person's registration for a course under a draw.
type Inscription struct {
	ID           string    `json:"id"`
	DrawID       int64     `json:"drawId"`
	PersonID     string    `json:"personId"`
	CourseID     int64     `json:"courseId"`
	RegisteredAt time.Time `json:"registeredAt"`
	CreatedBy    string    `json:"createdBy"`
}

// InscriptionDetail is an Inscription joined with display names and its
// winner status.
type InscriptionDetail struct {
	Inscription
	PersonName      string `json:"personName"`
	CourseName      string `json:"courseName"`
	DrawDescription string `json:"drawDescription"`
	Winner          bool   `json:"winner"`
}

// Winner marks an inscription's terminal won state.
type Winner struct {
	ID            string    `json:"id"`
	InscriptionID string    `json:"inscriptionId"`
	Modality      string    `json:"modality"`
	Institution   string    `json:"institution"`
	CreatedAt     time.Time `json:"createdAt"`
}

// WinnerDetail is a Winner joined with the winning person.
type WinnerDetail struct {
	Winner
	DrawID      int64  `json:"drawId"`
	PersonID    string `json:"personId"`
	PersonName  string `json:"personName"`
	PersonCPF   string `json:"personCpf"`
	PersonEmail string `json:"personEmail"`
}

// ─── Requests & responses ─────────────────────────────────────────────────────

// CreatePersonRequest is the payload for POST /people. State accepts either
// the numeric state id or its two-letter UF.
type CreatePersonRequest struct {
	FullName string `json:"fullName"`
	CPF      string `json:"cpf"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	City     string `json:"city"`
	State    string `json:"state"`
	DrawID   int64  `json:"drawId"`
}

// PersonResult is the outcome of a find-or-create.
type PersonResult struct {
	PersonID string `json:"personId"`
	Created  bool   `json:"created"`
}

// RegisterRequest is the payload for POST /inscriptions.
type RegisterRequest struct {
	DrawID    int64  `json:"drawId"`
	PersonID  string `json:"personId"`
	CourseID  int64  `json:"courseId"`
	CreatedBy string `json:"createdBy,omitempty"`
}

// RegisterResponse carries the new inscription id.
type RegisterResponse struct {
	InscriptionID string `json:"inscriptionId"`
}

// MarkWinnerRequest is the payload for PATCH /inscriptions/{id}/winner.
type MarkWinnerRequest struct {
	Modality    string `json:"modality"`
	Institution string `json:"institution"`
}

// CreateDrawRequest is the payload for POST /draws.
type CreateDrawRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	AllowMultiple bool   `json:"allowMultiple"`
	Active        bool   `json:"active"`
	TotalSlots    int    `json:"totalSlots"`
	StartDate     Date   `json:"startDate"`
	EndDate       Date   `json:"endDate"`
	URL           string `json:"url"`
}

// Date is a request timestamp that also accepts a bare YYYY-MM-DD, read as
// midnight UTC.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", raw)
}

// MunicipalityMatch is the result of GET /municipalities/resolve.
type MunicipalityMatch struct {
	StateID int64 `json:"stateId"`
	Code    int64 `json:"code"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
