package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Scope identifies a waitlist cohort: a daycare, optionally narrowed to one program.
// A nil ProgramID is the daycare-level cohort, not a wildcard over programs.
type Scope struct {
	DaycareID uuid.UUID  `json:"daycare_id"`
	ProgramID *uuid.UUID `json:"program_id,omitempty"`
}

func NewScope(daycareID uuid.UUID, programID *uuid.UUID) Scope {
	return Scope{DaycareID: daycareID, ProgramID: programID}
}

// Key is a stable string form, used for cache and lock keys.
func (s Scope) Key() string {
	if s.ProgramID == nil {
		return s.DaycareID.String()
	}
	return s.DaycareID.String() + ":" + s.ProgramID.String()
}

// Equal compares two scopes by value.
func (s Scope) Equal(o Scope) bool {
	if s.DaycareID != o.DaycareID {
		return false
	}
	if s.ProgramID == nil || o.ProgramID == nil {
		return s.ProgramID == nil && o.ProgramID == nil
	}
	return *s.ProgramID == *o.ProgramID
}

// Covers reports whether a record scoped to (daycareID, programID) belongs to s exactly.
func (s Scope) Covers(daycareID uuid.UUID, programID *uuid.UUID) bool {
	return s.Equal(Scope{DaycareID: daycareID, ProgramID: programID})
}

func (s Scope) String() string {
	return fmt.Sprintf("daycare=%s program=%s", s.DaycareID, programString(s.ProgramID))
}

func programString(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}
