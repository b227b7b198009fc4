package model

import (
	"fmt"
	"strings"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/evalerr"
)

// ScopeKind tags a Scope.
type ScopeKind string

const (
	ScopeSection   ScopeKind = "section"
	ScopeSpecialty ScopeKind = "specialty"
)

// Scope is the group inside which projects compete for placement.
// Section scopes only use SectionID; specialty scopes use LevelID and
// SpecialtyID, the latter being the specialty letter encoded in project codes.
type Scope struct {
	Kind        ScopeKind `json:"kind"`
	SectionID   string    `json:"section_id,omitempty"`
	LevelID     string    `json:"level_id,omitempty"`
	SpecialtyID string    `json:"specialty_id,omitempty"`
}

// SectionScope builds a section-scoped descriptor.
func SectionScope(sectionID string) Scope {
	return Scope{Kind: ScopeSection, SectionID: sectionID}
}

// SpecialtyScope builds a level+specialty descriptor. An ASCII specialty
// letter is normalized to upper case; anything else is kept for Validate to
// reject.
func SpecialtyScope(levelID, specialtyID string) Scope {
	id := strings.TrimSpace(specialtyID)
	if len(id) == 1 && id[0] >= 'a' && id[0] <= 'z' {
		id = strings.ToUpper(id)
	}
	return Scope{Kind: ScopeSpecialty, LevelID: levelID, SpecialtyID: id}
}

// Validate checks that the fields required by the scope kind are present.
func (s Scope) Validate() error {
	const op = "model.scope_validate"
	switch s.Kind {
	case ScopeSection:
		if strings.TrimSpace(s.SectionID) == "" {
			return evalerr.Validation(op, fmt.Errorf("%w: missing section id", evalerr.ErrInvalidScope))
		}
	case ScopeSpecialty:
		if strings.TrimSpace(s.LevelID) == "" {
			return evalerr.Validation(op, fmt.Errorf("%w: missing level id", evalerr.ErrInvalidScope))
		}
		if len(s.SpecialtyID) != 1 || s.SpecialtyID[0] < 'A' || s.SpecialtyID[0] > 'Z' {
			return evalerr.Validation(op, fmt.Errorf("%w: specialty must be a single letter, got %q", evalerr.ErrInvalidScope, s.SpecialtyID))
		}
	default:
		return evalerr.Validation(op, fmt.Errorf("%w: unknown kind %q", evalerr.ErrInvalidScope, s.Kind))
	}
	return nil
}

// Label is the human-readable scope name handed to the certificate renderer.
func (s Scope) Label() string {
	switch s.Kind {
	case ScopeSection:
		return "section " + s.SectionID
	case ScopeSpecialty:
		return fmt.Sprintf("level %s, specialty %s", s.LevelID, s.SpecialtyID)
	default:
		return string(s.Kind)
	}
}

// String satisfies fmt.Stringer for logging.
func (s Scope) String() string {
	return s.Label()
}
