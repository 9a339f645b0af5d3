package domain

import (
	"fmt"
	"strings"
	"time"
)

// IncidentState is the station-level incident lifecycle state.
type IncidentState int

const (
	IncidentNone IncidentState = iota
	IncidentNew
	IncidentRecurring
	IncidentResolved
	IncidentDormant
)

var incidentNames = [...]string{
	IncidentNone:      "none",
	IncidentNew:       "new",
	IncidentRecurring: "recurring",
	IncidentResolved:  "resolved",
	IncidentDormant:   "dormant",
}

var incidentLabels = [...]string{
	IncidentNone:      "Sin incidencia",
	IncidentNew:       "Nueva",
	IncidentRecurring: "Recurrente",
	IncidentResolved:  "Solucionado",
	IncidentDormant:   "Paralizada",
}

// incidentAliases are matched as lowercase substrings, in order. "sin" must
// come before "nueva" so "sin incidencia nueva" is never read as new.
var incidentAliases = []struct {
	fragment string
	state    IncidentState
}{
	{"sin incidencia", IncidentNone},
	{"paralizad", IncidentDormant},
	{"recurrente", IncidentRecurring},
	{"solucionad", IncidentResolved},
	{"resuelt", IncidentResolved},
	{"nueva", IncidentNew},
	{"nuevo", IncidentNew},
}

func (s IncidentState) String() string {
	if s < 0 || int(s) >= len(incidentNames) {
		return fmt.Sprintf("incident(%d)", int(s))
	}
	return incidentNames[s]
}

// Label returns the sheet label.
func (s IncidentState) Label() string {
	if s < 0 || int(s) >= len(incidentLabels) {
		return s.String()
	}
	return incidentLabels[s]
}

// Active reports whether the state represents an open incident.
func (s IncidentState) Active() bool {
	return s == IncidentNew || s == IncidentRecurring || s == IncidentDormant
}

func (s IncidentState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *IncidentState) UnmarshalText(text []byte) error {
	*s = ParseIncidentState(string(text))
	return nil
}

// ParseIncidentState maps a free-text state (sheet label or machine name) to
// the enum. Matching is case-insensitive. Unknown or blank values yield
// IncidentNone.
func ParseIncidentState(s string) IncidentState {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return IncidentNone
	}
	for i, name := range incidentNames {
		if s == name {
			return IncidentState(i)
		}
	}
	for _, a := range incidentAliases {
		if strings.Contains(s, a.fragment) {
			return a.state
		}
	}
	return IncidentNone
}

// Incident is the station-level incident record carried across periods.
type Incident struct {
	State     IncidentState `json:"state"`
	StartDate time.Time     `json:"start_date,omitzero"`
	Comment   string        `json:"comment,omitempty"`

	// ClosureCandidate marks a dormant station silent long enough to be
	// considered for decommissioning. Informational only.
	ClosureCandidate bool `json:"closure_candidate,omitempty"`
	// PendingStartDate marks a station that entered the roster already
	// failing. Its start date awaits manual annotation.
	PendingStartDate bool `json:"pending_start_date,omitempty"`
}

// HasStartDate reports whether the incident carries a start date.
func (i Incident) HasStartDate() bool {
	return !i.StartDate.IsZero()
}
