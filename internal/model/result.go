package model

import "time"

// DomainSource identifies where a resolved domain came from.
type DomainSource string

const (
	DomainSourceKnown  DomainSource = "known_db"
	DomainSourceSearch DomainSource = "search_fallback"
)

// DomainResult is the outcome of resolving a company name to a mail domain.
// It is produced once per unique normalized company name and shared read-only
// across contacts at the same company.
type DomainResult struct {
	Domain      string       `json:"domain"`
	Source      DomainSource `json:"source"`
	MXConfirmed bool         `json:"mx_confirmed"`
}

// VerdictStatus classifies the outcome of one verification attempt.
type VerdictStatus string

const (
	StatusValid    VerdictStatus = "valid"
	StatusCatchAll VerdictStatus = "catch_all"
	StatusInvalid  VerdictStatus = "invalid"
	// StatusUnknown means the check could not determine existence either way.
	// It is an honest epistemic state, not an error.
	StatusUnknown VerdictStatus = "unknown"
)

// Accepted reports whether a verdict is good enough to choose the candidate.
func (s VerdictStatus) Accepted() bool {
	return s == StatusValid || s == StatusCatchAll
}

// Verdict is the confidence-scored result of verifying one candidate.
type Verdict struct {
	Status     VerdictStatus `json:"status"`
	Confidence float64       `json:"confidence"`
	Message    string        `json:"message,omitempty"`
	CheckedAt  time.Time     `json:"checked_at"`
}

// Attempt pairs a candidate with the verdict it received.
type Attempt struct {
	Candidate Candidate `json:"candidate"`
	Verdict   Verdict   `json:"verdict"`
}

// ContactResult is the terminal record for one contact. It is created once
// per contact and never mutated after the pipeline completes.
type ContactResult struct {
	Contact     Contact   `json:"contact"`
	Domain      string    `json:"domain,omitempty"`
	ChosenEmail string    `json:"chosen_email,omitempty"`
	Verdict     Verdict   `json:"verdict"`
	Attempts    []Attempt `json:"attempts,omitempty"`
}

// RunStatus represents the current state of a finder run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents a single batch execution tracked in the store.
type Run struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	Status    RunStatus  `json:"status"`
	Stats     *RunStats  `json:"stats,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunStats aggregates outcomes across a run.
type RunStats struct {
	Total    int `json:"total"`
	Found    int `json:"found"`
	Verified int `json:"verified"`
	CatchAll int `json:"catch_all"`
	NoDomain int `json:"no_domain"`
	NoMatch  int `json:"no_match"`
}

// Add folds one contact result into the stats.
func (s *RunStats) Add(r ContactResult) {
	s.Total++
	switch {
	case r.ChosenEmail == "" && r.Domain == "":
		s.NoDomain++
	case r.ChosenEmail == "":
		s.NoMatch++
	case r.Verdict.Status == StatusCatchAll:
		s.Found++
		s.CatchAll++
	case r.Verdict.Status == StatusValid:
		s.Found++
		s.Verified++
	default:
		s.Found++
	}
}
