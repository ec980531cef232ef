package model

// Contact is a single input row: a named person at a named company.
// RowIndex is the contact's identity within a run; duplicate rows are
// processed independently.
type Contact struct {
	RowIndex  int               `json:"row_index"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Company   string            `json:"company"`
	RawRow    map[string]string `json:"raw_row,omitempty"`
}

// HasNames reports whether the contact carries enough data to generate
// candidate addresses.
func (c Contact) HasNames() bool {
	return c.FirstName != "" || c.LastName != ""
}

// Candidate is one guessed address for a contact, ordered by PatternRank
// (lower ranks are tried first).
type Candidate struct {
	LocalPart   string `json:"local_part"`
	Domain      string `json:"domain"`
	PatternRank int    `json:"pattern_rank"`
}

// Address returns the full email address for the candidate.
func (c Candidate) Address() string {
	return c.LocalPart + "@" + c.Domain
}
