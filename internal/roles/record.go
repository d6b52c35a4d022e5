// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package roles

// Record is one user's entry in the record store.
//
// An inactive record grants nothing; it is kept only so a denial can tell a
// revoked user apart from one who never had access. Absence is modelled by a
// nil *Record, never by a zero Record.
type Record struct {
	UserID        string `json:"user_id"`
	Role          Role   `json:"role"`
	Active        bool   `json:"active"`
	SourceVersion string `json:"source_version,omitempty"`
}

// Grants reports whether the record satisfies required.
func (r *Record) Grants(required Role) bool {
	return r != nil && r.Active && r.Role.AtLeast(required)
}

// Supersedes reports whether r should replace prev when the store returns
// more than one row for the same user. An active row beats an inactive one;
// otherwise the later row wins.
func (r Record) Supersedes(prev Record) bool {
	return r.Active || !prev.Active
}

// Dedupe collapses rows that share a UserID using Supersedes. The first
// appearance of each user fixes its position in the result.
func Dedupe(records []Record) []Record {
	index := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		i, ok := index[r.UserID]
		if !ok {
			index[r.UserID] = len(out)
			out = append(out, r)
			continue
		}
		if r.Supersedes(out[i]) {
			out[i] = r
		}
	}
	return out
}
