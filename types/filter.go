package types

import "time"

// Filter describes one logs query. All predicates combine with AND; zero
// values mean "no constraint". Filters are transient, never persisted.
type Filter struct {
	Campaign     string
	StartTime    *time.Time // inclusive
	EndTime      *time.Time // exclusive
	IPFilter     string     // substring, matches ip or x_forwarded_for
	UAFilter     string     // substring
	MethodFilter string     // exact, case-insensitive
	PathFilter   string     // substring
	SortAsc      bool // oldest-first; default is newest-first
	Page         int
	PerPage      int
}

// Normalize clamps pagination: pages below 1 become 1, a missing per_page
// takes the default and anything above max is capped rather than rejected.
func (f *Filter) Normalize(defaultPerPage, maxPerPage int) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = defaultPerPage
	}
	if f.PerPage > maxPerPage {
		f.PerPage = maxPerPage
	}
}
