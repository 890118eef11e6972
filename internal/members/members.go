// Package members filters, sorts and pages the member directory in memory.
package members

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"sacco/internal/core"
)

type Status string

const (
	StatusAll                 Status = "all"
	StatusActive              Status = "active"
	StatusInactive            Status = "inactive"
	StatusOnHold              Status = "on-hold"
	StatusPendingVerification Status = "pending-verification"
)

type CapitalProgress string

const (
	CapitalAll        CapitalProgress = "all"
	CapitalCompleted  CapitalProgress = "completed"
	CapitalInProgress CapitalProgress = "in-progress"
	CapitalNotStarted CapitalProgress = "not-started"
)

type SortKey string

const (
	SortName             SortKey = "name"
	SortMembershipNumber SortKey = "membership_number"
	SortJoinDate         SortKey = "join_date"
	SortCapitalProgress  SortKey = "capital_progress"
)

var (
	ErrInvalidPageSize = errors.New("page size must be at least 1")
	ErrUnknownStatus   = errors.New("unknown status filter")
	ErrUnknownCapital  = errors.New("unknown capital progress filter")
	ErrUnknownSortKey  = errors.New("unknown sort key")
)

// FilterState is the directory screen's search, filter and sort selection.
// Zero values mean "no filter" and sort by name.
type FilterState struct {
	Search  string
	Status  Status
	Capital CapitalProgress
	Sort    SortKey
}

// Page is one slice of the filtered, sorted directory.
type Page struct {
	Items      []core.Member `json:"items"`
	TotalItems int           `json:"total_items"`
	TotalPages int           `json:"total_pages"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
}

// Apply filters, sorts and slices members. page is 1-indexed and is not
// clamped: a page past the end yields no items. Callers that want clamping
// use ClampPage first. The input slice is not modified.
func Apply(members []core.Member, state FilterState, page, pageSize int) (Page, error) {
	if pageSize < 1 {
		return Page{}, ErrInvalidPageSize
	}
	pred, err := predicate(state)
	if err != nil {
		return Page{}, err
	}
	less, err := comparator(state.Sort)
	if err != nil {
		return Page{}, err
	}

	matched := make([]core.Member, 0, len(members))
	for _, m := range members {
		if pred(m) {
			matched = append(matched, m)
		}
	}
	slices.SortStableFunc(matched, less)

	total := len(matched)
	items := []core.Member{}
	if page >= 1 {
		start := (page - 1) * pageSize
		if start < total {
			end := min(start+pageSize, total)
			items = matched[start:end]
		}
	}
	return Page{
		Items:      items,
		TotalItems: total,
		TotalPages: TotalPages(total, pageSize),
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// TotalPages is ceil(total/pageSize), reported as 1 for an empty result.
func TotalPages(total, pageSize int) int {
	if pageSize < 1 {
		return 1
	}
	pages := (total + pageSize - 1) / pageSize
	return max(pages, 1)
}

// ClampPage brings page into [1, TotalPages(total, pageSize)].
func ClampPage(page, total, pageSize int) int {
	return min(max(page, 1), TotalPages(total, pageSize))
}

func predicate(state FilterState) (func(core.Member) bool, error) {
	status, err := statusPredicate(state.Status)
	if err != nil {
		return nil, err
	}
	capital, err := capitalPredicate(state.Capital)
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(state.Search))
	return func(m core.Member) bool {
		return matchesSearch(m, search) && status(m) && capital(m)
	}, nil
}

func matchesSearch(m core.Member, needle string) bool {
	if needle == "" {
		return true
	}
	for _, field := range []string{m.Name, m.Email, m.MembershipNumber, m.Phone} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func statusPredicate(s Status) (func(core.Member) bool, error) {
	switch s {
	case "", StatusAll:
		return func(core.Member) bool { return true }, nil
	case StatusActive:
		return func(m core.Member) bool { return m.IsActive && !m.IsOnHold }, nil
	case StatusInactive:
		return func(m core.Member) bool { return !m.IsActive }, nil
	case StatusOnHold:
		return func(m core.Member) bool { return m.IsOnHold }, nil
	case StatusPendingVerification:
		return func(m core.Member) bool { return !m.IsVerified }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func capitalPredicate(c CapitalProgress) (func(core.Member) bool, error) {
	switch c {
	case "", CapitalAll:
		return func(core.Member) bool { return true }, nil
	case CapitalCompleted:
		return func(m core.Member) bool { return m.CapitalPercentage() == 100 }, nil
	case CapitalInProgress:
		return func(m core.Member) bool {
			p := m.CapitalPercentage()
			return p > 0 && p < 100
		}, nil
	case CapitalNotStarted:
		return func(m core.Member) bool { return m.CapitalPercentage() == 0 }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCapital, c)
}

func comparator(k SortKey) (func(a, b core.Member) int, error) {
	switch k {
	case "", SortName:
		return func(a, b core.Member) int { return strings.Compare(a.Name, b.Name) }, nil
	case SortMembershipNumber:
		return func(a, b core.Member) int { return strings.Compare(a.MembershipNumber, b.MembershipNumber) }, nil
	case SortJoinDate:
		return func(a, b core.Member) int { return b.JoinDate.Compare(a.JoinDate.Time) }, nil
	case SortCapitalProgress:
		return func(a, b core.Member) int { return cmp.Compare(b.CapitalPercentage(), a.CapitalPercentage()) }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSortKey, k)
}

// ParseStatus validates a status filter string. Empty means all.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st == "" {
		return StatusAll, nil
	}
	if _, err := statusPredicate(st); err != nil {
		return "", err
	}
	return st, nil
}

// ParseCapitalProgress validates a capital progress filter string.
func ParseCapitalProgress(s string) (CapitalProgress, error) {
	c := CapitalProgress(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return CapitalAll, nil
	}
	if _, err := capitalPredicate(c); err != nil {
		return "", err
	}
	return c, nil
}

// ParseSortKey validates a sort key. Empty sorts by name.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return SortName, nil
	}
	if _, err := comparator(k); err != nil {
		return "", err
	}
	return k, nil
}
