package core

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	Periodic SourceType = "PERIODIC"
	Capital  SourceType = "CAPITAL"
)

type (
	// SourceType tells which backend stream a contribution came from.
	SourceType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// ContributionRecord is the normalized form of a periodic due or a capital
	// subscription. Year and Month are only meaningful for Periodic records.
	ContributionRecord struct {
		ID              string
		MemberID        string
		MemberName      string
		Amount          Money
		Year            int
		Month           int // 1-12
		TransactionDate Date
		CreatedAt       Date
		ReferenceNumber string
		RecorderName    string // periodic only
		TransactionCode string // capital only
		SourceType      SourceType
	}

	// FilterParams are forwarded to both contribution streams.
	FilterParams struct {
		Year     int
		Month    int
		MemberID string
		Search   string
		Page     int
		PageSize int
	}

	// PeriodicDueInput is the payload for recording a single periodic due.
	PeriodicDueInput struct {
		MemberID        string `json:"member"`
		Amount          string `json:"amount"`
		Year            int    `json:"year"`
		Month           int    `json:"month"`
		TransactionDate string `json:"transaction_date"`
		ReferenceNumber string `json:"reference_number"`
	}

	// CapitalSubscriptionInput is the payload for recording a capital payment.
	CapitalSubscriptionInput struct {
		MemberID        string `json:"member"`
		Amount          string `json:"amount"`
		TransactionDate string `json:"transaction_date"`
		ReferenceNumber string `json:"reference_number"`
		TransactionCode string `json:"transaction_code,omitempty"`
	}

	// ReminderRequest asks the backend to notify members with outstanding dues.
	ReminderRequest struct {
		Year    int    `json:"year"`
		Month   int    `json:"month"`
		Message string `json:"message"`
	}

	ReminderResult struct {
		SuccessfulCount int `json:"successful_count"`
	}
)

var (
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidYear      = errors.New("invalid year")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyMember      = errors.New("empty member")
	ErrEmptyReference   = errors.New("empty reference number")
	ErrEmptyMessage     = errors.New("empty reminder message")
	ErrInvalidDate      = errors.New("invalid date")
	ErrUnknownSource    = errors.New("unknown source type")
	ErrInvalidPageParam = errors.New("invalid page parameter")
)

// Valid reports whether s is one of the known source types.
func (s SourceType) Valid() bool {
	return s == Periodic || s == Capital
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String renders the calendar day, or "" for an absent date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate accepts the calendar and timestamp layouts the backend emits.
// An empty string yields the zero Date and no error.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t.UTC()}, nil
		}
	}
	return Date{}, ErrInvalidDate
}

// EffectiveDate is the date used for feed ordering: the transaction date,
// falling back to the creation date.
func (r ContributionRecord) EffectiveDate() Date {
	if !r.TransactionDate.IsZero() {
		return r.TransactionDate
	}
	return r.CreatedAt
}

// InPeriod reports whether a periodic record belongs to year/month.
func (r ContributionRecord) InPeriod(year, month int) bool {
	return r.SourceType == Periodic && r.Year == year && r.Month == month
}

func (r ContributionRecord) Validate() error {
	if !r.SourceType.Valid() {
		return ErrUnknownSource
	}
	if r.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if r.SourceType == Periodic && (r.Month < 1 || r.Month > 12) {
		return ErrInvalidMonth
	}
	return nil
}

// Values encodes the non-zero params as query parameters.
func (p FilterParams) Values() url.Values {
	v := url.Values{}
	if p.Year > 0 {
		v.Set("year", strconv.Itoa(p.Year))
	}
	if p.Month > 0 {
		v.Set("month", strconv.Itoa(p.Month))
	}
	if s := strings.TrimSpace(p.MemberID); s != "" {
		v.Set("member", s)
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		v.Set("search", s)
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(p.PageSize))
	}
	return v
}

func (p FilterParams) Validate() error {
	if p.Month < 0 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 0 {
		return ErrInvalidYear
	}
	if p.Page < 0 || p.PageSize < 0 {
		return ErrInvalidPageParam
	}
	return nil
}

func (in PeriodicDueInput) Validate() error {
	if strings.TrimSpace(in.MemberID) == "" {
		return ErrEmptyMember
	}
	if _, err := ParseAmount(in.Amount); err != nil {
		return err
	}
	if in.Year < 1900 || in.Year > 3000 {
		return ErrInvalidYear
	}
	if in.Month < 1 || in.Month > 12 {
		return ErrInvalidMonth
	}
	if _, err := ParseDate(in.TransactionDate); err != nil {
		return err
	}
	if strings.TrimSpace(in.ReferenceNumber) == "" {
		return ErrEmptyReference
	}
	return nil
}

func (in CapitalSubscriptionInput) Validate() error {
	if strings.TrimSpace(in.MemberID) == "" {
		return ErrEmptyMember
	}
	if _, err := ParseAmount(in.Amount); err != nil {
		return err
	}
	if _, err := ParseDate(in.TransactionDate); err != nil {
		return err
	}
	if strings.TrimSpace(in.ReferenceNumber) == "" {
		return ErrEmptyReference
	}
	return nil
}

func (in ReminderRequest) Validate() error {
	if in.Year < 1900 || in.Year > 3000 {
		return ErrInvalidYear
	}
	if in.Month < 1 || in.Month > 12 {
		return ErrInvalidMonth
	}
	if strings.TrimSpace(in.Message) == "" {
		return ErrEmptyMessage
	}
	return nil
}
