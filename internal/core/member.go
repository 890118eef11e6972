package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Member is a directory entry as shown on the member management screen.
type Member struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Email            string   `json:"email" yaml:"email"`
	MembershipNumber string   `json:"membership_number" yaml:"membership_number"`
	Phone            string   `json:"phone" yaml:"phone"`
	IsActive         bool     `json:"is_active" yaml:"is_active"`
	IsOnHold         bool     `json:"is_on_hold" yaml:"is_on_hold"`
	IsVerified       bool     `json:"is_verified" yaml:"is_verified"`
	JoinDate         Date     `json:"date_joined" yaml:"date_joined"`
	CapitalProgress  *float64 `json:"capital_progress,omitempty" yaml:"capital_progress,omitempty"`
}

// CapitalPercentage returns the share capital completion percentage,
// treating an absent value as zero.
func (m Member) CapitalPercentage() float64 {
	if m.CapitalProgress == nil {
		return 0
	}
	return *m.CapitalProgress
}

type wireMember struct {
	ID               json.RawMessage `json:"id"`
	Name             string          `json:"name"`
	FullName         string          `json:"full_name"`
	FirstName        string          `json:"first_name"`
	LastName         string          `json:"last_name"`
	Email            string          `json:"email"`
	MembershipNumber string          `json:"membership_number"`
	Phone            string          `json:"phone"`
	PhoneNumber      string          `json:"phone_number"`
	IsActive         bool            `json:"is_active"`
	IsOnHold         bool            `json:"is_on_hold"`
	IsVerified       bool            `json:"is_verified"`
	DateJoined       string          `json:"date_joined"`
	CapitalProgress  *float64        `json:"capital_progress"`
	SharePercentage  *float64        `json:"share_capital_percentage"`
}

// UnmarshalJSON accepts the backend's member shape, which spells names and
// phones in several ways depending on the endpoint.
func (m *Member) UnmarshalJSON(b []byte) error {
	var w wireMember
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	joined, err := ParseDate(w.DateJoined)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(w.Name)
	if name == "" {
		name = strings.TrimSpace(w.FullName)
	}
	if name == "" {
		name = strings.TrimSpace(w.FirstName + " " + w.LastName)
	}
	phone := w.Phone
	if phone == "" {
		phone = w.PhoneNumber
	}
	progress := w.CapitalProgress
	if progress == nil {
		progress = w.SharePercentage
	}
	*m = Member{
		ID:               FlexString(w.ID),
		Name:             name,
		Email:            w.Email,
		MembershipNumber: w.MembershipNumber,
		Phone:            phone,
		IsActive:         w.IsActive,
		IsOnHold:         w.IsOnHold,
		IsVerified:       w.IsVerified,
		JoinDate:         joined,
		CapitalProgress:  progress,
	}
	return nil
}

// UnmarshalYAML reads dates written as plain YYYY-MM-DD scalars.
func (d *Date) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML mirrors MarshalJSON.
func (d Date) MarshalYAML() (any, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// MarshalJSON renders the calendar day, or null when absent.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// FlexString decodes a JSON string or number into its textual form.
// Null and malformed values yield "".
func FlexString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// FlexInt decodes a JSON number or numeric string. ok is false when the
// value is absent.
func FlexInt(raw json.RawMessage) (n int, ok bool, err error) {
	s := FlexString(raw)
	if s == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(s)
	if err != nil {
		return 0, true, err
	}
	return n, true, nil
}
