package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sacco/internal/core"
	"sacco/internal/members"
)

const fixture = `members:
  - id: "1"
    name: Charlie
    membership_number: M-003
    is_active: true
    date_joined: 2023-03-01
    capital_progress: 100
  - id: "2"
    name: alice
    membership_number: M-001
    is_active: true
    date_joined: 2022-01-15
    capital_progress: 40
  - id: "3"
    name: Bob
    membership_number: M-002
    is_active: false
    date_joined: 2024-06-30
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "members.yaml")
	if err := os.WriteFile(path, []byte(fixture), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMembersFile(t *testing.T) {
	list, err := loadMembersFile(writeFixture(t))
	if err != nil {
		t.Fatalf("loadMembersFile: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d members, want 3", len(list))
	}
	if list[1].JoinDate != core.NewDate(2022, 1, 15) {
		t.Errorf("JoinDate = %v", list[1].JoinDate)
	}
	if list[2].CapitalProgress != nil {
		t.Errorf("absent capital progress must stay nil")
	}

	if _, err := loadMembersFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPageMembersFromFixture(t *testing.T) {
	list, err := loadMembersFile(writeFixture(t))
	if err != nil {
		t.Fatal(err)
	}
	state := members.FilterState{Status: members.StatusActive, Sort: members.SortName}
	p, err := pageMembers(list, state, 5, 1)
	if err != nil {
		t.Fatalf("pageMembers: %v", err)
	}
	if p.Page != 2 || p.TotalItems != 2 || len(p.Items) != 1 || p.Items[0].Name != "Charlie" {
		t.Errorf("unexpected page %+v", p)
	}
}

func TestRenderFormats(t *testing.T) {
	v := feedView(core.Feed{Records: []core.ContributionRecord{{
		ID: "p1", MemberID: "m1", Amount: core.Money{Cents: 50000}, Year: 2024, Month: 3,
		TransactionDate: core.NewDate(2024, 3, 5), SourceType: core.Periodic,
	}}})

	t.Cleanup(func() { outputFormat = "json" })
	for _, format := range []string{"json", "yaml"} {
		outputFormat = format
		var buf bytes.Buffer
		if err := render(&buf, v); err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		out := buf.String()
		if !strings.Contains(out, "500.00") || !strings.Contains(out, "2024-03") {
			t.Errorf("%s output missing fields:\n%s", format, out)
		}
	}
}

func TestMask(t *testing.T) {
	tests := map[string]string{
		"":              "(none)",
		"abc":           "****",
		"eyJhbGciOi123": "****i123",
	}
	for in, want := range tests {
		if got := mask(in); got != want {
			t.Errorf("mask(%q) = %q, want %q", in, got, want)
		}
	}
}
