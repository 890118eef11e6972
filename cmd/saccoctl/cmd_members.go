package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sacco/internal/core"
	"sacco/internal/members"
)

var (
	membersFile     string
	membersSearch   string
	membersStatus   string
	membersCapital  string
	membersSort     string
	membersPage     int
	membersPageSize int
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Filter, sort and page the member directory",
	Long: `Lists members from the backend, or from a YAML fixture with --file, after
applying the same search, status, capital and sort filters as the portal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := memberFilter()
		if err != nil {
			return err
		}
		if membersFile != "" {
			list, err := loadMembersFile(membersFile)
			if err != nil {
				return err
			}
			return renderMembers(cmd, list, nil, state)
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			list, warnings, err := a.backend.ListMembers(ctx)
			if err != nil {
				return err
			}
			return renderMembers(cmd, list, warnings, state)
		})
	},
}

func init() {
	f := membersCmd.Flags()
	f.StringVar(&membersFile, "file", "", "read members from a YAML fixture instead of the backend")
	f.StringVar(&membersSearch, "search", "", "match name, email, membership number or phone")
	f.StringVar(&membersStatus, "status", "all", "all, active, inactive, on-hold or pending-verification")
	f.StringVar(&membersCapital, "capital", "all", "all, completed, in-progress or not-started")
	f.StringVar(&membersSort, "sort", "name", "name, membership_number, join_date or capital_progress")
	f.IntVar(&membersPage, "page", 1, "page number")
	f.IntVar(&membersPageSize, "page-size", 20, "members per page")
}

func memberFilter() (members.FilterState, error) {
	status, err := members.ParseStatus(membersStatus)
	if err != nil {
		return members.FilterState{}, err
	}
	capital, err := members.ParseCapitalProgress(membersCapital)
	if err != nil {
		return members.FilterState{}, err
	}
	sortKey, err := members.ParseSortKey(membersSort)
	if err != nil {
		return members.FilterState{}, err
	}
	return members.FilterState{Search: membersSearch, Status: status, Capital: capital, Sort: sortKey}, nil
}

type membersFixture struct {
	Members []core.Member `yaml:"members"`
}

// loadMembersFile reads a fixture of the form
//
//	members:
//	  - id: "1"
//	    name: Alice
//	    date_joined: 2023-01-15
func loadMembersFile(path string) ([]core.Member, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read members file: %w", err)
	}
	var fx membersFixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse members file %s: %w", path, err)
	}
	return fx.Members, nil
}

type membersOutput struct {
	Items      []core.Member `json:"items" yaml:"items"`
	TotalItems int           `json:"total_items" yaml:"total_items"`
	TotalPages int           `json:"total_pages" yaml:"total_pages"`
	Page       int           `json:"page" yaml:"page"`
	PageSize   int           `json:"page_size" yaml:"page_size"`
	Warnings   []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func pageMembers(list []core.Member, state members.FilterState, page, pageSize int) (members.Page, error) {
	result, err := members.Apply(list, state, page, pageSize)
	if err != nil {
		return members.Page{}, err
	}
	if clamped := members.ClampPage(page, result.TotalItems, pageSize); clamped != page {
		return members.Apply(list, state, clamped, pageSize)
	}
	return result, nil
}

func renderMembers(cmd *cobra.Command, list []core.Member, warnings []string, state members.FilterState) error {
	p, err := pageMembers(list, state, membersPage, membersPageSize)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), membersOutput{
		Items:      p.Items,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Warnings:   warnings,
	})
}
