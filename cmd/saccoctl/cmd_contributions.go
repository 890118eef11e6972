package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sacco/internal/core"
	"sacco/internal/report"
	"sacco/internal/services"
	gsheet "sacco/internal/sheets/google"
)

var (
	feedLimit   int
	filterYear  int
	filterMonth int
	filterMem   string
	exportCols  string
	exportFile  string
	exportSheet bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show contribution statistics for the current month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			stats, err := a.engine.Statistics(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), statsView(stats))
		})
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "List the most recent contributions across both streams",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			limit := feedLimit
			if limit == 0 {
				limit = a.cfg.RecentFeedLimit
			}
			feed, err := a.engine.RecentFeed(ctx, limit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), feedView(feed))
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export filtered contributions as CSV or to Google Sheets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		columns, err := report.ParseColumns(exportCols)
		if err != nil {
			return err
		}
		params := core.FilterParams{Year: filterYear, Month: filterMonth, MemberID: filterMem}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if exportSheet {
				return exportToSheet(ctx, cmd, a, params, columns)
			}
			text, err := services.NewExportService(a.engine, nil, a.logger).CSV(ctx, params, columns)
			if err != nil {
				return err
			}
			if exportFile == "" || exportFile == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			}
			if err := os.WriteFile(exportFile, []byte(text+"\n"), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", exportFile)
			return nil
		})
	},
}

func exportToSheet(ctx context.Context, cmd *cobra.Command, a *app, params core.FilterParams, columns []report.Column) error {
	if !a.cfg.SheetsEnabled() {
		return services.ErrExportDisabled
	}
	exporter, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   a.cfg.GoogleSpreadsheetID,
		SheetName:       a.cfg.GoogleSheetName,
		CredentialsJSON: a.cfg.GoogleServiceAccountJSON,
		CredentialsFile: a.cfg.GoogleServiceAccountFile,
	}, a.logger)
	if err != nil {
		return err
	}
	ref, err := services.NewExportService(a.engine, exporter, a.logger).ToSheet(ctx, params, columns, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", ref)
	return nil
}

func init() {
	feedCmd.Flags().IntVarP(&feedLimit, "limit", "n", 0, "number of records (default RECENT_FEED_LIMIT)")

	exportCmd.Flags().IntVar(&filterYear, "year", 0, "filter by year")
	exportCmd.Flags().IntVar(&filterMonth, "month", 0, "filter by month (1-12)")
	exportCmd.Flags().StringVar(&filterMem, "member", "", "filter by member id")
	exportCmd.Flags().StringVar(&exportCols, "columns", "", "comma-separated columns (default all)")
	exportCmd.Flags().StringVarP(&exportFile, "file", "f", "", "write CSV to this file instead of stdout")
	exportCmd.Flags().BoolVar(&exportSheet, "sheets", false, "write to the configured Google spreadsheet")
}

type recordView struct {
	ID              string `json:"id" yaml:"id"`
	Source          string `json:"source" yaml:"source"`
	MemberID        string `json:"member_id" yaml:"member_id"`
	MemberName      string `json:"member_name,omitempty" yaml:"member_name,omitempty"`
	Amount          string `json:"amount" yaml:"amount"`
	Period          string `json:"period,omitempty" yaml:"period,omitempty"`
	Date            string `json:"date,omitempty" yaml:"date,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty" yaml:"reference_number,omitempty"`
}

type feedOutput struct {
	Records  []recordView `json:"records" yaml:"records"`
	Warnings []string     `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func feedView(f core.Feed) feedOutput {
	out := feedOutput{Records: make([]recordView, 0, len(f.Records)), Warnings: f.Warnings}
	for _, r := range f.Records {
		v := recordView{
			ID:              r.ID,
			Source:          string(r.SourceType),
			MemberID:        r.MemberID,
			MemberName:      r.MemberName,
			Amount:          r.Amount.String(),
			Date:            r.EffectiveDate().String(),
			ReferenceNumber: r.ReferenceNumber,
		}
		if r.SourceType == core.Periodic && r.Year > 0 {
			v.Period = fmt.Sprintf("%04d-%02d", r.Year, r.Month)
		}
		out.Records = append(out.Records, v)
	}
	return out
}

type statsOutput struct {
	Period                 string   `json:"period" yaml:"period"`
	TotalAll               string   `json:"total_all" yaml:"total_all"`
	TotalPeriodic          string   `json:"total_periodic" yaml:"total_periodic"`
	TotalCapital           string   `json:"total_capital" yaml:"total_capital"`
	TotalThisPeriod        string   `json:"total_this_period" yaml:"total_this_period"`
	ContributingMembers    int      `json:"contributing_members" yaml:"contributing_members"`
	TotalMembers           int      `json:"total_members" yaml:"total_members"`
	ContributingPercentage int      `json:"contributing_percentage" yaml:"contributing_percentage"`
	Degraded               string   `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	Warnings               []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func statsView(s core.ContributionStatistics) statsOutput {
	return statsOutput{
		Period:                 fmt.Sprintf("%04d-%02d", s.Year, s.Month),
		TotalAll:               s.TotalAll.String(),
		TotalPeriodic:          s.TotalPeriodic.String(),
		TotalCapital:           s.TotalCapital.String(),
		TotalThisPeriod:        s.TotalThisPeriod.String(),
		ContributingMembers:    s.ContributingMemberCount,
		TotalMembers:           s.TotalMemberCount,
		ContributingPercentage: s.ContributingMemberPercentage,
		Degraded:               s.DegradedReason,
		Warnings:               s.Warnings,
	}
}
