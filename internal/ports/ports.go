// Package ports declares the remote collaborators the portal consumes.
package ports

import (
	"context"

	"sacco/internal/core"
)

// Ports for outbound adapters.
type (
	// ContributionSource fetches the two contribution streams. Page bodies
	// are returned raw; shape handling belongs to the envelope package.
	ContributionSource interface {
		FetchPeriodicDues(ctx context.Context, p core.FilterParams) (Pages, error)
		FetchCapitalSubscriptions(ctx context.Context, p core.FilterParams) (Pages, error)
	}

	// Pages is one stream as fetched, page bodies in backend order.
	// Truncated is set when fetching stopped with a next link still pending.
	Pages struct {
		Bodies    [][]byte
		Truncated bool
	}

	MemberCounter interface {
		TotalMembers(ctx context.Context) (int, error)
	}

	MemberLister interface {
		ListMembers(ctx context.Context) ([]core.Member, []string, error)
	}

	ContributionWriter interface {
		CreatePeriodicDue(ctx context.Context, in core.PeriodicDueInput) ([]byte, error)
		CreateCapitalSubscription(ctx context.Context, in core.CapitalSubscriptionInput) ([]byte, error)
		BulkUpload(ctx context.Context, kind core.SourceType, fileName string, data []byte) ([]byte, error)
	}

	ReminderSender interface {
		SendReminders(ctx context.Context, req core.ReminderRequest) (core.ReminderResult, error)
	}

	// ReportSink receives a formatted report as header plus rows.
	ReportSink interface {
		WriteReport(ctx context.Context, title string, rows [][]string) (ref string, err error)
	}
)
