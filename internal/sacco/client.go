// Package sacco adapts the SACCO REST backend to the portal's ports.
package sacco

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"sacco/internal/core"
	"sacco/internal/envelope"
	applog "sacco/internal/log"
	"sacco/internal/ports"
	"sacco/internal/transport"
)

const (
	PathPeriodicDues        = "monthly-contributions/"
	PathCapitalSubscription = "share-capital/"
	PathMemberStatistics    = "members/statistics/"
	PathMembers             = "members/"
	PathSendReminders       = "monthly-contributions/send-reminders/"
	bulkUploadSuffix        = "bulk-upload/"

	// MaxPages bounds how many pages a single list fetch reads.
	MaxPages = 100
)

var ErrNoMemberTotal = errors.New("member statistics response has no total")

// TruncatedWarning describes a list that was cut off at MaxPages.
func TruncatedWarning(what string) string {
	return fmt.Sprintf("%s: stopped after %d pages, later records not included", what, MaxPages)
}

// Sender is the subset of the transport client this adapter needs.
type Sender interface {
	Send(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Client implements the ports on top of an authenticated transport.
type Client struct {
	tr     Sender
	logger *applog.Logger
}

func New(tr Sender, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Client{tr: tr, logger: logger}
}

func (c *Client) FetchPeriodicDues(ctx context.Context, p core.FilterParams) (ports.Pages, error) {
	return c.fetchStream(ctx, PathPeriodicDues, p)
}

func (c *Client) FetchCapitalSubscriptions(ctx context.Context, p core.FilterParams) (ports.Pages, error) {
	return c.fetchStream(ctx, PathCapitalSubscription, p)
}

// fetchStream reads every page of a contribution stream. A request for an
// explicit page returns only that page.
func (c *Client) fetchStream(ctx context.Context, path string, p core.FilterParams) (ports.Pages, error) {
	var out ports.Pages
	err := c.paginate(ctx, transport.Request{Method: http.MethodGet, Endpoint: path, Query: p.Values()},
		p.Page == 0, func(body []byte) {
			out.Bodies = append(out.Bodies, body)
		}, &out.Truncated)
	if err != nil {
		return ports.Pages{}, err
	}
	if out.Truncated {
		c.logger.WarnContext(ctx, "Contribution stream truncated", applog.FieldEndpoint, path, "max_pages", MaxPages)
	}
	return out, nil
}

// paginate sends req and, when follow is set, each "next" link after it,
// handing every body to fn. It stops after MaxPages and sets *truncated if
// a next link was still pending.
func (c *Client) paginate(ctx context.Context, req transport.Request, follow bool, fn func(body []byte), truncated *bool) error {
	for page := 0; ; page++ {
		if page == MaxPages {
			*truncated = true
			return nil
		}
		resp, err := c.tr.Send(ctx, req)
		if err != nil {
			return err
		}
		fn(resp.Body)
		next := nextLink(resp.Body)
		if !follow || next == "" {
			return nil
		}
		// The next link already carries the filter query.
		req = transport.Request{Method: http.MethodGet, Endpoint: next}
	}
}

type memberStats struct {
	TotalMembers json.RawMessage `json:"total_members"`
	Count        json.RawMessage `json:"count"`
	Total        json.RawMessage `json:"total"`
}

// TotalMembers reads the member count from the statistics endpoint.
func (c *Client) TotalMembers(ctx context.Context) (int, error) {
	resp, err := c.tr.Send(ctx, transport.Request{Method: http.MethodGet, Endpoint: PathMemberStatistics})
	if err != nil {
		return 0, err
	}
	var stats memberStats
	if err := json.Unmarshal(resp.Body, &stats); err != nil {
		return 0, fmt.Errorf("decode member statistics: %w", err)
	}
	for _, raw := range []json.RawMessage{stats.TotalMembers, stats.Count, stats.Total} {
		n, ok, err := core.FlexInt(raw)
		if err != nil {
			return 0, fmt.Errorf("decode member statistics: %w", err)
		}
		if ok {
			if n < 0 {
				return 0, fmt.Errorf("negative member total %d", n)
			}
			return n, nil
		}
	}
	return 0, ErrNoMemberTotal
}

// ListMembers returns every member, following pagination links. Records that
// cannot be decoded are skipped and reported as warnings.
func (c *Client) ListMembers(ctx context.Context) ([]core.Member, []string, error) {
	var (
		members   []core.Member
		warnings  []string
		truncated bool
	)
	err := c.paginate(ctx, transport.Request{Method: http.MethodGet, Endpoint: PathMembers}, true, func(body []byte) {
		got, errs := envelope.Decode[core.Member](body)
		members = append(members, got...)
		for _, e := range errs {
			c.logger.WarnContext(ctx, "Member record skipped", applog.FieldEndpoint, PathMembers, applog.FieldWarning, e.Error())
			warnings = append(warnings, e.Error())
		}
	}, &truncated)
	if err != nil {
		return nil, nil, err
	}
	if truncated {
		w := TruncatedWarning("members")
		c.logger.WarnContext(ctx, "Member list truncated", applog.FieldEndpoint, PathMembers, applog.FieldWarning, w)
		warnings = append(warnings, w)
	}
	return members, warnings, nil
}

func nextLink(body []byte) string {
	var env struct {
		Next *string `json:"next"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Next == nil {
		return ""
	}
	return *env.Next
}

func (c *Client) CreatePeriodicDue(ctx context.Context, in core.PeriodicDueInput) ([]byte, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return c.post(ctx, PathPeriodicDues, in)
}

func (c *Client) CreateCapitalSubscription(ctx context.Context, in core.CapitalSubscriptionInput) ([]byte, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return c.post(ctx, PathCapitalSubscription, in)
}

// BulkUpload posts a spreadsheet of records as a multipart file.
func (c *Client) BulkUpload(ctx context.Context, kind core.SourceType, fileName string, data []byte) ([]byte, error) {
	var path string
	switch kind {
	case core.Periodic:
		path = PathPeriodicDues + bulkUploadSuffix
	case core.Capital:
		path = PathCapitalSubscription + bulkUploadSuffix
	default:
		return nil, core.ErrUnknownSource
	}
	if len(data) == 0 {
		return nil, errors.New("empty upload")
	}
	return c.post(ctx, path, &transport.File{FieldName: "file", FileName: fileName, Data: data})
}

func (c *Client) SendReminders(ctx context.Context, req core.ReminderRequest) (core.ReminderResult, error) {
	if err := req.Validate(); err != nil {
		return core.ReminderResult{}, err
	}
	body, err := c.post(ctx, PathSendReminders, req)
	if err != nil {
		return core.ReminderResult{}, err
	}
	var out struct {
		SuccessfulCount json.RawMessage `json:"successful_count"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return core.ReminderResult{}, fmt.Errorf("decode reminder result: %w", err)
		}
	}
	n, _, err := core.FlexInt(out.SuccessfulCount)
	if err != nil {
		return core.ReminderResult{}, fmt.Errorf("decode reminder result: %w", err)
	}
	return core.ReminderResult{SuccessfulCount: n}, nil
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	resp, err := c.tr.Send(ctx, transport.Request{Method: http.MethodPost, Endpoint: path, Body: body})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
