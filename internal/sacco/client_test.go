package sacco

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sacco/internal/core"
	"sacco/internal/reconcile"
	"sacco/internal/transport"
)

type fakeSender struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	requests  []transport.Request
}

func (f *fakeSender) Send(_ context.Context, req transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.responses[req.Endpoint]
	if !ok {
		return nil, &transport.APIError{StatusCode: 404, Endpoint: req.Endpoint, Body: "not found"}
	}
	return &transport.Response{StatusCode: 200, ContentType: "application/json", Body: []byte(body)}, nil
}

func TestFetchForwardsFilterParams(t *testing.T) {
	f := &fakeSender{responses: map[string]string{PathPeriodicDues: `[]`, PathCapitalSubscription: `[]`}}
	c := New(f, nil)

	p := core.FilterParams{Year: 2024, Month: 3, MemberID: "m1"}
	if _, err := c.FetchPeriodicDues(context.Background(), p); err != nil {
		t.Fatalf("FetchPeriodicDues: %v", err)
	}
	if _, err := c.FetchCapitalSubscriptions(context.Background(), p); err != nil {
		t.Fatalf("FetchCapitalSubscriptions: %v", err)
	}
	for _, req := range f.requests {
		if got := req.Query.Encode(); got != "member=m1&month=3&year=2024" {
			t.Errorf("%s query = %q", req.Endpoint, got)
		}
	}
}

func TestTotalMembers(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{"total_members", `{"total_members":120,"active":100}`, 120, false},
		{"count", `{"count":"45"}`, 45, false},
		{"total", `{"total":7}`, 7, false},
		{"missing", `{"active":3}`, 0, true},
		{"not a number", `{"total_members":"many"}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&fakeSender{responses: map[string]string{PathMemberStatistics: tt.body}}, nil)
			got, err := c.TotalMembers(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("TotalMembers = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestListMembersFollowsPages(t *testing.T) {
	f := &fakeSender{responses: map[string]string{
		PathMembers: `{"count":3,"next":"https://api.example.org/api/members/?page=2","results":[
			{"id":1,"first_name":"Jane","last_name":"Doe","email":"Jane.Doe@x.com","is_active":true},
			{"id":2,"full_name":"John Roe","date_joined":"not-a-date"}]}`,
		"https://api.example.org/api/members/?page=2": `{"count":3,"next":null,"results":[
			{"id":"3","name":"Mary Major","phone_number":"0700"}]}`,
	}}
	c := New(f, nil)

	got, warnings, err := c.ListMembers(context.Background())
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	var names []string
	for _, m := range got {
		names = append(names, m.ID+":"+m.Name)
	}
	if diff := cmp.Diff([]string{"1:Jane Doe", "3:Mary Major"}, names); diff != "" {
		t.Fatalf("members mismatch (-want +got):\n%s", diff)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning for the bad date, got %v", warnings)
	}
	if got[1].Phone != "0700" {
		t.Errorf("phone = %q, want 0700", got[1].Phone)
	}
}

func TestBulkUploadUsesMultipartFile(t *testing.T) {
	f := &fakeSender{responses: map[string]string{"share-capital/bulk-upload/": `{"created":2}`}}
	c := New(f, nil)

	if _, err := c.BulkUpload(context.Background(), core.Capital, "cap.xlsx", []byte("x")); err != nil {
		t.Fatalf("BulkUpload: %v", err)
	}
	file, ok := f.requests[0].Body.(*transport.File)
	if !ok {
		t.Fatalf("body is %T, want *transport.File", f.requests[0].Body)
	}
	if file.FileName != "cap.xlsx" || file.FieldName != "file" {
		t.Errorf("unexpected file %+v", file)
	}

	if _, err := c.BulkUpload(context.Background(), core.SourceType("OTHER"), "x", []byte("x")); !errors.Is(err, core.ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
}

func TestSendReminders(t *testing.T) {
	f := &fakeSender{responses: map[string]string{PathSendReminders: `{"successful_count":12}`}}
	c := New(f, nil)

	req := core.ReminderRequest{Year: 2024, Month: 3, Message: "Your March dues are outstanding"}
	got, err := c.SendReminders(context.Background(), req)
	if err != nil {
		t.Fatalf("SendReminders: %v", err)
	}
	if got.SuccessfulCount != 12 {
		t.Fatalf("SuccessfulCount = %d, want 12", got.SuccessfulCount)
	}
	sent, _ := json.Marshal(f.requests[0].Body)
	if string(sent) != `{"year":2024,"month":3,"message":"Your March dues are outstanding"}` {
		t.Errorf("unexpected payload %s", sent)
	}

	if _, err := c.SendReminders(context.Background(), core.ReminderRequest{Year: 2024, Month: 13, Message: "x"}); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestErrorsPropagateUnchanged(t *testing.T) {
	netErr := &transport.NetworkError{Method: "GET", Endpoint: PathMembers, Err: errors.New("dial tcp: refused")}
	c := New(&fakeSender{err: netErr}, nil)

	_, _, err := c.ListMembers(context.Background())
	if err != netErr {
		t.Fatalf("expected the transport error unchanged, got %v", err)
	}
}

func TestContributionStreamsFollowPages(t *testing.T) {
	f := &fakeSender{responses: map[string]string{
		PathPeriodicDues: `{"count":2,"next":"https://api.example.org/api/monthly-contributions/?page=2&year=2024",
			"results":[{"id":1,"amount":"500","year":2024,"month":3,"member_id":"m1"}]}`,
		"https://api.example.org/api/monthly-contributions/?page=2&year=2024": `{"count":2,"next":null,
			"results":[{"id":2,"amount":"300","year":2024,"month":3,"member_id":"m2"}]}`,
		PathCapitalSubscription: `[]`,
		PathMemberStatistics:    `{"total_members":4}`,
	}}
	c := New(f, nil)
	march := func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }
	e := reconcile.NewEngine(c, c, reconcile.WithClock(march))

	got, err := e.Statistics(context.Background())
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if got.TotalPeriodic.Cents != 80000 {
		t.Errorf("TotalPeriodic = %s, want 800.00", got.TotalPeriodic)
	}
	if got.ContributingMemberCount != 2 || got.ContributingMemberPercentage != 50 {
		t.Errorf("contributors = %d (%d%%), want 2 (50%%)", got.ContributingMemberCount, got.ContributingMemberPercentage)
	}
	if len(got.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", got.Warnings)
	}

	var second transport.Request
	for _, req := range f.requests {
		if strings.Contains(req.Endpoint, "page=2") {
			second = req
		}
	}
	if second.Endpoint == "" || len(second.Query) != 0 {
		t.Errorf("next link request = %+v, want absolute endpoint without extra query", second)
	}
}

func TestExplicitPageIsNotFollowed(t *testing.T) {
	f := &fakeSender{responses: map[string]string{
		PathPeriodicDues: `{"next":"https://api.example.org/api/monthly-contributions/?page=3","results":[]}`,
	}}
	pages, err := New(f, nil).FetchPeriodicDues(context.Background(), core.FilterParams{Page: 2})
	if err != nil {
		t.Fatalf("FetchPeriodicDues: %v", err)
	}
	if len(pages.Bodies) != 1 || pages.Truncated || len(f.requests) != 1 {
		t.Fatalf("pages = %d truncated=%v requests=%d", len(pages.Bodies), pages.Truncated, len(f.requests))
	}
}

func TestPaginationCapIsReported(t *testing.T) {
	f := &fakeSender{responses: map[string]string{
		PathMembers:      `{"next":"members/","results":[{"id":1,"name":"Loop"}]}`,
		PathPeriodicDues: `{"next":"monthly-contributions/","results":[]}`,
	}}
	c := New(f, nil)

	_, warnings, err := c.ListMembers(context.Background())
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if diff := cmp.Diff([]string{TruncatedWarning("members")}, warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
	if len(f.requests) != MaxPages {
		t.Errorf("requests = %d, want %d", len(f.requests), MaxPages)
	}

	pages, err := c.FetchPeriodicDues(context.Background(), core.FilterParams{})
	if err != nil {
		t.Fatalf("FetchPeriodicDues: %v", err)
	}
	if !pages.Truncated || len(pages.Bodies) != MaxPages {
		t.Errorf("pages = %d truncated=%v, want %d truncated", len(pages.Bodies), pages.Truncated, MaxPages)
	}
}
