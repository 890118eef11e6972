package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"sacco/internal/core"
	applog "sacco/internal/log"
	"sacco/internal/members"
	"sacco/internal/report"
)

const (
	defaultMembersPageSize = 20
	maxUploadBytes         = 10 << 20
)

var errNotConfigured = errors.New("feature not configured")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if s.deps.Statistics == nil {
		writeNotConfigured(w)
		return
	}
	stats, err := s.deps.Statistics.Statistics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatisticsResponse(stats))
}

func (s *Server) handleRecentFeed(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feeds == nil {
		writeNotConfigured(w)
		return
	}
	limit, err := queryInt(r, "limit", s.deps.RecentFeedLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	feed, err := s.deps.Feeds.RecentFeed(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFeedResponse(feed))
}

func (s *Server) handleFullFeed(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feeds == nil {
		writeNotConfigured(w)
		return
	}
	p, err := filterParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	feed, err := s.deps.Feeds.FullFeed(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFeedResponse(feed))
}

func (s *Server) handleMemberContributions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feeds == nil {
		writeNotConfigured(w)
		return
	}
	summary, err := s.deps.Feeds.MemberSummary(r.Context(), strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newMemberSummaryResponse(summary))
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exports == nil {
		writeNotConfigured(w)
		return
	}
	p, columns, err := exportParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	text, err := s.deps.Exports.CSV(r.Context(), p, columns)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="contributions.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exports == nil {
		writeNotConfigured(w)
		return
	}
	p, columns, err := exportParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := s.deps.Exports.ToSheet(r.Context(), p, columns, strings.TrimSpace(r.URL.Query().Get("title")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{Range: ref})
}

func exportParams(r *http.Request) (core.FilterParams, []report.Column, error) {
	p, err := filterParams(r)
	if err != nil {
		return p, nil, err
	}
	columns, err := report.ParseColumns(r.URL.Query().Get("columns"))
	return p, columns, err
}

type membersResponse struct {
	members.Page
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	if s.deps.Members == nil {
		writeNotConfigured(w)
		return
	}
	q := r.URL.Query()
	state := members.FilterState{Search: q.Get("search")}
	var err error
	if state.Status, err = members.ParseStatus(q.Get("status")); err != nil {
		writeError(w, r, err)
		return
	}
	if state.Capital, err = members.ParseCapitalProgress(q.Get("capital")); err != nil {
		writeError(w, r, err)
		return
	}
	if state.Sort, err = members.ParseSortKey(q.Get("sort")); err != nil {
		writeError(w, r, err)
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "page_size", defaultMembersPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	all, warnings, err := s.deps.Members.ListMembers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := members.Apply(all, state, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Out-of-range pages snap to the nearest valid page.
	if clamped := members.ClampPage(page, result.TotalItems, pageSize); clamped != page {
		if result, err = members.Apply(all, state, clamped, pageSize); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, membersResponse{Page: result, Warnings: warnings})
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reminders == nil {
		writeNotConfigured(w)
		return
	}
	var req core.ReminderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.deps.Reminders.Send(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if out.Queued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, out)
}

func (s *Server) handleRecordPeriodic(w http.ResponseWriter, r *http.Request) {
	if s.deps.Contributions == nil {
		writeNotConfigured(w)
		return
	}
	var in core.PeriodicDueInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	body, err := s.deps.Contributions.RecordPeriodic(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, body)
}

func (s *Server) handleRecordCapital(w http.ResponseWriter, r *http.Request) {
	if s.deps.Contributions == nil {
		writeNotConfigured(w)
		return
	}
	var in core.CapitalSubscriptionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	body, err := s.deps.Contributions.RecordCapital(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, body)
}

func (s *Server) handleBulkUpload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Contributions == nil {
		writeNotConfigured(w)
		return
	}
	kind, err := parseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, badRequestf("missing upload file: %v", err))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, badRequestf("read upload: %v", err))
		return
	}

	body, err := s.deps.Contributions.BulkUpload(r.Context(), kind, header.Filename, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Bulk upload forwarded",
		applog.FieldSource, string(kind), "bytes", len(data))
	writeCreated(w, body)
}

func parseKind(s string) (core.SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "periodic", "monthly":
		return core.Periodic, nil
	case "capital", "share-capital":
		return core.Capital, nil
	}
	return "", badRequestf("unknown contribution kind %q", s)
}

// writeCreated relays the backend's JSON body, or a bare status when the
// backend sent nothing usable.
func writeCreated(w http.ResponseWriter, body []byte) {
	if json.Valid(body) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func writeNotConfigured(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: errNotConfigured.Error()})
}
