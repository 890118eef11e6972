package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"sacco/internal/core"
	applog "sacco/internal/log"
	"sacco/internal/members"
	"sacco/internal/reconcile"
	"sacco/internal/report"
	"sacco/internal/services"
	"sacco/internal/transport"
)

type errorResponse struct {
	Error         string `json:"error"`
	LoginRequired bool   `json:"login_required,omitempty"`
}

// badRequest marks request parsing failures.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

var validationErrors = []error{
	core.ErrInvalidMonth,
	core.ErrInvalidYear,
	core.ErrInvalidAmount,
	core.ErrEmptyMember,
	core.ErrEmptyReference,
	core.ErrEmptyMessage,
	core.ErrInvalidDate,
	core.ErrUnknownSource,
	core.ErrInvalidPageParam,
	reconcile.ErrInvalidLimit,
	reconcile.ErrEmptyMemberID,
	members.ErrInvalidPageSize,
	members.ErrUnknownStatus,
	members.ErrUnknownCapital,
	members.ErrUnknownSortKey,
	report.ErrUnknownColumn,
}

// statusFor maps an error to the response status and body. Auth failures
// are checked first because they may arrive wrapped in an aggregation
// error.
func statusFor(err error) (int, errorResponse) {
	var (
		authErr *transport.AuthError
		apiErr  *transport.APIError
		netErr  *transport.NetworkError
		aggErr  *reconcile.AggregationError
		badReq  *badRequest
	)
	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, errorResponse{Error: authErr.Error(), LoginRequired: true}
	case errors.As(err, &badReq):
		return http.StatusBadRequest, errorResponse{Error: badReq.Error()}
	case isValidation(err):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, services.ErrExportDisabled):
		return http.StatusServiceUnavailable, errorResponse{Error: err.Error()}
	case errors.As(err, &apiErr):
		msg := apiErr.Message()
		if msg == "" {
			msg = apiErr.Error()
		}
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode, errorResponse{Error: msg}
		}
		return http.StatusBadGateway, errorResponse{Error: msg}
	case errors.As(err, &aggErr), errors.As(err, &netErr):
		return http.StatusBadGateway, errorResponse{Error: err.Error()}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal error"}
}

func isValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func errorType(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return applog.ErrorTypeAuth
	case status == http.StatusBadGateway:
		return applog.ErrorTypeNetwork
	case status >= 500:
		return applog.ErrorTypeInternal
	}
	return applog.ErrorTypeValidation
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	logger := applog.FromContext(r.Context())
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err, "error_type", errorType(status), applog.FieldStatusCode, status)
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			applog.FieldError, err, "error_type", errorType(status), applog.FieldStatusCode, status)
	}
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequestf("invalid JSON body: %v", err)
	}
	return nil
}

// queryInt reads a non-negative integer query parameter, returning def when
// it is absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequestf("invalid %s %q", key, v)
	}
	return n, nil
}

// filterParams reads the contribution filter from the query string.
func filterParams(r *http.Request) (core.FilterParams, error) {
	var p core.FilterParams
	var err error
	if p.Year, err = queryInt(r, "year", 0); err != nil {
		return p, err
	}
	if p.Month, err = queryInt(r, "month", 0); err != nil {
		return p, err
	}
	if p.Page, err = queryInt(r, "page", 0); err != nil {
		return p, err
	}
	if p.PageSize, err = queryInt(r, "page_size", 0); err != nil {
		return p, err
	}
	q := r.URL.Query()
	p.MemberID = strings.TrimSpace(q.Get("member"))
	p.Search = strings.TrimSpace(q.Get("search"))
	return p, p.Validate()
}
