// Package http serves the portal's JSON API over the reconciliation engine,
// the member directory and the contribution services.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sacco/internal/core"
	applog "sacco/internal/log"
	"sacco/internal/ports"
	"sacco/internal/report"
	"sacco/internal/services"
)

// Statistics serves dashboard statistics.
type Statistics interface {
	Statistics(ctx context.Context) (core.ContributionStatistics, error)
}

// Feeds serves reconciled contribution feeds.
type Feeds interface {
	RecentFeed(ctx context.Context, limit int) (core.Feed, error)
	FullFeed(ctx context.Context, p core.FilterParams) (core.Feed, error)
	MemberSummary(ctx context.Context, memberID string) (core.MemberContributionSummary, error)
}

// Exports renders and ships contribution reports.
type Exports interface {
	CSV(ctx context.Context, p core.FilterParams, columns []report.Column) (string, error)
	ToSheet(ctx context.Context, p core.FilterParams, columns []report.Column, title string) (string, error)
}

// Reminders dispatches dues reminders.
type Reminders interface {
	Send(ctx context.Context, req core.ReminderRequest) (services.ReminderOutcome, error)
}

// Contributions records new contributions.
type Contributions interface {
	RecordPeriodic(ctx context.Context, in core.PeriodicDueInput) ([]byte, error)
	RecordCapital(ctx context.Context, in core.CapitalSubscriptionInput) ([]byte, error)
	BulkUpload(ctx context.Context, kind core.SourceType, fileName string, data []byte) ([]byte, error)
}

// Deps are the collaborators behind the API. Ready reports whether the
// server can reach the backend with a usable session; nil means always
// ready.
type Deps struct {
	Statistics      Statistics
	Feeds           Feeds
	Members         ports.MemberLister
	Exports         Exports
	Reminders       Reminders
	Contributions   Contributions
	Ready           func(ctx context.Context) error
	RecentFeedLimit int
	RateLimit       int
}

type Server struct {
	http.Server
	deps        Deps
	logger      *applog.Logger
	rateLimiter *rateLimiter
	probes      probeDetector

	shutdownOnce sync.Once
}

// NewServer wires the routes and returns a server ready to ListenAndServe.
func NewServer(addr string, deps Deps, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.Discard()
	}
	if deps.RecentFeedLimit <= 0 {
		deps.RecentFeedLimit = 10
	}
	s := &Server{
		deps:   deps,
		logger: logger.WithComponent(applog.ComponentHTTP),
	}
	if deps.RateLimit > 0 {
		s.rateLimiter = newRateLimiter(deps.RateLimit)
		go s.rateLimiter.startCleanup(5 * time.Minute)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		applog.Middleware(s.logger),
		securityHeaders,
		s.probes.middleware,
	)
	if s.rateLimiter != nil {
		r.Use(s.rateLimiter.middleware)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Route("/contributions", func(r chi.Router) {
			r.Get("/", s.handleFullFeed)
			r.Get("/statistics", s.handleStatistics)
			r.Get("/recent", s.handleRecentFeed)
			r.Get("/export.csv", s.handleExportCSV)
			r.Post("/export/sheets", s.handleExportSheets)
			r.Post("/periodic", s.handleRecordPeriodic)
			r.Post("/capital", s.handleRecordCapital)
			r.Post("/{kind}/bulk", s.handleBulkUpload)
		})
		r.Get("/members", s.handleMembers)
		r.Get("/members/{id}/contributions", s.handleMemberContributions)
		r.Post("/reminders", s.handleReminders)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	return r
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}
