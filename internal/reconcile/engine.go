// Package reconcile merges the periodic dues and capital subscription
// streams into feeds and statistics.
package reconcile

import (
	"context"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"sacco/internal/core"
	applog "sacco/internal/log"
	"sacco/internal/ports"
)

// Engine is the contribution reconciliation engine. It keeps no state
// between calls; every result is recomputed from a fresh fetch.
type Engine struct {
	source  ports.ContributionSource
	counter ports.MemberCounter
	logger  *applog.Logger
	now     func() time.Time
}

type Option func(*Engine)

// WithClock overrides the clock used to determine the current period.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *applog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine. counter may be nil, in which case statistics
// are always reported as degraded.
func NewEngine(source ports.ContributionSource, counter ports.MemberCounter, opts ...Option) *Engine {
	e := &Engine{
		source:  source,
		counter: counter,
		logger:  applog.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent(applog.ComponentReconcile)
	return e
}

type streams struct {
	periodic []core.ContributionRecord
	capital  []core.ContributionRecord
	warnings []string
}

// fetch retrieves both streams concurrently. Either failure fails the whole
// call with an *AggregationError naming the failed source.
func (e *Engine) fetch(ctx context.Context, p core.FilterParams) (streams, error) {
	var out streams
	var periodicWarn, capitalWarn []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pages, err := e.source.FetchPeriodicDues(gctx, p)
		if err != nil {
			return &AggregationError{Source: core.Periodic, Err: err}
		}
		out.periodic, periodicWarn = DecodePages(pages, core.Periodic)
		return nil
	})
	g.Go(func() error {
		pages, err := e.source.FetchCapitalSubscriptions(gctx, p)
		if err != nil {
			return &AggregationError{Source: core.Capital, Err: err}
		}
		out.capital, capitalWarn = DecodePages(pages, core.Capital)
		return nil
	})
	if err := g.Wait(); err != nil {
		e.logger.ErrorContext(ctx, "Contribution fetch failed", applog.FieldError, err)
		return streams{}, err
	}

	out.warnings = append(periodicWarn, capitalWarn...)
	for _, w := range out.warnings {
		e.logger.WarnContext(ctx, "Contribution record warning",
			applog.FieldOperation, applog.OpNormalize, applog.FieldWarning, w)
	}
	return out, nil
}

// Statistics computes totals over both streams and the contributing-member
// ratio for the current calendar month.
func (e *Engine) Statistics(ctx context.Context) (core.ContributionStatistics, error) {
	var (
		s        streams
		total    int
		countErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		s, err = e.fetch(gctx, core.FilterParams{})
		return err
	})
	g.Go(func() error {
		if e.counter == nil {
			countErr = errNoMemberCounter
			return nil
		}
		// A failed member count degrades the result; it never fails it.
		total, countErr = e.counter.TotalMembers(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.ContributionStatistics{}, err
	}

	now := e.now()
	stats := Summarize(s.periodic, s.capital, now.Year(), int(now.Month()))
	stats.Warnings = s.warnings
	if countErr != nil {
		stats.Degraded = true
		stats.DegradedReason = "member count unavailable: " + countErr.Error()
		e.logger.WarnContext(ctx, "Statistics degraded",
			applog.FieldOperation, applog.OpStatistics, applog.FieldError, countErr)
		return stats, nil
	}
	stats.TotalMemberCount = total
	stats.ContributingMemberPercentage = Percentage(stats.ContributingMemberCount, total)

	e.logger.DebugContext(ctx, "Statistics computed",
		applog.FieldOperation, applog.OpStatistics,
		applog.FieldRecordCount, len(s.periodic)+len(s.capital),
		applog.FieldYear, stats.Year, applog.FieldMonth, stats.Month)
	return stats, nil
}

// Summarize derives the statistics that depend only on the records. The
// member total and percentage are left for the caller.
func Summarize(periodic, capital []core.ContributionRecord, year, month int) core.ContributionStatistics {
	stats := core.ContributionStatistics{Year: year, Month: month}
	contributors := make(map[string]struct{})
	for _, r := range periodic {
		stats.TotalPeriodic = stats.TotalPeriodic.Add(r.Amount)
		if r.InPeriod(year, month) {
			stats.TotalThisPeriod = stats.TotalThisPeriod.Add(r.Amount)
			if r.MemberID != "" {
				contributors[r.MemberID] = struct{}{}
			}
		}
	}
	for _, r := range capital {
		stats.TotalCapital = stats.TotalCapital.Add(r.Amount)
	}
	stats.TotalAll = stats.TotalPeriodic.Add(stats.TotalCapital)
	stats.ContributingMemberCount = len(contributors)
	return stats
}

// Percentage returns round(part/total*100), rounding halves away from zero,
// clamped to [0, 100]. A non-positive total yields 0.
func Percentage(part, total int) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	p := int(math.Round(float64(part) / float64(total) * 100))
	return min(max(p, 0), 100)
}

// RecentFeed returns at most limit records, newest first.
func (e *Engine) RecentFeed(ctx context.Context, limit int) (core.Feed, error) {
	if limit < 0 {
		return core.Feed{}, ErrInvalidLimit
	}
	s, err := e.fetch(ctx, core.FilterParams{})
	if err != nil {
		return core.Feed{}, err
	}
	records := Merge(s.periodic, s.capital)
	if len(records) > limit {
		records = records[:limit]
	}
	return core.Feed{Records: records, Warnings: s.warnings}, nil
}

// FullFeed returns every record matching p, newest first.
func (e *Engine) FullFeed(ctx context.Context, p core.FilterParams) (core.Feed, error) {
	if err := p.Validate(); err != nil {
		return core.Feed{}, err
	}
	s, err := e.fetch(ctx, p)
	if err != nil {
		return core.Feed{}, err
	}
	e.logger.DebugContext(ctx, "Feed assembled",
		applog.FieldOperation, applog.OpFeed,
		applog.FieldRecordCount, len(s.periodic)+len(s.capital))
	return core.Feed{Records: Merge(s.periodic, s.capital), Warnings: s.warnings}, nil
}

// MemberSummary totals one member's contributions.
func (e *Engine) MemberSummary(ctx context.Context, memberID string) (core.MemberContributionSummary, error) {
	if memberID == "" {
		return core.MemberContributionSummary{}, ErrEmptyMemberID
	}
	feed, err := e.FullFeed(ctx, core.FilterParams{MemberID: memberID})
	if err != nil {
		return core.MemberContributionSummary{}, err
	}

	sum := core.MemberContributionSummary{MemberID: memberID, Records: []core.ContributionRecord{}}
	for _, r := range feed.Records {
		// The backend may ignore the member filter.
		if r.MemberID != memberID {
			continue
		}
		switch r.SourceType {
		case core.Periodic:
			sum.TotalPeriodic = sum.TotalPeriodic.Add(r.Amount)
		case core.Capital:
			sum.TotalCapital = sum.TotalCapital.Add(r.Amount)
		}
		if sum.LastPayment.IsZero() {
			sum.LastPayment = r.EffectiveDate()
		}
		sum.Records = append(sum.Records, r)
	}
	sum.TotalAll = sum.TotalPeriodic.Add(sum.TotalCapital)
	return sum, nil
}

// Merge concatenates periodic then capital records and sorts them by
// effective date, newest first. The sort is stable so equal dates keep
// fetch order; undated records go last.
func Merge(periodic, capital []core.ContributionRecord) []core.ContributionRecord {
	out := make([]core.ContributionRecord, 0, len(periodic)+len(capital))
	out = append(out, periodic...)
	out = append(out, capital...)
	slices.SortStableFunc(out, func(a, b core.ContributionRecord) int {
		da, db := a.EffectiveDate(), b.EffectiveDate()
		switch {
		case da.IsZero() && db.IsZero():
			return 0
		case da.IsZero():
			return 1
		case db.IsZero():
			return -1
		}
		return db.Compare(da.Time)
	})
	return out
}
