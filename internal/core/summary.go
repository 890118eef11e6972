package core

// Feed is a reconciled, recency-ordered list of contributions.
type Feed struct {
	Records  []ContributionRecord
	Warnings []string
}

// ContributionStatistics are derived totals over both contribution streams.
// TotalAll always equals TotalPeriodic + TotalCapital.
type ContributionStatistics struct {
	TotalAll                     Money
	TotalPeriodic                Money
	TotalCapital                 Money
	TotalThisPeriod              Money
	ContributingMemberCount      int
	ContributingMemberPercentage int // 0-100
	TotalMemberCount             int

	Year  int
	Month int // 1-12

	// Degraded is set when the member count lookup failed and the
	// percentage could not be computed.
	Degraded       bool
	DegradedReason string
	Warnings       []string
}

// MemberContributionSummary is the per-member view used on member dashboards.
type MemberContributionSummary struct {
	MemberID      string
	TotalPeriodic Money
	TotalCapital  Money
	TotalAll      Money
	LastPayment   Date
	Records       []ContributionRecord
}
