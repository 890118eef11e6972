package http

import "sacco/internal/core"

type recordResponse struct {
	ID              string          `json:"id"`
	MemberID        string          `json:"member_id"`
	MemberName      string          `json:"member_name"`
	Amount          core.Money      `json:"amount"`
	Year            int             `json:"year,omitempty"`
	Month           int             `json:"month,omitempty"`
	TransactionDate core.Date       `json:"transaction_date"`
	CreatedAt       core.Date       `json:"created_at"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	RecorderName    string          `json:"recorder_name,omitempty"`
	TransactionCode string          `json:"transaction_code,omitempty"`
	SourceType      core.SourceType `json:"source_type"`
}

func newRecordResponse(r core.ContributionRecord) recordResponse {
	return recordResponse{
		ID:              r.ID,
		MemberID:        r.MemberID,
		MemberName:      r.MemberName,
		Amount:          r.Amount,
		Year:            r.Year,
		Month:           r.Month,
		TransactionDate: r.TransactionDate,
		CreatedAt:       r.CreatedAt,
		ReferenceNumber: r.ReferenceNumber,
		RecorderName:    r.RecorderName,
		TransactionCode: r.TransactionCode,
		SourceType:      r.SourceType,
	}
}

func newRecordResponses(records []core.ContributionRecord) []recordResponse {
	out := make([]recordResponse, len(records))
	for i, r := range records {
		out[i] = newRecordResponse(r)
	}
	return out
}

type feedResponse struct {
	Records  []recordResponse `json:"records"`
	Warnings []string         `json:"warnings,omitempty"`
}

func newFeedResponse(f core.Feed) feedResponse {
	return feedResponse{Records: newRecordResponses(f.Records), Warnings: f.Warnings}
}

type statisticsResponse struct {
	TotalAll                     core.Money `json:"total_all"`
	TotalPeriodic                core.Money `json:"total_periodic"`
	TotalCapital                 core.Money `json:"total_capital"`
	TotalThisPeriod              core.Money `json:"total_this_period"`
	ContributingMemberCount      int        `json:"contributing_member_count"`
	ContributingMemberPercentage int        `json:"contributing_member_percentage"`
	TotalMemberCount             int        `json:"total_member_count"`
	Year                         int        `json:"year"`
	Month                        int        `json:"month"`
	Degraded                     bool       `json:"degraded"`
	DegradedReason               string     `json:"degraded_reason,omitempty"`
	Warnings                     []string   `json:"warnings,omitempty"`
}

func newStatisticsResponse(s core.ContributionStatistics) statisticsResponse {
	return statisticsResponse{
		TotalAll:                     s.TotalAll,
		TotalPeriodic:                s.TotalPeriodic,
		TotalCapital:                 s.TotalCapital,
		TotalThisPeriod:              s.TotalThisPeriod,
		ContributingMemberCount:      s.ContributingMemberCount,
		ContributingMemberPercentage: s.ContributingMemberPercentage,
		TotalMemberCount:             s.TotalMemberCount,
		Year:                         s.Year,
		Month:                        s.Month,
		Degraded:                     s.Degraded,
		DegradedReason:               s.DegradedReason,
		Warnings:                     s.Warnings,
	}
}

type memberSummaryResponse struct {
	MemberID      string           `json:"member_id"`
	TotalPeriodic core.Money       `json:"total_periodic"`
	TotalCapital  core.Money       `json:"total_capital"`
	TotalAll      core.Money       `json:"total_all"`
	LastPayment   core.Date        `json:"last_payment"`
	Records       []recordResponse `json:"records"`
}

func newMemberSummaryResponse(s core.MemberContributionSummary) memberSummaryResponse {
	return memberSummaryResponse{
		MemberID:      s.MemberID,
		TotalPeriodic: s.TotalPeriodic,
		TotalCapital:  s.TotalCapital,
		TotalAll:      s.TotalAll,
		LastPayment:   s.LastPayment,
		Records:       newRecordResponses(s.Records),
	}
}

type exportResponse struct {
	Range string `json:"range"`
}
