// Package report renders contribution records as comma-separated text with
// a fixed column order.
package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"sacco/internal/core"
)

type Column string

const (
	ColumnID              Column = "id"
	ColumnMemberID        Column = "member_id"
	ColumnMemberName      Column = "member_name"
	ColumnSourceType      Column = "source_type"
	ColumnAmount          Column = "amount"
	ColumnYear            Column = "year"
	ColumnMonth           Column = "month"
	ColumnTransactionDate Column = "transaction_date"
	ColumnReference       Column = "reference_number"
	ColumnRecorder        Column = "recorder_name"
	ColumnTransactionCode Column = "transaction_code"
)

// DefaultColumns is the export layout used when none is requested.
var DefaultColumns = []Column{
	ColumnID,
	ColumnMemberID,
	ColumnMemberName,
	ColumnSourceType,
	ColumnAmount,
	ColumnYear,
	ColumnMonth,
	ColumnTransactionDate,
	ColumnReference,
	ColumnRecorder,
	ColumnTransactionCode,
}

var ErrUnknownColumn = errors.New("unknown report column")

func (c Column) Valid() bool {
	for _, known := range DefaultColumns {
		if c == known {
			return true
		}
	}
	return false
}

// ParseColumns reads a comma-separated column list. An empty list selects
// DefaultColumns.
func ParseColumns(s string) ([]Column, error) {
	if strings.TrimSpace(s) == "" {
		return append([]Column(nil), DefaultColumns...), nil
	}
	parts := strings.Split(s, ",")
	cols := make([]Column, 0, len(parts))
	for _, p := range parts {
		c := Column(strings.ToLower(strings.TrimSpace(p)))
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, p)
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// Value returns the textual cell for column c. Absent values are "".
func Value(r core.ContributionRecord, c Column) string {
	switch c {
	case ColumnID:
		return r.ID
	case ColumnMemberID:
		return r.MemberID
	case ColumnMemberName:
		return r.MemberName
	case ColumnSourceType:
		return string(r.SourceType)
	case ColumnAmount:
		return r.Amount.String()
	case ColumnYear:
		return positive(r.Year)
	case ColumnMonth:
		return positive(r.Month)
	case ColumnTransactionDate:
		return r.TransactionDate.String()
	case ColumnReference:
		return r.ReferenceNumber
	case ColumnRecorder:
		return r.RecorderName
	case ColumnTransactionCode:
		return r.TransactionCode
	}
	return ""
}

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// Rows returns the header row followed by one row of raw cell values per
// record, for sinks that take a grid rather than text.
func Rows(records []core.ContributionRecord, columns []Column) [][]string {
	rows := make([][]string, 0, len(records)+1)
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = string(c)
	}
	rows = append(rows, header)
	for _, r := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = Value(r, c)
		}
		rows = append(rows, row)
	}
	return rows
}

// ToTabular renders records as text. The first line is the bare header;
// every data cell is double-quoted with embedded quotes doubled and line
// breaks collapsed to a single space. Lines are separated by "\n".
func ToTabular(records []core.ContributionRecord, columns []Column) string {
	rows := Rows(records, columns)
	var b strings.Builder
	b.WriteString(strings.Join(rows[0], ","))
	for _, row := range rows[1:] {
		b.WriteByte('\n')
		for i, cell := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quote(cell))
		}
	}
	return b.String()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(collapseLineBreaks(s), `"`, `""`) + `"`
}

func collapseLineBreaks(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inBreak := false
	for _, r := range s {
		if r == '\r' || r == '\n' {
			if !inBreak {
				b.WriteByte(' ')
			}
			inBreak = true
			continue
		}
		inBreak = false
		b.WriteRune(r)
	}
	return b.String()
}
