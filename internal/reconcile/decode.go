package reconcile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sacco/internal/core"
	"sacco/internal/envelope"
	"sacco/internal/ports"
)

// Accepted spellings per field, in lookup order.
var (
	keysID              = []string{"id", "pk"}
	keysMember          = []string{"member_id", "memberId", "member"}
	keysMemberName      = []string{"member_name", "memberName", "member_full_name"}
	keysAmount          = []string{"amount"}
	keysYear            = []string{"year"}
	keysMonth           = []string{"month"}
	keysTransactionDate = []string{"transaction_date", "transactionDate", "date"}
	keysCreatedAt       = []string{"created_at", "createdAt"}
	keysReference       = []string{"reference_number", "referenceNumber"}
	keysRecorder        = []string{"recorder_name", "recorderName", "recorded_by_name", "recorded_by"}
	keysTransactionCode = []string{"transaction_code", "transactionCode"}
)

var errMissingAmount = errors.New("missing amount")

// DecodeRecords normalizes a raw list response and converts each entry into a
// ContributionRecord tagged with source. Entries that violate the record
// invariants are dropped and described in the returned warnings.
func DecodeRecords(raw []byte, source core.SourceType) ([]core.ContributionRecord, []string) {
	records := []core.ContributionRecord{}
	_, warnings := decodeInto(&records, raw, source, 0)
	return records, warnings
}

// DecodePages decodes every page of a stream in order. Record positions in
// warnings count across pages. A truncated stream adds a warning.
func DecodePages(pages ports.Pages, source core.SourceType) ([]core.ContributionRecord, []string) {
	var (
		records  = []core.ContributionRecord{}
		warnings []string
		offset   int
	)
	for _, body := range pages.Bodies {
		n, w := decodeInto(&records, body, source, offset)
		warnings = append(warnings, w...)
		offset += n
	}
	if pages.Truncated {
		warnings = append(warnings, fmt.Sprintf("%s: stream truncated after %d pages, later records not included",
			sourceName(source), len(pages.Bodies)))
	}
	return records, warnings
}

// decodeInto appends the valid records of one page and returns how many
// entries the page held.
func decodeInto(records *[]core.ContributionRecord, raw []byte, source core.SourceType, offset int) (int, []string) {
	items, warn := envelope.Records(raw)
	var warnings []string
	if warn != nil {
		warn.Source = sourceName(source)
		warnings = append(warnings, warn.Error())
	}
	for i, item := range items {
		rec, err := decodeRecord(item, source)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s record %d dropped: %v", sourceName(source), offset+i, err))
			continue
		}
		*records = append(*records, rec)
	}
	return len(items), warnings
}


func decodeRecord(item json.RawMessage, source core.SourceType) (core.ContributionRecord, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(item, &obj); err != nil {
		return core.ContributionRecord{}, fmt.Errorf("not an object: %w", err)
	}

	rec := core.ContributionRecord{
		ID:              core.FlexString(pick(obj, keysID)),
		MemberName:      core.FlexString(pick(obj, keysMemberName)),
		ReferenceNumber: core.FlexString(pick(obj, keysReference)),
		RecorderName:    core.FlexString(pick(obj, keysRecorder)),
		TransactionCode: core.FlexString(pick(obj, keysTransactionCode)),
		SourceType:      source,
	}
	rec.MemberID, rec.MemberName = member(pick(obj, keysMember), rec.MemberName)

	amount, err := decodeAmount(pick(obj, keysAmount))
	if err != nil {
		return core.ContributionRecord{}, err
	}
	rec.Amount = amount

	if rec.TransactionDate, err = core.ParseDate(core.FlexString(pick(obj, keysTransactionDate))); err != nil {
		return core.ContributionRecord{}, fmt.Errorf("transaction date: %w", err)
	}
	if rec.CreatedAt, err = core.ParseDate(core.FlexString(pick(obj, keysCreatedAt))); err != nil {
		return core.ContributionRecord{}, fmt.Errorf("created at: %w", err)
	}

	if source == core.Periodic {
		if rec.Year, _, err = core.FlexInt(pick(obj, keysYear)); err != nil {
			return core.ContributionRecord{}, fmt.Errorf("year: %w", core.ErrInvalidYear)
		}
		if rec.Month, _, err = core.FlexInt(pick(obj, keysMonth)); err != nil {
			return core.ContributionRecord{}, fmt.Errorf("month: %w", core.ErrInvalidMonth)
		}
	}

	if err := rec.Validate(); err != nil {
		return core.ContributionRecord{}, err
	}
	return rec, nil
}

func pick(obj map[string]json.RawMessage, keys []string) json.RawMessage {
	for _, k := range keys {
		if v, ok := obj[k]; ok && string(v) != "null" {
			return v
		}
	}
	return nil
}

// member reads a member reference that is either a scalar id or a nested
// object carrying the id and name.
func member(raw json.RawMessage, name string) (string, string) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return core.FlexString(raw), name
	}
	var nested struct {
		ID       json.RawMessage `json:"id"`
		Name     string          `json:"name"`
		FullName string          `json:"full_name"`
	}
	if err := json.Unmarshal(trimmed, &nested); err != nil {
		return "", name
	}
	if name == "" {
		name = strings.TrimSpace(nested.Name)
	}
	if name == "" {
		name = strings.TrimSpace(nested.FullName)
	}
	return core.FlexString(nested.ID), name
}

func decodeAmount(raw json.RawMessage) (core.Money, error) {
	s := core.FlexString(raw)
	if s == "" {
		return core.Money{}, errMissingAmount
	}
	m, err := core.ParseAmount(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %q", err, s)
	}
	return m, nil
}
