package searchindex

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/dmitrymomot/circulation/pkg/circulation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// document is the indexed shape of a loan. Dates are omitted while unset so
// range and sort queries never see the zero time.
type document struct {
	ID                     string     `json:"id"`
	State                  string     `json:"state"`
	ItemPID                string     `json:"item_pid,omitempty"`
	PatronPID              string     `json:"patron_pid,omitempty"`
	DocumentPID            string     `json:"document_pid,omitempty"`
	TransactionDate        *time.Time `json:"transaction_date,omitempty"`
	StartDate              *time.Time `json:"start_date,omitempty"`
	EndDate                *time.Time `json:"end_date,omitempty"`
	RequestDate            *time.Time `json:"request_date,omitempty"`
	TransitDate            *time.Time `json:"transit_date,omitempty"`
	TransactionLocationPID string     `json:"transaction_location_pid,omitempty"`
	PickupLocationPID      string     `json:"pickup_location_pid,omitempty"`
	ItemLocationPID        string     `json:"item_location_pid,omitempty"`
	TransactionUserPID     string     `json:"transaction_user_pid,omitempty"`
	ExtensionCount         int        `json:"extension_count"`
	CancelReason           string     `json:"cancel_reason,omitempty"`
	Revision               int64      `json:"revision"`
}

func toDocument(l *circulation.Loan) document {
	return document{
		ID:                     l.ID,
		State:                  string(l.State),
		ItemPID:                l.ItemPID,
		PatronPID:              l.PatronPID,
		DocumentPID:            l.DocumentPID,
		TransactionDate:        timePtr(l.TransactionDate),
		StartDate:              timePtr(l.StartDate),
		EndDate:                timePtr(l.EndDate),
		RequestDate:            timePtr(l.RequestDate),
		TransitDate:            timePtr(l.TransitDate),
		TransactionLocationPID: l.TransactionLocationPID,
		PickupLocationPID:      l.PickupLocationPID,
		ItemLocationPID:        l.ItemLocationPID,
		TransactionUserPID:     l.TransactionUserPID,
		ExtensionCount:         l.ExtensionCount,
		CancelReason:           l.CancelReason,
		Revision:               l.Revision,
	}
}

func (d document) loan() *circulation.Loan {
	return &circulation.Loan{
		ID:                     d.ID,
		State:                  circulation.State(d.State),
		ItemPID:                d.ItemPID,
		PatronPID:              d.PatronPID,
		DocumentPID:            d.DocumentPID,
		TransactionDate:        timeVal(d.TransactionDate),
		StartDate:              timeVal(d.StartDate),
		EndDate:                timeVal(d.EndDate),
		RequestDate:            timeVal(d.RequestDate),
		TransitDate:            timeVal(d.TransitDate),
		TransactionLocationPID: d.TransactionLocationPID,
		PickupLocationPID:      d.PickupLocationPID,
		ItemLocationPID:        d.ItemLocationPID,
		TransactionUserPID:     d.TransactionUserPID,
		ExtensionCount:         d.ExtensionCount,
		CancelReason:           d.CancelReason,
		Revision:               d.Revision,
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func timeVal(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

// mapping declares identifiers as keywords so term filters and sorts work
// on the exact value.
func mapping() map[string]any {
	keyword := map[string]any{"type": "keyword"}
	date := map[string]any{"type": "date"}
	return map[string]any{
		"mappings": map[string]any{
			"dynamic": "strict",
			"properties": map[string]any{
				"id":                       keyword,
				"state":                    keyword,
				"item_pid":                 keyword,
				"patron_pid":               keyword,
				"document_pid":             keyword,
				"transaction_date":         date,
				"start_date":               date,
				"end_date":                 date,
				"request_date":             date,
				"transit_date":             date,
				"transaction_location_pid": keyword,
				"pickup_location_pid":      keyword,
				"item_location_pid":        keyword,
				"transaction_user_pid":     keyword,
				"extension_count":          map[string]any{"type": "integer"},
				"cancel_reason":            map[string]any{"type": "text"},
				"revision":                 map[string]any{"type": "long"},
			},
		},
	}
}

func statesOf(states []circulation.State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func pendingQuery(documentPID string) map[string]any {
	return map[string]any{
		"size": maxQueueSize,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"document_pid": documentPID}},
					map[string]any{"terms": map[string]any{"state": statesOf(circulation.RequestStates)}},
				},
			},
		},
		"sort": []any{
			map[string]any{"request_date": map[string]any{"order": "asc", "missing": "_last"}},
			map[string]any{"id": map[string]any{"order": "asc"}},
		},
	}
}

func activeItemQuery(itemPID, excludingLoanID string) map[string]any {
	boolQuery := map[string]any{
		"filter": []any{
			map[string]any{"term": map[string]any{"item_pid": itemPID}},
			map[string]any{"terms": map[string]any{"state": statesOf(circulation.ActiveStates)}},
		},
	}
	if excludingLoanID != "" {
		boolQuery["must_not"] = []any{
			map[string]any{"term": map[string]any{"id": excludingLoanID}},
		}
	}
	return map[string]any{"query": map[string]any{"bool": boolQuery}}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type countResponse struct {
	Count int64 `json:"count"`
}
