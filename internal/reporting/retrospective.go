// Package reporting summarizes processed flow outcomes into in-memory
// retrospective reports. Records are supplied by the caller; nothing here
// persists state.
package reporting

import (
	"time"

	"github.com/yourorg/payment-connector/internal/envelope"
)

// FlowRecord is a single flow outcome from the transport harness.
type FlowRecord struct {
	Timestamp   time.Time
	Gateway     string
	Flow        envelope.Flow
	ReferenceID string
	Status      envelope.AttemptStatus // canonical attempt status after the flow
	ErrorKind   envelope.ErrorKind     // empty on success
	ErrorCode   string                 // raw gateway code on failure
	Amount      int64
	Currency    string
	LatencyMs   int64
}

// RetrospectiveReport summarizes flow activity over a set of records.
type RetrospectiveReport struct {
	TotalFlows           int
	SucceededFlows       int
	FailedFlows          int
	TotalAmountProcessed int64            // sum of amounts for charged attempts
	AmountByCurrency     map[string]int64 // charged amounts broken down by currency
	StatusBreakdown      map[envelope.AttemptStatus]int
	ErrorKindBreakdown   map[envelope.ErrorKind]int
	GatewayUsage         map[string]int
	FlowUsage            map[envelope.Flow]int
	DateFrom             time.Time
	DateTo               time.Time
	ProcessingDuration   time.Duration
}

// RetrospectiveReporter generates retrospective reports from flow records.
type RetrospectiveReporter struct{}

// NewRetrospectiveReporter creates a new RetrospectiveReporter.
func NewRetrospectiveReporter() *RetrospectiveReporter {
	return &RetrospectiveReporter{}
}

// GenerateRetrospective analyzes flow records and produces a report.
func (rr *RetrospectiveReporter) GenerateRetrospective(records []FlowRecord) (*RetrospectiveReport, error) {
	report := &RetrospectiveReport{
		AmountByCurrency:   make(map[string]int64),
		StatusBreakdown:    make(map[envelope.AttemptStatus]int),
		ErrorKindBreakdown: make(map[envelope.ErrorKind]int),
		GatewayUsage:       make(map[string]int),
		FlowUsage:          make(map[envelope.Flow]int),
	}
	if len(records) == 0 {
		return report, nil
	}

	report.DateFrom = records[0].Timestamp
	report.DateTo = records[0].Timestamp

	for _, rec := range records {
		report.TotalFlows++

		if rec.Timestamp.Before(report.DateFrom) {
			report.DateFrom = rec.Timestamp
		}
		if rec.Timestamp.After(report.DateTo) {
			report.DateTo = rec.Timestamp
		}

		if rec.Gateway != "" {
			report.GatewayUsage[rec.Gateway]++
		}
		report.FlowUsage[rec.Flow]++

		if rec.ErrorKind != "" {
			report.FailedFlows++
			report.ErrorKindBreakdown[rec.ErrorKind]++
		} else {
			report.SucceededFlows++
		}

		if rec.Status != "" {
			report.StatusBreakdown[rec.Status]++
			if rec.Status == envelope.StatusCharged || rec.Status == envelope.StatusPartialCharged {
				report.TotalAmountProcessed += rec.Amount
				report.AmountByCurrency[rec.Currency] += rec.Amount
			}
		}
	}

	report.ProcessingDuration = report.DateTo.Sub(report.DateFrom)
	return report, nil
}
