package queues

import (
	"context"
	"encoding/json"
)

// InvestigationRequest asks for one run. Nil tuning fields fall back to the
// worker's defaults.
type InvestigationRequest struct {
	RequestID   string   `json:"requestId"`
	Names       []string `json:"names"`
	Concurrency *int     `json:"concurrency,omitempty"`
	TimeoutMs   *int     `json:"timeoutMs,omitempty"`
	Retries     *int     `json:"retries,omitempty"`
	MinMatches  *int     `json:"minMatches,omitempty"`
}

type InvestigationStatus string

const (
	StatusCompleted InvestigationStatus = "Completed"
	StatusFailure   InvestigationStatus = "Failure"
)

type InvestigationResult struct {
	EnvelopeVersion string              `json:"envelopeVersion"`
	Type            string              `json:"type"`
	RequestID       string              `json:"requestId"`
	Status          InvestigationStatus `json:"status"`
	Output          json.RawMessage     `json:"output,omitempty"`
	ErrorMessage    *string             `json:"errorMessage,omitempty"`
}

type Subscriber interface {
	Start(ctx context.Context, handler func(context.Context, *InvestigationRequest) error) error
}

type Publisher interface {
	PublishResult(ctx context.Context, res *InvestigationResult) error
}
