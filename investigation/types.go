package investigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pokemon-investigator/criteria"
)

// Record is a normalized Pokémon as returned by a Source.
type Record struct {
	ID             int
	Name           string
	BaseExperience int
	Height         int
	Types          []string
	Moves          []string
}

func (r Record) TypeTags() []string { return r.Types }
func (r Record) MoveTags() []string { return r.Moves }

// Source fetches and validates one record by name. Implementations must honour
// ctx so callers can bound each call with a timeout.
type Source interface {
	Fetch(ctx context.Context, name string) (Record, error)
}

// Passport is the output artifact for one matched record.
type Passport struct {
	RunID          string    `json:"runId"`
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	BaseExperience int       `json:"baseExperience"`
	Height         int       `json:"height"`
	Types          []string  `json:"types"`
	Moves          []string  `json:"moves"`
	FetchedAt      time.Time `json:"fetchedAt"`
}

func newPassport(runID string, r Record, fetchedAt time.Time) Passport {
	return Passport{
		RunID:          runID,
		ID:             r.ID,
		Name:           r.Name,
		BaseExperience: r.BaseExperience,
		Height:         r.Height,
		Types:          append([]string{}, r.Types...),
		Moves:          append([]string{}, r.Moves...),
		FetchedAt:      fetchedAt,
	}
}

// ItemResult is the outcome for one processed name: Success or Failure.
type ItemResult interface {
	ItemName() string
	AttemptCount() int
	isItemResult()
}

type Success struct {
	Name     string
	Passport Passport
	Attempts int
}

type Failure struct {
	Name     string
	Err      error
	Attempts int
}

func (s Success) ItemName() string  { return s.Name }
func (s Success) AttemptCount() int { return s.Attempts }
func (Success) isItemResult()       {}

func (f Failure) ItemName() string  { return f.Name }
func (f Failure) AttemptCount() int { return f.Attempts }
func (Failure) isItemResult()       {}

// ErrNotMatched marks a record that was fetched but failed the matching rule.
var ErrNotMatched = errors.New("does not match criteria")

type NotMatchedError struct {
	Name   string
	Reason criteria.Reason
}

func (e *NotMatchedError) Error() string {
	return fmt.Sprintf("pokemon %q does not match criteria: %s", e.Name, e.Reason)
}

func (e *NotMatchedError) Unwrap() error { return ErrNotMatched }

// Cause is one link of an error's caused-by chain.
type Cause struct {
	Message string `json:"message"`
	Cause   *Cause `json:"cause,omitempty"`
}

// causeChain walks the errors wrapped by err, outermost first.
func causeChain(err error) *Cause {
	next := errors.Unwrap(err)
	if next == nil {
		return nil
	}
	return &Cause{Message: next.Error(), Cause: causeChain(next)}
}

// FailureDescriptor is the serialized form of a Failure.
type FailureDescriptor struct {
	Name     string `json:"name"`
	Attempts int    `json:"attempts"`
	Message  string `json:"message"`
	Cause    *Cause `json:"cause,omitempty"`
}

func (f Failure) Descriptor() FailureDescriptor {
	d := FailureDescriptor{Name: f.Name, Attempts: f.Attempts}
	if f.Err != nil {
		d.Message = f.Err.Error()
		d.Cause = causeChain(f.Err)
	}
	return d
}

type RunReport struct {
	RunID      string `json:"runId"`
	Processed  int    `json:"processed"`
	Matched    int    `json:"matched"`
	Failed     int    `json:"failed"`
	DurationMs int64  `json:"durationMs"`
}

// RunOutput is the final artifact of a run.
type RunOutput struct {
	Report    RunReport           `json:"report"`
	Passports []Passport          `json:"passports"`
	Failures  []FailureDescriptor `json:"failures"`
}
