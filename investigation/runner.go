package investigation

import (
	"context"
	"fmt"
	"time"

	"pokemon-investigator/criteria"
	"pokemon-investigator/metrics"
	"pokemon-investigator/retry"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	stopExhausted = "exhausted"
	stopThreshold = "threshold"
	stopCancelled = "cancelled"
)

// Runner fetches and evaluates names in batches of RunConfig.Concurrency and
// stops dispatching once RunConfig.MinMatches passports exist. Work already
// started always runs to completion.
type Runner struct {
	source    Source
	baseDelay time.Duration
	sleep     func(context.Context, time.Duration) error
	now       func() time.Time
	newRunID  func() string
}

type Option func(*Runner)

// WithBaseDelay sets the backoff before the second fetch attempt.
func WithBaseDelay(d time.Duration) Option {
	return func(r *Runner) { r.baseDelay = d }
}

// WithSleep replaces the wait between retry attempts.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(r *Runner) { r.sleep = fn }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func WithRunIDFunc(fn func() string) Option {
	return func(r *Runner) { r.newRunID = fn }
}

func NewRunner(src Source, opts ...Option) *Runner {
	r := &Runner{
		source:    src,
		baseDelay: retry.DefaultBaseDelay,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes cfg.Names and returns the assembled output. Only an invalid
// cfg is an error; per-name failures land in RunOutput.Failures. Cancelling
// ctx stops further batches from starting but never interrupts a batch.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*RunOutput, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := r.newRunID()
	start := r.now()
	log.Info().Str("runId", runID).Int("names", len(cfg.Names)).Int("concurrency", cfg.Concurrency).Int("minMatches", cfg.MinMatches).Int("maxAttempts", cfg.MaxAttempts()).Dur("timeout", cfg.Timeout).Msg("runner: starting run")

	results, stop := r.processConcurrently(ctx, cfg, runID)
	out := buildOutput(runID, results, r.now().Sub(start))

	metrics.RunsTotal.WithLabelValues(stop).Inc()
	log.Info().Str("runId", runID).Str("stop", stop).Int("processed", out.Report.Processed).Int("matched", out.Report.Matched).Int("failed", out.Report.Failed).Int64("durationMs", out.Report.DurationMs).Msg("runner: run finished")
	return out, nil
}

func (r *Runner) processConcurrently(ctx context.Context, cfg RunConfig, runID string) ([]ItemResult, string) {
	results := make([]ItemResult, 0, len(cfg.Names))
	itemCtx := context.WithoutCancel(ctx)
	matched := 0

	for start := 0; start < len(cfg.Names); start += cfg.Concurrency {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Str("runId", runID).Int("remaining", len(cfg.Names)-start).Msg("runner: context done; not dispatching further batches")
			return results, stopCancelled
		}

		batch := cfg.Names[start:min(start+cfg.Concurrency, len(cfg.Names))]
		batchResults := make([]ItemResult, len(batch))

		var g errgroup.Group
		for i, name := range batch {
			g.Go(func() error {
				batchResults[i] = r.processOne(itemCtx, cfg, runID, name)
				return nil
			})
		}
		_ = g.Wait()

		for _, res := range batchResults {
			if _, ok := res.(Success); ok {
				matched++
			}
			results = append(results, res)
		}
		log.Debug().Str("runId", runID).Int("batchStart", start).Int("batchSize", len(batch)).Int("matched", matched).Msg("runner: batch complete")

		if matched >= cfg.MinMatches {
			log.Info().Str("runId", runID).Int("matched", matched).Int("skipped", len(cfg.Names)-len(results)).Msg("runner: match threshold reached")
			return results, stopThreshold
		}
	}
	return results, stopExhausted
}

func (r *Runner) processOne(ctx context.Context, cfg RunConfig, runID, name string) ItemResult {
	began := time.Now()
	policy := retry.Policy{MaxAttempts: cfg.MaxAttempts(), BaseDelay: r.baseDelay, Sleep: r.sleep}

	rec, attempts, err := retry.Do(ctx, policy, fmt.Sprintf("pokemon %q", name), func(ctx context.Context) (Record, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		return r.source.Fetch(attemptCtx, name)
	})

	var res ItemResult
	if err != nil {
		res = Failure{Name: name, Err: err, Attempts: attempts}
	} else {
		switch o := criteria.Evaluate(rec).(type) {
		case criteria.Matched:
			log.Debug().Str("name", name).Strs("types", o.Types).Strs("moves", o.Moves).Msg("runner: matched")
			res = Success{Name: name, Passport: newPassport(runID, rec, r.now().UTC()), Attempts: attempts}
		case criteria.NotMatched:
			res = Failure{Name: name, Err: &NotMatchedError{Name: name, Reason: o.Reason}, Attempts: attempts}
		default:
			res = Failure{Name: name, Err: fmt.Errorf("unexpected criteria outcome %T", o), Attempts: attempts}
		}
	}

	metrics.ItemDuration.Observe(time.Since(began).Seconds())
	metrics.FetchAttempts.Observe(float64(attempts))
	switch v := res.(type) {
	case Success:
		metrics.ItemsTotal.WithLabelValues("matched").Inc()
	case Failure:
		metrics.ItemsTotal.WithLabelValues("failed").Inc()
		log.Info().Err(v.Err).Str("runId", runID).Str("name", name).Int("attempts", attempts).Msg("runner: item failed")
	}
	return res
}

func buildOutput(runID string, results []ItemResult, elapsed time.Duration) *RunOutput {
	out := &RunOutput{
		Passports: []Passport{},
		Failures:  []FailureDescriptor{},
	}
	for _, res := range results {
		switch v := res.(type) {
		case Success:
			out.Passports = append(out.Passports, v.Passport)
		case Failure:
			out.Failures = append(out.Failures, v.Descriptor())
		}
	}
	out.Report = RunReport{
		RunID:      runID,
		Processed:  len(results),
		Matched:    len(out.Passports),
		Failed:     len(out.Failures),
		DurationMs: elapsed.Milliseconds(),
	}
	return out
}
