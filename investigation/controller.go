package investigation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pokemon-investigator/queues"

	"github.com/rs/zerolog/log"
)

const (
	envelopeVersion = "1.0"
	resultType      = "investigation-result"

	// Bounds a result publish once the request context is gone.
	publishTimeout = 30 * time.Second
)

type runFunc func(ctx context.Context, cfg RunConfig) (*RunOutput, error)

// Controller turns queued investigation requests into runs and publishes
// each run's output.
type Controller struct {
	publisher queues.Publisher
	run       runFunc
	defaults  RunConfig
}

// NewController uses defaults for every tuning field a request leaves unset.
func NewController(p queues.Publisher, r *Runner, defaults RunConfig) *Controller {
	return &Controller{publisher: p, run: r.Run, defaults: defaults}
}

// publishFailure builds and publishes a failure InvestigationResult.
func (c *Controller) publishFailure(ctx context.Context, req *queues.InvestigationRequest, start time.Time, message string) error {
	res := &queues.InvestigationResult{
		EnvelopeVersion: envelopeVersion,
		Type:            resultType,
		RequestID:       req.RequestID,
		Status:          queues.StatusFailure,
		ErrorMessage:    &message,
	}
	if err := c.publish(ctx, res); err != nil {
		log.Error().Err(err).Str("requestId", req.RequestID).Msg("controller: failed to publish failure result")
		return err
	}
	log.Warn().Str("requestId", req.RequestID).Str("reason", message).Dur("duration", time.Since(start)).Msg("controller: request rejected")
	return nil
}

func (c *Controller) Handle(ctx context.Context, req *queues.InvestigationRequest) error {
	start := time.Now()
	log.Info().Str("requestId", req.RequestID).Int("names", len(req.Names)).Msg("controller: handling investigation request")

	cfg := c.configFor(req)
	out, err := c.run(ctx, cfg)
	if err != nil {
		return c.publishFailure(ctx, req, start, err.Error())
	}

	b, err := json.Marshal(out)
	if err != nil {
		return c.publishFailure(ctx, req, start, fmt.Sprintf("encode output: %v", err))
	}

	res := &queues.InvestigationResult{
		EnvelopeVersion: envelopeVersion,
		Type:            resultType,
		RequestID:       req.RequestID,
		Status:          queues.StatusCompleted,
		Output:          b,
	}
	if err := c.publish(ctx, res); err != nil {
		log.Error().Err(err).Str("requestId", req.RequestID).Str("runId", out.Report.RunID).Msg("controller: failed to publish result")
		return err
	}
	log.Info().Str("requestId", req.RequestID).Str("runId", out.Report.RunID).Int("matched", out.Report.Matched).Int("failed", out.Report.Failed).Dur("duration", time.Since(start)).Msg("controller: investigation complete")
	return nil
}

// publish detaches from ctx so a run that finished during shutdown still
// reaches the result topic.
func (c *Controller) publish(ctx context.Context, res *queues.InvestigationResult) error {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	return c.publisher.PublishResult(pubCtx, res)
}

func (c *Controller) configFor(req *queues.InvestigationRequest) RunConfig {
	cfg := c.defaults
	cfg.Names = req.Names
	if req.Concurrency != nil {
		cfg.Concurrency = *req.Concurrency
	}
	if req.TimeoutMs != nil {
		cfg.Timeout = time.Duration(*req.TimeoutMs) * time.Millisecond
	}
	if req.Retries != nil {
		cfg.Retries = *req.Retries
	}
	if req.MinMatches != nil {
		cfg.MinMatches = *req.MinMatches
	}
	return cfg
}
