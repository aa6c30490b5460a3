package pubsub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pokemon-investigator/queues"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
)

type Subscriber struct {
	projectID        string
	subscriptionName string
	credsFile        string
	maxOutstanding   int

	mu     sync.Mutex
	client *gpubsub.Client
	sub    *gpubsub.Subscription
}

// NewSubscriber builds a subscriber that hands at most maxOutstanding runs to
// the handler at once. maxOutstanding < 1 means one.
func NewSubscriber(projectID, subscriptionName, credsFile string, maxOutstanding int) *Subscriber {
	if maxOutstanding < 1 {
		maxOutstanding = 1
	}
	return &Subscriber{projectID: projectID, subscriptionName: subscriptionName, credsFile: credsFile, maxOutstanding: maxOutstanding}
}

// subscription creates the client on first use and applies the receive
// settings.
func (s *Subscriber) subscription(ctx context.Context) (*gpubsub.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		client, err := newClient(ctx, s.projectID, s.credsFile)
		if err != nil {
			log.Error().Err(err).Str("projectID", s.projectID).Str("subscription", s.subscriptionName).Msg("failed to create pubsub client for subscriber")
			return nil, err
		}
		s.client = client
		s.sub = client.Subscription(s.subscriptionName)
		log.Info().Str("subscription", s.subscriptionName).Msg("pubsub subscriber initialized")
	}
	// Runs are long and fan out their own HTTP calls; keep the number in flight small.
	s.sub.ReceiveSettings.MaxOutstandingMessages = s.maxOutstanding
	s.sub.ReceiveSettings.NumGoroutines = 1
	return s.sub, nil
}

// Start blocks until ctx is done or receiving fails. It returns only after
// every handler it started has returned.
func (s *Subscriber) Start(ctx context.Context, handler func(context.Context, *queues.InvestigationRequest) error) error {
	sub, err := s.subscription(ctx)
	if err != nil {
		return err
	}

	// Receive blocks; it will create goroutines internally; respect ctx cancellation
	return sub.Receive(ctx, func(ctx context.Context, m *gpubsub.Message) {
		log.Debug().Str("messageID", m.ID).Int("size", len(m.Data)).Msg("received pubsub message")
		recvAt := time.Now()
		var req queues.InvestigationRequest
		if err := json.Unmarshal(m.Data, &req); err != nil {
			log.Error().Err(err).Str("messageID", m.ID).Msg("failed to unmarshal investigation request")
			// Ack to drop bad message (poison)
			m.Ack()
			return
		}
		if req.RequestID == "" || len(req.Names) == 0 {
			log.Error().Str("requestId", req.RequestID).Int("names", len(req.Names)).Msg("invalid request payload")
			m.Ack()
			return
		}

		log.Info().Str("requestId", req.RequestID).Int("names", len(req.Names)).Msg("handling investigation request")
		if err := handler(ctx, &req); err != nil {
			log.Error().Err(err).Str("requestId", req.RequestID).Msg("handler failed; will retry")
			m.Nack()
			return
		}
		log.Debug().Str("requestId", req.RequestID).Dur("latency", time.Since(recvAt)).Msg("handler succeeded; acking message")
		m.Ack()
	})
}

// Close releases the underlying client.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client, s.sub = nil, nil
	return err
}
