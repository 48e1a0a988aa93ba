package consumers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"seatwise/internal/api"
	"seatwise/internal/config"
	"seatwise/internal/metrics"
	"seatwise/internal/models"

	"github.com/nats-io/stan.go"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	cacheQueue     = "cache-evict"
	handlerTimeout = 10 * time.Second
)

// MessageHandler processes one change event. A returned error leaves the
// message unacknowledged for redelivery.
type MessageHandler func(ctx context.Context, subject string, data []byte) error

type ConsumerService struct {
	backends *api.Backends
	handlers *Handlers
	subs     []stan.Subscription
}

func NewConsumerService(ctx context.Context, cfg *config.Config) (*ConsumerService, error) {
	backends, err := api.OpenBackends(ctx, cfg, metrics.New(prometheus.DefaultRegisterer))
	if err != nil {
		return nil, err
	}

	return &ConsumerService{
		backends: backends,
		handlers: NewHandlers(backends.EventCache()),
	}, nil
}

func (cs *ConsumerService) Backends() *api.Backends {
	return cs.backends
}

// Start subscribes the cache evictor to every change subject.
func (cs *ConsumerService) Start() error {
	if cs.backends.NATS == nil {
		slog.Warn("NATS is not connected, change event consumers are not started")
		return nil
	}

	slog.Info("Starting NATS consumers...")
	for _, subject := range models.ChangeSubjects {
		if err := cs.Subscribe(subject, cacheQueue, cs.handlers.HandleChange); err != nil {
			return err
		}
	}

	slog.Info("All consumers started successfully", "subjects", len(models.ChangeSubjects))
	return nil
}

// Subscribe adds a queue subscription with manual acks.
func (cs *ConsumerService) Subscribe(subject, queue string, handler MessageHandler) error {
	if cs.backends.NATS == nil {
		return errors.New("NATS is not connected")
	}

	sub, err := cs.backends.NATS.SubscribeQueue(subject, queue, func(m *stan.Msg) error {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		return handler(ctx, m.Subject, m.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to start consumer for %s: %w", subject, err)
	}
	cs.subs = append(cs.subs, sub)
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	// Close, not Unsubscribe: durable queue state must survive a restart
	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			slog.Warn("Error closing subscription", "error", err)
		}
	}

	return cs.backends.Close()
}
