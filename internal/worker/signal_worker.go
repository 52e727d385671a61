package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/events"
)

// DefaultSignalsChannel is the Redis channel carrying account signals.
const DefaultSignalsChannel = "storefront:account-signals"

// SignalWorker relays account signals from Redis onto the event dispatcher.
type SignalWorker struct {
	client     *redis.Client
	channel    string
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewSignalWorker creates the worker.
func NewSignalWorker(client *redis.Client, channel string, dispatcher events.Dispatcher, logger *zap.Logger) *SignalWorker {
	if channel == "" {
		channel = DefaultSignalsChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalWorker{
		client:     client,
		channel:    channel,
		dispatcher: dispatcher,
		logger:     logger.Named("signals"),
	}
}

// Run consumes the channel until ctx is cancelled. go-redis re-subscribes on
// dropped connections.
func (w *SignalWorker) Run(ctx context.Context) error {
	if w.client == nil || w.dispatcher == nil {
		return errors.New("signal worker not configured")
	}

	sub := w.client.Subscribe(ctx, w.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", w.channel, err)
	}
	w.logger.Info("listening for account signals", zap.String("channel", w.channel))

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			w.HandleMessage(ctx, msg.Payload)
		}
	}
}

// HandleMessage decodes one payload and publishes it. Malformed payloads are logged and dropped.
func (w *SignalWorker) HandleMessage(ctx context.Context, payload string) {
	sig, err := DecodeSignal(payload)
	if err != nil {
		w.logger.Warn("dropping malformed account signal", zap.Error(err))
		return
	}

	w.logger.Info("account signal",
		zap.String("id", sig.ID),
		zap.String("type", string(sig.Type)),
		zap.String("domain", string(sig.Domain)),
		zap.String("subject", sig.SubjectID),
	)
	_ = w.dispatcher.Publish(ctx, events.Event{
		ID:        sig.ID,
		Type:      events.EventAccountSignal,
		Domain:    sig.Domain,
		Timestamp: time.Now().UTC(),
		Payload:   sig,
	})
}

// DecodeSignal parses a signal payload. The domain defaults to user.
func DecodeSignal(payload string) (domain.AccountSignal, error) {
	var sig domain.AccountSignal
	if err := json.Unmarshal([]byte(payload), &sig); err != nil {
		return sig, fmt.Errorf("decode signal: %w", err)
	}
	if sig.SubjectID == "" {
		return sig, errors.New("decode signal: missing subject_id")
	}
	switch sig.Type {
	case domain.SignalAccountBlocked, domain.SignalVendorApproved, domain.SignalVendorRevoked:
	default:
		return sig, fmt.Errorf("decode signal: unknown type %q", sig.Type)
	}
	if sig.Domain == "" {
		sig.Domain = domain.DomainUser
	}
	if !sig.Domain.Valid() {
		return sig, fmt.Errorf("decode signal: unknown domain %q", sig.Domain)
	}
	return sig, nil
}

// SignalPublisher emits account signals on the Redis channel.
type SignalPublisher struct {
	client  redis.Cmdable
	channel string
}

// NewSignalPublisher creates a publisher.
func NewSignalPublisher(client redis.Cmdable, channel string) *SignalPublisher {
	if channel == "" {
		channel = DefaultSignalsChannel
	}
	return &SignalPublisher{client: client, channel: channel}
}

// Publish sends sig, assigning an id when missing.
func (p *SignalPublisher) Publish(ctx context.Context, sig domain.AccountSignal) error {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	body, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, body).Err()
}
