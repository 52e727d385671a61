package worker_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/events"
	"github.com/spec-kit/storefront/internal/worker"
)

func TestDecodeSignal(t *testing.T) {
	sig, err := worker.DecodeSignal(`{"id":"s-1","type":"account_blocked","subject_id":"u-1"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountSignal{ID: "s-1", Type: domain.SignalAccountBlocked, Domain: domain.DomainUser, SubjectID: "u-1"}, sig)

	sig, err = worker.DecodeSignal(`{"type":"vendor_approved","domain":"admin","subject_id":"a-1"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.DomainAdmin, sig.Domain)

	for name, payload := range map[string]string{
		"not json":        `blocked`,
		"missing subject": `{"type":"account_blocked"}`,
		"unknown type":    `{"type":"password_changed","subject_id":"u-1"}`,
		"unknown domain":  `{"type":"account_blocked","domain":"staff","subject_id":"u-1"}`,
	} {
		_, err := worker.DecodeSignal(payload)
		assert.Error(t, err, name)
	}
}

func TestHandleMessagePublishesSignals(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	var got []events.Event
	dispatcher.Subscribe(events.EventAccountSignal, func(_ context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	})

	w := worker.NewSignalWorker(nil, "", dispatcher, zap.NewNop())
	w.HandleMessage(context.Background(), `{"id":"s-1","type":"account_blocked","subject_id":"u-1"}`)
	w.HandleMessage(context.Background(), `{"type":"account_blocked"}`)

	require.Len(t, got, 1)
	assert.Equal(t, "s-1", got[0].ID)
	assert.Equal(t, domain.DomainUser, got[0].Domain)
	assert.Equal(t, domain.SignalAccountBlocked, got[0].Payload.(domain.AccountSignal).Type)
}

func TestRunWithoutClient(t *testing.T) {
	w := worker.NewSignalWorker(nil, "", events.NewInMemoryDispatcher(nil), nil)
	assert.Error(t, w.Run(context.Background()))
}

func TestSignalRoundTripOverRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	channel := "test:" + t.Name()
	dispatcher := events.NewInMemoryDispatcher(nil)
	received := make(chan domain.AccountSignal, 1)
	dispatcher.Subscribe(events.EventAccountSignal, func(_ context.Context, e events.Event) error {
		received <- e.Payload.(domain.AccountSignal)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.NewSignalWorker(client, channel, dispatcher, zap.NewNop()).Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	pub := worker.NewSignalPublisher(client, channel)
	sent := domain.AccountSignal{Type: domain.SignalVendorApproved, Domain: domain.DomainUser, SubjectID: "u-9"}

	// the subscription may not be live yet; publish until it is
	deadline := time.After(5 * time.Second)
	for {
		require.NoError(t, pub.Publish(context.Background(), sent))
		select {
		case sig := <-received:
			assert.Equal(t, "u-9", sig.SubjectID)
			assert.NotEmpty(t, sig.ID)
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("signal not received")
		}
	}
}
