package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversInOrder(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var got []string

	d.Subscribe(EventSessionChanged, func(_ context.Context, e Event) error {
		got = append(got, "first:"+string(e.Domain))
		return nil
	})
	d.Subscribe(EventSessionChanged, func(_ context.Context, e Event) error {
		got = append(got, "second:"+string(e.Domain))
		return nil
	})
	d.Subscribe(EventAccountSignal, func(context.Context, Event) error {
		got = append(got, "signal")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventSessionChanged, Domain: "user"}))
	assert.Equal(t, []string{"first:user", "second:user"}, got)
}

func TestDispatcherUnsubscribe(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	calls := 0
	unsubscribe := d.Subscribe(EventSessionChanged, func(context.Context, Event) error {
		calls++
		return nil
	})

	_ = d.Publish(context.Background(), Event{Type: EventSessionChanged})
	unsubscribe()
	unsubscribe()
	_ = d.Publish(context.Background(), Event{Type: EventSessionChanged})

	assert.Equal(t, 1, calls)
}

func TestDispatcherReportsHandlerErrors(t *testing.T) {
	var reported []error
	d := NewInMemoryDispatcher(func(_ Event, err error) { reported = append(reported, err) })
	delivered := false

	d.Subscribe(EventSessionChanged, func(context.Context, Event) error { return errors.New("listener failed") })
	d.Subscribe(EventSessionChanged, func(_ context.Context, e Event) error {
		delivered = e.ID != ""
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventSessionChanged}))
	assert.True(t, delivered)
	assert.Len(t, reported, 1)
}
