package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokensafe/pkg/requestcontext"
)

type failingSink struct{ calls int }

func (s *failingSink) Append(context.Context, Event) error {
	s.calls++
	return errors.New("broker down")
}

func TestEmitFillsEnvelopeFields(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store)

	ctx := requestcontext.WithRequestID(context.Background(), "req-123")
	err := p.Emit(ctx, Event{Actor: "alice", Action: ActionReportSubmitted, Subject: "token-x"})
	require.NoError(t, err)

	events, err := p.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, "req-123", events[0].RequestID)
	assert.Equal(t, ActionReportSubmitted, events[0].Action)
}

func TestListFiltersByActor(t *testing.T) {
	p := NewPublisher(NewInMemoryStore())
	ctx := context.Background()

	require.NoError(t, p.Emit(ctx, Event{Actor: "alice", Action: ActionRegistryInitialized}))
	require.NoError(t, p.Emit(ctx, Event{Actor: "bob", Action: ActionSubscriptionCreated}))
	require.NoError(t, p.Emit(ctx, Event{Actor: "alice", Action: ActionReportUpdated}))

	events, err := p.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestSinkFailureDoesNotFailEmit(t *testing.T) {
	sink := &failingSink{}
	p := NewPublisher(NewInMemoryStore(),
		WithSink(sink),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	err := p.Emit(context.Background(), Event{Actor: "alice", Action: ActionPricingUpdated})
	require.NoError(t, err)
	assert.Equal(t, 1, sink.calls)

	// The event still reached the store.
	events, err := p.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
