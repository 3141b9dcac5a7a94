package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBus_Publish(t *testing.T) {
	bus := NewBus(zap.NewNop())
	rec := NewRecorder(0)
	bus.Subscribe(rec, TypeAPIError)

	e := NewAPIError("Invalid year", "/api/v1/map", 400, "req-1")
	require.NoError(t, bus.Publish(context.Background(), e))

	got := rec.Events()
	require.Len(t, got, 1)
	assert.Equal(t, "Invalid year", got[0].Message)
	assert.Equal(t, TypeAPIError, got[0].Type)
	assert.Equal(t, 400, got[0].StatusCode)
	assert.NotEqual(t, uuid.Nil, got[0].ID)
}

func TestBus_Publish_TypeFiltering(t *testing.T) {
	bus := NewBus(nil)
	apiErrors := NewRecorder(0)
	other := NewRecorder(0)
	all := NewRecorder(0)

	bus.Subscribe(apiErrors, TypeAPIError)
	bus.Subscribe(other, "deploy.step")
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(),
		NewAPIError("boom", "/x", 500, ""),
		Event{Type: "deploy.step", Message: "nginx reloaded"},
	))

	assert.Len(t, apiErrors.Events(), 1)
	assert.Len(t, other.Events(), 1)
	assert.Len(t, all.Events(), 2)
	assert.Equal(t, 3, bus.Subscribers())
}

func TestBus_Subscribe_UsesHandlerTypes(t *testing.T) {
	bus := NewBus(nil)
	rec := NewRecorder(0, "deploy.step")
	bus.Subscribe(rec)

	require.NoError(t, bus.Publish(context.Background(), NewAPIError("ignored", "", 0, "")))
	assert.Empty(t, rec.Events())

	require.NoError(t, bus.Publish(context.Background(), Event{Type: "deploy.step"}))
	assert.Len(t, rec.Events(), 1)
}

func TestBus_HandlerErrorsAreIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewBus(zap.New(core))

	failing := HandlerFunc(func(context.Context, Event) error {
		return errors.New("toast renderer offline")
	})
	panicking := HandlerFunc(func(context.Context, Event) error {
		panic("nil toast")
	})
	rec := NewRecorder(0)

	bus.Subscribe(failing, TypeAPIError)
	bus.Subscribe(panicking, TypeAPIError)
	bus.Subscribe(rec, TypeAPIError)

	err := bus.Publish(context.Background(), NewAPIError("still delivered", "", 0, ""))
	require.NoError(t, err)

	assert.Len(t, rec.Events(), 1)
	assert.Equal(t, 1, logs.FilterMessage("notification handler failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("notification handler panicked").Len())
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)
	rec := NewRecorder(0)
	bus.Subscribe(rec, TypeAPIError, "deploy.step")
	bus.Unsubscribe(rec)

	require.NoError(t, bus.Publish(context.Background(), NewAPIError("gone", "", 0, "")))
	assert.Empty(t, rec.Events())
	assert.Equal(t, 0, bus.Subscribers())
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)
	rec := NewRecorder(0)
	bus.Subscribe(rec)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.Publish(context.Background(), NewAPIError("x", "", 0, ""))
		}()
	}
	wg.Wait()

	assert.Len(t, rec.Events(), 20)
}

func TestRecorder_Limit(t *testing.T) {
	rec := NewRecorder(2)
	ctx := context.Background()

	_, ok := rec.Last()
	assert.False(t, ok)

	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, rec.Handle(ctx, Event{Message: msg}))
	}

	got := rec.Events()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Message)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, "c", last.Message)

	rec.Reset()
	assert.Empty(t, rec.Events())
}
