package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	domevent "github.com/freshfields/bulkorder/internal/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestBus_PublishAndFanout(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(nil)
	bus.Start(ctx)
	defer bus.Stop(ctx)

	received := make(chan domevent.Event, 1)
	bus.Subscribe("order.placed", func(ctx context.Context, e domevent.Event) error {
		received <- e
		return nil
	})

	require.NoError(t, bus.Publish(ctx, testEvent{name: "order.placed"}))

	select {
	case e := <-received:
		assert.Equal(t, "order.placed", e.EventName())
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestBus_PublishAfterStop(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(nil)
	bus.Start(ctx)
	bus.Stop(ctx)

	assert.ErrorIs(t, bus.Publish(ctx, testEvent{name: "order.placed"}), ErrClosed)
}

func TestBus_StopDuringConcurrentPublish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus := NewBus(nil)
	bus.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				// either enqueued or refused with ErrClosed; never a panic
				err := bus.Publish(ctx, testEvent{name: "order.placed"})
				if err != nil {
					assert.ErrorIs(t, err, ErrClosed)
					return
				}
			}
		}()
	}

	bus.Stop(ctx)
	wg.Wait()
}
