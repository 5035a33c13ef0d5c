package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_RunsHooksInPriorityOrder(t *testing.T) {
	h := NewHandler(nil)
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	h.RegisterFunc("last", PriorityLast, record("last"))
	h.RegisterFunc("live", PriorityLive, record("live"))
	h.Register(HTTPServerHook("http", record("http")))

	require.NoError(t, h.Shutdown())
	assert.Equal(t, []string{"http", "live", "last"}, order)
	assert.True(t, h.IsClosed())
}

func TestHandler_CollectsErrors(t *testing.T) {
	h := NewHandler(nil)
	boom := errors.New("boom")
	ran := false

	h.RegisterFunc("failing", PriorityFirst, func(context.Context) error { return boom })
	h.RegisterFunc("next", PriorityLast, func(context.Context) error {
		ran = true
		return nil
	})

	err := h.Shutdown()
	assert.ErrorIs(t, err, boom)
	assert.True(t, ran, "later hooks still run")
}

func TestHandler_ShutdownTwice(t *testing.T) {
	h := NewHandler(nil)
	require.NoError(t, h.Shutdown())
	assert.ErrorIs(t, h.Shutdown(), ErrAlreadyClosed)
}

func TestHandler_Timeout(t *testing.T) {
	h := NewHandler(&Config{Timeout: 10 * time.Millisecond})
	h.RegisterFunc("slow", PriorityFirst, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	assert.ErrorIs(t, h.Shutdown(), ErrShutdownTimeout)
}

func TestHandler_WaitReturnsOnContextCancel(t *testing.T) {
	h := NewHandler(nil)
	called := make(chan struct{}, 1)
	h.RegisterFunc("hook", PriorityFirst, func(context.Context) error {
		called <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.Wait(ctx))
	select {
	case <-called:
	default:
		t.Fatal("hook did not run")
	}
	select {
	case <-h.Done():
	default:
		t.Fatal("done not closed")
	}
}
