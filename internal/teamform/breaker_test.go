package teamform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendapay/teamwizard/pkg/retry"
)

func TestBreakerSender_PassesThrough(t *testing.T) {
	s := NewBreakerSender(&captureSender{}, BreakerConfig{}, nil)
	require.NoError(t, s.Send(context.Background(), Registration{}))
	assert.Equal(t, gobreaker.StateClosed, s.State())
}

func TestBreakerSender_OpensAfterFailures(t *testing.T) {
	inner := &captureSender{err: errors.New("sink down")}
	s := NewBreakerSender(inner, BreakerConfig{MaxFailures: 2, Timeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		err := s.Send(context.Background(), Registration{})
		require.Error(t, err)
		assert.False(t, retry.IsPermanent(err))
	}
	assert.Equal(t, gobreaker.StateOpen, s.State())

	err := s.Send(context.Background(), Registration{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, retry.IsPermanent(err))
	assert.Len(t, inner.regs, 2, "an open circuit does not reach the sink")
}

func TestBreakerSender_RejectionsDoNotTrip(t *testing.T) {
	inner := &captureSender{err: retry.Permanent(errors.New("duplicate username"))}
	s := NewBreakerSender(inner, BreakerConfig{MaxFailures: 1}, nil)

	for i := 0; i < 3; i++ {
		assert.Error(t, s.Send(context.Background(), Registration{}))
	}
	assert.Equal(t, gobreaker.StateClosed, s.State())
	assert.Len(t, inner.regs, 3)
}

func TestBreakerSender_HalfOpenTrial(t *testing.T) {
	inner := &captureSender{err: errors.New("sink down")}
	s := NewBreakerSender(inner, BreakerConfig{MaxFailures: 1, Timeout: 20 * time.Millisecond}, nil)

	require.Error(t, s.Send(context.Background(), Registration{}))
	require.Equal(t, gobreaker.StateOpen, s.State())

	inner.err = nil
	require.Eventually(t, func() bool {
		return s.State() == gobreaker.StateHalfOpen
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Send(context.Background(), Registration{}))
	assert.Equal(t, gobreaker.StateClosed, s.State())
}

func TestDeliveryChain_StopsRetryingWhenOpen(t *testing.T) {
	inner := &captureSender{err: errors.New("sink down")}
	chain := DeliveryChain(inner, fastRetry(5), BreakerConfig{MaxFailures: 2, Timeout: time.Minute}, nil)

	err := chain.Send(context.Background(), Registration{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Len(t, inner.regs, 2)
}
