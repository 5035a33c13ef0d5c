package teamform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/vendapay/teamwizard/pkg/logging"
	"github.com/vendapay/teamwizard/pkg/retry"
)

// Default breaker settings.
const (
	defaultBreakerFailures uint32        = 5
	defaultBreakerTimeout  time.Duration = 30 * time.Second
)

// BreakerConfig configures BreakerSender.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before one trial request is let through.
	Timeout time.Duration
}

// BreakerSender stops calling a failing Sender for a while. Errors marked
// with retry.Permanent are rejections, not outages, and do not count as
// failures.
type BreakerSender struct {
	next    Sender
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerSender wraps next. Zero config values use the defaults.
func NewBreakerSender(next Sender, cfg BreakerConfig, logger logging.Logger) *BreakerSender {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = defaultBreakerFailures
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultBreakerTimeout
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "registrations",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || retry.IsPermanent(err)
		},
	})
	return &BreakerSender{next: next, breaker: cb}
}

// Send delivers reg unless the circuit is open. An open circuit is reported
// as a permanent error so a RetrySender in front gives up at once.
func (s *BreakerSender) Send(ctx context.Context, reg Registration) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.next.Send(ctx, reg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return retry.Permanent(fmt.Errorf("registration sink circuit open: %w", err))
	}
	return err
}

// State returns the breaker state for monitoring.
func (s *BreakerSender) State() gobreaker.State {
	return s.breaker.State()
}

// DeliveryChain builds the sender used by the commands: retries in front of
// a circuit breaker in front of next.
func DeliveryChain(next Sender, retryCfg *retry.Config, breakerCfg BreakerConfig, logger logging.Logger) Sender {
	return NewRetrySender(NewBreakerSender(next, breakerCfg, logger), retryCfg, logger)
}
