package teamform

import (
	"context"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vendapay/teamwizard/pkg/logging"
	"github.com/vendapay/teamwizard/pkg/retry"
)

// Registration is a completed team member form. Secret fields are never
// part of Values.
type Registration struct {
	ID          string
	Values      map[string]string
	SubmittedAt time.Time
}

// NewRegistration stamps values with a sortable id and the current time.
func NewRegistration(values map[string]string) Registration {
	now := time.Now()
	return Registration{
		ID:          newRegistrationID(now),
		Values:      values,
		SubmittedAt: now,
	}
}

func newRegistrationID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

// Sender receives completed registrations.
type Sender interface {
	Send(ctx context.Context, reg Registration) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, reg Registration) error

func (f SenderFunc) Send(ctx context.Context, reg Registration) error {
	return f(ctx, reg)
}

// LogSender logs registrations instead of delivering them anywhere.
type LogSender struct {
	Logger logging.Logger
}

// Send logs the registration. Only the username and user type are logged
// as values; the other fields are listed by name.
func (s LogSender) Send(ctx context.Context, reg Registration) error {
	logger := s.Logger
	if logger == nil {
		logger = logging.L(ctx)
	}

	names := make([]string, 0, len(reg.Values))
	for name := range reg.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	logger.Info("team member registered",
		logging.String("registration_id", reg.ID),
		logging.String("username", reg.Values["username"]),
		logging.String("user_type", reg.Values["user_type"]),
		logging.Strings("fields", names),
	)
	return nil
}

// RetrySender retries a failing Sender with exponential backoff.
type RetrySender struct {
	Next   Sender
	Config *retry.Config
	Logger logging.Logger
}

// NewRetrySender wraps next. A nil config uses retry.DefaultConfig.
func NewRetrySender(next Sender, cfg *retry.Config, logger logging.Logger) *RetrySender {
	if cfg == nil {
		cfg = retry.DefaultConfig()
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &RetrySender{Next: next, Config: cfg, Logger: logger}
}

// Send delivers reg, retrying until the attempts run out or ctx is done.
// Errors wrapped with retry.Permanent are returned at once.
func (s *RetrySender) Send(ctx context.Context, reg Registration) error {
	cfg := *s.Config
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		s.Logger.Warn("retrying registration",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Err(err),
		)
	}
	return retry.Do(ctx, &cfg, func(ctx context.Context) error {
		return s.Next.Send(ctx, reg)
	})
}
