package core

import (
	"time"

	"go.uber.org/zap"
)

type serviceConfig struct {
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures the services in this package.
type Option func(*serviceConfig)

// WithPublisher sets where committed changes are announced. Default: NopPublisher.
func WithPublisher(p Publisher) Option {
	return func(c *serviceConfig) {
		if p != nil {
			c.publisher = p
		}
	}
}

// WithLogger sets the service logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(c *serviceConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides time.Now; tests use it to drive scheduled transfers.
func WithClock(now func() time.Time) Option {
	return func(c *serviceConfig) {
		if now != nil {
			c.now = now
		}
	}
}

func newServiceConfig(opts []Option) serviceConfig {
	c := serviceConfig{
		publisher: NopPublisher{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
