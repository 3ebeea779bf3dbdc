package cache

import (
	"context"
	"fmt"
	"io"

	"github.com/erp/payables/internal/domain/payables"
	"github.com/erp/payables/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ReservationStore is a check number reservation store that owns resources
type ReservationStore interface {
	payables.CheckNumberReservationStore
	io.Closer
}

// ReservationStoreFactory creates reservation stores based on configuration
type ReservationStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ReservationStoreFactoryOption is a functional option for configuring the factory
type ReservationStoreFactoryOption func(*ReservationStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ReservationStoreFactoryOption {
	return func(f *ReservationStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store
// when Redis is unavailable. Default is true
func WithInMemoryFallback(allow bool) ReservationStoreFactoryOption {
	return func(f *ReservationStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewReservationStoreFactory creates a new factory
func NewReservationStoreFactory(cfg config.RedisConfig, opts ...ReservationStoreFactoryOption) *ReservationStoreFactory {
	f := &ReservationStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-based reservation store
func (f *ReservationStoreFactory) CreateRedisStore(ctx context.Context) (ReservationStore, error) {
	store, err := NewRedisReservationStore(ctx, RedisConfig{
		Addr:      f.redisConfig.Addr(),
		Password:  f.redisConfig.Password,
		DB:        f.redisConfig.DB,
		KeyPrefix: f.redisConfig.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis reservation store: %w", err)
	}
	return store, nil
}

// CreateInMemoryStore creates an in-memory reservation store.
// In-memory claims are not visible to planners in other processes
func (f *ReservationStoreFactory) CreateInMemoryStore() ReservationStore {
	return NewInMemoryReservationStore()
}

// CreateStore tries Redis first and falls back to in-memory when Redis is
// not available and fallback is allowed
func (f *ReservationStoreFactory) CreateStore(ctx context.Context) (ReservationStore, error) {
	store, err := f.CreateRedisStore(ctx)
	if err == nil {
		f.logger.Info("using Redis check number reservation store",
			zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for check number reservation but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory check number reservation. "+
		"Concurrent check runs on other hosts will not see these reservations.",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
