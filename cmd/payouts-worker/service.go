package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/brightlens-media/payouts-backend/pkg/config"
	"github.com/brightlens-media/payouts-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

type runner interface {
	Run(ctx context.Context) error
}

// ServiceParams configure the payouts worker.
type ServiceParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       pinger
	Redis    pinger
	PubSub   pinger
	Consumer runner
	Sweeper  runner
}

// Service runs the payout event consumer and the stuck-lock sweeper side by
// side until either stops or the context is canceled.
type Service struct {
	cfg      *config.Config
	logg     *logger.Logger
	db       pinger
	redis    pinger
	pubsub   pinger
	consumer runner
	sweeper  runner
}

// NewService validates dependencies and builds the worker.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("payouts consumer is required")
	}
	if params.Sweeper == nil {
		return nil, errors.New("sweeper service is required")
	}
	return &Service{
		cfg:      params.Config,
		logg:     params.Logger,
		db:       params.DB,
		redis:    params.Redis,
		pubsub:   params.PubSub,
		consumer: params.Consumer,
		sweeper:  params.Sweeper,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// Run blocks until the consumer or sweeper stops, then tears the other down.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.consumer.Run(ctx)
	}()
	go func() {
		errCh <- s.sweeper.Run(ctx)
	}()

	err := <-errCh
	cancel()
	<-errCh
	return err
}
