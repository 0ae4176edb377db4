package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/dispo-backend/pkg/config"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/dispo-backend/pkg/redis"
)

const heartbeatInterval = 30 * time.Second

type pinger interface {
	Ping(context.Context) error
}

type runner interface {
	Run(context.Context) error
}

type ServiceParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       pinger
	Redis    pinger
	PubSub   pinger
	Consumer runner
	// RedisStats is optional; when set, heartbeats carry the pool counters.
	RedisStats func() pkgredis.PoolStats
}

type Service struct {
	cfg      *config.Config
	logg     *logger.Logger
	db       pinger
	redis    pinger
	pubsub   pinger
	consumer runner
	stats    func() pkgredis.PoolStats
}

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
		return nil, errors.New("transaction consumer is required")
	}

	return &Service{
		cfg:      params.Config,
		logg:     params.Logger,
		db:       params.DB,
		redis:    params.Redis,
		pubsub:   params.PubSub,
		consumer: params.Consumer,
		stats:    params.RedisStats,
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
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// Run blocks until the consumer stops or ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.consumer.Run(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "consumer stopped unexpectedly", err)
			}
			return err
		case <-ticker.C:
			s.heartbeat(ctx)
		}
	}
}

func (s *Service) heartbeat(ctx context.Context) {
	if s.stats != nil {
		stats := s.stats()
		ctx = s.logg.WithFields(ctx, map[string]any{
			"redis_total_conns": stats.TotalConns,
			"redis_idle_conns":  stats.IdleConns,
			"redis_timeouts":    stats.Timeouts,
		})
	}
	s.logg.Debug(ctx, "worker.heartbeat")
}
