package redisstream

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/metrics"
	"github.com/iho/goescrow/internal/usecase"
)

// Dispatcher executes a decoded command.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd any) error
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Stream   string
	Group    string
	Consumer string
	// BatchSize is the max number of messages read per call.
	BatchSize int64
	// Block is how long XREADGROUP waits for new messages. Negative disables blocking.
	Block time.Duration
	// ClaimMinIdle is how long a message stays pending before another consumer reclaims it.
	ClaimMinIdle time.Duration
}

// Consumer reads commands from a stream as part of a consumer group.
// Delivery is at-least-once: a message is acked after it was handled or
// when it can never succeed.
type Consumer struct {
	client     *redis.Client
	registry   *domain.Registry
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	cfg        ConsumerConfig
}

// NewConsumer creates a new Consumer. m may be nil.
func NewConsumer(client *redis.Client, registry *domain.Registry, dispatcher Dispatcher, m *metrics.Metrics, logger zerolog.Logger, cfg ConsumerConfig) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Block == 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.ClaimMinIdle <= 0 {
		cfg.ClaimMinIdle = time.Minute
	}

	return &Consumer{
		client:     client,
		registry:   registry,
		dispatcher: dispatcher,
		metrics:    m,
		logger: logger.With().
			Str("component", "command-consumer").
			Str("stream", cfg.Stream).
			Str("consumer", cfg.Consumer).
			Logger(),
		cfg: cfg,
	}
}

// EnsureGroup creates the stream and the consumer group if they do not exist.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	c.logger.Info().Str("group", c.cfg.Group).Msg("command consumer started")

	for {
		if _, err := c.ProcessOnce(ctx); err != nil {
			if ctx.Err() != nil {
				c.logger.Info().Msg("command consumer shutting down")
				return ctx.Err()
			}
			c.logger.Error().Err(err).Msg("command consumer read failed")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessOnce reclaims stale pending messages, then reads and handles one
// batch of new ones. It returns the number of messages handled.
func (c *Consumer) ProcessOnce(ctx context.Context) (int, error) {
	handled := 0

	claimed, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  c.cfg.ClaimMinIdle,
		Start:    "0-0",
		Count:    c.cfg.BatchSize,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	for _, msg := range claimed {
		c.handle(ctx, msg)
		handled++
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return handled, nil
		}
		return handled, err
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			c.handle(ctx, msg)
			handled++
		}
	}

	return handled, nil
}

func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) {
	logger := c.logger.With().Str("message_id", msg.ID).Logger()

	env, cmd, err := c.decode(msg)
	if err != nil {
		logger.Error().Err(err).Msg("dropping undecodable command")
		c.observe("unknown", "invalid")
		c.ack(ctx, msg.ID, logger)
		return
	}

	logger = logger.With().
		Str("command", env.EventType).
		Str("command_id", env.EventID).
		Str("correlation_id", env.CorrelationID).
		Logger()

	correlationID := env.CorrelationID
	if correlationID == "" {
		correlationID = env.EventID
	}
	cmdCtx := logger.WithContext(usecase.WithCorrelationID(ctx, correlationID))

	err = c.dispatcher.Dispatch(cmdCtx, cmd)
	switch {
	case err == nil:
		logger.Info().Msg("command handled")
		c.observe(env.EventType, "ok")
		c.ack(ctx, msg.ID, logger)
	case usecase.IsTerminal(err):
		logger.Error().Err(err).Str("kind", string(domain.KindOf(err))).Msg("command failed permanently")
		c.observe(env.EventType, "terminal")
		c.ack(ctx, msg.ID, logger)
	default:
		logger.Warn().Err(err).Msg("command failed, leaving pending for redelivery")
		c.observe(env.EventType, "retry")
	}
}

func (c *Consumer) decode(msg redis.XMessage) (*domain.Envelope, any, error) {
	raw, ok := msg.Values[FieldEnvelope].(string)
	if !ok {
		return nil, nil, domain.NewError(domain.KindInvalidArgument, "message has no %s field", FieldEnvelope)
	}

	var env domain.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, nil, domain.WrapError(domain.KindInvalidArgument, err, "decode envelope")
	}

	cmd, err := c.registry.Decode(env.EventType, env.Payload)
	if err != nil {
		return nil, nil, err
	}

	return &env, cmd, nil
}

func (c *Consumer) ack(ctx context.Context, id string, logger zerolog.Logger) {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		logger.Error().Err(err).Msg("failed to ack command")
	}
}

func (c *Consumer) observe(commandType, outcome string) {
	if c.metrics != nil {
		c.metrics.CommandsConsumed.WithLabelValues(commandType, outcome).Inc()
	}
}
