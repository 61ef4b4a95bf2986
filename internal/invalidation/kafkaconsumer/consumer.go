// Package kafkaconsumer subscribes to boundary-update events and evicts the
// affected boundary cache entries.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/udmkit/fishnet/internal/boundary"
	"github.com/udmkit/fishnet/internal/invalidation"
	"github.com/udmkit/fishnet/internal/observability"
)

type Consumer struct {
	cfg    Config
	inv    boundary.Invalidator
	guard  *staleGuard
	logger *zerolog.Logger
}

func New(cfg Config, inv boundary.Invalidator, logger *zerolog.Logger) *Consumer {
	return &Consumer{cfg: cfg, inv: inv, guard: newStaleGuard(0), logger: logger}
}

// Start consumes boundary-update events until ctx is cancelled. Consume
// errors are logged and retried; the loop only returns on shutdown.
func (c *Consumer) Start(ctx context.Context) error {
	if c.inv == nil {
		return errors.New("kafkaconsumer: missing invalidator")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.logger.Info().
		Strs("brokers", c.cfg.Brokers).
		Str("topic", c.cfg.Topic).
		Str("group", c.cfg.GroupID).
		Msg("boundary invalidation consumer starting")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("boundary invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.logger.Error().Err(err).
					Strs("brokers", c.cfg.Brokers).
					Str("topic", c.cfg.Topic).
					Msg("kafka consumer error")
				time.Sleep(2 * time.Second)
			}
		}
	}
}

// ProcessOne handles a single boundary-update message. A message that fails
// to decode or validate is dropped after counting; a failed eviction is
// returned so the claim retries it.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		observability.IncInvalidationError("decode")
		c.logger.Error().Err(err).
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("undecodable invalidation event dropped")
		return nil
	}
	if err := ev.Validate(); err != nil {
		observability.IncInvalidationError("validate")
		c.logger.Error().Err(err).
			Str("op", ev.Op).
			Int64("offset", msg.Offset).
			Msg("invalid invalidation event dropped")
		return nil
	}

	codes := c.guard.freshCodes(ev.Codes, ev.TS.UnixNano())
	if len(codes) == 0 {
		c.logger.Debug().Str("op", ev.Op).Int64("offset", msg.Offset).Msg("stale invalidation event skipped")
		return nil
	}

	if err := c.inv.Invalidate(ctx, codes...); err != nil {
		observability.IncInvalidationError("evict")
		observability.ObserveInvalidation(ev.Op, err)
		return fmt.Errorf("evict %d codes: %w", len(codes), err)
	}

	c.guard.commit(codes, ev.TS.UnixNano())

	observability.ObserveInvalidation(ev.Op, nil)
	c.logger.Info().
		Str("op", ev.Op).
		Strs("codes", codes).
		Msg("boundary cache invalidated")
	return nil
}
