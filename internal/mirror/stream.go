package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lumenbank/transfers/internal/domain/transaction"
	"github.com/lumenbank/transfers/internal/infrastructure/observability"
	redisinfra "github.com/lumenbank/transfers/internal/infrastructure/redis"
)

const eventTransactionCompleted = "transaction.completed"

const (
	// staleClaimInterval is how often the syncer sweeps for messages other
	// consumers left pending.
	staleClaimInterval = time.Minute
	staleClaimMinIdle  = time.Minute
)

// EventPublisher pushes completed-transfer transaction records onto the
// transfer stream so worker instances can sync their mirrors.
type EventPublisher struct {
	producer *redisinfra.StreamProducer
}

func NewEventPublisher(producer *redisinfra.StreamProducer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishTransferCompleted emits one stream event per transaction record.
func (p *EventPublisher) PublishTransferCompleted(ctx context.Context, records []*transaction.Transaction) error {
	for _, tx := range records {
		transferID := tx.ID.String()
		if tx.TransferID != nil {
			transferID = tx.TransferID.String()
		}
		if err := p.producer.PublishTransferEvent(ctx, transferID, eventTransactionCompleted, NewRecord(tx)); err != nil {
			return fmt.Errorf("publish record %s: %w", tx.ID, err)
		}
	}
	return nil
}

// Syncer consumes the transfer stream and applies each transaction record to
// the local mirror. Malformed messages go to the DLQ and are acked; mirror
// write failures leave the message pending for redelivery.
type Syncer struct {
	consumer *redisinfra.StreamConsumer
	producer *redisinfra.StreamProducer
	mirror   *Mirror
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// NewSyncer creates a Syncer. metrics may be nil.
func NewSyncer(consumer *redisinfra.StreamConsumer, producer *redisinfra.StreamProducer, m *Mirror, metrics *observability.Metrics, logger zerolog.Logger) *Syncer {
	return &Syncer{
		consumer: consumer,
		producer: producer,
		mirror:   m,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, reading batches and applying them.
func (s *Syncer) Run(ctx context.Context) error {
	if err := s.consumer.CreateGroup(ctx); err != nil {
		return err
	}

	s.logger.Info().Str("stream", s.consumer.Stream()).Msg("mirror syncer started")

	nextClaim := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("mirror syncer stopping")
			return ctx.Err()
		default:
		}

		if time.Now().After(nextClaim) {
			s.claimStale(ctx)
			nextClaim = time.Now().Add(staleClaimInterval)
		}

		streams, err := s.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error().Err(err).Msg("failed to read transfer stream")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				s.handleMessage(ctx, msg)
			}
		}
	}
}

func (s *Syncer) handleMessage(ctx context.Context, msg goredis.XMessage) {
	start := time.Now()
	streamName := s.consumer.Stream()

	payload, ok := msg.Values["payload"].(string)
	if !ok {
		s.park(ctx, msg, "missing payload")
		s.countMessage(streamName, "malformed")
		return
	}

	tx, err := decodeRecord(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("undecodable transfer event")
		s.park(ctx, msg, err.Error())
		s.countMessage(streamName, "malformed")
		return
	}

	if err := s.mirror.AppendTransaction(ctx, tx); err != nil {
		// Leave unacked; the pending-entries list redelivers it.
		s.logger.Error().Err(err).Str("message_id", msg.ID).Msg("mirror write failed, will retry")
		s.countMessage(streamName, "retry")
		return
	}

	if err := s.consumer.Ack(ctx, msg.ID); err != nil {
		s.logger.Error().Err(err).Str("message_id", msg.ID).Msg("failed to ack message")
	}

	s.countMessage(streamName, "ok")
	if s.metrics != nil {
		s.metrics.WorkerProcessingDuration.WithLabelValues(streamName).Observe(time.Since(start).Seconds())
	}
}

// claimStale adopts messages a dead consumer left pending and runs them
// through the normal handler.
func (s *Syncer) claimStale(ctx context.Context) {
	msgs, err := s.consumer.ClaimStale(ctx, staleClaimMinIdle, 100)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("failed to claim stale messages")
		}
		return
	}
	for _, msg := range msgs {
		s.handleMessage(ctx, msg)
	}
}

func (s *Syncer) park(ctx context.Context, msg goredis.XMessage, reason string) {
	transferID, _ := msg.Values["transfer_id"].(string)
	if err := s.producer.PublishToDLQ(ctx, transferID, reason, msg.Values); err != nil {
		s.logger.Error().Err(err).Str("message_id", msg.ID).Msg("failed to publish to DLQ")
		return
	}
	if err := s.consumer.Ack(ctx, msg.ID); err != nil {
		s.logger.Error().Err(err).Str("message_id", msg.ID).Msg("failed to ack parked message")
	}
}

func (s *Syncer) countMessage(stream, status string) {
	if s.metrics != nil {
		s.metrics.WorkerMessagesProcessed.WithLabelValues(stream, status).Inc()
	}
}

func decodeRecord(payload string) (*transaction.Transaction, error) {
	var rec Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec.Transaction()
}
