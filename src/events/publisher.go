package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"stock-insight/src/helpers"
	"stock-insight/src/interfaces"
	"stock-insight/src/logger"
	"stock-insight/src/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"
)

const (
	dialAttempts  = 3
	dialBaseDelay = time.Second
)

// -----------------------------------------------------------------------------

// NewPublisher returns an AMQP publisher when events are enabled, otherwise a
// no-op one. A broker that cannot be reached degrades to no-op with a warning.
func NewPublisher(ctx context.Context, cfg *models.MConfig, log *logger.Logger) interfaces.IEventPublisher {
	if !cfg.Events.Enabled {
		return NoopPublisher{}
	}
	p, err := NewAmqpPublisher(ctx, cfg, log)
	if err != nil {
		log.Warning("Event publishing disabled: %v", err)
		return NoopPublisher{}
	}
	return p
}

// -----------------------------------------------------------------------------
// AmqpPublisher
// -----------------------------------------------------------------------------

type AmqpPublisher struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	mu      sync.Mutex
}

// -----------------------------------------------------------------------------

func NewAmqpPublisher(ctx context.Context, cfg *models.MConfig, log *logger.Logger) (*AmqpPublisher, error) {
	var conn *amqp.Connection
	err := helpers.RetryWithBackoff(ctx, log, "amqp dial", dialAttempts, dialBaseDelay, func() error {
		c, err := amqp.Dial(cfg.Events.AmqpURL)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, helpers.NewNetworkError("connect to broker", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, helpers.NewNetworkError("open amqp channel", err)
	}

	if _, err := ch.QueueDeclare(
		cfg.Events.Queue, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	); err != nil {
		err = multierr.Combine(err, ch.Close(), conn.Close())
		return nil, helpers.NewNetworkError(fmt.Sprintf("declare queue %s", cfg.Events.Queue), err)
	}

	log.Info("Publishing analysis events to queue %s", cfg.Events.Queue)
	return &AmqpPublisher{
		Config:  cfg,
		Logger:  log,
		conn:    conn,
		channel: ch,
		queue:   cfg.Events.Queue,
	}, nil
}

// -----------------------------------------------------------------------------

// Publish sends one event. amqp channels are not safe for concurrent publishing.
func (p *AmqpPublisher) Publish(ctx context.Context, event models.MAnalysisEvent) error {
	msg, err := buildMessage(event, time.Now())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		msg,
	); err != nil {
		return helpers.NewNetworkError(fmt.Sprintf("publish %s", event.Record.ID), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (p *AmqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return multierr.Combine(p.channel.Close(), p.conn.Close())
}

// -----------------------------------------------------------------------------

func buildMessage(event models.MAnalysisEvent, at time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: uuid.NewString(),
		MessageId:     event.Record.ID,
		Type:          event.Type,
		Timestamp:     at.UTC(),
		Headers:       amqp.Table{"ticker": event.Record.Ticker, "origin": event.Record.Origin},
		Body:          body,
	}, nil
}

// -----------------------------------------------------------------------------
// NoopPublisher
// -----------------------------------------------------------------------------

type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event models.MAnalysisEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
