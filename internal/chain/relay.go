package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/btube/btube-backend-go/internal/config"
	"github.com/btube/btube-backend-go/pkg/logger"
)

// Relay drains the chain event queue and forwards each event to the contract
// submitter over HTTP. Failed deliveries are requeued once; a redelivered
// event that fails again is dropped so a broken submitter cannot wedge the
// queue.
type Relay struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	config     *config.ChainConfig
	httpClient *http.Client
}

// NewRelay connects to the broker and prepares the consumer channel.
func NewRelay(cfg *config.ChainConfig) (*Relay, error) {
	conn, err := amqp.Dial(cfg.AMQPURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// One unacked event at a time keeps submission ordered per relay.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	return &Relay{
		conn:       conn,
		channel:    ch,
		config:     cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Run consumes events until the context is cancelled or the broker connection
// drops.
func (r *Relay) Run(ctx context.Context) error {
	deliveries, err := r.channel.ConsumeWithContext(
		ctx,
		r.config.Queue, // queue
		"chainrelay",   // consumer tag
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	logger.Log.Info("Relaying chain events",
		zap.String("queue", r.config.Queue),
		zap.String("submitter", r.config.SubmitterURL),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			r.handle(ctx, delivery)
		}
	}
}

func (r *Relay) handle(ctx context.Context, delivery amqp.Delivery) {
	var event Event
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		logger.Log.Warn("Dropping malformed chain event", zap.Error(err))
		_ = delivery.Nack(false, false)
		return
	}

	if err := r.submit(ctx, delivery.Body); err != nil {
		if delivery.Redelivered {
			logger.Log.Error("Dropping chain event after retry",
				zap.String("eventId", event.ID.String()),
				zap.String("type", string(event.Type)),
				zap.Error(err),
			)
			_ = delivery.Nack(false, false)
			return
		}

		logger.Log.Warn("Submitter rejected chain event, requeueing",
			zap.String("eventId", event.ID.String()),
			zap.Error(err),
		)
		_ = delivery.Nack(false, true)
		return
	}

	logger.Log.Info("Relayed chain event",
		zap.String("eventId", event.ID.String()),
		zap.String("type", string(event.Type)),
		zap.String("videoCid", event.VideoCID),
	)
	_ = delivery.Ack(false)
}

func (r *Relay) submit(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.SubmitterURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create submitter request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call submitter: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("submitter returned status %d", resp.StatusCode)
	}

	return nil
}

// Close shuts down the consumer channel and connection.
func (r *Relay) Close() error {
	var errs []error
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing relay: %v", errs)
	}

	return nil
}
