package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/cipherstake/staking-ledger/consumer"
	"github.com/cipherstake/staking-ledger/internal/config"
)

const (
	DepositQueueName  = "staking_deposits"
	WithdrawQueueName = "staking_withdrawals"
)

// QueueManager publishes ledger events to RabbitMQ. Queues are durable and
// messages persistent; the channel runs in confirm mode so a successful push
// means the broker accepted the message.
type QueueManager struct {
	cfg  *config.QueueConfig
	conn *amqp.Connection

	// amqp channels are not safe for concurrent publishes
	mu sync.Mutex
	ch *amqp.Channel
}

func NewQueueManager(cfg *config.QueueConfig) (*QueueManager, error) {
	conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s/", cfg.User, cfg.Password, cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("failed to put channel in confirm mode: %w", err)
	}

	return &QueueManager{
		cfg:  cfg,
		conn: conn,
		ch:   ch,
	}, nil
}

func (qm *QueueManager) Start() error {
	for _, name := range []string{DepositQueueName, WithdrawQueueName} {
		_, err := qm.ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	return nil
}

func (qm *QueueManager) PushDepositEvent(ctx context.Context, ev *consumer.StakingEvent) error {
	return qm.publish(ctx, DepositQueueName, ev)
}

func (qm *QueueManager) PushWithdrawEvent(ctx context.Context, ev *consumer.StakingEvent) error {
	return qm.publish(ctx, WithdrawQueueName, ev)
}

func (qm *QueueManager) publish(ctx context.Context, queueName string, ev *consumer.StakingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal staking event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, qm.cfg.PublishTimeout)
	defer cancel()

	qm.mu.Lock()
	confirmation, err := qm.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		"", // default exchange
		queueName,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	qm.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queueName, err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to confirm publish to %s: %w", queueName, err)
	}
	if !acked {
		return fmt.Errorf("publish to %s was nacked by the broker", queueName)
	}

	return nil
}

// Stop gracefully stops the interaction with the queue, ensuring all
// resources are properly released.
func (qm *QueueManager) Stop() error {
	log.Info().Msg("Shutting down queue manager")

	if err := qm.ch.Close(); err != nil {
		return fmt.Errorf("failed to close channel: %w", err)
	}
	if err := qm.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	return nil
}
