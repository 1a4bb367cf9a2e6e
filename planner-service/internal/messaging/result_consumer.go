package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	sharedMessaging "ganita-server/shared/messaging"
)

// ResultHandler обрабатывает уведомление о завершении рендера.
type ResultHandler interface {
	HandleRenderResult(ctx context.Context, payload sharedMessaging.RenderResultPayload)
}

// ResultConsumer получает уведомления о завершении рендеров и передаёт
// их обработчику (тот будит ожидающих в реестре задач в полёте).
type ResultConsumer struct {
	conn    *amqp091.Connection
	handler ResultHandler
	logger  *zap.Logger
	done    chan struct{}
	channel *amqp091.Channel
}

func NewResultConsumer(conn *amqp091.Connection, handler ResultHandler, logger *zap.Logger) *ResultConsumer {
	if logger == nil {
		panic("Logger is nil for ResultConsumer")
	}
	return &ResultConsumer{
		conn:    conn,
		handler: handler,
		logger:  logger.Named("RenderResultConsumer"),
		done:    make(chan struct{}),
	}
}

// Start начинает потребление уведомлений из очереди результатов.
func (c *ResultConsumer) Start(ctx context.Context) error {
	var err error
	c.channel, err = c.conn.Channel()
	if err != nil {
		c.logger.Error("Failed to open channel for result consumer", zap.Error(err))
		return fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := c.channel.QueueDeclare(
		sharedMessaging.RenderResultQueueName, // name
		true,                                  // durable
		false,                                 // delete when unused
		false,                                 // exclusive
		false,                                 // no-wait
		nil,                                   // arguments
	)
	if err != nil {
		_ = c.channel.Close()
		c.logger.Error("Failed to declare render result queue", zap.Error(err), zap.String("queue", sharedMessaging.RenderResultQueueName))
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	// auto-ack: уведомление дублирует состояние кэша, потеря не критична —
	// ожидающие в худшем случае дождутся таймаута и перечитают кэш
	msgs, err := c.channel.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		_ = c.channel.Close()
		c.logger.Error("Failed to register result consumer", zap.Error(err), zap.String("queue", q.Name))
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Render result consumer started, waiting for notifications...")

	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Panic recovered in result consumer goroutine", zap.Any("panic", r))
			}
			c.logger.Info("Result consumer goroutine stopping...")
			close(c.done)
			if c.channel != nil {
				_ = c.channel.Close()
			}
		}()

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Info("Result consumer channel closed, exiting goroutine.")
					return
				}
				c.handleMessage(ctx, msg)
			case <-ctx.Done():
				c.logger.Info("Context cancelled, stopping result consumer goroutine.")
				return
			}
		}
	}()

	return nil
}

func (c *ResultConsumer) handleMessage(ctx context.Context, msg amqp091.Delivery) {
	var payload sharedMessaging.RenderResultPayload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.logger.Error("Failed to unmarshal render result message", zap.Error(err), zap.String("messageBody", string(msg.Body)))
		return
	}

	c.logger.Debug("Received render result notification",
		zap.String("task_id", payload.TaskID),
		zap.String("fingerprint", payload.Fingerprint),
		zap.String("status", string(payload.Status)),
	)
	c.handler.HandleRenderResult(ctx, payload)
}

// Stop корректно останавливает консьюмер.
func (c *ResultConsumer) Stop() error {
	c.logger.Info("Stopping result consumer...")
	if c.channel != nil {
		if err := c.channel.Cancel("", false); err != nil {
			c.logger.Error("Error cancelling result consumer channel", zap.Error(err))
		}
	}

	select {
	case <-c.done:
		c.logger.Info("Result consumer goroutine finished.")
	case <-time.After(5 * time.Second):
		c.logger.Warn("Timeout waiting for result consumer goroutine to stop.")
	}

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("Error closing result consumer channel during stop", zap.Error(err))
		}
	}
	c.logger.Info("Result consumer stopped.")
	return nil
}
