package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	sharedMessaging "ganita-server/shared/messaging"
)

// RenderTaskPublisher публикует задачи рендеринга в очередь воркеров.
type RenderTaskPublisher interface {
	PublishRenderTask(ctx context.Context, payload sharedMessaging.RenderTaskPayload) error
}

// rabbitMQPublisher реализует RenderTaskPublisher поверх RabbitMQ.
type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
}

// NewRabbitMQRenderTaskPublisher создает паблишер задач рендеринга.
// Паблишер объявляет очередь сам, чтобы система не зависела от порядка
// запуска сервисов. Параметры очереди обязаны совпадать с консьюмером
// (render-worker), включая аргументы DLX.
func NewRabbitMQRenderTaskPublisher(conn *amqp.Connection) (RenderTaskPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("render task publisher: не удалось открыть канал: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    sharedMessaging.RenderTaskDLXName,
		"x-dead-letter-routing-key": sharedMessaging.RenderTaskDLQKey,
	}
	_, err = ch.QueueDeclare(
		sharedMessaging.RenderTaskQueueName, // name
		true,                                // durable
		false,                               // delete when unused
		false,                               // exclusive
		false,                               // no-wait
		args,
	)
	if err != nil {
		log.Printf("RenderTaskPublisher ERROR: Не удалось объявить очередь '%s': %v", sharedMessaging.RenderTaskQueueName, err)
		ch.Close()
		return nil, fmt.Errorf("render task publisher: не удалось объявить очередь '%s': %w", sharedMessaging.RenderTaskQueueName, err)
	}
	log.Printf("RenderTaskPublisher: Очередь '%s' успешно объявлена/найдена.", sharedMessaging.RenderTaskQueueName)

	return &rabbitMQPublisher{channel: ch, queueName: sharedMessaging.RenderTaskQueueName}, nil
}

// PublishRenderTask публикует задачу рендеринга.
func (p *rabbitMQPublisher) PublishRenderTask(ctx context.Context, payload sharedMessaging.RenderTaskPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[TaskID: %s][Fingerprint: %s] Ошибка сериализации RenderTaskPayload: %v", payload.TaskID, payload.Fingerprint, err)
		return fmt.Errorf("ошибка сериализации задачи рендеринга для TaskID %s: %w", payload.TaskID, err)
	}

	if err := p.publishMessage(ctx, body); err != nil {
		log.Printf("[TaskID: %s][Fingerprint: %s] Ошибка публикации RenderTask: %v", payload.TaskID, payload.Fingerprint, err)
		return fmt.Errorf("ошибка публикации задачи рендеринга для TaskID %s: %w", payload.TaskID, err)
	}
	return nil
}

// publishMessage отправляет persistent-сообщение в очередь.
func (p *rabbitMQPublisher) publishMessage(ctx context.Context, body []byte) error {
	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.channel.PublishWithContext(
		publishCtx,
		"",          // exchange (default)
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
