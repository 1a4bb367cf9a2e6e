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

// ResultPublisher публикует уведомления о завершении рендера.
type ResultPublisher interface {
	PublishRenderResult(ctx context.Context, payload sharedMessaging.RenderResultPayload) error
}

type rabbitMQResultPublisher struct {
	channel   *amqp.Channel
	queueName string
}

// NewRabbitMQResultPublisher создает паблишер результатов рендеринга.
func NewRabbitMQResultPublisher(conn *amqp.Connection) (ResultPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("result publisher: не удалось открыть канал: %w", err)
	}

	_, err = ch.QueueDeclare(
		sharedMessaging.RenderResultQueueName, // name
		true,                                  // durable
		false,                                 // delete when unused
		false,                                 // exclusive
		false,                                 // no-wait
		nil,                                   // arguments
	)
	if err != nil {
		log.Printf("ResultPublisher ERROR: Не удалось объявить очередь '%s': %v", sharedMessaging.RenderResultQueueName, err)
		ch.Close()
		return nil, fmt.Errorf("result publisher: не удалось объявить очередь '%s': %w", sharedMessaging.RenderResultQueueName, err)
	}
	log.Printf("ResultPublisher: Очередь '%s' успешно объявлена/найдена.", sharedMessaging.RenderResultQueueName)

	return &rabbitMQResultPublisher{channel: ch, queueName: sharedMessaging.RenderResultQueueName}, nil
}

// PublishRenderResult публикует уведомление о завершении задачи.
func (p *rabbitMQResultPublisher) PublishRenderResult(ctx context.Context, payload sharedMessaging.RenderResultPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[TaskID: %s] Ошибка сериализации RenderResultPayload: %v", payload.TaskID, err)
		return fmt.Errorf("ошибка сериализации результата рендера для TaskID %s: %w", payload.TaskID, err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
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
	if err != nil {
		log.Printf("[TaskID: %s] Ошибка публикации RenderResult: %v", payload.TaskID, err)
		return fmt.Errorf("ошибка публикации результата рендера для TaskID %s: %w", payload.TaskID, err)
	}
	return nil
}
