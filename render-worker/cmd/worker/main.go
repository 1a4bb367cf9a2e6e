package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	redis "github.com/redis/go-redis/v9"

	"ganita-server/render-worker/internal/config"
	workerMessaging "ganita-server/render-worker/internal/messaging"
	"ganita-server/render-worker/internal/service"
	"ganita-server/render-worker/internal/worker"
	"ganita-server/shared/database"
	sharedLogger "ganita-server/shared/logger"
	sharedMessaging "ganita-server/shared/messaging"
)

func main() {
	log.Println("Запуск воркера рендеринга...")

	// Загружаем конфигурацию
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// --- HTTP-сервер для метрик и health в отдельной горутине ---
	go startMetricsServer(cfg.MetricsPort)

	// --- Pushgateway (если настроен) ---
	if cfg.PushgatewayURL != "" {
		if err := worker.InitMetricsPusher(cfg.PushgatewayURL); err != nil {
			log.Printf("[WARN] Pushgateway недоступен, метрики только по HTTP: %v", err)
		} else {
			worker.StartMetricsPusher(cfg.MetricsPushInterval)
			defer worker.CleanupMetrics()
		}
	}

	// Логгер для кэша; сам воркер пишет задачи через log.Printf
	zapLogger, err := sharedLogger.New(sharedLogger.Config{Level: "info"})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer zapLogger.Sync()

	// Инициализация рендер-бэкенда
	log.Println("Инициализация рендер-бэкенда...")
	backend, err := service.NewRenderBackend(cfg)
	if err != nil {
		log.Fatalf("Ошибка инициализации рендер-бэкенда: %v", err)
	}

	// Подключаемся к Redis
	log.Println("Подключение к Redis...")
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatalf("Не удалось подключиться к Redis: %v", err)
	}
	pingCancel()
	defer redisClient.Close()
	log.Println("Успешное подключение к Redis")

	renderCache := database.NewRedisRenderCache(redisClient, cfg.CacheTTL, zapLogger)

	// Подключаемся к RabbitMQ с логикой повторных попыток
	conn, err := connectRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Не удалось подключиться к RabbitMQ: %v", err)
	}
	defer conn.Close()
	log.Println("Успешное подключение к RabbitMQ")

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("Не удалось открыть канал: %v", err)
	}
	defer ch.Close()
	log.Println("Канал успешно открыт")

	// --- Настройка Dead Letter Queue (DLQ) ---
	log.Printf("Настройка Dead Letter Exchange ('%s') и Queue ('%s')...",
		sharedMessaging.RenderTaskDLXName, sharedMessaging.RenderTaskDLQName)

	err = ch.ExchangeDeclare(
		sharedMessaging.RenderTaskDLXName, // name
		"direct",                          // type
		true,                              // durable
		false,                             // auto-deleted
		false,                             // internal
		false,                             // no-wait
		nil,                               // arguments
	)
	if err != nil {
		log.Fatalf("Не удалось объявить DLX: %v", err)
	}

	_, err = ch.QueueDeclare(
		sharedMessaging.RenderTaskDLQName, // name
		true,                              // durable
		false,                             // delete when unused
		false,                             // exclusive
		false,                             // no-wait
		nil,                               // arguments
	)
	if err != nil {
		log.Fatalf("Не удалось объявить Dead Letter Queue '%s': %v", sharedMessaging.RenderTaskDLQName, err)
	}

	err = ch.QueueBind(
		sharedMessaging.RenderTaskDLQName, // queue name
		sharedMessaging.RenderTaskDLQKey,  // routing key
		sharedMessaging.RenderTaskDLXName, // exchange
		false,
		nil,
	)
	if err != nil {
		log.Fatalf("Не удалось связать DLQ с DLX: %v", err)
	}
	log.Printf("DLQ '%s' успешно связана с DLX '%s'.", sharedMessaging.RenderTaskDLQName, sharedMessaging.RenderTaskDLXName)

	// --- Основная очередь задач с аргументами DLX ---
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
		log.Fatalf("Не удалось объявить очередь '%s': %v", sharedMessaging.RenderTaskQueueName, err)
	}
	log.Printf("Очередь '%s' успешно объявлена.", sharedMessaging.RenderTaskQueueName)

	// Рендер тяжёлый: одна задача на воркера за раз
	if err := ch.Qos(1, 0, false); err != nil {
		log.Fatalf("Не удалось установить QoS: %v", err)
	}
	log.Println("QoS (prefetch count=1) установлен")

	// Инициализация паблишера результатов и обработчика
	resultPublisher, err := workerMessaging.NewRabbitMQResultPublisher(conn)
	if err != nil {
		log.Fatalf("Не удалось создать ResultPublisher: %v", err)
	}
	taskHandler := worker.NewTaskHandler(cfg, backend, renderCache, resultPublisher)

	msgs, err := ch.Consume(
		sharedMessaging.RenderTaskQueueName, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("Не удалось зарегистрировать консьюмера: %v", err)
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	log.Println(" [*] Ожидание задач рендеринга. Для выхода нажмите CTRL+C")

	go func() {
		defer close(done)
		for msg := range msgs {
			var payload sharedMessaging.RenderTaskPayload
			if err := json.Unmarshal(msg.Body, &payload); err != nil {
				log.Printf("Ошибка десериализации JSON: %v. Отклоняем сообщение (nack, no requeue).", err)
				worker.MetricsIncrementTaskFailed("deserialization")
				msg.Nack(false, false) // уходит в DLQ
				continue
			}

			if err := taskHandler.Handle(payload); err != nil {
				// Терминальная ошибка после ретраев — в DLQ, не в очередь
				log.Printf("[TaskID: %s] Ошибка обработки задачи: %v. Отклоняем сообщение (nack, no requeue).", payload.TaskID, err)
				msg.Nack(false, false)
			} else {
				log.Printf("[TaskID: %s] Задача успешно обработана. Подтверждаем сообщение (ack).", payload.TaskID)
				msg.Ack(false)
			}
		}
		log.Println("Канал сообщений закрыт, горутина обработки завершается.")
	}()

	<-stopChan
	log.Println("Получен сигнал завершения. Завершение работы...")

	// Закрываем канал: консьюмер перестанет получать новые задачи, цикл
	// обработки дообработает текущую и завершится
	if err := ch.Cancel("", false); err != nil {
		log.Printf("Ошибка отмены консьюмера: %v", err)
	}

	select {
	case <-done:
		log.Println("Обработка сообщений завершена.")
	case <-time.After(cfg.RenderTimeout + 10*time.Second):
		log.Println("Таймаут ожидания завершения обработки.")
	}

	log.Println("Воркер рендеринга остановлен.")
}

// startMetricsServer запускает HTTP-сервер для /metrics и /health.
func startMetricsServer(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(worker.MetricsRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	})

	log.Printf("Запуск HTTP-сервера для метрик Prometheus и health на :%s...", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatalf("Ошибка запуска HTTP-сервера для метрик: %v", err)
	}
}

// connectRabbitMQ подключается к RabbitMQ с несколькими попытками.
func connectRabbitMQ(url string) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 10
	retryDelay := 3 * time.Second

	for i := 1; i <= maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		log.Printf("Попытка %d/%d подключения к RabbitMQ не удалась: %v. Повтор через %v...", i, maxRetries, err, retryDelay)
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("не удалось подключиться к RabbitMQ после %d попыток: %w", maxRetries, err)
}
