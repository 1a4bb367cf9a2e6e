package worker

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	jobName = "render_worker"
)

var (
	// Локальный реестр воркера: метрики уходят в Pushgateway, а не в
	// глобальный prometheus.DefaultRegistry
	registry = prometheus.NewRegistry()

	tasksReceived = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "render_worker_tasks_received_total",
			Help: "Total number of render tasks received by the worker.",
		},
	)
	tasksFailed = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "render_worker_tasks_failed_total",
			Help: "Total number of render tasks failed, partitioned by failure reason.",
		},
		[]string{"reason"},
	)
	tasksSucceeded = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "render_worker_tasks_succeeded_total",
			Help: "Total number of render tasks successfully processed.",
		},
	)
	// Отдельно от tasksFailed: задача при этом успешна, и счётчики
	// received = succeeded + failed должны сходиться
	cacheWriteErrors = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "render_worker_cache_write_errors_total",
			Help: "Total number of render result cache write failures on otherwise successful tasks.",
		},
	)
	renderDuration = promauto.With(registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "render_worker_render_duration_seconds",
			Help:    "Histogram of successful render durations.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		},
	)

	pusher *push.Pusher

	groupingKey map[string]string
)

// MetricsRegistry возвращает реестр воркера для HTTP-экспорта.
func MetricsRegistry() *prometheus.Registry {
	return registry
}

// InitMetricsPusher инициализирует клиент Pushgateway.
func InitMetricsPusher(pushgatewayURL string) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
		log.Printf("[Metrics] Warning: could not get hostname: %v", err)
	}
	pid := os.Getpid()
	instanceID := fmt.Sprintf("%s-%d", hostname, pid)

	groupingKey = map[string]string{
		"instance": instanceID,
	}

	log.Printf("[Metrics] Initializing Pushgateway pusher for job '%s' with instance '%s' to %s", jobName, instanceID, pushgatewayURL)

	pusher = push.New(pushgatewayURL, jobName).Gatherer(registry).Grouping("instance", instanceID)

	if err := pusher.Push(); err != nil {
		return fmt.Errorf("could not push initial metrics to Pushgateway: %w", err)
	}
	log.Printf("[Metrics] Initial push to Pushgateway successful.")
	return nil
}

// StartMetricsPusher запускает горутину периодической отправки метрик.
func StartMetricsPusher(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			if pusher == nil {
				ticker.Stop()
				log.Println("[Metrics] Pusher is nil, stopping periodic push.")
				return
			}
			_ = pushMetrics()
		}
	}()
	log.Printf("[Metrics] Started periodic pusher with interval %v", interval)
}

func pushMetrics() error {
	if pusher == nil {
		return errors.New("pusher not initialized")
	}
	if err := pusher.Push(); err != nil {
		log.Printf("[Metrics] Error pushing metrics to Pushgateway: %v", err)
		return err
	}
	return nil
}

// PushMetricsNow принудительно отправляет накопленные метрики.
func PushMetricsNow() error {
	return pushMetrics()
}

// MetricsIncrementTasksReceived увеличивает счетчик полученных задач.
func MetricsIncrementTasksReceived() {
	tasksReceived.Inc()
}

// MetricsIncrementTaskFailed увеличивает счетчик неудач по причине.
func MetricsIncrementTaskFailed(reason string) {
	tasksFailed.WithLabelValues(reason).Inc()
}

// MetricsIncrementTaskSucceeded увеличивает счетчик успешных задач.
func MetricsIncrementTaskSucceeded() {
	tasksSucceeded.Inc()
}

// MetricsIncrementCacheWriteError увеличивает счетчик ошибок записи кэша.
func MetricsIncrementCacheWriteError() {
	cacheWriteErrors.Inc()
}

// MetricsRecordRenderDuration записывает длительность успешного рендера.
func MetricsRecordRenderDuration(d time.Duration) {
	renderDuration.Observe(d.Seconds())
}

// CleanupMetrics удаляет метрики этого инстанса из Pushgateway.
// Вызывается через defer в main.
func CleanupMetrics() {
	if pusher == nil {
		log.Println("[Metrics] Cleanup skipped: Pusher not initialized.")
		return
	}

	log.Printf("[Metrics] Deleting metrics from Pushgateway for job '%s', grouping key: %v", jobName, groupingKey)
	if err := pusher.Delete(); err != nil {
		log.Printf("[Metrics] Error deleting metrics from Pushgateway: %v", err)
	} else {
		log.Printf("[Metrics] Successfully deleted metrics from Pushgateway.")
	}
}
