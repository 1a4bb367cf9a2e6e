package worker

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"ganita-server/render-worker/internal/config"
	"ganita-server/render-worker/internal/messaging"
	"ganita-server/render-worker/internal/service"
	"ganita-server/shared/database"
	sharedMessaging "ganita-server/shared/messaging"
	"ganita-server/shared/models"
)

// TaskHandler обрабатывает задачи рендеринга.
type TaskHandler struct {
	cfg       *config.Config
	backend   service.RenderBackend
	cache     database.RenderCache
	publisher messaging.ResultPublisher
}

// NewTaskHandler создает обработчик задач рендеринга.
func NewTaskHandler(
	cfg *config.Config,
	backend service.RenderBackend,
	cache database.RenderCache,
	publisher messaging.ResultPublisher,
) *TaskHandler {
	return &TaskHandler{
		cfg:       cfg,
		backend:   backend,
		cache:     cache,
		publisher: publisher,
	}
}

// Handle обрабатывает одну задачу рендеринга: ограниченные ретраи с
// экспоненциальной задержкой, запись кэша ТОЛЬКО при успехе, уведомление
// в очередь результатов в любом терминальном исходе.
func (h *TaskHandler) Handle(payload sharedMessaging.RenderTaskPayload) (err error) {
	MetricsIncrementTasksReceived()
	taskStartTime := time.Now()
	log.Printf("[TaskID: %s] Обработка задачи рендеринга: Fingerprint=%s, Quality=%s, Commands=%d",
		payload.TaskID, payload.Fingerprint, payload.Quality, len(payload.Commands))

	taskStatus := "success"

	defer func() {
		duration := time.Since(taskStartTime)
		if err != nil {
			taskStatus = "failed"
		}
		if pushErr := PushMetricsNow(); pushErr != nil {
			log.Printf("[TaskID: %s][WARN] Не удалось принудительно отправить метрики в конце задачи: %v", payload.TaskID, pushErr)
		}
		log.Printf("[TaskID: %s] Завершение обработки задачи. Статус: %s. Общее время: %v.", payload.TaskID, taskStatus, duration)
	}()

	if len(payload.Commands) == 0 {
		MetricsIncrementTaskFailed("empty_commands")
		err = fmt.Errorf("%w: задача без команд", models.ErrRenderFailed)
		h.notifyFailure(payload, err, time.Since(taskStartTime))
		return err
	}

	var artifactURL string
	var renderErr error
	baseDelay := h.cfg.RenderBaseRetryDelay

	for attempt := 1; attempt <= h.cfg.RenderMaxAttempts; attempt++ {
		renderStartTime := time.Now()
		log.Printf("[TaskID: %s] Вызов рендер-бэкенда (Попытка %d/%d)...", payload.TaskID, attempt, h.cfg.RenderMaxAttempts)

		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.RenderTimeout)
		artifactURL, renderErr = h.backend.Render(ctx, payload)
		cancel()

		renderDuration := time.Since(renderStartTime)

		if renderErr == nil {
			log.Printf("[TaskID: %s] Рендер успешно завершён (Попытка %d). Время: %v. Артефакт: %s",
				payload.TaskID, attempt, renderDuration, artifactURL)
			MetricsRecordRenderDuration(renderDuration)
			break
		}

		log.Printf("[TaskID: %s] Ошибка рендеринга (Попытка %d/%d, время: %v): %v",
			payload.TaskID, attempt, h.cfg.RenderMaxAttempts, renderDuration, renderErr)

		if attempt == h.cfg.RenderMaxAttempts {
			log.Printf("[TaskID: %s] Достигнуто максимальное количество попыток (%d) рендеринга.", payload.TaskID, h.cfg.RenderMaxAttempts)
			MetricsIncrementTaskFailed("render_error")
			break
		}

		delay := float64(baseDelay) * math.Pow(2, float64(attempt-1))
		jitter := delay * 0.1
		delay += jitter * (rand.Float64()*2 - 1)
		waitDuration := time.Duration(delay)
		log.Printf("[TaskID: %s] Повтор через %v...", payload.TaskID, waitDuration)
		time.Sleep(waitDuration)
	}

	totalDuration := time.Since(taskStartTime)

	if renderErr != nil {
		err = renderErr
		h.notifyFailure(payload, renderErr, totalDuration)
		return err
	}

	// Кэш пишется только после подтверждённого успеха; упавший или
	// отменённый рендер записей не оставляет
	result := models.RenderResult{
		Fingerprint: payload.Fingerprint,
		Status:      models.RenderStatusDone,
		ArtifactURL: artifactURL,
		Duration:    totalDuration,
		CompletedAt: time.Now().UTC(),
	}
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if cacheErr := h.cache.Set(cacheCtx, result); cacheErr != nil {
		// Артефакт готов; недоступный кэш не делает задачу неуспешной
		log.Printf("[TaskID: %s][WARN] Не удалось записать результат в кэш: %v", payload.TaskID, cacheErr)
		MetricsIncrementCacheWriteError()
	}
	cacheCancel()

	h.notifySuccess(payload, artifactURL, totalDuration)
	MetricsIncrementTaskSucceeded()
	return nil
}

func (h *TaskHandler) notifySuccess(payload sharedMessaging.RenderTaskPayload, artifactURL string, duration time.Duration) {
	notifyCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notification := sharedMessaging.RenderResultPayload{
		TaskID:      payload.TaskID,
		Fingerprint: payload.Fingerprint,
		Status:      sharedMessaging.RenderResultStatusSuccess,
		ArtifactURL: artifactURL,
		DurationMS:  duration.Milliseconds(),
	}
	if err := h.publisher.PublishRenderResult(notifyCtx, notification); err != nil {
		log.Printf("[TaskID: %s][WARN] Не удалось опубликовать уведомление об успехе: %v", payload.TaskID, err)
	}
}

func (h *TaskHandler) notifyFailure(payload sharedMessaging.RenderTaskPayload, renderErr error, duration time.Duration) {
	notifyCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notification := sharedMessaging.RenderResultPayload{
		TaskID:       payload.TaskID,
		Fingerprint:  payload.Fingerprint,
		Status:       sharedMessaging.RenderResultStatusError,
		ErrorDetails: renderErr.Error(),
		DurationMS:   duration.Milliseconds(),
	}
	if err := h.publisher.PublishRenderResult(notifyCtx, notification); err != nil {
		log.Printf("[TaskID: %s][WARN] Не удалось опубликовать уведомление об ошибке: %v", payload.TaskID, err)
	}
}
