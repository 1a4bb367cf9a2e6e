// Package service связывает пайплайн планирования в единый сценарий:
// извлечение намерения → генерация → валидация → fallback → компиляция →
// постановка рендера.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ganita-server/planner-service/internal/compiler"
	"ganita-server/planner-service/internal/inflight"
	"ganita-server/planner-service/internal/intent"
	"ganita-server/planner-service/internal/messaging"
	"ganita-server/planner-service/internal/planner"
	"ganita-server/shared/database"
	sharedMessaging "ganita-server/shared/messaging"
	"ganita-server/shared/models"
)

// PlanGenerator — генеративный путь построения плана.
type PlanGenerator interface {
	Generate(ctx context.Context, requestID string, intent models.SceneIntent) (models.ScenePlan, error)
}

// SceneSubmission — результат постановки сцены на рендеринг.
type SceneSubmission struct {
	TaskID      string
	Fingerprint string
	Provenance  models.PlanProvenance
	Cached      bool
	// Result заполнен только при попадании в кэш
	Result *models.RenderResult
}

// SceneService управляет жизненным циклом запроса сцены.
type SceneService struct {
	extractor      *intent.Extractor
	generator      PlanGenerator
	fallback       *planner.FallbackEngine
	compiler       *compiler.Compiler
	limits         planner.Limits
	cache          database.RenderCache
	registry       *inflight.Registry
	publisher      messaging.RenderTaskPublisher
	defaultQuality models.RenderQuality
	logger         *zap.Logger
}

func NewSceneService(
	extractor *intent.Extractor,
	generator PlanGenerator,
	fallback *planner.FallbackEngine,
	comp *compiler.Compiler,
	limits planner.Limits,
	cache database.RenderCache,
	registry *inflight.Registry,
	publisher messaging.RenderTaskPublisher,
	defaultQuality models.RenderQuality,
	logger *zap.Logger,
) *SceneService {
	return &SceneService{
		extractor:      extractor,
		generator:      generator,
		fallback:       fallback,
		compiler:       comp,
		limits:         limits,
		cache:          cache,
		registry:       registry,
		publisher:      publisher,
		defaultQuality: defaultQuality,
		logger:         logger.Named("SceneService"),
	}
}

// SubmitScene прогоняет текст через пайплайн планирования и ставит
// рендер в очередь. Совпадение fingerprint с кэшем возвращает готовый
// результат; совпадение с задачей в полёте не порождает второй рендер.
func (s *SceneService) SubmitScene(ctx context.Context, text, topic string, quality models.RenderQuality) (SceneSubmission, error) {
	requestID := uuid.NewString()
	log := s.logger.With(zap.String("request_id", requestID))

	plan, sceneIntent, err := s.buildPlan(ctx, requestID, text, topic)
	if err != nil {
		return SceneSubmission{}, err
	}

	scene, err := s.compiler.Compile(plan, sceneIntent.Equations)
	if err != nil {
		// Компиляция валидированного плана не падает; если упала —
		// это дефект пайплайна, наружу без повторов
		log.Error("Компиляция валидированного плана провалилась", zap.Error(err))
		return SceneSubmission{}, err
	}

	log.Info("Сцена скомпилирована",
		zap.String("fingerprint", scene.Fingerprint),
		zap.String("provenance", string(plan.Provenance)),
		zap.Int("commands", len(scene.Commands)),
	)

	submission := SceneSubmission{
		Fingerprint: scene.Fingerprint,
		Provenance:  plan.Provenance,
	}

	// Кэш смотрим до постановки задачи: идентичные планы делят артефакт
	cached, err := s.cache.Get(ctx, scene.Fingerprint)
	if err == nil {
		log.Info("Результат рендера найден в кэше", zap.String("fingerprint", scene.Fingerprint))
		submission.Cached = true
		submission.Result = &cached
		return submission, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		// Недоступный кэш не блокирует пайплайн: идём рендерить
		log.Warn("Ошибка чтения кэша рендеров, продолжаем без кэша", zap.Error(err))
	}

	if !s.registry.Begin(scene.Fingerprint) {
		log.Info("Рендер с этим fingerprint уже в полёте, задача не дублируется",
			zap.String("fingerprint", scene.Fingerprint))
		return submission, nil
	}

	if quality == "" {
		quality = s.defaultQuality
	}
	taskID := uuid.NewString()
	payload := sharedMessaging.RenderTaskPayload{
		TaskID:      taskID,
		Fingerprint: scene.Fingerprint,
		Topic:       scene.Topic,
		Quality:     models.NormalizeQuality(string(quality)),
		Commands:    scene.Commands,
	}
	if err := s.publisher.PublishRenderTask(ctx, payload); err != nil {
		// Задача не ушла — снимаем владение, иначе fingerprint зависнет
		s.registry.Complete(scene.Fingerprint, models.RenderResult{
			Fingerprint: scene.Fingerprint,
			Status:      models.RenderStatusFailed,
			Error:       "render task submission failed",
		})
		log.Error("Не удалось опубликовать задачу рендеринга", zap.Error(err))
		return SceneSubmission{}, fmt.Errorf("%w: публикация задачи: %v", models.ErrRenderFailed, err)
	}

	log.Info("Задача рендеринга опубликована",
		zap.String("task_id", taskID),
		zap.String("fingerprint", scene.Fingerprint),
		zap.String("quality", string(payload.Quality)),
	)
	submission.TaskID = taskID
	return submission, nil
}

// buildPlan строит валидный план: сначала генеративный путь, при любом
// его дефекте — детерминированный fallback. Ошибки генерации наружу не
// видны; видимый отказ один — невалидный план у самого fallback, что
// означает дефект шаблонов и замалчиваться не должен.
func (s *SceneService) buildPlan(ctx context.Context, requestID, text, topic string) (models.ScenePlan, models.SceneIntent, error) {
	log := s.logger.With(zap.String("request_id", requestID))

	sceneIntent := s.extractor.Extract(text, topic)
	log.Debug("Намерение извлечено",
		zap.Int("equations", len(sceneIntent.Equations)),
		zap.Int("narrative_fragments", len(sceneIntent.Narrative)),
	)

	plan, err := s.generator.Generate(ctx, requestID, sceneIntent)
	if err == nil {
		validation := planner.Validate(plan, sceneIntent.Equations, s.limits)
		if validation.Valid {
			return plan, sceneIntent, nil
		}
		log.Warn("Сгенерированный план не прошёл валидацию, переключаемся на fallback",
			zap.Int("violations", len(validation.Violations)),
			zap.Any("first_violation", validation.Violations[0]),
		)
	} else {
		log.Warn("Генеративный путь недоступен, переключаемся на fallback", zap.Error(err))
	}

	fallbackPlan := s.fallback.Build(sceneIntent)
	validation := planner.Validate(fallbackPlan, sceneIntent.Equations, s.limits)
	if !validation.Valid {
		log.Error("План fallback не прошёл валидацию — дефект шаблонов",
			zap.Any("violations", validation.Violations),
		)
		return models.ScenePlan{}, models.SceneIntent{}, fmt.Errorf(
			"%w: %d нарушений", models.ErrFallbackInvalid, len(validation.Violations))
	}
	return fallbackPlan, sceneIntent, nil
}

// GetRenderResult возвращает состояние рендера по fingerprint:
// готовый результат из кэша, признак задачи в полёте, недавний
// терминальный отказ, или ErrNotFound. Отказы в кэш не пишутся, поэтому
// их держит реестр: опрос после неудачного рендера видит «failed», а не
// «not found».
func (s *SceneService) GetRenderResult(ctx context.Context, fingerprint string) (models.RenderResult, bool, error) {
	result, err := s.cache.Get(ctx, fingerprint)
	if err == nil {
		return result, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.RenderResult{}, false, err
	}
	if s.registry.Pending(fingerprint) {
		return models.RenderResult{}, true, nil
	}
	if failed, ok := s.registry.Failed(fingerprint); ok {
		return failed, false, nil
	}
	return models.RenderResult{}, false, models.ErrNotFound
}

// WaitForRenderResult блокируется до терминального результата задачи в
// полёте или отмены контекста. Второй результат false означает, что
// задачи в полёте уже нет и состояние надо перечитать через
// GetRenderResult.
func (s *SceneService) WaitForRenderResult(ctx context.Context, fingerprint string) (models.RenderResult, bool, error) {
	return s.registry.Wait(ctx, fingerprint)
}

// HandleRenderResult будит ожидающих по fingerprint завершённой задачи.
// Вызывается консьюмером очереди результатов.
func (s *SceneService) HandleRenderResult(ctx context.Context, payload sharedMessaging.RenderResultPayload) {
	result := models.RenderResult{
		Fingerprint: payload.Fingerprint,
		ArtifactURL: payload.ArtifactURL,
		Error:       payload.ErrorDetails,
		Duration:    time.Duration(payload.DurationMS) * time.Millisecond,
		CompletedAt: time.Now().UTC(),
	}
	if payload.Status == sharedMessaging.RenderResultStatusSuccess {
		result.Status = models.RenderStatusDone
	} else {
		result.Status = models.RenderStatusFailed
	}

	s.registry.Complete(payload.Fingerprint, result)
	s.logger.Info("Результат рендера получен, ожидающие разбужены",
		zap.String("task_id", payload.TaskID),
		zap.String("fingerprint", payload.Fingerprint),
		zap.String("status", string(result.Status)),
	)
}
