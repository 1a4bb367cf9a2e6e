package planner

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"ganita-server/shared/models"
	"ganita-server/shared/utils"
)

// Wire-формат ответа AI. Provenance в ответе не передаётся — его
// проставляет генератор сам.
type planWire struct {
	Topic string     `json:"topic"`
	Steps []stepWire `json:"steps"`
}

type stepWire struct {
	Order  int                    `json:"order"`
	Kind   string                 `json:"kind"`
	Params map[string]interface{} `json:"params"`
}

// Generator — генеративный путь построения плана сцены.
// Любой дефект ответа (таймаут, ошибка бэкенда, неразбираемый JSON,
// неизвестный kind) завершает путь ошибкой ErrGenerationFailed;
// частичного ремонта ответа нет намеренно.
type Generator struct {
	ai             AIClient
	maxAttempts    int
	baseRetryDelay time.Duration
	logger         *zap.Logger
}

func NewGenerator(ai AIClient, maxAttempts int, baseRetryDelay time.Duration, logger *zap.Logger) *Generator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Generator{
		ai:             ai,
		maxAttempts:    maxAttempts,
		baseRetryDelay: baseRetryDelay,
		logger:         logger.Named("PlanGenerator"),
	}
}

// Generate строит план сцены через AI бэкенд. Попытки ограничены
// конфигурацией; между попытками экспоненциальная задержка с джиттером.
func (g *Generator) Generate(ctx context.Context, requestID string, intent models.SceneIntent) (models.ScenePlan, error) {
	userInput := BuildUserInput(intent)

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := g.retryDelay(attempt)
			g.logger.Warn("Повторная попытка генерации плана",
				zap.String("request_id", requestID),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return models.ScenePlan{}, fmt.Errorf("%w: %v", models.ErrGenerationFailed, ctx.Err())
			}
		}

		text, usage, err := g.ai.GenerateText(ctx, requestID, scenePlannerSystemPrompt, userInput, GenerationParams{})
		if err != nil {
			lastErr = err
			continue
		}

		plan, err := g.parsePlan(text, intent)
		if err != nil {
			g.logger.Warn("Ответ AI не прошёл строгий разбор схемы",
				zap.String("request_id", requestID),
				zap.String("response_preview", utils.StringShort(text, 200)),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		g.logger.Info("План сцены сгенерирован",
			zap.String("request_id", requestID),
			zap.Int("steps", len(plan.Steps)),
			zap.Int("total_tokens", usage.TotalTokens),
		)
		return plan, nil
	}

	return models.ScenePlan{}, fmt.Errorf("%w: исчерпаны попытки генерации (%d): %v",
		models.ErrGenerationFailed, g.maxAttempts, lastErr)
}

// parsePlan извлекает JSON из ответа и строго декодирует его в план.
func (g *Generator) parsePlan(text string, intent models.SceneIntent) (models.ScenePlan, error) {
	raw := utils.ExtractJSONContent(text)
	if raw == "" {
		return models.ScenePlan{}, fmt.Errorf("%w: в ответе нет JSON", models.ErrGenerationFailed)
	}

	var wire planWire
	if err := utils.DecodeStrict([]byte(raw), &wire); err != nil {
		return models.ScenePlan{}, fmt.Errorf("%w: %v", models.ErrGenerationFailed, err)
	}

	steps := make([]models.Step, 0, len(wire.Steps))
	for i, ws := range wire.Steps {
		if !models.IsValidStepKind(models.StepKind(ws.Kind)) {
			return models.ScenePlan{}, fmt.Errorf("%w: неизвестный kind %q в шаге %d", models.ErrGenerationFailed, ws.Kind, i)
		}
		steps = append(steps, models.Step{
			Order:  ws.Order,
			Kind:   models.StepKind(ws.Kind),
			Params: ws.Params,
		})
	}

	topic := wire.Topic
	if topic == "" {
		topic = intent.Topic
	}

	return models.ScenePlan{
		Topic:      topic,
		Provenance: models.ProvenanceGenerated,
		Steps:      steps,
	}, nil
}

// retryDelay — экспоненциальная задержка с джиттером до 20%.
func (g *Generator) retryDelay(attempt int) time.Duration {
	delay := g.baseRetryDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/5 + 1))
	return delay + jitter
}
