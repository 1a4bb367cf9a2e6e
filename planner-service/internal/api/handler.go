// Package api — HTTP-слой planner-service поверх Gin.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ganita-server/planner-service/internal/service"
	"ganita-server/shared/models"
)

// SceneHandler обрабатывает HTTP запросы планировщика сцен.
type SceneHandler struct {
	scenes *service.SceneService
	logger *zap.Logger
}

func NewSceneHandler(scenes *service.SceneService, logger *zap.Logger) *SceneHandler {
	return &SceneHandler{
		scenes: scenes,
		logger: logger.Named("SceneHandler"),
	}
}

// RegisterRoutes регистрирует маршруты обработчика.
func (h *SceneHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/scenes", h.handleSubmitScene)
		v1.GET("/renders/:fingerprint", h.handleGetRender)
	}
}

// submitSceneRequest — тело POST /api/v1/scenes.
type submitSceneRequest struct {
	Text    string `json:"text" binding:"required"`
	Topic   string `json:"topic,omitempty"`
	Quality string `json:"quality,omitempty"`
}

// renderResultResponse — wire-форма результата рендера.
type renderResultResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      string `json:"status"`
	ArtifactURL string `json:"artifact_url,omitempty"`
	Error       string `json:"error,omitempty"`
	DurationMS  int64  `json:"duration_ms,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func toRenderResultResponse(r models.RenderResult) renderResultResponse {
	resp := renderResultResponse{
		Fingerprint: r.Fingerprint,
		Status:      string(r.Status),
		ArtifactURL: r.ArtifactURL,
		Error:       r.Error,
		DurationMS:  r.Duration.Milliseconds(),
	}
	if !r.CompletedAt.IsZero() {
		resp.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

// handleSubmitScene обрабатывает POST /api/v1/scenes.
// 200 — результат уже в кэше; 202 — задача принята и рендерится.
func (h *SceneHandler) handleSubmitScene(c *gin.Context) {
	var req submitSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	submission, err := h.scenes.SubmitScene(c.Request.Context(), req.Text, req.Topic, models.RenderQuality(req.Quality))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrFallbackInvalid), errors.Is(err, models.ErrNoContent):
			// Видимый пользователю отказ: анимируемого контента нет
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no animatable content could be produced"})
		default:
			h.logger.Error("Scene submission failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	if submission.Cached {
		c.JSON(http.StatusOK, gin.H{
			"fingerprint": submission.Fingerprint,
			"provenance":  submission.Provenance,
			"result":      toRenderResultResponse(*submission.Result),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id":     submission.TaskID,
		"fingerprint": submission.Fingerprint,
		"provenance":  submission.Provenance,
		"status":      string(models.RenderStatusPending),
	})
}

// Потолок long-poll ожидания: дольше держать соединение нет смысла,
// клиент перезапросит с тем же fingerprint.
const longPollTimeout = 25 * time.Second

// handleGetRender обрабатывает GET /api/v1/renders/:fingerprint.
// 200 — терминальный результат (включая отказ рендера); 202 — рендер ещё
// в полёте; 404 — неизвестный fingerprint. С параметром ?wait=1 запрос
// для задачи в полёте блокируется до результата или таймаута.
func (h *SceneHandler) handleGetRender(c *gin.Context) {
	fingerprint := c.Param("fingerprint")
	if fingerprint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fingerprint is required"})
		return
	}

	result, pending, err := h.scenes.GetRenderResult(c.Request.Context(), fingerprint)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "render not found"})
			return
		}
		h.logger.Error("Render lookup failed", zap.Error(err), zap.String("fingerprint", fingerprint))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if pending {
		if c.Query("wait") != "" {
			if h.waitForRender(c, fingerprint) {
				return
			}
		}
		c.JSON(http.StatusAccepted, gin.H{
			"fingerprint": fingerprint,
			"status":      string(models.RenderStatusPending),
		})
		return
	}

	c.JSON(http.StatusOK, toRenderResultResponse(result))
}

// waitForRender блокируется до терминального результата задачи в полёте.
// Возвращает true, если ответ уже записан; false — таймаут ожидания,
// вызывающий отвечает 202.
func (h *SceneHandler) waitForRender(c *gin.Context, fingerprint string) bool {
	waitCtx, cancel := context.WithTimeout(c.Request.Context(), longPollTimeout)
	defer cancel()

	result, inFlight, err := h.scenes.WaitForRenderResult(waitCtx, fingerprint)
	if err != nil {
		return false
	}
	if !inFlight {
		// Задача завершилась между проверками; перечитываем состояние
		rereadResult, _, rereadErr := h.scenes.GetRenderResult(c.Request.Context(), fingerprint)
		if rereadErr != nil {
			return false
		}
		result = rereadResult
	}
	c.JSON(http.StatusOK, toRenderResultResponse(result))
	return true
}
