package messaging

import "ganita-server/shared/models"

// RenderTaskPayload — сообщение задачи рендеринга. Команды уже
// скомпилированы и самодостаточны: воркеру не нужен исходный план.
type RenderTaskPayload struct {
	TaskID      string               `json:"taskId"`
	Fingerprint string               `json:"fingerprint"`
	Topic       string               `json:"topic"`
	Quality     models.RenderQuality `json:"quality"`
	Commands    []models.Command     `json:"commands"`
}

// RenderResultStatus — статус уведомления о завершении рендера.
type RenderResultStatus string

const (
	RenderResultStatusSuccess RenderResultStatus = "success"
	RenderResultStatusError   RenderResultStatus = "error"
)

// RenderResultPayload — уведомление о завершении задачи рендеринга.
// Публикуется воркером после записи кэша (при успехе), чтобы
// planner-service разбудил ожидающих по этому fingerprint.
type RenderResultPayload struct {
	TaskID       string             `json:"task_id"`
	Fingerprint  string             `json:"fingerprint"`
	Status       RenderResultStatus `json:"status"`
	ArtifactURL  string             `json:"artifact_url,omitempty"`
	ErrorDetails string             `json:"error_details,omitempty"`
	DurationMS   int64              `json:"duration_ms"`
}
