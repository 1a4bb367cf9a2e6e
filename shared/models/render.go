package models

import "time"

// RenderQuality — предустановка качества рендера.
type RenderQuality string

const (
	QualityHigh   RenderQuality = "high"
	QualityMedium RenderQuality = "medium"
	QualityLow    RenderQuality = "low"
)

// NormalizeQuality приводит произвольную строку к допустимой
// предустановке; пустое или неизвестное значение — high.
func NormalizeQuality(q string) RenderQuality {
	switch RenderQuality(q) {
	case QualityMedium:
		return QualityMedium
	case QualityLow:
		return QualityLow
	default:
		return QualityHigh
	}
}

// RenderStatus — статус задачи рендеринга.
type RenderStatus string

const (
	RenderStatusPending RenderStatus = "pending" // задача в очереди или выполняется
	RenderStatusDone    RenderStatus = "done"    // терминальный успех
	RenderStatusFailed  RenderStatus = "failed"  // терминальная ошибка после ретраев
)

// Terminal сообщает, является ли статус конечным.
func (s RenderStatus) Terminal() bool {
	return s == RenderStatusDone || s == RenderStatusFailed
}

// RenderResult — итог рендеринга скомпилированной сцены.
// Кэшируется по Fingerprint только при успехе.
type RenderResult struct {
	Fingerprint string        `json:"fingerprint"`
	Status      RenderStatus  `json:"status"`
	ArtifactURL string        `json:"artifactUrl,omitempty"` // расположение видео при успехе
	Error       string        `json:"error,omitempty"`       // детали при failed
	Duration    time.Duration `json:"duration"`              // сколько занял рендер
	CompletedAt time.Time     `json:"completedAt,omitempty"`
}
