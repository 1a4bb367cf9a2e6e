// Package service содержит бэкенды рендеринга: HTTP-движок и CLI.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"ganita-server/render-worker/internal/config"
	sharedMessaging "ganita-server/shared/messaging"
	"ganita-server/shared/models"
	"ganita-server/shared/utils"
)

// RenderBackend — контракт внешнего рендерера: последовательность команд
// на входе, расположение видеоартефакта на выходе. Контейнер/кодек —
// забота бэкенда.
type RenderBackend interface {
	Render(ctx context.Context, task sharedMessaging.RenderTaskPayload) (string, error)
}

// qualityFlag переводит предустановку качества во флаг CLI рендерера.
func qualityFlag(q models.RenderQuality) string {
	switch q {
	case models.QualityMedium:
		return "-pqm"
	case models.QualityLow:
		return "-pql"
	default:
		return "-pqh"
	}
}

// artifactFileName строит безопасное имя файла артефакта.
func artifactFileName(topic string, quality models.RenderQuality) string {
	safe := utils.SanitizeFileName(topic)
	if safe == "" {
		safe = "scene"
	}
	return fmt.Sprintf("%s_%s.mp4", safe, quality)
}

// --- HTTP Render Backend ---

// httpRenderBackend отправляет команды сцены движку рендеринга по HTTP.
type httpRenderBackend struct {
	client    *http.Client
	engineURL string
}

type httpRenderRequest struct {
	Fingerprint string               `json:"fingerprint"`
	Topic       string               `json:"topic"`
	Quality     models.RenderQuality `json:"quality"`
	Commands    []models.Command     `json:"commands"`
}

type httpRenderResponse struct {
	ArtifactURL string `json:"artifact_url"`
	Error       string `json:"error,omitempty"`
}

func (b *httpRenderBackend) Render(ctx context.Context, task sharedMessaging.RenderTaskPayload) (string, error) {
	body, err := json.Marshal(httpRenderRequest{
		Fingerprint: task.Fingerprint,
		Topic:       task.Topic,
		Quality:     task.Quality,
		Commands:    task.Commands,
	})
	if err != nil {
		return "", fmt.Errorf("%w: сериализация запроса рендера: %v", models.ErrRenderFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.engineURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrRenderFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrRenderFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: чтение ответа движка: %v", models.ErrRenderFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: движок ответил %d: %s", models.ErrRenderFailed, resp.StatusCode, utils.StringShort(string(respBody), 200))
	}

	var renderResp httpRenderResponse
	if err := json.Unmarshal(respBody, &renderResp); err != nil {
		return "", fmt.Errorf("%w: разбор ответа движка: %v", models.ErrRenderFailed, err)
	}
	if renderResp.Error != "" {
		return "", fmt.Errorf("%w: %s", models.ErrRenderFailed, renderResp.Error)
	}
	if renderResp.ArtifactURL == "" {
		return "", fmt.Errorf("%w: движок не вернул расположение артефакта", models.ErrRenderFailed)
	}
	return renderResp.ArtifactURL, nil
}

// --- Exec Render Backend ---

// execRenderBackend вызывает CLI рендерера как сабпроцесс: команды сцены
// пишутся в файл во временной директории, артефакт забирается из
// выходной директории. Таймаут выполнения обеспечивает контекст.
type execRenderBackend struct {
	cliPath         string
	outputDir       string
	artifactBaseURL string
}

func (b *execRenderBackend) Render(ctx context.Context, task sharedMessaging.RenderTaskPayload) (string, error) {
	workDir, err := os.MkdirTemp("", "ganita-render-*")
	if err != nil {
		return "", fmt.Errorf("%w: временная директория: %v", models.ErrRenderFailed, err)
	}
	defer os.RemoveAll(workDir)

	sceneFile := filepath.Join(workDir, "scene.json")
	sceneData, err := json.Marshal(httpRenderRequest{
		Fingerprint: task.Fingerprint,
		Topic:       task.Topic,
		Quality:     task.Quality,
		Commands:    task.Commands,
	})
	if err != nil {
		return "", fmt.Errorf("%w: сериализация сцены: %v", models.ErrRenderFailed, err)
	}
	if err := os.WriteFile(sceneFile, sceneData, 0o644); err != nil {
		return "", fmt.Errorf("%w: запись файла сцены: %v", models.ErrRenderFailed, err)
	}

	fileName := artifactFileName(task.Topic, task.Quality)
	outputPath := filepath.Join(b.outputDir, fileName)

	cmd := exec.CommandContext(ctx, b.cliPath,
		qualityFlag(task.Quality),
		"--scene", sceneFile,
		"--output", outputPath,
	)
	cmd.Dir = workDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Printf("[TaskID: %s] Запуск рендерера: %s %s", task.TaskID, b.cliPath, strings.Join(cmd.Args[1:], " "))
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: таймаут рендеринга: %v", models.ErrRenderFailed, ctx.Err())
		}
		return "", fmt.Errorf("%w: рендерер завершился с ошибкой: %v: %s",
			models.ErrRenderFailed, err, utils.StringShort(stderr.String(), 300))
	}

	// Артефакт обязан существовать после успешного выхода рендерера
	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("%w: артефакт не найден после рендеринга: %v", models.ErrRenderFailed, err)
	}

	return strings.TrimSuffix(b.artifactBaseURL, "/") + "/" + fileName, nil
}

// --- Factory Function ---

// NewRenderBackend создает бэкенд рендеринга по конфигурации.
func NewRenderBackend(cfg *config.Config) (RenderBackend, error) {
	switch strings.ToLower(cfg.RenderBackendType) {
	case "http":
		log.Printf("Используется реализация рендер-бэкенда: HTTP (%s)", cfg.RenderEngineURL)
		return &httpRenderBackend{
			client:    &http.Client{Timeout: cfg.RenderTimeout},
			engineURL: cfg.RenderEngineURL,
		}, nil
	case "exec":
		log.Printf("Используется реализация рендер-бэкенда: CLI (%s)", cfg.RenderCLIPath)
		if err := os.MkdirAll(cfg.RenderOutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("не удалось создать выходную директорию '%s': %w", cfg.RenderOutputDir, err)
		}
		return &execRenderBackend{
			cliPath:         cfg.RenderCLIPath,
			outputDir:       cfg.RenderOutputDir,
			artifactBaseURL: cfg.ArtifactBaseURL,
		}, nil
	default:
		return nil, fmt.Errorf("неизвестный тип рендер-бэкенда: '%s'", cfg.RenderBackendType)
	}
}
