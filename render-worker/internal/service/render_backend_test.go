package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ganita-server/render-worker/internal/config"
	"ganita-server/render-worker/internal/service"
	sharedMessaging "ganita-server/shared/messaging"
	"ganita-server/shared/models"
)

func httpBackend(t *testing.T, engineURL string) service.RenderBackend {
	t.Helper()
	backend, err := service.NewRenderBackend(&config.Config{
		RenderBackendType: "http",
		RenderEngineURL:   engineURL,
		RenderTimeout:     time.Second,
	})
	require.NoError(t, err)
	return backend
}

func renderTask() sharedMessaging.RenderTaskPayload {
	return sharedMessaging.RenderTaskPayload{
		TaskID:      "task-1",
		Fingerprint: "fp-1",
		Topic:       "Linear equations",
		Quality:     models.QualityHigh,
		Commands: []models.Command{
			{Op: models.OpShowEquation, Payload: "2x+3=7", Duration: 3},
		},
	}
}

func TestHTTPRenderBackend_Success(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(map[string]string{"artifact_url": "http://cdn/scene.mp4"})
	}))
	defer server.Close()

	backend := httpBackend(t, server.URL)

	url, err := backend.Render(context.Background(), renderTask())

	require.NoError(t, err)
	assert.Equal(t, "http://cdn/scene.mp4", url)
	assert.Equal(t, "fp-1", received["fingerprint"])
	assert.NotEmpty(t, received["commands"])
}

func TestHTTPRenderBackend_EngineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "manim crashed"})
	}))
	defer server.Close()

	backend := httpBackend(t, server.URL)

	_, err := backend.Render(context.Background(), renderTask())

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRenderFailed)
	assert.Contains(t, err.Error(), "manim crashed")
}

func TestHTTPRenderBackend_Non200Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	backend := httpBackend(t, server.URL)

	_, err := backend.Render(context.Background(), renderTask())

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRenderFailed)
}

func TestHTTPRenderBackend_MissingArtifactURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	backend := httpBackend(t, server.URL)

	_, err := backend.Render(context.Background(), renderTask())

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRenderFailed)
}

func TestNewRenderBackend_UnknownType(t *testing.T) {
	_, err := service.NewRenderBackend(&config.Config{RenderBackendType: "carrier-pigeon"})
	require.Error(t, err)
}

func TestNewRenderBackend_ExecCreatesOutputDir(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "videos")

	backend, err := service.NewRenderBackend(&config.Config{
		RenderBackendType: "exec",
		RenderCLIPath:     "manim-render",
		RenderOutputDir:   outputDir,
		ArtifactBaseURL:   "http://cdn",
	})

	require.NoError(t, err)
	assert.NotNil(t, backend)
	assert.DirExists(t, outputDir)
}
