package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorly/tutorly_backend/config"
	"github.com/tutorly/tutorly_backend/internal/api/http/middleware"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Environment = "production"
	cfg.Server.TimeoutSeconds = 5
	cfg.Observability.ServiceName = "tutorly_backend"
	return cfg
}

func TestNewApp_ErrorsRenderAsJSON(t *testing.T) {
	app := NewApp(testConfig(), false)
	app.Get("/forbidden", func(c fiber.Ctx) error { return fiber.ErrForbidden })
	app.Get("/boom", func(c fiber.Ctx) error { return errors.New("db exploded") })
	app.Get("/panic", func(c fiber.Ctx) error { panic("nope") })

	tests := []struct {
		path   string
		status int
		msg    string
	}{
		{"/forbidden", http.StatusForbidden, "Forbidden"},
		{"/boom", http.StatusInternalServerError, "internal server error"},
		{"/panic", http.StatusInternalServerError, "internal server error"},
		{"/missing", http.StatusNotFound, "Cannot GET /missing"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(middleware.HeaderRequestID))

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}
