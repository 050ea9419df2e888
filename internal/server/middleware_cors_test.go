package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"teamtrack/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:3000"

func newLimitedApp(method string) *fiber.App {
	srv := &Server{config: &config.Config{AllowedOrigins: testOrigin}}
	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Add(method, "/limited", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func exhaust(t *testing.T, app *fiber.App, method string) {
	t.Helper()
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(method, "/limited", nil)
		req.Header.Set("Origin", testOrigin)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}
}

func TestSetupMiddleware_RateLimitedResponseIncludesCORSHeaders(t *testing.T) {
	app := newLimitedApp(http.MethodGet)
	exhaust(t, app, http.MethodGet)

	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.Header.Set("Origin", testOrigin)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSetupMiddleware_PreflightBypassesLimiter(t *testing.T) {
	app := newLimitedApp(http.MethodPost)
	exhaust(t, app, http.MethodPost)

	limitedReq := httptest.NewRequest(http.MethodPost, "/limited", nil)
	limitedReq.Header.Set("Origin", testOrigin)
	limitedResp, err := app.Test(limitedReq, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, limitedResp.StatusCode)
	_ = limitedResp.Body.Close()

	preflightReq := httptest.NewRequest(http.MethodOptions, "/limited", nil)
	preflightReq.Header.Set("Origin", testOrigin)
	preflightReq.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preflightResp, err := app.Test(preflightReq, -1)
	require.NoError(t, err)
	defer func() { _ = preflightResp.Body.Close() }()

	assert.Equal(t, fiber.StatusNoContent, preflightResp.StatusCode)
	assert.Equal(t, testOrigin, preflightResp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSetupMiddleware_HelmetAllowsCrossOriginAvatars(t *testing.T) {
	app := newLimitedApp(http.MethodGet)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "cross-origin", resp.Header.Get("Cross-Origin-Resource-Policy"))
}

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.do(t, http.MethodGet, "/health/live", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", decode[map[string]any](t, out)["status"])

	status, out = env.do(t, http.MethodGet, "/health/ready", nil, "")
	require.Equal(t, http.StatusOK, status, string(out))
	body := decode[map[string]any](t, out)
	assert.Equal(t, "healthy", body["status"])
}
