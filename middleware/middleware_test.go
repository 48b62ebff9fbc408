package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mission-progression-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoUser(c *fiber.Ctx) error {
	return c.SendString(UserID(c) + "|" + strings.Join(Roles(c), ","))
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestGatewayAuth(t *testing.T) {
	app := fiber.New()
	app.Use(GatewayAuthMiddleware("s3cret"))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong", "Bearer nope", fiber.StatusUnauthorized},
		{"bearer", "Bearer s3cret", fiber.StatusOK},
		{"raw", "s3cret", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			status, _ := do(t, app, req)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestServiceToken(t *testing.T) {
	app := fiber.New()
	app.Post("/events", ServiceTokenMiddleware("svc"), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusAccepted) })

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", fiber.StatusForbidden},
		{"wrong", "other", fiber.StatusForbidden},
		{"prefix only", "sv", fiber.StatusForbidden},
		{"valid", "svc", fiber.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/events", nil)
			if tt.token != "" {
				req.Header.Set("X-Service-Token", tt.token)
			}
			status, _ := do(t, app, req)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestUserContextAndRoles(t *testing.T) {
	app := fiber.New()
	app.Use(UserContextMiddleware())
	app.Get("/me", echoUser)
	app.Get("/admin", RequireRole("admin"), echoUser)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	status, _ := do(t, app, req)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-User-ID", "p-1")
	req.Header.Set("X-User-Roles", " member , ,admin")
	status, body := do(t, app, req)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "p-1|member,admin", body)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-User-ID", "p-1")
	req.Header.Set("X-User-Roles", "member")
	status, _ = do(t, app, req)
	assert.Equal(t, fiber.StatusForbidden, status)

	req.Header.Set("X-User-Roles", "member,admin")
	status, _ = do(t, app, req)
	assert.Equal(t, fiber.StatusOK, status)
}

type stubValidator struct {
	resp *services.ValidateResponse
	err  error
}

func (s stubValidator) ValidateToken(_ context.Context, _, _ string) (*services.ValidateResponse, error) {
	return s.resp, s.err
}

func TestSSEAuth(t *testing.T) {
	ok := stubValidator{resp: &services.ValidateResponse{UserID: "p-9", DeviceID: "d-1", Roles: []string{"member"}}}
	denied := stubValidator{err: errors.New("expired")}

	tests := []struct {
		name      string
		validator TokenValidator
		query     string
		want      int
		body      string
	}{
		{"missing device", ok, "?token=abc", fiber.StatusBadRequest, ""},
		{"rejected", denied, "?token=abc&device_id=d-1", fiber.StatusUnauthorized, ""},
		{"accepted", ok, "?token=abc&device_id=d-1", fiber.StatusOK, "p-9|member"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/stream", SSEAuthMiddleware(tt.validator), echoUser)

			status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/stream"+tt.query, nil))
			assert.Equal(t, tt.want, status)
			if tt.body != "" {
				assert.Equal(t, tt.body, body)
			}
		})
	}
}
