package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mission-progression-system/engine"
	"mission-progression-system/middleware"
	"mission-progression-system/models"
	"mission-progression-system/services"
	"mission-progression-system/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gatewayToken = "gw-token"
	eventsToken  = "events-token"
)

var june15 = time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

type noValidator struct{}

func (noValidator) ValidateToken(context.Context, string, string) (*services.ValidateResponse, error) {
	return nil, assert.AnError
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db := testutil.NewDB(t)
	clock := clockwork.NewFakeClockAt(june15)
	ctx := context.Background()

	catalog := services.NewCatalogService(db)
	_, err := catalog.Reseed(ctx)
	require.NoError(t, err)

	profiles := services.NewProfileService(db)
	_, err = profiles.Upsert(ctx, []models.RemoteProfile{{ExternalID: "p-1", Username: "ana", UpdatedAt: june15}})
	require.NoError(t, err)

	progression := services.NewProgressionService(db)
	missions := services.NewMissionService(db, catalog, progression, profiles, clock)
	ingest := services.NewIngestService(db, catalog, progression, profiles, engine.DefaultRegistry(), clock)
	reconcile := services.NewReconcileService(db, clock, nil)

	app := fiber.New()
	app.Use(middleware.GatewayAuthMiddleware(gatewayToken))
	SetupMissionRoutes(app, missions)
	SetupEventRoutes(app, ingest, eventsToken)
	SetupProgressionRoutes(app, progression, services.NewLedgerStreamService(db), noValidator{})
	SetupAdminRoutes(app, catalog, reconcile)
	return app
}

type call struct {
	method  string
	path    string
	user    string
	roles   string
	body    any
	headers map[string]string
}

func send(t *testing.T, app *fiber.App, c call, out any) int {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set("Authorization", "Bearer "+gatewayToken)
	if c.path == "/events" {
		req.Header.Set("X-Service-Token", eventsToken)
	}
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.Header.Set("X-User-ID", c.user)
	}
	if c.roles != "" {
		req.Header.Set("X-User-Roles", c.roles)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func measurementEvent(profileID, hash string) services.DomainEvent {
	payload, _ := json.Marshal(engine.ItemCreated{
		Source:     "measurement",
		Category:   "body",
		CreatedAt:  june15,
		UniqueHash: hash,
	})
	return services.DomainEvent{Type: engine.EventItemCreated, ProfileID: profileID, Payload: payload}
}

func TestMissionFlowOverHTTP(t *testing.T) {
	app := newTestApp(t)

	var list []services.MissionView
	require.Equal(t, http.StatusOK, send(t, app, call{method: http.MethodGet, path: "/missions", user: "p-1"}, &list))
	require.NotEmpty(t, list)
	assert.Equal(t, engine.MissionFirstMeasurement, list[0].Code)
	assert.Equal(t, engine.StatusAvailable, list[0].Status)

	var view services.MissionView
	require.Equal(t, http.StatusOK, send(t, app, call{
		method: http.MethodPost, path: "/missions/first-measurement/start", user: "p-1",
	}, &view))
	assert.Equal(t, engine.StatusInProgress, view.Status)

	var ingested services.IngestResult
	require.Equal(t, http.StatusAccepted, send(t, app, call{
		method: http.MethodPost, path: "/events", body: measurementEvent("p-1", "m-1"),
	}, &ingested))
	assert.Equal(t, []string{engine.MissionFirstMeasurement}, ingested.Claimable)

	var claim services.ClaimResult
	require.Equal(t, http.StatusOK, send(t, app, call{
		method: http.MethodPost, path: "/missions/first-measurement/claim", user: "p-1",
	}, &claim))
	assert.Equal(t, int64(50), claim.Progression.XPAwarded)
	assert.Equal(t, engine.StatusCompleted, claim.Mission.Status)

	var errBody map[string]string
	assert.Equal(t, http.StatusConflict, send(t, app, call{
		method: http.MethodPost, path: "/missions/first-measurement/claim", user: "p-1",
	}, &errBody))
	assert.Contains(t, errBody["error"], "first-measurement")

	var progress services.ProgressView
	require.Equal(t, http.StatusOK, send(t, app, call{method: http.MethodGet, path: "/user/progress", user: "p-1"}, &progress))
	assert.Equal(t, int64(50), progress.XP)

	var ledger struct {
		Entries    []models.MissionRewardLedgerEntry `json:"entries"`
		TotalItems int64                             `json:"total_items"`
	}
	require.Equal(t, http.StatusOK, send(t, app, call{method: http.MethodGet, path: "/user/progress/ledger?page=1&size=5", user: "p-1"}, &ledger))
	assert.Equal(t, int64(1), ledger.TotalItems)
	require.Len(t, ledger.Entries, 1)
	assert.Equal(t, int64(50), ledger.Entries[0].XP)

	var badges struct {
		Count int `json:"count"`
	}
	require.Equal(t, http.StatusOK, send(t, app, call{method: http.MethodGet, path: "/user/progress/badges", user: "p-1"}, &badges))
	assert.Equal(t, 1, badges.Count)
}

func TestErrorStatuses(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		call call
		want int
	}{
		{"no gateway token", call{method: http.MethodGet, path: "/missions", user: "p-1",
			headers: map[string]string{"Authorization": "Bearer wrong"}}, http.StatusUnauthorized},
		{"no user", call{method: http.MethodGet, path: "/missions"}, http.StatusUnauthorized},
		{"unknown mission", call{method: http.MethodPost, path: "/missions/nope/start", user: "p-1"}, http.StatusNotFound},
		{"unknown profile", call{method: http.MethodGet, path: "/missions", user: "ghost"}, http.StatusNotFound},
		{"claim too early", call{method: http.MethodPost, path: "/missions/invite-contact/claim", user: "p-1"}, http.StatusConflict},
		{"out of season", call{method: http.MethodPost, path: "/missions/winter-gifting/start", user: "p-1"}, http.StatusConflict},
		{"unknown event type", call{method: http.MethodPost, path: "/events",
			body: services.DomainEvent{Type: "ORDER_PLACED", ProfileID: "p-1", Payload: json.RawMessage(`{}`)}}, http.StatusBadRequest},
		{"invalid payload", call{method: http.MethodPost, path: "/events",
			body: services.DomainEvent{Type: engine.EventItemCreated, ProfileID: "p-1", Payload: json.RawMessage(`{"source":""}`)}}, http.StatusBadRequest},
		{"event without service token", call{method: http.MethodPost, path: "/events", body: measurementEvent("p-1", "m-1"),
			headers: map[string]string{"X-Service-Token": ""}}, http.StatusForbidden},
		{"event with user token only", call{method: http.MethodPost, path: "/events", user: "p-1", body: measurementEvent("p-1", "m-1"),
			headers: map[string]string{"X-Service-Token": "wrong"}}, http.StatusForbidden},
		{"event for unknown profile", call{method: http.MethodPost, path: "/events", body: measurementEvent("ghost", "g-1")}, http.StatusNotFound},
		{"admin without role", call{method: http.MethodPost, path: "/admin/missions/reseed", user: "p-1"}, http.StatusForbidden},
		{"stream without token", call{method: http.MethodGet, path: "/user/rewards/stream"}, http.StatusBadRequest},
		{"stream rejected", call{method: http.MethodGet, path: "/user/rewards/stream?token=t&device_id=d"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, send(t, app, tt.call, nil))
		})
	}
}

func TestListHonoursLocale(t *testing.T) {
	app := newTestApp(t)

	var list []services.MissionView
	require.Equal(t, http.StatusOK, send(t, app, call{
		method: http.MethodGet, path: "/missions?locale=pt-BR", user: "p-1",
	}, &list))
	require.NotNil(t, list[0].Translation)
	assert.Equal(t, "pt-BR", list[0].Translation.Locale)

	require.Equal(t, http.StatusOK, send(t, app, call{
		method: http.MethodGet, path: "/missions", user: "p-1",
		headers: map[string]string{"Accept-Language": "es-AR,es;q=0.9,en;q=0.5"},
	}, &list))
	require.NotNil(t, list[0].Translation)
	assert.Equal(t, "es", list[0].Translation.Locale)
}

func TestAdminRoutes(t *testing.T) {
	app := newTestApp(t)

	var reseed struct {
		Missions int `json:"missions"`
	}
	require.Equal(t, http.StatusOK, send(t, app, call{
		method: http.MethodPost, path: "/admin/missions/reseed", user: "ops", roles: "admin",
	}, &reseed))
	assert.Equal(t, 7, reseed.Missions)

	var report services.ReconcileReport
	require.Equal(t, http.StatusOK, send(t, app, call{
		method: http.MethodGet, path: "/admin/reconcile", user: "ops", roles: "admin",
	}, &report))
	assert.True(t, report.OK())
}
