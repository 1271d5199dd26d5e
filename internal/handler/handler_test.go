package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
	"github.com/Jonathanferreras/watch-the-hutch/internal/security"
	"github.com/Jonathanferreras/watch-the-hutch/internal/server/middleware"
	"github.com/Jonathanferreras/watch-the-hutch/internal/service"
	"github.com/Jonathanferreras/watch-the-hutch/internal/store"
)

const (
	testSecretKey = "test-secret-for-handler-tests"
	testPassword  = "supersecretpassword"
)

// testEnv holds shared state for handler integration tests.
type testEnv struct {
	store   *store.Store
	authSvc *service.AuthService
	events  *service.EventService
	router  chi.Router
}

// newTestEnv creates a fresh test environment with an in-memory store and a
// Chi router with the admin, event and state routes mounted.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.Open(context.Background(), store.Options{}) // in-memory SQLite
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.DiscardHandler)
	tokens, err := security.NewTokenService([]byte(testSecretKey))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	authSvc := service.NewAuthService(st, tokens, 0, logger)
	reconciler := service.NewReconciler(st, service.ReconcilerConfig{}, logger)
	events := service.NewEventService(st, reconciler, logger)

	adminHandler := NewAdminHandler(authSvc, false, logger)
	eventHandler := NewEventHandler(events, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events", eventHandler.ListEvents)
		r.Post("/events", eventHandler.CreateEvent)
		r.Get("/state", eventHandler.CurrentState)

		r.Post("/admin/login", adminHandler.Login)
		r.Post("/admin/logout", adminHandler.Logout)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(authSvc))
			r.Get("/admin/me", adminHandler.Me)
			r.With(middleware.RequireRole(model.RoleEditor)).Get("/admin/users", adminHandler.ListAdmins)
			r.Post("/admin/users", adminHandler.CreateAdmin)
			r.Patch("/admin/users/{id}", adminHandler.UpdateAdmin)
		})
	})

	return &testEnv{
		store:   st,
		authSvc: authSvc,
		events:  events,
		router:  r,
	}
}

// seedAdmin creates an active admin with testPassword and returns it.
func (e *testEnv) seedAdmin(t *testing.T, username string, role model.Role) *model.Admin {
	t.Helper()
	admin, _, err := e.authSvc.Bootstrap(context.Background(), model.AdminCreate{
		Username: username,
		Password: testPassword,
		Role:     role,
	}, false)
	if err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	return admin
}

// loginCookie logs username in and returns the session cookie.
func (e *testEnv) loginCookie(t *testing.T, username string) *http.Cookie {
	t.Helper()
	rr := e.do(t, "POST", "/api/v1/admin/login", toJSON(t, map[string]string{
		"username": username,
		"password": testPassword,
	}))
	assertStatus(t, rr, http.StatusOK)
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatalf("login response did not set %s", middleware.SessionCookieName)
	return nil
}

// do executes an HTTP request against the test router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body model.ErrorResponse
	decodeJSON(t, rr, &body)
	return body.Error.Message
}
