package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
	"github.com/Jonathanferreras/watch-the-hutch/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Login / Logout
// ---------------------------------------------------------------------------

func TestLogin_ValidCredentials(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedAdmin(t, "alice", model.RoleAdmin)

	rr := env.do(t, "POST", "/api/v1/admin/login", toJSON(t, map[string]string{
		"username": "alice",
		"password": testPassword,
	}))
	assertStatus(t, rr, http.StatusOK)

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", cookie.SameSite)
	}
	if cookie.MaxAge != 7200 {
		t.Errorf("MaxAge = %d, want 7200", cookie.MaxAge)
	}
	if cookie.Secure {
		t.Error("Secure should follow the handler setting (off in tests)")
	}

	var resp loginResponse
	decodeJSON(t, rr, &resp)
	if resp.Admin.ID != alice.ID || resp.Admin.Username != "alice" || resp.Admin.Role != model.RoleAdmin {
		t.Errorf("unexpected admin in response: %+v", resp.Admin)
	}
	if resp.Message != "Login successful" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestLogin_FailuresAreUniform(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t, "alice", model.RoleAdmin)
	inactive := env.seedAdmin(t, "mallory", model.RoleViewer)
	if err := env.store.SetAdminActive(context.Background(), inactive.ID, false); err != nil {
		t.Fatalf("SetAdminActive: %v", err)
	}

	cases := map[string]map[string]string{
		"wrong password": {"username": "alice", "password": "nope-nope-nope"},
		"unknown user":   {"username": "bob", "password": testPassword},
		"inactive":       {"username": "mallory", "password": testPassword},
		"empty":          {"username": "", "password": ""},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := env.do(t, "POST", "/api/v1/admin/login", toJSON(t, body))
			assertStatus(t, rr, http.StatusUnauthorized)
			if msg := errorMessage(t, rr); msg != "Invalid username or password" {
				t.Errorf("message = %q", msg)
			}
			if len(rr.Result().Cookies()) != 0 {
				t.Error("failed login must not set cookies")
			}
		})
	}
}

func TestLogin_InvalidJSON(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/api/v1/admin/login", strings.NewReader("{not json"))
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/api/v1/admin/logout", nil)
	assertStatus(t, rr, http.StatusOK)

	var resp model.MessageResponse
	decodeJSON(t, rr, &resp)
	if resp.Message != "Logged out successfully" {
		t.Errorf("message = %q", resp.Message)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != middleware.SessionCookieName || cookies[0].MaxAge >= 0 {
		t.Errorf("expected session cookie deletion, got %+v", cookies)
	}
}

// ---------------------------------------------------------------------------
// Me
// ---------------------------------------------------------------------------

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t, "alice", model.RoleEditor)
	cookie := env.loginCookie(t, "alice")

	rr := env.do(t, "GET", "/api/v1/admin/me", nil, cookie)
	assertStatus(t, rr, http.StatusOK)

	var me map[string]interface{}
	decodeJSON(t, rr, &me)
	if me["username"] != "alice" || me["role"] != "EDITOR" || me["is_active"] != true {
		t.Errorf("unexpected body: %v", me)
	}
	if _, leaked := me["password_hash"]; leaked {
		t.Error("password hash must not be serialized")
	}
	if me["last_login_at"] == nil {
		t.Error("expected last_login_at after login")
	}
}

func TestMe_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/api/v1/admin/me", nil)
	assertStatus(t, rr, http.StatusUnauthorized)

	rr = env.do(t, "GET", "/api/v1/admin/me", nil, &http.Cookie{Name: middleware.SessionCookieName, Value: "forged.token"})
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestMe_DeactivatedAfterLogin(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedAdmin(t, "alice", model.RoleAdmin)
	cookie := env.loginCookie(t, "alice")

	if err := env.store.SetAdminActive(context.Background(), alice.ID, false); err != nil {
		t.Fatalf("SetAdminActive: %v", err)
	}
	rr := env.do(t, "GET", "/api/v1/admin/me", nil, cookie)
	assertStatus(t, rr, http.StatusForbidden)
	if msg := errorMessage(t, rr); msg != "Admin account is inactive" {
		t.Errorf("message = %q", msg)
	}
}

// ---------------------------------------------------------------------------
// Account management
// ---------------------------------------------------------------------------

func TestCreateAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t, "alice", model.RoleAdmin)
	cookie := env.loginCookie(t, "alice")

	rr := env.do(t, "POST", "/api/v1/admin/users", toJSON(t, map[string]string{
		"username": "bob",
		"password": "bobs-password",
		"role":     "editor",
	}), cookie)
	assertStatus(t, rr, http.StatusCreated)

	var created model.Admin
	decodeJSON(t, rr, &created)
	if created.ID == 0 || created.Username != "bob" || created.Role != model.RoleEditor || !created.IsActive {
		t.Errorf("unexpected admin: %+v", created)
	}

	// The new admin can log in.
	rr = env.do(t, "POST", "/api/v1/admin/login", toJSON(t, map[string]string{
		"username": "bob",
		"password": "bobs-password",
	}))
	assertStatus(t, rr, http.StatusOK)
}

func TestCreateAdmin_DefaultRole(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t, "alice", model.RoleAdmin)
	cookie := env.loginCookie(t, "alice")

	rr := env.do(t, "POST", "/api/v1/admin/users", toJSON(t, map[string]string{
		"username": "carol",
		"password": "carols-password",
	}), cookie)
	assertStatus(t, rr, http.StatusCreated)

	var created model.Admin
	decodeJSON(t, rr, &created)
	if created.Role != model.RoleViewer {
		t.Errorf("role = %s, want VIEWER", created.Role)
	}
}

func TestCreateAdmin_RequiresAdminRole(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t, "ed", model.RoleEditor)
	cookie := env.loginCookie(t, "ed")

	rr := env.do(t, "POST", "/api/v1/admin/users", toJSON(t, map[string]string{
		"username": "bob",
		"password": "bobs-password",
	}), cookie)
	assertStatus(t, rr, http.StatusForbidden)
	if msg := errorMessage(t, rr); msg != "Only ADMIN users can create new admin users" {
		t.Errorf("message = %q", msg)
	}
}

func TestCreateAdmin_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/api/v1/admin/users", toJSON(t, map[string]string{
		"username": "bob",
		"password": "bobs-password",
	}))
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestCreateAdmin_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t, "alice", model.RoleAdmin)
	cookie := env.loginCookie(t, "alice")

	cases := map[string]map[string]string{
		"short username": {"username": "ab", "password": "long-enough"},
		"long username":  {"username": strings.Repeat("u", 65), "password": "long-enough"},
		"short password": {"username": "bob", "password": "short"},
		"long password":  {"username": "bob", "password": strings.Repeat("p", 129)},
		"bad role":       {"username": "bob", "password": "long-enough", "role": "ROOT"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := env.do(t, "POST", "/api/v1/admin/users", toJSON(t, body), cookie)
			assertStatus(t, rr, http.StatusUnprocessableEntity)
		})
	}
}

func TestCreateAdmin_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t, "alice", model.RoleAdmin)
	cookie := env.loginCookie(t, "alice")

	rr := env.do(t, "POST", "/api/v1/admin/users", toJSON(t, map[string]string{
		"username": "alice",
		"password": "another-password",
	}), cookie)
	assertStatus(t, rr, http.StatusConflict)
}

func TestListAdmins(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t, "alice", model.RoleAdmin)
	env.seedAdmin(t, "ed", model.RoleEditor)
	env.seedAdmin(t, "vic", model.RoleViewer)

	rr := env.do(t, "GET", "/api/v1/admin/users", nil, env.loginCookie(t, "ed"))
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Resource []model.Admin      `json:"resource"`
		Meta     model.ResponseMeta `json:"meta"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Meta.Count != 3 || len(resp.Resource) != 3 {
		t.Errorf("expected 3 admins, got %d (meta %d)", len(resp.Resource), resp.Meta.Count)
	}

	rr = env.do(t, "GET", "/api/v1/admin/users", nil, env.loginCookie(t, "vic"))
	assertStatus(t, rr, http.StatusForbidden)
}

func TestUpdateAdmin(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedAdmin(t, "alice", model.RoleAdmin)
	bob := env.seedAdmin(t, "bob", model.RoleViewer)
	cookie := env.loginCookie(t, "alice")
	bobCookie := env.loginCookie(t, "bob")

	path := fmt.Sprintf("/api/v1/admin/users/%d", bob.ID)
	rr := env.do(t, "PATCH", path, toJSON(t, map[string]bool{"is_active": false}), cookie)
	assertStatus(t, rr, http.StatusOK)

	var updated model.Admin
	decodeJSON(t, rr, &updated)
	if updated.IsActive {
		t.Error("expected bob to be inactive")
	}

	// Bob's existing session is now refused.
	rr = env.do(t, "GET", "/api/v1/admin/me", nil, bobCookie)
	assertStatus(t, rr, http.StatusForbidden)

	// Reactivate.
	rr = env.do(t, "PATCH", path, toJSON(t, map[string]bool{"is_active": true}), cookie)
	assertStatus(t, rr, http.StatusOK)
	rr = env.do(t, "GET", "/api/v1/admin/me", nil, bobCookie)
	assertStatus(t, rr, http.StatusOK)

	// Self-deactivation is refused.
	self := fmt.Sprintf("/api/v1/admin/users/%d", alice.ID)
	rr = env.do(t, "PATCH", self, toJSON(t, map[string]bool{"is_active": false}), cookie)
	assertStatus(t, rr, http.StatusUnprocessableEntity)
}

func TestUpdateAdmin_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t, "alice", model.RoleAdmin)
	env.seedAdmin(t, "ed", model.RoleEditor)
	cookie := env.loginCookie(t, "alice")

	rr := env.do(t, "PATCH", "/api/v1/admin/users/abc", toJSON(t, map[string]bool{"is_active": false}), cookie)
	assertStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, "PATCH", "/api/v1/admin/users/9999", toJSON(t, map[string]bool{"is_active": false}), cookie)
	assertStatus(t, rr, http.StatusNotFound)

	rr = env.do(t, "PATCH", "/api/v1/admin/users/1", toJSON(t, map[string]string{}), cookie)
	assertStatus(t, rr, http.StatusUnprocessableEntity)

	rr = env.do(t, "PATCH", "/api/v1/admin/users/1", toJSON(t, map[string]bool{"is_active": false}), env.loginCookie(t, "ed"))
	assertStatus(t, rr, http.StatusForbidden)
}
