package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/zeitwerk/timeclock/internal/auth"
	"github.com/zeitwerk/timeclock/internal/domain/user"
	"github.com/zeitwerk/timeclock/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	claims map[string]*auth.Claims
}

func (f *fakeVerifier) VerifySession(token string) (*auth.Claims, error) {
	c, ok := f.claims[token]
	if !ok {
		return nil, errors.New("invalid session token")
	}
	return c, nil
}

type fakeUserLoader struct {
	users map[string]user.User
}

func (f *fakeUserLoader) GetByID(_ context.Context, id string) (user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func newSessionMiddleware(users ...user.User) *middlewares.SessionMiddleware {
	verifier := &fakeVerifier{claims: map[string]*auth.Claims{}}
	loader := &fakeUserLoader{users: map[string]user.User{}}

	for _, u := range users {
		verifier.claims["token-"+u.ID] = &auth.Claims{UserID: u.ID, Email: u.Email, Role: u.Role}
		loader.users[u.ID] = u
	}

	return middlewares.NewSessionMiddleware(verifier, loader, false)
}

func performWithCookie(r *gin.Engine, path, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)

	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: middlewares.SessionCookieName, Value: cookie})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireUserWithoutSessionRedirectsToLogin(t *testing.T) {
	mw := newSessionMiddleware()

	r := gin.New()
	r.GET("/dashboard", mw.RequireUser(user.RoleEmployee), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := performWithCookie(r, "/dashboard", "")

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}

	if loc := w.Header().Get("Location"); loc != "/login/employee" {
		t.Fatalf("Location = %q, want /login/employee", loc)
	}
}

func TestRequireUserWrongRoleRedirectsToOwnLanding(t *testing.T) {
	admin := user.User{ID: "u1", Email: "boss@example.com", Role: user.RoleAdmin, Active: true}
	mw := newSessionMiddleware(admin)

	r := gin.New()
	r.GET("/dashboard", mw.RequireUser(user.RoleEmployee), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := performWithCookie(r, "/dashboard", "token-u1")

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}

	if loc := w.Header().Get("Location"); loc != "/admin" {
		t.Fatalf("Location = %q, want /admin", loc)
	}

	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "tc_flash" && c.Value != "" {
			found = true
		}
	}

	if !found {
		t.Fatal("expected a flash cookie on role mismatch")
	}
}

func TestRequireUserPassesAndExposesCurrentUser(t *testing.T) {
	employee := user.User{ID: "u2", Email: "me@example.com", Role: user.RoleEmployee, Active: true}
	mw := newSessionMiddleware(employee)

	var seen user.User

	r := gin.New()
	r.GET("/dashboard", mw.RequireUser(user.RoleEmployee), func(c *gin.Context) {
		seen, _ = middlewares.CurrentUser(c)
		c.Status(http.StatusOK)
	})

	w := performWithCookie(r, "/dashboard", "token-u2")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	if seen.ID != "u2" {
		t.Fatalf("CurrentUser = %+v, want u2", seen)
	}
}

func TestRequireUserRejectsDeactivatedAccount(t *testing.T) {
	gone := user.User{ID: "u3", Email: "gone@example.com", Role: user.RoleEmployee, Active: false}
	mw := newSessionMiddleware(gone)

	r := gin.New()
	r.GET("/dashboard", mw.RequireUser(user.RoleEmployee), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := performWithCookie(r, "/dashboard", "token-u3")

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want redirect for deactivated user", w.Code)
	}

	if loc := w.Header().Get("Location"); loc != "/login/employee" {
		t.Fatalf("Location = %q, want /login/employee", loc)
	}
}

func TestLandingPath(t *testing.T) {
	if got := middlewares.LandingPath(user.RoleAdmin); got != "/admin" {
		t.Fatalf("LandingPath(admin) = %q", got)
	}

	if got := middlewares.LandingPath(user.RoleEmployee); got != "/dashboard" {
		t.Fatalf("LandingPath(employee) = %q", got)
	}
}
