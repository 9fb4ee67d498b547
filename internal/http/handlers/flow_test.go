package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeitwerk/timeclock/internal/auth"
	"github.com/zeitwerk/timeclock/internal/domain/audit"
	"github.com/zeitwerk/timeclock/internal/domain/timeentry"
	"github.com/zeitwerk/timeclock/internal/domain/user"
	"github.com/zeitwerk/timeclock/internal/http/handlers"
	"github.com/zeitwerk/timeclock/internal/http/middlewares"
	"github.com/zeitwerk/timeclock/internal/security"
)

// memStore backs a full handler stack with the same semantics the
// Postgres repositories implement, so login, clocking and user
// management can be exercised end to end over HTTP.
type memStore struct {
	users   []user.User
	entries []timeentry.Entry
	audits  []audit.Row
	nextID  int
}

func (s *memStore) id() string {
	s.nextID++
	return fmt.Sprintf("id-%d", s.nextID)
}

func (s *memStore) record(userID *string, action string) {
	s.audits = append(s.audits, audit.Row{
		ID:        s.id(),
		UserID:    userID,
		Action:    action,
		Timestamp: time.Now(),
	})
}

func (s *memStore) Record(_ context.Context, userID *string, action string) error {
	s.record(userID, action)
	return nil
}

func (s *memStore) ListRecent(_ context.Context, limit int) ([]audit.Row, error) {
	if len(s.audits) < limit {
		limit = len(s.audits)
	}
	return s.audits[:limit], nil
}

// entriesOverview adapts memStore to handlers.EntriesOverview, whose
// ListRecent signature collides with the audit ListRecent on memStore.
type entriesOverview struct{ *memStore }

func (s entriesOverview) ListRecent(_ context.Context, limit int) ([]timeentry.Entry, error) {
	if len(s.entries) < limit {
		limit = len(s.entries)
	}
	return s.entries[:limit], nil
}

func (s *memStore) GetActiveByEmail(_ context.Context, email string) (user.User, error) {
	email = user.NormalizeEmail(email)

	for _, u := range s.users {
		if u.Email == email && u.Active {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (s *memStore) GetByID(_ context.Context, id string) (user.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (s *memStore) List(_ context.Context) ([]user.User, error) {
	return s.users, nil
}

func (s *memStore) Create(_ context.Context, req user.CreateRequest, actorID string) (user.User, error) {
	email := user.NormalizeEmail(req.Email)

	for _, u := range s.users {
		if u.Email == email {
			return user.User{}, user.ErrEmailTaken
		}
	}

	created := user.User{
		ID:             s.id(),
		Name:           req.Name,
		Email:          email,
		PasswordHash:   req.PasswordHash,
		Role:           req.Role,
		EmploymentType: req.EmploymentType,
		Active:         true,
	}
	s.users = append(s.users, created)
	s.record(&actorID, fmt.Sprintf("user created: %s (%s)", created.Email, created.Role))
	return created, nil
}

func (s *memStore) ToggleActive(_ context.Context, targetID, actorID string) (user.User, error) {
	if targetID == actorID {
		return user.User{}, user.ErrSelfDisable
	}

	for i, u := range s.users {
		if u.ID == targetID {
			s.users[i].Active = !u.Active
			return s.users[i], nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (s *memStore) openIndex(userID string) int {
	for i, e := range s.entries {
		if e.UserID == userID && e.Open() {
			return i
		}
	}
	return -1
}

func (s *memStore) Open(_ context.Context, userID string) (timeentry.Entry, error) {
	if i := s.openIndex(userID); i >= 0 {
		return s.entries[i], nil
	}
	return timeentry.Entry{}, timeentry.ErrNoOpenEntry
}

func (s *memStore) ListRecentForUser(_ context.Context, userID string, limit int) ([]timeentry.Entry, error) {
	var out []timeentry.Entry

	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) Start(_ context.Context, userID string, now time.Time) (timeentry.Entry, error) {
	if s.openIndex(userID) >= 0 {
		return timeentry.Entry{}, timeentry.ErrAlreadyRunning
	}

	e := timeentry.Entry{
		ID:        s.id(),
		UserID:    userID,
		StartTime: now,
		EntryType: timeentry.TypeWork,
		CreatedAt: now,
	}
	s.entries = append(s.entries, e)
	s.record(&userID, "work started")
	return e, nil
}

func (s *memStore) Stop(_ context.Context, userID string, now time.Time) (timeentry.Entry, error) {
	i := s.openIndex(userID)

	if i < 0 {
		return timeentry.Entry{}, timeentry.ErrNoOpenEntry
	}

	s.entries[i].EndTime = &now
	s.entries[i].BreakMinutes = timeentry.ComputeBreakMinutes(s.entries[i].StartTime, now)
	s.record(&userID, "work stopped")
	return s.entries[i], nil
}

func (s *memStore) CreateManual(_ context.Context, userID, entryType string, start, end time.Time) (timeentry.Entry, error) {
	e := timeentry.Entry{
		ID:           s.id(),
		UserID:       userID,
		StartTime:    start,
		EndTime:      &end,
		BreakMinutes: timeentry.BreakFor(entryType, start, end),
		EntryType:    entryType,
		CreatedAt:    end,
	}
	s.entries = append(s.entries, e)
	s.record(&userID, fmt.Sprintf("manual entry (%s)", entryType))
	return e, nil
}

// newFlowApp wires real session handling and handlers on top of a
// memStore, mirroring the route layout of the production router.
func newFlowApp(t *testing.T, store *memStore, clock *time.Time) *gin.Engine {
	t.Helper()

	sessions := auth.NewManager("flow-test-secret", time.Hour)
	sessionMw := middlewares.NewSessionMiddleware(sessions, store, false)

	authH := handlers.NewAuthHandler(store, store, sessions, sessionMw, nil)
	entriesH := handlers.NewTimeEntriesHandler(store, func() time.Time { return *clock })
	adminH := handlers.NewAdminHandler(store, entriesOverview{store}, store)

	r := gin.New()
	r.POST("/login/employee", authH.EmployeeLogin)
	r.POST("/login/admin", authH.AdminLogin)
	r.GET("/logout", sessionMw.OptionalUser(), authH.Logout)

	employee := r.Group("/", sessionMw.RequireUser(user.RoleEmployee))
	employee.GET("/dashboard", entriesH.Dashboard)
	employee.GET("/start", entriesH.Start)
	employee.GET("/stop", entriesH.Stop)

	admin := r.Group("/", sessionMw.RequireUser(user.RoleAdmin))
	admin.GET("/admin", adminH.Overview)
	admin.POST("/create_user", adminH.CreateUser)

	return r
}

func flowPost(r *gin.Engine, path, session string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if session != "" {
		req.AddCookie(&http.Cookie{Name: middlewares.SessionCookieName, Value: session})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func flowGet(r *gin.Engine, path, session string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if session != "" {
		req.AddCookie(&http.Cookie{Name: middlewares.SessionCookieName, Value: session})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// TestFullWorkdayFlow walks the main product path: an admin creates an
// employee account, the employee logs in with the generated initial
// password, clocks in, and clocks out seven hours later. The closed
// entry must carry the 30 minute break deduction and every step must
// leave its audit trail.
func TestFullWorkdayFlow(t *testing.T) {
	store := &memStore{}
	clock := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	app := newFlowApp(t, store, &clock)

	adminHash, err := security.HashPassword("admin-secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	store.users = append(store.users, user.User{
		ID:           "admin-1",
		Name:         "Root Admin",
		Email:        "admin@example.com",
		PasswordHash: adminHash,
		Role:         user.RoleAdmin,
		Active:       true,
	})

	// Admin signs in at the admin entry point.
	w := flowPost(app, "/login/admin", "", url.Values{
		"email":    {"admin@example.com"},
		"password": {"admin-secret"},
	})

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/admin" {
		t.Fatalf("admin login: status=%d location=%q", w.Code, w.Header().Get("Location"))
	}

	adminSession := sessionCookie(w)
	if adminSession == "" {
		t.Fatal("admin login set no session cookie")
	}

	// Creating the employee without a password generates one; it is
	// only ever surfaced in the flash message.
	w = flowPost(app, "/create_user", adminSession, url.Values{
		"name":  {"Mara"},
		"email": {"Mara@Example.com"},
		"role":  {"employee"},
	})

	if w.Code != http.StatusSeeOther {
		t.Fatalf("create user: status=%d", w.Code)
	}

	flash := flashMessage(t, w)
	marker := "Initial password for mara@example.com: "
	idx := strings.Index(flash, marker)
	if idx < 0 {
		t.Fatalf("flash %q does not carry the generated password", flash)
	}
	password := flash[idx+len(marker):]

	// The new employee logs in with the generated password.
	w = flowPost(app, "/login/employee", "", url.Values{
		"email":    {"mara@example.com"},
		"password": {password},
	})

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("employee login: status=%d location=%q flash=%q", w.Code, w.Header().Get("Location"), flashMessage(t, w))
	}

	employeeSession := sessionCookie(w)
	if employeeSession == "" {
		t.Fatal("employee login set no session cookie")
	}

	// The employee session must not open the admin overview.
	if w = flowGet(app, "/admin", employeeSession); w.Code != http.StatusFound {
		t.Fatalf("employee reached /admin: status=%d", w.Code)
	}

	// Clock in.
	if w = flowGet(app, "/start", employeeSession); w.Code != http.StatusFound {
		t.Fatalf("start: status=%d", w.Code)
	}

	// A second clock-in while one runs is refused.
	w = flowGet(app, "/start", employeeSession)
	if got := flashMessage(t, w); got != "error|A time entry is already running." {
		t.Fatalf("double start flash = %q", got)
	}

	// Seven hours pass, then the employee clocks out.
	clock = clock.Add(7 * time.Hour)

	w = flowGet(app, "/stop", employeeSession)
	if got := flashMessage(t, w); got != "success|Work stopped." {
		t.Fatalf("stop flash = %q", got)
	}

	if len(store.entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(store.entries))
	}

	entry := store.entries[0]
	if entry.Open() {
		t.Fatal("entry still open after stop")
	}
	if !entry.EndTime.Equal(entry.StartTime.Add(7 * time.Hour)) {
		t.Fatalf("end time = %v, want start + 7h", entry.EndTime)
	}
	if entry.BreakMinutes != 30 {
		t.Fatalf("break minutes = %d, want 30 for a 7h shift", entry.BreakMinutes)
	}

	wantActions := []string{
		"admin login",
		"user created: mara@example.com (employee)",
		"employee login",
		"work started",
		"work stopped",
	}

	if len(store.audits) != len(wantActions) {
		t.Fatalf("audit rows = %d, want %d", len(store.audits), len(wantActions))
	}
	for i, want := range wantActions {
		if store.audits[i].Action != want {
			t.Fatalf("audit[%d] = %q, want %q", i, store.audits[i].Action, want)
		}
	}
}
