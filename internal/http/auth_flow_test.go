package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/octrolabs/userhub/internal/auth"
	"github.com/octrolabs/userhub/internal/config"
	"github.com/octrolabs/userhub/internal/domain/group"
	"github.com/octrolabs/userhub/internal/domain/user"
	httpx "github.com/octrolabs/userhub/internal/http"
	"github.com/octrolabs/userhub/internal/http/handlers"
	"github.com/octrolabs/userhub/internal/identity"
	"github.com/octrolabs/userhub/internal/oauth"
	"github.com/octrolabs/userhub/internal/repo/postgres"
	"github.com/octrolabs/userhub/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memUsers is an in-memory stand-in for the Postgres users repo, shared
// by the resolver, the session codec and the admin handlers.
type memUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]user.User
}

func newMemUsers() *memUsers {
	return &memUsers{nextID: 1, users: map[int64]user.User{}}
}

func (m *memUsers) GetByExternalID(ctx context.Context, externalID string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return user.User{}, postgres.ErrUserNotFound
}

func (m *memUsers) GetByID(ctx context.Context, id int64) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *memUsers) Create(ctx context.Context, nu user.NewUser) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ExternalID == nu.ExternalID || u.Email == nu.Email {
			return user.User{}, postgres.ErrDuplicateUser
		}
	}
	u := user.User{
		ID:         m.nextID,
		ExternalID: nu.ExternalID,
		Email:      nu.Email,
		Name:       nu.Name,
		AvatarURL:  nu.AvatarURL,
		Role:       nu.Role,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	m.users[u.ID] = u
	m.nextID++
	return u, nil
}

func (m *memUsers) List(ctx context.Context) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]user.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUsers) UpdateRole(ctx context.Context, id int64, role user.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return postgres.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return nil
}

type memGroups struct{}

func (memGroups) List(ctx context.Context) ([]group.Group, error) { return nil, nil }
func (memGroups) ListForUser(ctx context.Context, userID int64) ([]group.Group, error) {
	return nil, nil
}
func (memGroups) Create(ctx context.Context, name, description string) (group.Group, error) {
	return group.Group{ID: 1, Name: name, Description: description}, nil
}

type memProcesses struct{}

func (memProcesses) List(ctx context.Context) ([]group.Process, error) { return nil, nil }
func (memProcesses) Create(ctx context.Context, name, description string) (group.Process, error) {
	return group.Process{ID: 1, Name: name, Description: description}, nil
}

// providerStub plays the external identity provider: a token endpoint
// and a userinfo endpoint that asserts whichever profile the test has
// loaded into it.
type providerStub struct {
	srv *httptest.Server

	mu      sync.Mutex
	profile map[string]string
}

func newProviderStub() *providerStub {
	p := &providerStub{}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "stub-access-token",
			"token_type":   "Bearer",
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p.profile)
	})

	p.srv = httptest.NewServer(mux)
	return p
}

func (p *providerStub) setIdentity(externalID, email, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profile = map[string]string{
		"id":      externalID,
		"email":   email,
		"name":    name,
		"picture": "https://cdn.example.com/" + externalID + ".png",
	}
}

type testApp struct {
	router   *gin.Engine
	provider *providerStub
	users    *memUsers
	cfg      config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	stub := newProviderStub()
	t.Cleanup(stub.srv.Close)

	cfg := config.Config{
		Env:           "test",
		FrontendURL:   "http://frontend.example",
		SessionSecret: "integration-secret",
		SessionTTL:    time.Hour,
		CookieName:    "userhub_sid",
	}

	users := newMemUsers()
	resolver := identity.NewResolver(users)
	codec := session.NewCodec(session.NewMemoryStore(), users, cfg.SessionSecret, cfg.SessionTTL, nil)
	states := auth.NewStateManager(cfg.SessionSecret, 10*time.Minute)

	provider := oauth.NewProvider(oauth.Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		CallbackURL:  "http://api.example/auth/callback",
		UserInfoURL:  stub.srv.URL + "/userinfo",
		Endpoint: oauth2.Endpoint{
			AuthURL:  stub.srv.URL + "/authorize",
			TokenURL: stub.srv.URL + "/token",
		},
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := httpx.NewRouter(log, cfg, httpx.Deps{
		Auth:      handlers.NewAuthHandler(provider, states, resolver, codec, cfg),
		Users:     handlers.NewUsersHandler(users, users),
		Groups:    handlers.NewGroupsHandler(memGroups{}),
		Processes: handlers.NewProcessesHandler(memProcesses{}),
		Sessions:  codec,
	})

	return &testApp{router: router, provider: stub, users: users, cfg: cfg}
}

func (a *testApp) do(t *testing.T, method, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	a.router.ServeHTTP(w, req)
	return w
}

// login walks the full OAuth round-trip for the identity currently
// loaded in the provider stub and returns the session cookie.
func (a *testApp) login(t *testing.T) *http.Cookie {
	t.Helper()

	w := a.do(t, http.MethodGet, "/auth/login", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("login status = %d, want 302", w.Code)
	}

	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse login redirect: %v", err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatalf("login redirect carries no state: %s", loc)
	}

	w = a.do(t, http.MethodGet, "/auth/callback?code=grant&state="+url.QueryEscape(state), nil)
	if w.Code != http.StatusFound {
		t.Fatalf("callback status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != a.cfg.FrontendURL {
		t.Fatalf("callback redirect = %q, want %q", got, a.cfg.FrontendURL)
	}

	for _, c := range w.Result().Cookies() {
		if c.Name == a.cfg.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("callback set no session cookie")
	return nil
}

func TestAuthFlow_FirstLoginBootstrapsAdmin(t *testing.T) {
	app := newTestApp(t)
	app.provider.setIdentity("ext-123", "founder@example.com", "Founder")

	cookie := app.login(t)

	w := app.do(t, http.MethodGet, "/auth/me", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("/auth/me status = %d (body %s)", w.Code, w.Body.String())
	}

	var me user.User
	if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode /auth/me: %v", err)
	}
	if me.Email != "founder@example.com" || me.Role != user.RoleAdmin {
		t.Fatalf("me = %+v, want founder with admin role", me)
	}

	// The bootstrap admin can reach the admin surface.
	if w := app.do(t, http.MethodGet, "/api/users", cookie); w.Code != http.StatusOK {
		t.Fatalf("/api/users status = %d, want 200", w.Code)
	}
}

func TestAuthFlow_SecondLoginIsPlainUser(t *testing.T) {
	app := newTestApp(t)

	app.provider.setIdentity("ext-123", "founder@example.com", "Founder")
	app.login(t)

	app.provider.setIdentity("ext-456", "second@example.com", "Second")
	cookie := app.login(t)

	w := app.do(t, http.MethodGet, "/auth/me", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("/auth/me status = %d", w.Code)
	}
	var me user.User
	if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode /auth/me: %v", err)
	}
	if me.Role != user.RoleUser {
		t.Fatalf("second user role = %s, want user", me.Role)
	}

	// Authenticated but not authorized for the admin surface.
	if w := app.do(t, http.MethodGet, "/api/users", cookie); w.Code != http.StatusForbidden {
		t.Fatalf("/api/users status = %d, want 403", w.Code)
	}

	// The membership listing is open to any authenticated caller.
	if w := app.do(t, http.MethodGet, "/api/user/groups", cookie); w.Code != http.StatusOK {
		t.Fatalf("/api/user/groups status = %d, want 200", w.Code)
	}
}

func TestAuthFlow_RepeatLoginReusesUser(t *testing.T) {
	app := newTestApp(t)
	app.provider.setIdentity("ext-123", "founder@example.com", "Founder")

	app.login(t)
	cookie := app.login(t)

	if n, _ := app.users.Count(context.Background()); n != 1 {
		t.Fatalf("user count = %d, want 1 after repeat login", n)
	}

	if w := app.do(t, http.MethodGet, "/auth/me", cookie); w.Code != http.StatusOK {
		t.Fatalf("/auth/me status = %d", w.Code)
	}
}

func TestAuthFlow_LogoutEndsSession(t *testing.T) {
	app := newTestApp(t)
	app.provider.setIdentity("ext-123", "founder@example.com", "Founder")
	cookie := app.login(t)

	w := app.do(t, http.MethodGet, "/auth/logout", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}

	if w := app.do(t, http.MethodGet, "/auth/me", cookie); w.Code != http.StatusUnauthorized {
		t.Fatalf("/auth/me after logout status = %d, want 401", w.Code)
	}
}

func TestAuthFlow_CallbackWithForgedState(t *testing.T) {
	app := newTestApp(t)
	app.provider.setIdentity("ext-123", "founder@example.com", "Founder")

	w := app.do(t, http.MethodGet, "/auth/callback?code=grant&state=forged", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("callback status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != app.cfg.FrontendURL+"/login" {
		t.Fatalf("redirect = %q, want login page", got)
	}
	if n, _ := app.users.Count(context.Background()); n != 0 {
		t.Fatalf("forged callback created a user")
	}
}

func TestAuthFlow_UnauthenticatedAPI(t *testing.T) {
	app := newTestApp(t)

	if w := app.do(t, http.MethodGet, "/api/users", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("/api/users status = %d, want 401", w.Code)
	}
	if w := app.do(t, http.MethodGet, "/auth/me", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("/auth/me status = %d, want 401", w.Code)
	}
}
