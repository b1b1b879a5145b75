package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memAccounts is an in-memory AccountRepository.
type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]Account
	lookups  atomic.Int64
}

func newMemAccounts(accounts ...Account) *memAccounts {
	m := &memAccounts{accounts: map[string]Account{}}
	for _, a := range accounts {
		m.accounts[a.Login] = a
	}
	return m
}

func (m *memAccounts) FindByLogin(_ context.Context, login string) (*Account, error) {
	m.lookups.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[login]
	if !ok {
		return nil, ErrAccountNotFound
	}
	a.Roles = a.Roles.Clone()
	return &a, nil
}

func (m *memAccounts) Create(_ context.Context, a Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.Login]; ok {
		return ErrAccountExists
	}
	m.accounts[a.Login] = a
	return nil
}

func (m *memAccounts) HasRole(_ context.Context, role Role) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Roles.Has(role) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAccounts) AddRole(_ context.Context, login string, role Role) (*Account, error) {
	return m.updateRoles(login, func(s RoleSet) { s.Add(role) })
}

func (m *memAccounts) RemoveRole(_ context.Context, login string, role Role) (*Account, error) {
	return m.updateRoles(login, func(s RoleSet) { s.Remove(role) })
}

func (m *memAccounts) updateRoles(login string, fn func(RoleSet)) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[login]
	if !ok {
		return nil, ErrAccountNotFound
	}
	a.Roles = a.Roles.Clone()
	fn(a.Roles)
	m.accounts[login] = a
	out := a
	out.Roles = a.Roles.Clone()
	return &out, nil
}

// memPosts is an in-memory PostRepository.
type memPosts struct {
	mu    sync.Mutex
	posts map[string]Post
}

func newMemPosts(posts ...Post) *memPosts {
	m := &memPosts{posts: map[string]Post{}}
	for _, p := range posts {
		m.posts[p.ID] = p
	}
	return m
}

func (m *memPosts) FindByID(_ context.Context, id string) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	return &p, nil
}

func (m *memPosts) Create(_ context.Context, author, title, content string, tags []string) (*Post, error) {
	id, err := NewPostID()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := Post{ID: id, Author: author, Title: title, Content: content, Tags: tags, CreatedAt: time.Now()}
	m.posts[p.ID] = p
	return &p, nil
}

func (m *memPosts) Delete(_ context.Context, id string) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	delete(m.posts, id)
	return &p, nil
}

func (m *memPosts) ListByAuthor(_ context.Context, author string) ([]Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Post{}
	for _, p := range m.posts {
		if p.Author == author {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// countingSessions records calls made to the wrapped SessionStore.
type countingSessions struct {
	*MemorySessionStore
	gets, puts, deletes atomic.Int64
}

func newCountingSessions() *countingSessions {
	return &countingSessions{MemorySessionStore: NewMemorySessionStore(0)}
}

func (s *countingSessions) Get(ctx context.Context, id string) (Account, error) {
	s.gets.Add(1)
	return s.MemorySessionStore.Get(ctx, id)
}

func (s *countingSessions) Put(ctx context.Context, id string, a Account) error {
	s.puts.Add(1)
	return s.MemorySessionStore.Put(ctx, id, a)
}

func (s *countingSessions) Delete(ctx context.Context, id string) error {
	s.deletes.Add(1)
	return s.MemorySessionStore.Delete(ctx, id)
}

func (s *countingSessions) mutations() int64 {
	return s.puts.Load() + s.deletes.Load()
}

// plainVerifier treats "plain:<secret>" as the hash of <secret>; bcrypt is covered separately.
type plainVerifier struct {
	calls atomic.Int64
}

func (v *plainVerifier) Verify(plain, hash string) bool {
	v.calls.Add(1)
	return hash == "plain:"+plain
}

// forumFixture wires the full router over in-memory collaborators.
type forumFixture struct {
	cfg         Config
	router      *gin.Engine
	cookieStore *sessions.CookieStore
	accounts    *memAccounts
	posts       *memPosts
	sessions    *countingSessions
	principals  *LRUPrincipalContext
	verifier    *plainVerifier
}

func testConfig() Config {
	return Config{
		SessionKey:        "test-session-key",
		CookieSameSite:    "Lax",
		SessionBackend:    "memory",
		AuthLookupTimeout: time.Second,
		ExemptRoutes:      append([]RouteRule(nil), DefaultExemptRoutes...),
		ModeratorRole:     RoleModerator,
	}
}

func newForumFixture(t *testing.T) *forumFixture {
	t.Helper()
	cfg := testConfig()
	principals, err := NewLRUPrincipalContext(100)
	require.NoError(t, err)

	f := &forumFixture{
		cfg:         cfg,
		cookieStore: sessions.NewCookieStore([]byte(cfg.SessionKey)),
		accounts: newMemAccounts(
			Account{Login: "alice", PasswordHash: "plain:alice-pw", Roles: NewRoleSet("USER")},
			Account{Login: "bob", PasswordHash: "plain:bob-pw", Roles: NewRoleSet("USER")},
			Account{Login: "carol", PasswordHash: "plain:carol-pw", Roles: NewRoleSet("MODERATOR")},
			Account{Login: "dave", PasswordHash: "plain:dave-pw", Roles: NewRoleSet("USER", "ADMINISTRATOR")},
		),
		posts:      newMemPosts(Post{ID: "p1", Title: "hello", Author: "alice", Tags: []string{}}),
		sessions:   newCountingSessions(),
		principals: principals,
		verifier:   &plainVerifier{},
	}

	f.router, err = NewRouter(cfg, RouterDeps{
		CookieStore: f.cookieStore,
		Accounts:    f.accounts,
		Posts:       f.posts,
		Sessions:    f.sessions,
		Principals:  f.principals,
		Verifier:    f.verifier,
	})
	require.NoError(t, err)
	return f
}

type reqOpt func(*http.Request)

func withAuth(login, secret string) reqOpt {
	return func(r *http.Request) {
		r.Header.Set("Authorization", EncodeCredential("Basic", login, secret))
	}
}

func withHeader(name, value string) reqOpt {
	return func(r *http.Request) { r.Header.Set(name, value) }
}

func withCookie(c *http.Cookie) reqOpt {
	return func(r *http.Request) {
		if c != nil {
			r.AddCookie(c)
		}
	}
}

func withJSON(body string) reqOpt {
	return func(r *http.Request) {
		r.Body = io.NopCloser(strings.NewReader(body))
		r.ContentLength = int64(len(body))
		r.Header.Set("Content-Type", "application/json")
	}
}

func (f *forumFixture) do(method, path string, opts ...reqOpt) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// login authenticates with a credential and returns the resulting session cookie.
func (f *forumFixture) login(t *testing.T, login, secret string, opts ...reqOpt) *http.Cookie {
	t.Helper()
	rec := f.do(http.MethodPost, "/account/login", append(opts, withAuth(login, secret))...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := sessionCookie(rec)
	require.NotNil(t, c)
	return c
}

// sessionCookie returns the last session cookie written; it wins over earlier ones.
func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	var last *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionName {
			last = c
		}
	}
	return last
}

// sessionIDOf decodes the transport session id carried by cookie.
func (f *forumFixture) sessionIDOf(t *testing.T, cookie *http.Cookie) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	sess, err := f.cookieStore.Get(req, sessionName)
	require.NoError(t, err)
	sid, _ := sess.Values[sessionIDValue].(string)
	require.NotEmpty(t, sid)
	return sid
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Message
}

var errStoreDown = errors.New("store unavailable")

// failingSessions simulates an unreachable session backend.
type failingSessions struct{}

func (failingSessions) Get(context.Context, string) (Account, error) { return Account{}, errStoreDown }
func (failingSessions) Put(context.Context, string, Account) error   { return errStoreDown }
func (failingSessions) Delete(context.Context, string) error         { return errStoreDown }

// newGateEngine mounts handlers in front of a catch-all route answering 200 "passed".
func newGateEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.Any("/*path", func(c *gin.Context) {
		c.String(http.StatusOK, "passed")
	})
	return r
}
