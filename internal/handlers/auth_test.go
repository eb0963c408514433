package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credstack/apiserver/internal/auth"
	"github.com/credstack/apiserver/internal/services"
	"github.com/credstack/apiserver/internal/store"
	"github.com/credstack/apiserver/types"
)

// memoryRepo is an in-memory stand-in for the account repository with
// the same error contract.
type memoryRepo struct {
	users       map[string]types.User
	credentials map[string]types.Credentials
	nextID      int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		users:       make(map[string]types.User),
		credentials: make(map[string]types.Credentials),
		nextID:      1,
	}
}

func (r *memoryRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	user, ok := r.users[email]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memoryRepo) GetCredentials(ctx context.Context, email string) (types.Credentials, error) {
	creds, ok := r.credentials[email]
	if !ok {
		return types.Credentials{}, store.ErrNotFound
	}
	return creds, nil
}

func (r *memoryRepo) CreateWithCredentials(ctx context.Context, email, name, passwordHash string) (types.User, error) {
	if _, ok := r.users[email]; ok {
		return types.User{}, store.ErrConflict
	}
	now := time.Now()
	user := types.User{
		ID:        r.nextID,
		Email:     email,
		Name:      name,
		Role:      types.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.nextID++
	r.users[email] = user
	r.credentials[email] = types.Credentials{UserID: user.ID, Name: name, PasswordHash: passwordHash}
	return user, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memoryRepo) List(ctx context.Context, cursor, limit int) ([]types.User, int, error) {
	all := make([]types.User, 0, len(r.users))
	for _, user := range r.users {
		if user.ID > cursor {
			all = append(all, user)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	nextCursor := 0
	if len(all) > limit {
		all = all[:limit]
		nextCursor = all[limit-1].ID
	}
	return all, nextCursor, nil
}

type testEnv struct {
	router *chi.Mux
	repo   *memoryRepo
	codec  *auth.TokenCodec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newMemoryRepo()
	hasher := auth.NewPasswordHasher()
	codec := auth.NewTokenCodec("test-secret", time.Hour)
	sessions := auth.NewSessionCookies(codec, auth.CookieConfig{SameSite: http.SameSiteLaxMode})

	authService := services.NewAuthService(repo, hasher, codec)
	userService := services.NewUserService(repo)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, authService, sessions)
	})
	router.Route("/users", func(r chi.Router) {
		UserRouter(r, userService, RequireSession(sessions, codec))
	})

	return &testEnv{router: router, repo: repo, codec: codec}
}

func (e *testEnv) post(t *testing.T, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

func (e *testEnv) get(t *testing.T, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	for _, cookie := range cookies {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == auth.SessionCookieName {
			return cookie
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func signUpBody(email, name, password string) map[string]string {
	return map[string]string{"email": email, "name": name, "password": password}
}

func signInBody(email, password string) map[string]string {
	return map[string]string{"email": email, "password": password}
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	// Signup sets a session cookie and returns 201.
	w := env.post(t, "/auth/signup/credential", signUpBody("a@x.com", "Ann", "secret1"))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	signupCookie := sessionCookie(t, w)

	// The same email again, with different case, conflicts.
	w = env.post(t, "/auth/signup/credential", signUpBody("A@X.com", "Ann", "secret1"))
	assert.Equal(t, http.StatusConflict, w.Code)

	// Wrong password is rejected.
	w = env.post(t, "/auth/signin/credential", signInBody("a@x.com", "wrong!"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Correct credentials sign in and set a fresh cookie.
	w = env.post(t, "/auth/signin/credential", signInBody("a@x.com", "secret1"))
	require.Equal(t, http.StatusOK, w.Code)
	signinCookie := sessionCookie(t, w)
	assert.NotEmpty(t, signinCookie.Value)

	// The session grants access to the user listing.
	w = env.get(t, fmt.Sprintf("/users/%d", 1), signinCookie)
	require.Equal(t, http.StatusOK, w.Code)
	var user types.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "Ann", user.Name)

	// Signout clears the cookie.
	w = env.post(t, "/auth/signout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cleared := sessionCookie(t, w)
	assert.Negative(t, cleared.MaxAge)
	assert.Empty(t, cleared.Value)

	// The old token itself stays valid until expiry: sessions are
	// stateless, signout only deletes the client's copy.
	w = env.post(t, "/auth/verify", map[string]string{"session": signupCookie.Value})
	require.Equal(t, http.StatusOK, w.Code)
	var valid bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &valid))
	assert.True(t, valid)
}

func TestSignUpValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{name: "missing email", body: signUpBody("", "Ann", "secret1")},
		{name: "email without at sign", body: signUpBody("not-an-email", "Ann", "secret1")},
		{name: "missing name", body: signUpBody("a@x.com", "", "secret1")},
		{name: "short password", body: signUpBody("a@x.com", "Ann", "short")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.post(t, "/auth/signup/credential", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSignInFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)

	w := env.post(t, "/auth/signup/credential", signUpBody("a@x.com", "Ann", "secret1"))
	require.Equal(t, http.StatusCreated, w.Code)

	wrongPassword := env.post(t, "/auth/signin/credential", signInBody("a@x.com", "wrong!"))
	unknownEmail := env.post(t, "/auth/signin/credential", signInBody("ghost@x.com", "wrong!"))

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestVerifyNeverReturnsAnErrorBody(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "empty session", body: map[string]string{"session": ""}},
		{name: "garbage token", body: map[string]string{"session": "not.a.token"}},
		{name: "malformed json", body: "not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.post(t, "/auth/verify", tt.body)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "false", string(bytes.TrimSpace(w.Body.Bytes())))
		})
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	env := newTestEnv(t)

	// Token issued an hour and a second before its verification time.
	issued := time.Now().Add(-time.Hour - time.Second)
	token, err := env.codec.Sign(1, issued)
	require.NoError(t, err)

	w := env.post(t, "/auth/verify", map[string]string{"session": token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", string(bytes.TrimSpace(w.Body.Bytes())))
}

func TestSignOutIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	// No session exists; signout still succeeds.
	w := env.post(t, "/auth/signout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}

func TestRequireSessionInjectsSubject(t *testing.T) {
	env := newTestEnv(t)

	w := env.post(t, "/auth/signup/credential", signUpBody("a@x.com", "Ann", "secret1"))
	require.Equal(t, http.StatusCreated, w.Code)
	cookie := sessionCookie(t, w)

	codec := env.codec
	sessions := auth.NewSessionCookies(codec, auth.CookieConfig{SameSite: http.SameSiteLaxMode})

	var gotSubject int
	handler := RequireSession(sessions, codec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := SubjectFromContext(r.Context())
		require.True(t, ok)
		gotSubject = subject
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookie)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, 1, gotSubject)
}

func TestRequireSessionRejectsMissingAndInvalidCookies(t *testing.T) {
	env := newTestEnv(t)

	w := env.get(t, "/users/")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.get(t, "/users/", &http.Cookie{Name: auth.SessionCookieName, Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
