package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quizonomy/internal/apperr"
	"quizonomy/internal/models"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Error   bool            `json:"error"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// newTestRouter wires the auth routes the same way main does.
func newTestRouter(store Store, authn Authenticator) *mux.Router {
	logger := discardLogger()
	h := NewHandler(NewService(store, logger), authn, logger)

	r := mux.NewRouter()
	r.Use(Middleware(authn, logger))
	r.HandleFunc("/user", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/user", h.ListUsers).Methods(http.MethodGet)
	r.HandleFunc("/session", h.Login).Methods(http.MethodPost)
	r.Handle("/session", RequireUser(http.HandlerFunc(h.Me))).Methods(http.MethodGet)
	r.Handle("/session", RequireUser(http.HandlerFunc(h.Logout))).Methods(http.MethodDelete)
	return r
}

func do(r http.Handler, method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndLoginWithSessionScheme(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(store, NewSessionAuthenticator(store, discardLogger()))

	rec := do(router, http.MethodPost, "/user", `{"username":"ada","password":"Secret1!x"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	stored, err := store.FindUserByUsername(context.Background(), "ada")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret1!x", stored.Password, "password is hashed")
	assert.EqualValues(t, models.DailyQuota, stored.DailyCount)

	rec = do(router, http.MethodPost, "/session", `{"username":"ada","password":"Secret1!x"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var creds Credentials
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &creds))
	require.NotEmpty(t, creds.SessionKey)

	withKey := func(r *http.Request) { r.Header.Set("Authorization", creds.SessionKey) }

	rec = do(router, http.MethodGet, "/session", "", withKey)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.UserExtendedDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &me))
	assert.Equal(t, "ada", me.Username)
	assert.EqualValues(t, 3, me.DailyCount)

	rec = do(router, http.MethodDelete, "/session", "", withKey)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/session", "", withKey)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(store, NewSessionAuthenticator(store, discardLogger()))

	for _, body := range []string{
		`{"username":"ab","password":"Secret1!x"}`,
		`{"username":"ada","password":"short"}`,
		`{"username":"","password":"Secret1!x"}`,
		`not json`,
	} {
		rec := do(router, http.MethodPost, "/user", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(store, NewSessionAuthenticator(store, discardLogger()))

	body := `{"username":"ada","password":"Secret1!x"}`
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/user", body).Code)
	assert.Equal(t, http.StatusConflict, do(router, http.MethodPost, "/user", body).Code)
}

func TestLoginFailures(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(store, NewSessionAuthenticator(store, discardLogger()))
	require.Equal(t, http.StatusCreated,
		do(router, http.MethodPost, "/user", `{"username":"ada","password":"Secret1!x"}`).Code)

	rec := do(router, http.MethodPost, "/session", `{"username":"bob","password":"Secret1!x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodPost, "/session", `{"username":"ada","password":"Wrong1!xx"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, store.sessionCount())
}

func TestLoginWithTokenSchemeSetsCookies(t *testing.T) {
	store := newMemStore()
	a, _, _ := newTestTokenAuthenticator(store)
	router := newTestRouter(store, a)
	require.Equal(t, http.StatusCreated,
		do(router, http.MethodPost, "/user", `{"username":"ada","password":"Secret1!x"}`).Code)

	rec := do(router, http.MethodPost, "/session", `{"username":"ada","password":"Secret1!x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	access := responseCookie(rec, "access")
	require.NotNil(t, access)

	rec = do(router, http.MethodGet, "/session", "", func(r *http.Request) { r.AddCookie(access) })
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListUsersHidesPasswords(t *testing.T) {
	store := newMemStore()
	store.addUser("ada")
	store.addUser("grace")
	router := newTestRouter(store, NewSessionAuthenticator(store, discardLogger()))

	rec := do(router, http.MethodGet, "/user", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	var users []models.UserDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &users))
	require.Len(t, users, 2)
	assert.Equal(t, "ada", users[0].Username)
}

func TestMiddlewareStoreFailureIs500(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(store, NewSessionAuthenticator(store, discardLogger()))
	store.failWith = apperr.ErrStoreUnavailable

	rec := do(router, http.MethodGet, "/session", "", func(r *http.Request) { r.Header.Set("Authorization", "k") })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeEnvelope(t, rec).Message)
}

func TestRequireUserRejectsAnonymous(t *testing.T) {
	called := false
	h := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), Principal{Username: "ada"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.True(t, called)
}

func TestMeForDeletedUserIs500(t *testing.T) {
	store := newMemStore()
	authn, issuer, _ := newTestTokenAuthenticator(store)
	router := newTestRouter(store, authn)

	token, err := issuer.IssueAccessToken(&models.User{ID: 99, Username: "ghost"})
	require.NoError(t, err)

	rec := do(router, http.MethodGet, "/session", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeEnvelope(t, rec).Message)
}
