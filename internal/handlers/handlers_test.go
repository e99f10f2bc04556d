package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reseau-affaires/apiserver/config"
	"github.com/reseau-affaires/apiserver/internal/authz"
	"github.com/reseau-affaires/apiserver/internal/services"
	"github.com/reseau-affaires/apiserver/internal/store"
	"github.com/reseau-affaires/apiserver/types"
)

const testSecret = "test-secret"

// memAccounts keeps referrer accounts in memory. Methods the handlers
// under test never reach fall through to the nil embedded interface.
type memAccounts struct {
	services.AccountRepository

	mu    sync.Mutex
	users map[int]types.User
}

func newMemAccounts() *memAccounts {
	return &memAccounts{users: map[int]types.User{}}
}

func (m *memAccounts) GetUser(_ context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memAccounts) GetUserByUsername(_ context.Context, username string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memAccounts) CreateAccount(_ context.Context, profile types.Profile) (types.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := profile.Account()
	user.ID = len(m.users) + 1
	user.Role = profile.Role()
	m.users[user.ID] = user
	return types.ApporteurAffaires{ID: 100 + user.ID, UserID: user.ID, User: user}, nil
}

func (m *memAccounts) ProfileIDForUser(_ context.Context, _ types.Role, userID int) (int, error) {
	return 100 + userID, nil
}

func (m *memAccounts) SetActive(_ context.Context, userID int, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.IsActive = active
	m.users[userID] = user
	return nil
}

type memAnnonces struct {
	mu       sync.Mutex
	annonces []types.Annonce
}

func (m *memAnnonces) List(_ context.Context, filter types.AnnonceFilter) ([]types.Annonce, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Annonce
	for _, a := range m.annonces {
		if filter.MotCle != "" && !strings.Contains(strings.ToLower(a.Titre), strings.ToLower(filter.MotCle)) {
			continue
		}
		if filter.AuteurID != 0 && a.AuteurID != filter.AuteurID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memAnnonces) Get(_ context.Context, id int) (types.Annonce, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.annonces {
		if a.ID == id {
			return a, nil
		}
	}
	return types.Annonce{}, store.ErrNotFound
}

func (m *memAnnonces) Create(_ context.Context, a types.Annonce) (types.Annonce, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = len(m.annonces) + 1
	a.DatePublication = time.Now()
	a.AuteurUsername = fmt.Sprintf("user%d", a.AuteurID)
	m.annonces = append(m.annonces, a)
	return a, nil
}

func (m *memAnnonces) Update(_ context.Context, a types.Annonce) (types.Annonce, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.annonces {
		if m.annonces[i].ID == a.ID {
			m.annonces[i] = a
			return a, nil
		}
	}
	return types.Annonce{}, store.ErrNotFound
}

func (m *memAnnonces) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.annonces {
		if m.annonces[i].ID == id {
			m.annonces = append(m.annonces[:i], m.annonces[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type testAPI struct {
	router   http.Handler
	accounts *memAccounts
	annonces *memAnnonces
}

func newTestAPI() *testAPI {
	accountsRepo := newMemAccounts()
	annoncesRepo := &memAnnonces{}
	accounts := services.NewAccountService(accountsRepo, nil)
	users := services.NewUserService(accounts)
	annonces := services.NewAnnonceService(annoncesRepo, nil, nil, nil)

	r := chi.NewRouter()
	r.Use(Authenticate(accounts, testSecret))
	r.Route("/auth", func(r chi.Router) {
		AuthRouter(r, accounts, users, config.JWTConfig{Secret: testSecret, TTL: time.Hour}, nil)
	})
	r.Route("/signup", func(r chi.Router) {
		SignupRouter(r, accounts)
	})
	r.Route("/annonces", func(r chi.Router) {
		AnnonceRouter(r, annonces, 1<<20)
	})
	return &testAPI{router: r, accounts: accountsRepo, annonces: annoncesRepo}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) signupAndLogin(t *testing.T, username string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/signup", "", map[string]any{
		"role": "apporteur",
		"user": map[string]string{"username": username, "password": "motdepasse"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/auth/token", "", LoginRequest{Username: username, Password: "motdepasse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[AuthResponse](t, rec).Token
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := issueToken(42, []byte(testSecret), time.Hour)
	require.NoError(t, err)

	subject, err := parseTokenSubject(token, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "42", subject)

	_, err = parseTokenSubject(token, []byte("other-secret"))
	assert.Error(t, err)

	expired, err := issueToken(42, []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	_, err = parseTokenSubject(expired, []byte(testSecret))
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for header, ok := range map[string]bool{
		"Bearer abc": true,
		"bearer abc": true,
		"Basic abc":  false,
		"Bearer ":    false,
		"abc":        false,
	} {
		req.Header.Set("Authorization", header)
		token, err := bearerToken(req)
		if ok {
			assert.NoError(t, err, header)
			assert.Equal(t, "abc", token)
		} else {
			assert.Error(t, err, header)
		}
	}
}

type stubResolver struct {
	actor authz.Actor
	err   error
}

func (s stubResolver) ResolveActor(context.Context, int) (authz.Actor, error) {
	return s.actor, s.err
}

func TestAuthenticate(t *testing.T) {
	var seen authz.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = actorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	resolved := authz.Actor{UserID: 7, Role: types.RoleApporteur, ProfileID: 70}
	valid, err := issueToken(7, []byte(testSecret), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		resolver stubResolver
		status   int
		actor    authz.Actor
	}{
		{name: "anonymous", status: http.StatusNoContent, actor: authz.Anonymous},
		{name: "valid token", header: "Bearer " + valid, resolver: stubResolver{actor: resolved}, status: http.StatusNoContent, actor: resolved},
		{name: "garbage token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Token " + valid, status: http.StatusUnauthorized},
		{name: "inactive account", header: "Bearer " + valid, resolver: stubResolver{err: services.ErrAccountInactive}, status: http.StatusUnauthorized},
		{name: "unknown user", header: "Bearer " + valid, resolver: stubResolver{err: store.ErrNotFound}, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = authz.Actor{UserID: -1}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(tt.resolver, testSecret)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				assert.Equal(t, tt.actor, seen)
			}
		})
	}
}

func TestSignupAndLogin(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/signup", "", map[string]any{
		"role": "apporteur",
		"user": map[string]string{"username": "awa", "password": "motdepasse"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	signup := decodeBody[SignupResponse](t, rec)
	assert.Equal(t, 101, signup.ID)
	assert.Equal(t, "Compte apporteur créé avec succès", signup.Message)

	rec = api.do(t, http.MethodPost, "/auth/token", "", LoginRequest{Username: "awa", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/auth/token", "", LoginRequest{Username: "awa", Password: "motdepasse"})
	require.Equal(t, http.StatusOK, rec.Code)
	auth := decodeBody[AuthResponse](t, rec)
	assert.NotEmpty(t, auth.Token)
	assert.Equal(t, "awa", auth.User.Username)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = api.do(t, http.MethodGet, "/auth/me", auth.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.RoleApporteur, decodeBody[types.User](t, rec).Role)

	rec = api.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignupRejectsInvalidPayload(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/signup", "", map[string]any{
		"role": "pirate",
		"user": map[string]string{"username": "awa", "password": "motdepasse"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Fields, "role")

	rec = api.do(t, http.MethodPost, "/signup", "", map[string]any{
		"role": "apporteur",
		"user": map[string]string{"username": "awa", "password": "court"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Fields, "user.password")
	assert.Empty(t, api.accounts.users)
}

func TestDeactivatedAccountIsRejected(t *testing.T) {
	api := newTestAPI()
	token := api.signupAndLogin(t, "awa")

	rec := api.do(t, http.MethodDelete, "/auth/me", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "account inactive", decodeBody[ErrorResponse](t, rec).Error)
}

func TestAnnonceEndpoints(t *testing.T) {
	api := newTestAPI()
	owner := api.signupAndLogin(t, "awa")
	other := api.signupAndLogin(t, "binta")

	rec := api.do(t, http.MethodPost, "/annonces", "", map[string]string{"titre": "x", "description": "x", "contact": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/annonces", owner, map[string]string{"titre": "Export de fruits"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeBody[ErrorResponse](t, rec).Fields
	assert.Contains(t, fields, "description")
	assert.Contains(t, fields, "contact")

	rec = api.do(t, http.MethodPost, "/annonces", owner, map[string]string{
		"titre":       "Export de fruits",
		"description": "Mangues",
		"contact":     "awa@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "opportunites_affaires", created["categorie"])
	assert.Equal(t, "Apporteur: user101", created["auteur"])
	assert.Equal(t, true, created["est_recente"])
	assert.Nil(t, created["pieces_jointes"])
	id := int(created["id"].(float64))
	path := "/annonces/" + strconv.Itoa(id)

	rec = api.do(t, http.MethodGet, "/annonces?mot_cle=FRUITS", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[ListResponse[map[string]any]](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, defaultLimit, list.Limit)

	rec = api.do(t, http.MethodPatch, path, other, map[string]string{"titre": "Pris"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPatch, path, owner, map[string]string{"titre": "Export de mangues"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Export de mangues", decodeBody[map[string]any](t, rec)["titre"])

	rec = api.do(t, http.MethodGet, "/annonces/mine", other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[ListResponse[map[string]any]](t, rec).Items)

	rec = api.do(t, http.MethodDelete, path, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodDelete, path, owner, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, "/annonces/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
