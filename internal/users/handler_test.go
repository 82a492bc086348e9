package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aura-events/backend/internal/auth"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
	"github.com/aura-events/backend/pkg/password"
)

type memStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.User
	// owners holds users that still own events.
	owners map[uuid.UUID]bool
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[uuid.UUID]*models.User), owners: make(map[uuid.UUID]bool)}
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) List(_ context.Context) ([]models.UserPublic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := []models.UserPublic{}
	for _, u := range m.byID {
		if u.Role != models.RoleAdmin {
			list = append(list, u.ToPublic())
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Email < list[j].Email })
	return list, nil
}

func (m *memStore) emailTaken(email string, except uuid.UUID) bool {
	for _, u := range m.byID {
		if u.Email == email && u.ID != except {
			return true
		}
	}
	return false
}

func (m *memStore) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(u.Email, uuid.Nil) {
		return database.ErrDuplicate
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memStore) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return database.ErrNotFound
	}
	if m.emailTaken(u.Email, u.ID) {
		return database.ErrDuplicate
	}
	u.UpdatedAt = time.Now()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memStore) OwnsEvents(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owners[id], nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return database.ErrNotFound
	}
	if m.owners[id] {
		return database.ErrForeignKey
	}
	delete(m.byID, id)
	return nil
}

type userFixture struct {
	router *gin.Engine
	store  *memStore
	hasher *password.Hasher
	jwt    *auth.JWTService
	admin  *models.User
	staff  *models.User
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hasher, err := password.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	f := &userFixture{store: newMemStore(), hasher: hasher, jwt: auth.NewJWTService("test-secret", time.Hour)}
	f.admin = f.seed(t, "admin@x.com", models.RoleAdmin)
	f.staff = f.seed(t, "staff@x.com", models.RoleStaff)

	h := NewHandler(f.store, hasher, zap.NewNop())
	r := gin.New()
	r.Use(middleware.Session(f.jwt, auth.Cookie{Name: "session"}, nil, zap.NewNop()))
	r.GET("/users", h.List)
	r.POST("/users", h.Create)
	r.GET("/users/:id", h.Get)
	r.PUT("/users/:id", h.Update)
	r.DELETE("/users/:id", h.Delete)
	f.router = r
	return f
}

func (f *userFixture) seed(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	hash, err := f.hasher.Hash("secret1")
	require.NoError(t, err)
	u := &models.User{Email: email, Role: role, PasswordHash: hash}
	require.NoError(t, f.store.Create(context.Background(), u))
	return u
}

func (f *userFixture) do(t *testing.T, method, path string, body any, as *models.User) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		tok, _, err := f.jwt.Generate(as)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestAdminOnly(t *testing.T) {
	f := newUserFixture(t)
	target := "/users/" + f.staff.ID.String()

	routes := []struct{ method, path string }{
		{http.MethodGet, "/users"},
		{http.MethodPost, "/users"},
		{http.MethodGet, target},
		{http.MethodPut, target},
		{http.MethodDelete, target},
	}
	for _, rt := range routes {
		w := f.do(t, rt.method, rt.path, gin.H{}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s anonymous", rt.method, rt.path)
		w = f.do(t, rt.method, rt.path, gin.H{}, f.staff)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s as staff", rt.method, rt.path)
	}
	_, err := f.store.GetByID(context.Background(), f.staff.ID)
	assert.NoError(t, err)
}

func TestListExcludesAdmins(t *testing.T) {
	f := newUserFixture(t)
	f.seed(t, "owner@x.com", models.RoleEventOwner)

	w := f.do(t, http.MethodGet, "/users", nil, f.admin)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Users []models.UserPublic `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Users, 2)
	for _, u := range out.Users {
		assert.NotEqual(t, models.RoleAdmin, u.Role)
	}
	assert.NotContains(t, w.Body.String(), "password")
}

func TestCreate(t *testing.T) {
	f := newUserFixture(t)

	w := f.do(t, http.MethodPost, "/users", gin.H{"email": "New@X.com", "role": "STAFF", "password": "secret1"}, f.admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		User models.UserPublic `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "new@x.com", out.User.Email)

	stored, err := f.store.GetByID(context.Background(), out.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, f.hasher.Verify("secret1", stored.PasswordHash))

	w = f.do(t, http.MethodPost, "/users", gin.H{"email": "new@x.com", "role": "STAFF", "password": "secret1"}, f.admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	for name, body := range map[string]gin.H{
		"admin role":     {"email": "a2@x.com", "role": "ADMIN", "password": "secret1"},
		"unknown role":   {"email": "a3@x.com", "role": "ROOT", "password": "secret1"},
		"missing email":  {"role": "STAFF", "password": "secret1"},
		"missing pass":   {"email": "a4@x.com", "role": "STAFF"},
		"short password": {"email": "a5@x.com", "role": "STAFF", "password": "abc"},
	} {
		w := f.do(t, http.MethodPost, "/users", body, f.admin)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}

func TestGet(t *testing.T) {
	f := newUserFixture(t)

	w := f.do(t, http.MethodGet, "/users/"+f.staff.ID.String(), nil, f.admin)
	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, map[string]any{"id": f.staff.ID.String(), "email": "staff@x.com", "role": "STAFF"}, out["user"])

	w = f.do(t, http.MethodGet, "/users/"+uuid.NewString(), nil, f.admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdate(t *testing.T) {
	f := newUserFixture(t)
	before, err := f.store.GetByID(context.Background(), f.staff.ID)
	require.NoError(t, err)
	path := "/users/" + f.staff.ID.String()

	w := f.do(t, http.MethodPut, path, gin.H{"email": "promoted@x.com", "role": "EVENT_OWNER"}, f.admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	after, err := f.store.GetByID(context.Background(), f.staff.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEventOwner, after.Role)
	assert.Equal(t, before.PasswordHash, after.PasswordHash, "empty password keeps the stored hash")

	w = f.do(t, http.MethodPut, path, gin.H{"email": "promoted@x.com", "role": "EVENT_OWNER", "password": "newpass1"}, f.admin)
	require.Equal(t, http.StatusOK, w.Code)
	after, err = f.store.GetByID(context.Background(), f.staff.ID)
	require.NoError(t, err)
	assert.True(t, f.hasher.Verify("newpass1", after.PasswordHash))

	w = f.do(t, http.MethodPut, path, gin.H{"email": "promoted@x.com", "role": "ADMIN"}, f.admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, path, gin.H{"email": "admin@x.com", "role": "STAFF"}, f.admin)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdate_OwnerWithEventsCannotBecomeStaff(t *testing.T) {
	f := newUserFixture(t)
	owner := f.seed(t, "owner@x.com", models.RoleEventOwner)
	f.store.owners[owner.ID] = true
	path := "/users/" + owner.ID.String()

	w := f.do(t, http.MethodPut, path, gin.H{"email": "owner@x.com", "role": "STAFF"}, f.admin)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "User still owns events")
	stored, err := f.store.GetByID(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEventOwner, stored.Role)

	w = f.do(t, http.MethodPut, path, gin.H{"email": "renamed@x.com", "role": "EVENT_OWNER"}, f.admin)
	assert.Equal(t, http.StatusOK, w.Code, "keeping the role is fine")

	delete(f.store.owners, owner.ID)
	w = f.do(t, http.MethodPut, path, gin.H{"email": "renamed@x.com", "role": "STAFF"}, f.admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdate_AdminTargetRefused(t *testing.T) {
	f := newUserFixture(t)
	other := f.seed(t, "admin2@x.com", models.RoleAdmin)
	path := "/users/" + other.ID.String()

	w := f.do(t, http.MethodPut, path, gin.H{"email": "admin2@x.com", "role": "STAFF"}, f.admin)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Cannot modify ADMIN user")

	w = f.do(t, http.MethodDelete, path, nil, f.admin)
	assert.Equal(t, http.StatusForbidden, w.Code)
	stored, err := f.store.GetByID(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, stored.Role)
}

func TestDelete(t *testing.T) {
	f := newUserFixture(t)
	owner := f.seed(t, "owner@x.com", models.RoleEventOwner)
	f.store.owners[owner.ID] = true

	w := f.do(t, http.MethodDelete, "/users/"+f.admin.ID.String(), nil, f.admin)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Cannot delete ADMIN user")

	w = f.do(t, http.MethodDelete, "/users/"+owner.ID.String(), nil, f.admin)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "User still owns events")

	w = f.do(t, http.MethodDelete, "/users/"+f.staff.ID.String(), nil, f.admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "User deleted successfully")

	w = f.do(t, http.MethodDelete, "/users/"+f.staff.ID.String(), nil, f.admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
