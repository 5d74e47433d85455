package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	adapterHTTP "github.com/ritmoapp/progress-engine/internal/adapters/handler/http"
	"github.com/ritmoapp/progress-engine/internal/core/domain"
	"github.com/ritmoapp/progress-engine/internal/core/services"
)

type MockUserRepo struct {
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
}

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.byEmail[user.Email]; exists {
		return domain.ErrEmailAlreadyExists
	}
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func setupAuthRouter() (*gin.Engine, *services.TokenService) {
	gin.SetMode(gin.TestMode)

	repo := NewMockUserRepo()
	authService := services.NewAuthService(repo)
	tokenService := services.NewTokenService("test-secret", "test-issuer", time.Hour, repo)
	handler := adapterHTTP.NewAuthHandler(authService, tokenService)

	r := gin.New()
	handler.RegisterRoutes(r.Group("/api/v1"))
	return r, tokenService
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("Success: 201 Created", func(t *testing.T) {
		router, _ := setupAuthRouter()

		body := `{"email": "anna@example.com", "password": "secret-pass"}`
		w := doJSON(router, "POST", "/api/v1/auth/register", "", body)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"email":"anna@example.com"`)
		assert.NotContains(t, w.Body.String(), "password")
	})

	t.Run("Fail: 409 on duplicate email", func(t *testing.T) {
		router, _ := setupAuthRouter()
		body := `{"email": "anna@example.com", "password": "secret-pass"}`

		w := doJSON(router, "POST", "/api/v1/auth/register", "", body)
		assert.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(router, "POST", "/api/v1/auth/register", "", body)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Fail: 400 on short password", func(t *testing.T) {
		router, _ := setupAuthRouter()

		w := doJSON(router, "POST", "/api/v1/auth/register", "", `{"email": "anna@example.com", "password": "short"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLoginEndpoint(t *testing.T) {
	register := func(router *gin.Engine) {
		w := doJSON(router, "POST", "/api/v1/auth/register", "", `{"email": "anna@example.com", "password": "secret-pass"}`)
		if w.Code != http.StatusCreated {
			panic("register fixture failed")
		}
	}

	t.Run("Success: returns a usable token", func(t *testing.T) {
		router, tokenService := setupAuthRouter()
		register(router)

		w := doJSON(router, "POST", "/api/v1/auth/login", "", `{"email": "anna@example.com", "password": "secret-pass"}`)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Token string `json:"token"`
			User  struct {
				ID    string `json:"id"`
				Email string `json:"email"`
			} `json:"user"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "anna@example.com", resp.User.Email)

		subject, err := tokenService.ValidateToken(resp.Token)
		assert.NoError(t, err)
		assert.Equal(t, resp.User.ID, subject)
	})

	t.Run("Fail: 401 on wrong password", func(t *testing.T) {
		router, _ := setupAuthRouter()
		register(router)

		w := doJSON(router, "POST", "/api/v1/auth/login", "", `{"email": "anna@example.com", "password": "wrong-pass"}`)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Fail: 401 on unknown email", func(t *testing.T) {
		router, _ := setupAuthRouter()

		w := doJSON(router, "POST", "/api/v1/auth/login", "", `{"email": "ghost@example.com", "password": "secret-pass"}`)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
