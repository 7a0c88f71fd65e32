package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"peereval/internal/api/middleware"
	"peereval/internal/auth"
)

func setupAuthRouter(authenticator *auth.Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.Auth(authenticator))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin_id": middleware.AdminID(c)})
	})
	return router
}

func TestAuth_MissingHeader(t *testing.T) {
	router := setupAuthRouter(auth.New("secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_InvalidToken(t *testing.T) {
	router := setupAuthRouter(auth.New("secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ValidToken(t *testing.T) {
	authenticator := auth.New("secret", time.Hour)
	token, err := authenticator.GenerateToken("admin-1", "prof@example.edu", "professor")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	router := setupAuthRouter(authenticator)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin-1")
}

func TestAuth_ExpiredToken(t *testing.T) {
	authenticator := auth.New("secret", -time.Hour)
	token, err := authenticator.GenerateToken("admin-1", "prof@example.edu", "professor")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	router := setupAuthRouter(authenticator)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
