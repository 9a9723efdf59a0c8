package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)

	token, err := manager.GenerateToken(ServiceClaims{Service: "order-router", Role: "evaluator"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Service != "order-router" {
		t.Errorf("expected service order-router, got %s", claims.Service)
	}
	if claims.Role != "evaluator" {
		t.Errorf("expected role evaluator, got %s", claims.Role)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	manager := NewTokenManager("test-secret", -time.Minute)

	token, err := manager.GenerateToken(ServiceClaims{Service: "order-router"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	_, err = manager.ValidateToken(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)
	other := NewTokenManager("other-secret", time.Hour)

	token, err := manager.GenerateToken(ServiceClaims{Service: "order-router"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	_, err = other.ValidateToken(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := NewTokenManager("test-secret", time.Hour)

	router := gin.New()
	router.GET("/protected", Middleware(manager), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": c.GetString(ContextKeyService)})
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := manager.GenerateToken(ServiceClaims{Service: "dashboard", Role: "reader"})
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})
}
