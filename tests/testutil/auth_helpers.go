package testutil

import (
	"strings"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/satis-shop/satis-api/middleware"
	"github.com/satis-shop/satis-api/models"
)

// MockValidatedClaims creates a mock ValidatedClaims for testing
func MockValidatedClaims(subject, issuer, role string, scopes []string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  issuer,
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{
			Scope: strings.Join(scopes, " "),
			Role:  role,
		},
	}
}

// SetMockAuthContext sets up the context the way EnsureValidToken does
func SetMockAuthContext(c *gin.Context, userID, role, accessToken string, scopes []string) {
	c.Set(middleware.ContextUserID, userID)
	c.Set(middleware.ContextAccessToken, accessToken)
	c.Set(middleware.ContextClaims, MockValidatedClaims(userID, "https://test.auth0.com/", role, scopes))
}

// MockToken simulates EnsureValidToken for a subject that may not have a stored profile yet
func MockToken(userID, role, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		SetMockAuthContext(c, userID, role, accessToken, nil)
		c.Next()
	}
}

// MockAuth simulates EnsureValidToken followed by LoadCurrentUser for user.
// A nil user leaves the request unauthenticated.
func MockAuth(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			SetMockAuthContext(c, user.Auth0ID, user.Role, "token-"+user.Auth0ID, nil)
			c.Set(middleware.ContextCurrentUser, user)
		}
		c.Next()
	}
}

// CreateTestContext creates a test Gin context
func CreateTestContext() (*gin.Context, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	c, engine := gin.CreateTestContext(nil)
	return c, engine
}
