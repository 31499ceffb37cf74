package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testAdminSecret = "admin-secret"

func adminRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	grp := r.Group("/admin")
	grp.Use(AdminAuthMiddleware(secret))
	grp.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sub": c.GetString("admin_sub")})
	})
	return r
}

func signToken(t *testing.T, secret, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAdminAuth_ValidToken(t *testing.T) {
	r := adminRouter(testAdminSecret)

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testAdminSecret, "ops@vibestack"))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ops@vibestack")
}

func TestAdminAuth_WrongSecretIsRejected(t *testing.T) {
	r := adminRouter(testAdminSecret)

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", "ops@vibestack"))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_MissingTokenIsRejected(t *testing.T) {
	r := adminRouter(testAdminSecret)

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_UnconfiguredSecret(t *testing.T) {
	r := adminRouter("")

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testAdminSecret, "ops@vibestack"))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
