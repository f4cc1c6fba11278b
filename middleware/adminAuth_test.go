package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zapagenda/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
)

func adminRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	prev := config.AppConfig.AdminJWTSecret
	config.AppConfig.AdminJWTSecret = "test-secret"
	t.Cleanup(func() { config.AppConfig.AdminJWTSecret = prev })

	router := gin.New()
	router.GET("/api/admin/tenants/:tenantId", JWTAuthAdminMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenantId": c.GetString("tenantId")})
	})
	return router
}

func signAdminToken(t *testing.T, secret, tenantID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tenant_id": tenantID,
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func adminGet(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAdminAuthAcceptsMatchingTenant(t *testing.T) {
	router := adminRouter(t)
	token := signAdminToken(t, "test-secret", "t1")

	rec := adminGet(router, "/api/admin/tenants/t1", token)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"tenantId":"t1"`)
}

func TestAdminAuthRejectsMissingHeader(t *testing.T) {
	router := adminRouter(t)

	rec := adminGet(router, "/api/admin/tenants/t1", "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAuthRejectsBadSignature(t *testing.T) {
	router := adminRouter(t)
	token := signAdminToken(t, "wrong-secret", "t1")

	rec := adminGet(router, "/api/admin/tenants/t1", token)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAuthRejectsCrossTenantToken(t *testing.T) {
	router := adminRouter(t)
	token := signAdminToken(t, "test-secret", "t2")

	rec := adminGet(router, "/api/admin/tenants/t1", token)

	require.Equal(t, http.StatusForbidden, rec.Code)
}
