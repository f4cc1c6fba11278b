package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"zapagenda/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// JWTAuthAdminMiddleware guards the dashboard API. Tokens are HS256, signed
// with the configured admin secret, and must carry a tenant_id claim
// matching the route.
func JWTAuthAdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(config.AppConfig.AdminJWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized admin access"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		tenantID, _ := claims["tenant_id"].(string)
		if routeTenant := c.Param("tenantId"); routeTenant != "" && tenantID != routeTenant {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Token not valid for this tenant"})
			return
		}

		c.Set("tenantId", tenantID)
		c.Set("isAdmin", true)
		c.Next()
	}
}
