package middleware

import (
	"net/http"
	"strings"

	"carwash/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the token "role" claim
const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

// Context keys set by the auth middleware
const (
	CtxUserID   = "userID"
	CtxUserRole = "userRole"
)

// tokenFrom reads the bearer token, falling back to the access_token cookie.
func tokenFrom(c *gin.Context) (string, string) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", "Invalid authorization format. Expected 'Bearer <token>'"
		}
		return parts[1], ""
	}
	if cookie, err := c.Cookie("access_token"); err == nil && cookie != "" {
		return cookie, ""
	}
	return "", "Authorization is missing"
}

// ParseToken verifies an HMAC-signed token and returns its claims.
func ParseToken(tokenString string, secret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// RequireRole validates the JWT and checks the role claim against allowedRoles.
// With no roles given any authenticated caller passes.
func RequireRole(secret []byte, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, msg := tokenFrom(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, msg))
			return
		}

		claims, err := ParseToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		userRole, ok := claims["role"].(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
			return
		}

		if len(allowedRoles) > 0 {
			roleAllowed := false
			for _, role := range allowedRoles {
				if userRole == role {
					roleAllowed = true
					break
				}
			}
			if !roleAllowed {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
				return
			}
		}

		if sub, ok := claims["sub"].(string); ok {
			c.Set(CtxUserID, sub)
		}
		c.Set(CtxUserRole, userRole)
		c.Next()
	}
}
