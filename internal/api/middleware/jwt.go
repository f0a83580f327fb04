package middleware

import (
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/yoockh/doclingate/internal/models"
	"github.com/yoockh/doclingate/internal/utils"
)

// apiError mirrors handlers.APIError so auth failures share the route error shape.
type apiError struct {
	Error   string     `json:"error"`
	Details string     `json:"details,omitempty"`
	Code    utils.Code `json:"code"`
}

type supabaseClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email"`
	Role         string         `json:"role"`         // usually "authenticated" / "anon"
	AppMetadata  map[string]any `json:"app_metadata"` // put {"role":"admin"} here
	UserMetadata map[string]any `json:"user_metadata"`
}

type JWTConfig struct {
	Secret   string
	Issuer   string // optional
	Audience string // optional
}

func JWTConfigFromEnv() JWTConfig {
	return JWTConfig{
		Secret:   os.Getenv("SUPABASE_JWT_SECRET"),
		Issuer:   os.Getenv("SUPABASE_JWT_ISSUER"),
		Audience: os.Getenv("SUPABASE_JWT_AUDIENCE"),
	}
}

func JWTAuth() gin.HandlerFunc { return JWTAuthWith(JWTConfigFromEnv()) }

func JWTAuthWith(cfg JWTConfig) gin.HandlerFunc {
	unauthorized := func(c *gin.Context, details string) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
			Error:   "Unauthorized",
			Details: details,
			Code:    utils.CodeUnauthorized,
		})
	}

	return func(c *gin.Context) {
		if cfg.Secret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apiError{
				Error:   "Internal server error",
				Details: "SUPABASE_JWT_SECRET is not set",
				Code:    utils.CodeInternal,
			})
			return
		}

		raw := bearerToken(c)
		if raw == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		claims := &supabaseClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return []byte(cfg.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || tok == nil || !tok.Valid {
			unauthorized(c, "invalid token")
			return
		}

		if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
			unauthorized(c, "invalid token issuer")
			return
		}
		if cfg.Audience != "" && !slices.Contains(claims.Audience, cfg.Audience) {
			unauthorized(c, "invalid token audience")
			return
		}

		userID := claims.Subject // Supabase user UUID lives in "sub"
		if userID == "" {
			unauthorized(c, "missing subject")
			return
		}

		// Default role: "user" (app-level role)
		appRole := models.RoleUser
		if v, ok := claims.AppMetadata["role"].(string); ok && v != "" {
			appRole = models.UserRole(v)
		}

		c.Set("user_id", userID)
		c.Set("role", string(appRole))
		c.Set("user", models.User{ID: userID, Email: claims.Email, Role: appRole})
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter on websocket upgrades.
func bearerToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return strings.TrimSpace(c.Query("access_token"))
	}
	return ""
}
