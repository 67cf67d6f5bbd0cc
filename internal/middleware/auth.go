package middleware

import (
  "net/http"
  "strings"

  "github.com/gin-gonic/gin"
  "github.com/golang-jwt/jwt/v5"

  "github.com/yungbote/jenny-backend/internal/logger"
  "github.com/yungbote/jenny-backend/internal/utils"
)

// AuthMiddleware verifies HS256 bearer tokens when JENNY_JWT_SECRET is set.
// Without a secret the API runs open, which is the local/dev mode.
type AuthMiddleware struct {
  log    *logger.Logger
  secret []byte
}

func NewAuthMiddleware(log *logger.Logger) *AuthMiddleware {
  secret := utils.GetEnv("JENNY_JWT_SECRET", "", log)
  if secret == "" {
    log.Warn("JENNY_JWT_SECRET not set; API authentication disabled")
  }
  return &AuthMiddleware{
    log:    log.With("middleware", "Auth"),
    secret: []byte(secret),
  }
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
  return func(c *gin.Context) {
    if len(m.secret) == 0 {
      c.Next()
      return
    }

    header := c.GetHeader("Authorization")
    if !strings.HasPrefix(header, "Bearer ") {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
      return
    }
    raw := strings.TrimPrefix(header, "Bearer ")

    token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
      if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
        return nil, jwt.ErrSignatureInvalid
      }
      return m.secret, nil
    })
    if err != nil || !token.Valid {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
      return
    }

    if claims, ok := token.Claims.(jwt.MapClaims); ok {
      if sub, _ := claims["sub"].(string); sub != "" {
        c.Set("auth_user_id", sub)
      }
    }
    c.Next()
  }
}
