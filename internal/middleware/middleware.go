package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"forum_go/internal/core/config"
	"forum_go/internal/core/logger"
	"forum_go/internal/model"
	"forum_go/internal/pkg/apperr"
	"forum_go/internal/pkg/response"
	"forum_go/internal/service"
)

const (
	ctxUserKey = "forum.user"
	issuer     = "forum_go"
)

// LoggerMiddleware request log
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger.Info("request",
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.String("query", query),
			logger.Int("status", status),
			logger.Duration("latency", latency),
			logger.String("client_ip", c.ClientIP()),
		)
	}
}

// RecoveryMiddleware recover from handler panics
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					logger.String("error", fmt.Sprintf("%v", err)),
					logger.String("path", c.Request.URL.Path))
				response.InternalError(c, "internal server error")
			}
		}()
		c.Next()
	}
}

// TimeoutMiddleware bound the request context. Handlers observe the deadline
// through ctx; a handler that ran past it and wrote nothing gets a 504.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			c.AbortWithStatusJSON(504, response.Response{
				Code: 504,
				Msg:  "request timeout",
			})
		}
	}
}

// CORSMiddleware cross-origin headers; an empty origin list or "*" allows any origin
func CORSMiddleware(corsCfg *config.CORSConfig) gin.HandlerFunc {
	if corsCfg == nil || !corsCfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	cc := cors.Config{
		AllowMethods:     corsCfg.AllowedMethods,
		AllowHeaders:     corsCfg.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: corsCfg.AllowCredentials,
		MaxAge:           time.Duration(corsCfg.MaxAge) * time.Second,
	}
	anyOrigin := len(corsCfg.AllowedOrigins) == 0
	for _, o := range corsCfg.AllowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
	}
	if anyOrigin {
		// echoes the request origin, which stays valid with credentials
		cc.AllowOriginFunc = func(string) bool { return true }
	} else {
		cc.AllowOrigins = corsCfg.AllowedOrigins
	}
	return cors.New(cc)
}

// UserResolver look up the token subject; a nil user or service.ErrNotFound means the account is gone
type UserResolver interface {
	GetByPublicID(ctx context.Context, publicID string) (*model.User, error)
}

// UserClaims JWT claims, the subject is the user's public id
type UserClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTMW require a valid bearer token and load its user
func JWTMW(cfg *config.JWTConfig, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			response.Unauthorized(c, "unauthorized")
			return
		}

		if !strings.HasPrefix(token, "Bearer ") {
			response.Unauthorized(c, "invalid token format: missing 'Bearer ' prefix")
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := ParseJWT(token, cfg.Secret)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}

		user, err := users.GetByPublicID(c.Request.Context(), claims.Subject)
		if err != nil && !errors.Is(err, service.ErrNotFound) {
			response.Fail(c, err, apperr.CodeUserNotFound)
			return
		}
		if user == nil {
			response.Unauthorized(c, "unknown user")
			return
		}

		c.Set(ctxUserKey, user)
		c.Next()
	}
}

// CurrentUser the authenticated user, nil outside JWTMW
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}

// ParseJWT verify signature and expiry
func ParseJWT(tokenString, secret string) (*UserClaims, error) {
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// GenerateToken sign a token for the user
func GenerateToken(user *model.User, cfg *config.JWTConfig) (string, error) {
	now := time.Now()
	claims := UserClaims{
		Name: user.Name(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.Expiry) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   user.PublicID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}
