package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum_go/internal/core/config"
	"forum_go/internal/model"
	"forum_go/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUsers map[string]*model.User

func (s stubUsers) GetByPublicID(_ context.Context, publicID string) (*model.User, error) {
	if u, ok := s[publicID]; ok {
		return u, nil
	}
	return nil, service.ErrNotFound
}

func TestJWTMW(t *testing.T) {
	cfg := &config.JWTConfig{Secret: "test-secret", Expiry: 3600}
	alice := &model.User{ID: 7, PublicID: "0b8f7f1e-8a43-4b1c-9d59-3a3cf0a1d001", DisplayName: "alice"}
	ghost := &model.User{ID: 8, PublicID: "0b8f7f1e-8a43-4b1c-9d59-3a3cf0a1d002"}
	users := stubUsers{alice.PublicID: alice}

	r := gin.New()
	r.GET("/me", JWTMW(cfg, users), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", CurrentUser(c).ID)
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	token, err := GenerateToken(alice, cfg)
	require.NoError(t, err)
	w := do("Bearer " + token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do("").Code)
	assert.Equal(t, http.StatusUnauthorized, do(token).Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer not.a.token").Code)

	ghostToken, err := GenerateToken(ghost, cfg)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+ghostToken).Code)

	forged, err := GenerateToken(alice, &config.JWTConfig{Secret: "other", Expiry: 3600})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+forged).Code)

	expired, err := GenerateToken(alice, &config.JWTConfig{Secret: cfg.Secret, Expiry: -60})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+expired).Code)
}

func TestParseJWT(t *testing.T) {
	cfg := &config.JWTConfig{Secret: "s", Expiry: 60}
	token, err := GenerateToken(&model.User{PublicID: "pid", Email: "a@example.com"}, cfg)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "s")
	require.NoError(t, err)
	assert.Equal(t, "pid", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Name)
}

func TestCurrentUserOutsideAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, CurrentUser(c))
}

func TestCORSMiddleware(t *testing.T) {
	cfg := &config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://forum.example"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization"},
		MaxAge:         600,
	}
	r := gin.New()
	r.Use(CORSMiddleware(cfg))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://forum.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://forum.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAnyOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware(&config.CORSConfig{
		Enabled:          true,
		AllowedMethods:   []string{"GET"},
		AllowCredentials: true,
	}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://anywhere.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSDisabled(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware(&config.CORSConfig{}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://forum.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestTimeoutMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(TimeoutMiddleware(20 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/thread/:pid", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/thread/abc", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
