package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/internal/service"
	"github.com/d60-Lab/blog-reactions/pkg/auth"
)

func init() { gin.SetMode(gin.TestMode) }

func newEngine(tokens *auth.TokenManager) *gin.Engine {
	r := gin.New()
	r.GET("/me", RequireAuth(tokens), func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })
	r.GET("/maybe", OptionalAuth(tokens), func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })
	r.GET("/admin", RequireAuth(tokens), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "test", time.Hour)
	r := newEngine(tokens)
	token, err := tokens.Issue("u1", "")
	require.NoError(t, err)

	w := get(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "garbage").Code)

	other := auth.NewTokenManager("other", "test", time.Hour)
	forged, err := other.Issue("u1", model.GroupAdmin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", forged).Code)
}

func TestOptionalAuth(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "test", time.Hour)
	r := newEngine(tokens)
	token, _ := tokens.Issue("u1", "")

	assert.Equal(t, "u1", get(r, "/maybe", token).Body.String())
	w := get(r, "/maybe", "garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "test", time.Hour)
	r := newEngine(tokens)
	user, _ := tokens.Issue("u1", "")
	admin, _ := tokens.Issue("u2", model.GroupAdmin)

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", user).Code)
	assert.Equal(t, http.StatusOK, get(r, "/admin", admin).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/admin", "").Code)
}

type stubUsers map[string]*model.User

func (s stubUsers) Get(_ context.Context, id string) (*model.User, error) {
	if id == "broken" {
		return nil, errors.New("db down")
	}
	u, ok := s[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return u, nil
}

func TestRequireActive(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "test", time.Hour)
	users := stubUsers{
		"live":     {ID: "live", IsActive: true, Group: model.GroupClient},
		"blocked":  {ID: "blocked", IsActive: false},
		"demoted":  {ID: "demoted", IsActive: true, Group: model.GroupClient},
		"promoted": {ID: "promoted", IsActive: true, Group: model.GroupAdmin},
	}
	r := gin.New()
	r.GET("/write", RequireAuth(tokens), RequireActive(users), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/admin", RequireAuth(tokens), RequireActive(users), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	issue := func(id, group string) string {
		tok, err := tokens.Issue(id, group)
		require.NoError(t, err)
		return tok
	}

	assert.Equal(t, http.StatusOK, get(r, "/write", issue("live", "")).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/write", issue("blocked", "")).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/write", issue("ghost", "")).Code)
	assert.Equal(t, http.StatusInternalServerError, get(r, "/write", issue("broken", "")).Code)

	// 用户组以库中为准
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", issue("demoted", model.GroupAdmin)).Code)
	assert.Equal(t, http.StatusOK, get(r, "/admin", issue("promoted", model.GroupClient)).Code)
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(1, 2)
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("1.1.1.1"))
}

func TestRateLimitMiddleware(t *testing.T) {
	l := NewIPRateLimiter(0.001, 1)
	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/", "").Code)
}
