package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/colmena/config"
	"github.com/d60-Lab/colmena/pkg/auth"
)

func init() { gin.SetMode(gin.TestMode) }

var identityCfg = config.IdentityConfig{CookieName: "colmena_uid", MaxAge: 30 * 24 * time.Hour}

func newIdentityRouter(tokens *auth.TokenManager) *gin.Engine {
	r := gin.New()
	r.Use(Identity(tokens, identityCfg))
	r.GET("/who", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": Identifier(c), "user": UserID(c), "anon": AnonID(c), "incoming": IncomingAnonID(c)})
	})
	r.GET("/private", RequireUser(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestIdentity_IssuesCookieOnFirstVisit(t *testing.T) {
	r := newIdentityRouter(auth.NewTokenManager("s", time.Hour, ""))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/who", nil))
	require.Equal(t, http.StatusOK, w.Code)

	res := w.Result()
	defer res.Body.Close()
	cookies := res.Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "colmena_uid", c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 30*24*3600, c.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Contains(t, w.Body.String(), c.Value)

	// 带着 cookie 再来一次，不再签发
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.AddCookie(c)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Set-Cookie"))
	assert.Contains(t, w.Body.String(), c.Value)
}

func TestIdentity_IncomingAnonIDOnlyForCarriedCookie(t *testing.T) {
	r := newIdentityRouter(auth.NewTokenManager("s", time.Hour, ""))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/who", nil))
	var first struct{ Anon, Incoming string }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.NotEmpty(t, first.Anon)
	assert.Empty(t, first.Incoming, "freshly issued token is not an incoming identity")

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.AddCookie(&http.Cookie{Name: "colmena_uid", Value: first.Anon})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var second struct{ Anon, Incoming string }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, first.Anon, second.Incoming)
}

func TestIdentity_ReplacesMalformedCookie(t *testing.T) {
	r := newIdentityRouter(auth.NewTokenManager("s", time.Hour, ""))

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.AddCookie(&http.Cookie{Name: "colmena_uid", Value: "../../etc"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("Set-Cookie"))
	assert.NotContains(t, w.Body.String(), "etc")
}

func TestIdentity_Bearer(t *testing.T) {
	tokens := auth.NewTokenManager("s", time.Hour, "colmena")
	r := newIdentityRouter(tokens)
	raw, _, err := tokens.Issue("user-1", "ana")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"user-1","user":"user-1","anon":"","incoming":""}`, w.Body.String())
	assert.Empty(t, w.Header().Get("Set-Cookie"))

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestIdentity_InvalidBearerIs401(t *testing.T) {
	r := newIdentityRouter(auth.NewTokenManager("s", time.Hour, ""))

	for _, header := range []string{"Bearer nope", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/who", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(Identity(auth.NewTokenManager("s", time.Hour, ""), identityCfg))
	r.Use(NewRateLimiter(0.001, 2).Middleware())
	r.POST("/like", func(c *gin.Context) { c.Status(http.StatusOK) })

	cookie := &http.Cookie{Name: "colmena_uid", Value: "7f1c3c52-3c1e-4c57-9a51-1d9c8f0b8a11"}
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/like", nil)
		req.AddCookie(cookie)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// 其他身份不受影响
	req := httptest.NewRequest(http.MethodPost, "/like", nil)
	req.AddCookie(&http.Cookie{Name: "colmena_uid", Value: "0b5d8c1e-58a4-4f0e-9d0a-6c2f7e9b1a22"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_CookielessRequestsShareIPBucket(t *testing.T) {
	r := gin.New()
	r.Use(Identity(auth.NewTokenManager("s", time.Hour, ""), identityCfg))
	r.Use(NewRateLimiter(0.001, 2).Middleware())
	r.POST("/like", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		// 每次都不带 cookie，拿到的是新身份
		req := httptest.NewRequest(http.MethodPost, "/like", nil)
		req.RemoteAddr = "203.0.113.7:4321"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	req := httptest.NewRequest(http.MethodPost, "/like", nil)
	req.RemoteAddr = "198.51.100.9:4321"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}
