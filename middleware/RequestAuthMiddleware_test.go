package middleware

import (
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"dymeta/config"
)

func signedHeaders(body, randStr, timestamp, salt string) http.Header {
	h := http.Header{}
	hash := md5.Sum([]byte(body + randStr + timestamp + salt))
	h.Set(keyRds, randStr)
	h.Set(keyTimestamp, timestamp)
	h.Set(KeyClientSign, hex.EncodeToString(hash[:]))
	return h
}

func newSignTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestAuthMiddleware())
	r.POST("/api/enrich/fetch", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/api/enrich/runs", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r
}

func TestRequestAuthSignedPost(t *testing.T) {
	config.Set(config.Config{Slat: "salt1"})
	r := newSignTestRouter()

	body := `{"video_id":"101"}`
	req := httptest.NewRequest(http.MethodPost, "/api/enrich/fetch", strings.NewReader(body))
	req.Header = signedHeaders(body, "rnd", "1700000000", "salt1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestAuthRejectsUnsignedPost(t *testing.T) {
	config.Set(config.Config{Slat: "salt1"})
	r := newSignTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/enrich/fetch", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestAuthRejectsWrongSign(t *testing.T) {
	config.Set(config.Config{Slat: "salt1"})
	r := newSignTestRouter()

	body := `{"video_id":"101"}`
	req := httptest.NewRequest(http.MethodPost, "/api/enrich/fetch", strings.NewReader(body))
	req.Header = signedHeaders(body, "rnd", "1700000000", "wrong-salt")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestAuthSkipsGet(t *testing.T) {
	config.Set(config.Config{Slat: "salt1"})
	r := newSignTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/enrich/runs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestAuthSkipsWhenNoSalt(t *testing.T) {
	config.Set(config.Config{})
	r := newSignTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/enrich/fetch", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
