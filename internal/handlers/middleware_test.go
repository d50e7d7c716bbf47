package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serveWithOrigins(allowed []string, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OriginFilter(allowed))
	r.Handle(method, "/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOriginFilter(t *testing.T) {
	allowed := []string{"http://a.example"}

	w := serveWithOrigins(allowed, http.MethodGet, "http://a.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://a.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = serveWithOrigins(allowed, http.MethodGet, "http://b.example")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serveWithOrigins(allowed, http.MethodGet, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serveWithOrigins(allowed, http.MethodOptions, "http://a.example")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestOriginFilter_Wildcard(t *testing.T) {
	w := serveWithOrigins([]string{"*"}, http.MethodGet, "http://anything.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://anything.example", w.Header().Get("Access-Control-Allow-Origin"))
}
