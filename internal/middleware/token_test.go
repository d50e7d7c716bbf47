package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func tokenFor(t *testing.T, req *http.Request) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var got string
	r := gin.New()
	r.GET("/", HandshakeToken(), func(c *gin.Context) {
		got = c.GetString(TokenKey)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	return got
}

func TestHandshakeToken_Header(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?token=fromquery", nil)
	req.Header.Set("Authorization", "Bearer fromheader")

	assert.Equal(t, "fromheader", tokenFor(t, req))
}

func TestHandshakeToken_Query(t *testing.T) {
	assert.Equal(t, "abc", tokenFor(t, httptest.NewRequest(http.MethodGet, "/?token=abc", nil)))
	assert.Equal(t, "abc", tokenFor(t, httptest.NewRequest(http.MethodGet, "/?token=Bearer%20abc", nil)))
}

func TestHandshakeToken_Missing(t *testing.T) {
	assert.Equal(t, "", tokenFor(t, httptest.NewRequest(http.MethodGet, "/", nil)))
}
