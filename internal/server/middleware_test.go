package server

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   struct {
			level string
		}
	}{
		{
			name:   "success logs at info",
			status: http.StatusOK,
			want: struct {
				level string
			}{level: `"level":"INFO"`},
		},
		{
			name:   "client error logs at warn",
			status: http.StatusForbidden,
			want: struct {
				level string
			}{level: `"level":"WARN"`},
		},
		{
			name:   "server error logs at error",
			status: http.StatusInternalServerError,
			want: struct {
				level string
			}{level: `"level":"ERROR"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			router := gin.New()
			router.Use(RequestLogger(log))
			router.GET("/tasks/:taskID", func(c *gin.Context) {
				c.JSON(tt.status, gin.H{})
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks/42", nil))

			assert.Equal(t, tt.status, w.Code)
			out := buf.String()
			assert.Contains(t, out, tt.want.level)
			assert.Contains(t, out, `"path":"/tasks/42"`)
			assert.Contains(t, out, `"method":"GET"`)
		})
	}
}

func TestRequireAuthSetsCaller(t *testing.T) {
	tokens := NewTokenManager("test-secret", 0)
	token, err := tokens.Issue("alice")
	assert.NoError(t, err)

	router := gin.New()
	router.GET("/whoami", RequireAuth(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, callerID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
}
