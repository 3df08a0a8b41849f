package server

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, s string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return &buf
}

func TestGzipRequestDecompress(t *testing.T) {
	router := gin.New()
	router.Use(GzipRequestDecompress())
	router.POST("/test", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"body": string(body)})
	})

	tests := []struct {
		name            string
		body            func(t *testing.T) io.Reader
		contentEncoding string
		want            struct {
			statusCode int
			body       string
		}
	}{
		{
			name:            "uncompressed request",
			body:            func(t *testing.T) io.Reader { return strings.NewReader("Hello, World!") },
			contentEncoding: "",
			want: struct {
				statusCode int
				body       string
			}{statusCode: http.StatusOK, body: "Hello, World!"},
		},
		{
			name:            "gzip compressed request",
			body:            func(t *testing.T) io.Reader { return gzipped(t, "Hello, World!") },
			contentEncoding: "gzip",
			want: struct {
				statusCode int
				body       string
			}{statusCode: http.StatusOK, body: "Hello, World!"},
		},
		{
			name:            "corrupt gzip request",
			body:            func(t *testing.T) io.Reader { return strings.NewReader("plainly not gzip") },
			contentEncoding: "gzip",
			want: struct {
				statusCode int
				body       string
			}{statusCode: http.StatusBadRequest, body: "invalid gzip request body"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", tt.body(t))
			if tt.contentEncoding != "" {
				req.Header.Set("Content-Encoding", tt.contentEncoding)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want.statusCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.want.body)
		})
	}
}

func TestGzipResponseCompress(t *testing.T) {
	large := strings.Repeat("Prepare the quarterly report. ", 100)

	router := gin.New()
	router.Use(GzipResponseCompress())
	router.GET("/small", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Hello, World!"})
	})
	router.GET("/large", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": large})
	})
	router.GET("/binary", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/octet-stream", []byte(large))
	})

	tests := []struct {
		name           string
		path           string
		acceptEncoding string
		want           struct {
			contentEncoding string
			contains        string
		}
	}{
		{
			name:           "small body stays plain",
			path:           "/small",
			acceptEncoding: "gzip",
			want: struct {
				contentEncoding string
				contains        string
			}{contentEncoding: "", contains: "Hello, World!"},
		},
		{
			name:           "large json is compressed",
			path:           "/large",
			acceptEncoding: "gzip, deflate",
			want: struct {
				contentEncoding string
				contains        string
			}{contentEncoding: "gzip", contains: "quarterly report"},
		},
		{
			name:           "client does not accept gzip",
			path:           "/large",
			acceptEncoding: "",
			want: struct {
				contentEncoding string
				contains        string
			}{contentEncoding: "", contains: "quarterly report"},
		},
		{
			name:           "binary content is left alone",
			path:           "/binary",
			acceptEncoding: "gzip",
			want: struct {
				contentEncoding string
				contains        string
			}{contentEncoding: "", contains: "quarterly report"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want.contentEncoding, w.Header().Get("Content-Encoding"))

			body := w.Body.Bytes()
			if tt.want.contentEncoding == "gzip" {
				assert.Contains(t, w.Header().Get("Vary"), "Accept-Encoding")
				gr, err := gzip.NewReader(bytes.NewReader(body))
				require.NoError(t, err)
				body, err = io.ReadAll(gr)
				require.NoError(t, err)
			}
			assert.Contains(t, string(body), tt.want.contains)
		})
	}
}
