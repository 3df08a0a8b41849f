package server

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// minCompressSize keeps small JSON bodies uncompressed; the gzip framing would outweigh them.
const minCompressSize = 1024

type gzipBody struct {
	*gzip.Reader
	body io.Closer
}

func (b gzipBody) Close() error {
	err := b.Reader.Close()
	if cerr := b.body.Close(); err == nil {
		err = cerr
	}
	return err
}

// GzipRequestDecompress transparently inflates request bodies sent with Content-Encoding: gzip.
func GzipRequestDecompress() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !strings.Contains(strings.ToLower(ctx.GetHeader("Content-Encoding")), "gzip") {
			ctx.Next()
			return
		}
		gr, err := gzip.NewReader(ctx.Request.Body)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid gzip request body"})
			return
		}
		ctx.Request.Body = gzipBody{Reader: gr, body: ctx.Request.Body}
		ctx.Request.Header.Del("Content-Encoding")
		ctx.Request.Header.Del("Content-Length")
		ctx.Request.ContentLength = -1
		ctx.Next()
	}
}

// bufferedWriter holds the body back until the handler is done so the compression
// decision can see the final size and content type.
type bufferedWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) { return w.buf.Write(b) }

func (w *bufferedWriter) WriteString(s string) (int, error) { return w.buf.WriteString(s) }

// GzipResponseCompress gzips JSON and text responses of at least minCompressSize bytes for
// clients that accept it.
func GzipResponseCompress() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method == http.MethodHead ||
			!strings.Contains(strings.ToLower(ctx.GetHeader("Accept-Encoding")), "gzip") {
			ctx.Next()
			return
		}

		original := ctx.Writer
		bw := &bufferedWriter{ResponseWriter: original}
		ctx.Writer = bw
		ctx.Next()
		ctx.Writer = original

		body := bw.buf.Bytes()
		if original.Written() || len(body) < minCompressSize || !compressible(original) {
			if _, err := original.Write(body); err != nil {
				_ = ctx.Error(err)
			}
			return
		}

		h := original.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")

		gw := gzip.NewWriter(original)
		if _, err := gw.Write(body); err != nil {
			_ = ctx.Error(err)
		}
		if err := gw.Close(); err != nil {
			_ = ctx.Error(err)
		}
	}
}

func compressible(w gin.ResponseWriter) bool {
	switch w.Status() {
	case http.StatusNoContent, http.StatusNotModified:
		return false
	}
	if w.Header().Get("Content-Encoding") != "" {
		return false
	}
	ct := strings.ToLower(w.Header().Get("Content-Type"))
	return strings.HasPrefix(ct, "application/json") || strings.HasPrefix(ct, "text/plain")
}
