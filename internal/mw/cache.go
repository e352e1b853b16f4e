package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedPage struct {
	status  int
	headers http.Header
	body    []byte
}

type teeBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w teeBodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w teeBodyWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache is a middleware for in-memory caching of GET responses. Requests
// carrying an Authorization header bypass the cache entirely: owners and
// customers get different payloads for the same URI.
func Cache(store *cache.Cache, duration time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || c.GetHeader("Authorization") != "" {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if hit, found := store.Get(key); found {
			page := hit.(cachedPage)
			c.Writer.WriteHeader(page.status)
			for k, v := range page.headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Write(page.body)
			c.Abort()
			return
		}

		w := &teeBodyWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		// Only cache successful responses
		if w.Status() >= 200 && w.Status() < 300 {
			store.Set(key, cachedPage{
				status:  w.Status(),
				headers: w.Header().Clone(),
				body:    w.body.Bytes(),
			}, duration)
		}
	}
}
