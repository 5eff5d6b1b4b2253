package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// ResponseCache keeps rendered GET responses until they expire or a write
// succeeds anywhere behind FlushOnWrite.
type ResponseCache struct {
	items *cache.Cache
	ttl   time.Duration
}

// NewResponseCache creates a cache whose entries live for ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{items: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Len reports how many responses are held.
func (rc *ResponseCache) Len() int { return rc.items.ItemCount() }

type snapshot struct {
	status  int
	headers http.Header
	body    []byte
}

// teeWriter copies everything the handler writes.
type teeWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w teeWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w teeWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache serves repeated GETs from memory. Other methods pass through.
func (rc *ResponseCache) Cache() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.URL.RequestURI()
		if v, found := rc.items.Get(key); found {
			snap := v.(snapshot)
			h := c.Writer.Header()
			for k, vals := range snap.headers {
				h[k] = vals
			}
			h.Set("X-Cache", "HIT")
			c.Writer.WriteHeader(snap.status)
			_, _ = c.Writer.Write(snap.body)
			c.Abort()
			return
		}

		tee := &teeWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = tee
		c.Next()

		if status := tee.Status(); status >= 200 && status < 300 {
			headers := tee.Header().Clone()
			// Each response carries its own request id.
			headers.Del(RequestIDHeader)
			rc.items.Set(key, snapshot{
				status:  status,
				headers: headers,
				body:    append([]byte(nil), tee.buf.Bytes()...),
			}, rc.ttl)
		}
	}
}

// FlushOnWrite drops every cached response once a request that can change
// state succeeds. The flush happens before the first byte of a successful
// response is written, so a client that has seen the reply cannot read the
// stale entry.
func (rc *ResponseCache) FlushOnWrite() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		fw := &flushWriter{ResponseWriter: c.Writer, onCommit: rc.items.Flush}
		c.Writer = fw
		c.Next()
		// Bodiless responses are committed by gin after the chain returns.
		fw.commit()
	}
}

// flushWriter runs onCommit once, right before the response is committed
// with a 2xx status.
type flushWriter struct {
	gin.ResponseWriter
	onCommit  func()
	committed bool
}

func (w *flushWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true
	if status := w.Status(); status >= 200 && status < 300 {
		w.onCommit()
	}
}

func (w *flushWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *flushWriter) WriteString(s string) (int, error) {
	w.commit()
	return w.ResponseWriter.WriteString(s)
}

func (w *flushWriter) WriteHeaderNow() {
	w.commit()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *flushWriter) Flush() {
	w.commit()
	w.ResponseWriter.Flush()
}
