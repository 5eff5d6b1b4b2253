package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"seating-backend/internal/apperr"
	"seating-backend/internal/events"
	"seating-backend/internal/mw"
	"seating-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store          store.Store
	publisher      events.Publisher
	normalizePhone bool
	now            func() time.Time
}

// Options configure a Handler.
type Options struct {
	// NormalizePhone accepts loosely formatted phone numbers and rewrites
	// them to (XXX) XXX-XXXX before they reach the customer directory.
	NormalizePhone bool
	Publisher      events.Publisher
	Now            func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, opts Options) *Handler {
	h := &Handler{
		store:          s,
		publisher:      opts.Publisher,
		normalizePhone: opts.NormalizePhone,
		now:            opts.Now,
	}
	if h.publisher == nil {
		h.publisher = events.NopPublisher{}
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

type errorBody struct {
	Error *apperr.Error `json:"error"`
}

// respondError writes err as a typed JSON error with the status of its kind.
func respondError(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Wrap(apperr.ErrInternal, err, "unexpected failure")
	}
	status := apperr.HTTPStatus(e.Kind)
	if status >= http.StatusInternalServerError {
		log.Printf("[%s] %s %s failed: %v", mw.GetRequestID(c), c.Request.Method, c.FullPath(), err)
	}
	if e.Kind == apperr.KindInternal {
		// Driver details stay in the log.
		e = apperr.New(apperr.ErrInternal, "internal error")
	}
	c.AbortWithStatusJSON(status, errorBody{Error: e})
}

// bindJSON decodes the request body, reporting failures as validation errors.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperr.New(apperr.ErrInvalidArgument, "invalid request body: %v", err))
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be omitted.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, dst)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		respondError(c, apperr.Field(apperr.ErrInvalidArgument, name, "%q is not a valid id", c.Param(name)))
		return 0, false
	}
	return id, true
}

func pathNumber(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 1 {
		respondError(c, apperr.Field(apperr.ErrInvalidArgument, name, "%q is not a valid section number", c.Param(name)))
		return 0, false
	}
	return n, true
}

// publish sends e once the change it describes has committed. Failures are
// logged and never change the response.
func (h *Handler) publish(c *gin.Context, e events.Event) {
	e.OccurredAt = h.now().UTC()
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.publisher.Publish(ctx, e); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[%s] could not publish %s for reservation %d: %v", mw.GetRequestID(c), e.Type, e.ReservationID, err)
	}
}

// Healthz reports whether the store answers.
func (h *Handler) Healthz(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
