package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"seating-backend/internal/apperr"
	"seating-backend/internal/events"
	"seating-backend/internal/model"
	"seating-backend/internal/parse"
	"seating-backend/internal/schedule"
	"seating-backend/internal/store"
)

// lastSlotOfDay is the final bookable quarter hour.
const lastSlotOfDay = "23:45:00"

// ListReservations handles GET /api/reservations.
//
// Either ?date=YYYY-MM-DD or ?start=&end= selects the range. Format errors
// are reported before range errors, range errors before party filter errors,
// and the operational horizon is checked last by the store.
func (h *Handler) ListReservations(c *gin.Context) {
	q, err := reservationQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	reservations, err := h.store.ListReservations(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]reservationResponse, len(reservations))
	for i, r := range reservations {
		out[i] = newReservationResponse(r)
	}
	c.JSON(http.StatusOK, out)
}

func reservationQuery(c *gin.Context) (store.ReservationQuery, error) {
	var q store.ReservationQuery
	if date, ok := c.GetQuery("date"); ok {
		day, err := parse.ParseDate("date", date)
		if err != nil {
			return q, err
		}
		q.Start = parse.FormatDateTime(day)
		q.End = day.Format(parse.DateLayout) + " " + lastSlotOfDay
	} else {
		q.Start, q.End = c.Query("start"), c.Query("end")
		start, err := parse.ParseDateTime("start", q.Start)
		if err != nil {
			return q, err
		}
		end, err := parse.ParseDateTime("end", q.End)
		if err != nil {
			return q, err
		}
		if end.Before(start) {
			return q, apperr.Field(apperr.ErrInvalidRange, "end", "end %s is before start %s", q.End, q.Start)
		}
	}

	var err error
	if q.PartyMin, err = partyBound(c, "party_min"); err != nil {
		return q, err
	}
	if q.PartyMax, err = partyBound(c, "party_max"); err != nil {
		return q, err
	}
	if q.PartyMin != nil && q.PartyMax != nil && *q.PartyMin > *q.PartyMax {
		return q, apperr.Field(apperr.ErrInvalidPartyFilter, "party_max",
			"party_max %d is below party_min %d", *q.PartyMax, *q.PartyMin)
	}
	return q, nil
}

func partyBound(c *gin.Context, name string) (*int, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return nil, apperr.Field(apperr.ErrInvalidPartyFilter, name, "%s must be a positive integer, got %q", name, raw)
	}
	return &n, nil
}

type reservationRequest struct {
	CustomerID          int64            `json:"customer_id"`
	Customer            *customerRequest `json:"customer"`
	NumPeople           int              `json:"num_people"`
	NumHighchairs       int              `json:"num_highchairs"`
	ReservationDatetime string           `json:"reservation_datetime"`
	Notes               string           `json:"notes"`
	TableIDs            []int64          `json:"table_ids"`
	TableSetIDs         []int64          `json:"table_set_ids"`
}

// CreateReservation handles POST /api/reservations. The customer is either
// referenced by id or described inline and found or created.
func (h *Handler) CreateReservation(c *gin.Context) {
	var req reservationRequest
	if !bindJSON(c, &req) {
		return
	}
	booking := store.BookingRequest{
		CustomerID: req.CustomerID,
		PartySize:  req.NumPeople,
		Highchairs: req.NumHighchairs,
		Datetime:   req.ReservationDatetime,
		Notes:      req.Notes,
		Tables:     store.TableSelection{TableIDs: req.TableIDs, TableSetIDs: req.TableSetIDs},
	}

	if req.Customer != nil {
		// Reject a bad booking before it can leave a new customer behind.
		if _, err := store.ValidateBooking(booking); err != nil {
			respondError(c, err)
			return
		}
		id, err := h.resolveCustomer(c, *req.Customer)
		if err != nil {
			respondError(c, err)
			return
		}
		booking.CustomerID = id
	} else if booking.CustomerID < 1 {
		respondError(c, apperr.Field(apperr.ErrInvalidArgument, "customer_id", "customer_id or customer is required"))
		return
	}

	id, err := h.store.BookReservation(c.Request.Context(), booking)
	if err != nil {
		respondError(c, err)
		return
	}
	res, ok := h.loadReservation(c, id)
	if !ok {
		return
	}
	eventType := events.TypeConfirmed
	if res.Status == schedule.StatusRequested {
		eventType = events.TypeRequested
	}
	h.publish(c, reservationEvent(eventType, res))
	c.JSON(http.StatusCreated, newReservationResponse(*res))
}

// GetReservation handles GET /api/reservations/:id.
func (h *Handler) GetReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, ok := h.loadReservation(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(*res))
}

// CancelReservation handles POST /api/reservations/:id/cancel.
func (h *Handler) CancelReservation(c *gin.Context) {
	h.transition(c, h.store.CancelReservation, events.TypeCancelled)
}

// SeatReservation handles POST /api/reservations/:id/seat.
func (h *Handler) SeatReservation(c *gin.Context) {
	h.transition(c, h.store.MarkSeated, events.TypeSeated)
}

// CompleteReservation handles POST /api/reservations/:id/complete.
func (h *Handler) CompleteReservation(c *gin.Context) {
	h.transition(c, h.store.MarkCompleted, events.TypeCompleted)
}

// ReassignTables handles PUT /api/reservations/:id/tables.
func (h *Handler) ReassignTables(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var sel store.TableSelection
	if !bindJSON(c, &sel) {
		return
	}
	if err := h.store.ReassignReservationTables(c.Request.Context(), id, sel); err != nil {
		respondError(c, err)
		return
	}
	res, ok := h.loadReservation(c, id)
	if !ok {
		return
	}
	h.publish(c, reservationEvent(events.TypeReassigned, res))
	c.JSON(http.StatusOK, newReservationResponse(*res))
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, id int64) error, eventType string) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	res, ok := h.loadReservation(c, id)
	if !ok {
		return
	}
	h.publish(c, reservationEvent(eventType, res))
	c.JSON(http.StatusOK, newReservationResponse(*res))
}

func (h *Handler) loadReservation(c *gin.Context, id int64) (*model.Reservation, bool) {
	res, err := h.store.GetReservation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return res, true
}

func reservationEvent(eventType string, r *model.Reservation) events.Event {
	return events.Event{
		Type:          eventType,
		ReservationID: r.ID,
		CustomerID:    r.CustomerID,
		Datetime:      r.ReservationDatetime,
		TableIDs:      r.TableIDs(),
	}
}
