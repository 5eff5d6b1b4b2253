package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"seating-backend/internal/parse"
)

type customerRequest struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	PhoneNumber string  `json:"phone_number"`
	Email       *string `json:"email"`
}

// resolveCustomer finds or creates the customer described by req, rewriting
// the phone number first when lenient input is enabled.
func (h *Handler) resolveCustomer(c *gin.Context, req customerRequest) (int64, error) {
	phone := req.PhoneNumber
	if h.normalizePhone {
		normalized, err := parse.NormalizePhone(phone)
		if err != nil {
			return 0, err
		}
		phone = normalized
	}
	return h.store.FindOrCreateCustomer(c.Request.Context(), req.FirstName, req.LastName, phone, req.Email)
}

// CreateCustomer handles POST /api/customers. An existing customer with the
// same name and phone is returned instead of a duplicate.
func (h *Handler) CreateCustomer(c *gin.Context) {
	var req customerRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.resolveCustomer(c, req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondCustomer(c, id, http.StatusOK)
}

// GetCustomer handles GET /api/customers/:id.
func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.respondCustomer(c, id, http.StatusOK)
}

func (h *Handler) respondCustomer(c *gin.Context, id int64, status int) {
	customer, err := h.store.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, newCustomerResponse(*customer))
}
