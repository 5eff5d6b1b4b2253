package api

import (
	"time"

	"seating-backend/internal/geometry"
	"seating-backend/internal/model"
	"seating-backend/internal/schedule"
)

// Response shapes. Models carry gorm tags only, so handlers render through
// these.

type tableResponse struct {
	ID            int64            `json:"id"`
	Label         string           `json:"label,omitempty"`
	Corners       geometry.Corners `json:"corners"`
	DefaultChairs int              `json:"default_chairs"`
	MaxChairs     int              `json:"max_chairs"`
}

func newTableResponse(t model.Table) tableResponse {
	return tableResponse{
		ID:            t.ID,
		Label:         t.Label,
		Corners:       t.Corners(),
		DefaultChairs: t.DefaultChairs,
		MaxChairs:     t.MaxChairs,
	}
}

type tableSetResponse struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name,omitempty"`
	TableIDs      []int64 `json:"table_ids"`
	DefaultChairs int     `json:"combined_default_chairs"`
	MaxChairs     int     `json:"combined_max_chairs"`
}

func newTableSetResponse(s model.TableSet) tableSetResponse {
	return tableSetResponse{
		ID:            s.ID,
		Name:          s.Name,
		TableIDs:      s.TableIDs(),
		DefaultChairs: s.CombinedDefaultChairs,
		MaxChairs:     s.CombinedMaxChairs,
	}
}

type slotResponse struct {
	Number     int     `json:"section_number"`
	SectionID  int64   `json:"section_id"`
	ServerName *string `json:"server_name"`
}

type layoutResponse struct {
	ID       int64          `json:"id"`
	Name     *string        `json:"name"`
	Sections []slotResponse `json:"sections"`
}

func newLayoutResponse(l model.Layout) layoutResponse {
	out := layoutResponse{ID: l.ID, Name: l.Name, Sections: make([]slotResponse, len(l.Sections))}
	for i, s := range l.Sections {
		out.Sections[i] = slotResponse{Number: s.SectionNumber, SectionID: s.SectionID, ServerName: s.ServerName}
	}
	return out
}

type sectionResponse struct {
	ID   int64   `json:"id"`
	Name *string `json:"name"`
}

type customerResponse struct {
	ID          int64   `json:"id"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	PhoneNumber string  `json:"phone_number"`
	Email       *string `json:"email"`
}

func newCustomerResponse(c model.Customer) customerResponse {
	return customerResponse{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		PhoneNumber: c.PhoneNumber,
		Email:       c.Email,
	}
}

type reservationResponse struct {
	ID                  int64             `json:"id"`
	CustomerID          int64             `json:"customer_id"`
	Customer            *customerResponse `json:"customer,omitempty"`
	NumPeople           int               `json:"num_people"`
	NumHighchairs       int               `json:"num_highchairs"`
	ReservationDatetime string            `json:"reservation_datetime"`
	DateCreated         time.Time         `json:"date_created"`
	Notes               string            `json:"notes"`
	Status              schedule.Status   `json:"status"`
	TableSetID          *int64            `json:"table_set_id"`
	TableIDs            []int64           `json:"table_ids"`
}

func newReservationResponse(r model.Reservation) reservationResponse {
	out := reservationResponse{
		ID:                  r.ID,
		CustomerID:          r.CustomerID,
		NumPeople:           r.NumPeople,
		NumHighchairs:       r.NumHighchairs,
		ReservationDatetime: r.ReservationDatetime,
		DateCreated:         r.DateCreated,
		Notes:               r.Notes,
		Status:              r.Status,
		TableSetID:          r.TableSetID,
		TableIDs:            r.TableIDs(),
	}
	if r.Customer.ID != 0 {
		c := newCustomerResponse(r.Customer)
		out.Customer = &c
	}
	return out
}
