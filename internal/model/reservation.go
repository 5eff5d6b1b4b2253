package model

import (
	"time"

	"seating-backend/internal/schedule"
)

// Reservation is a booking held by a customer for one date-time. A customer
// holds at most one live reservation per date-time; cancelled ones do not
// count.
type Reservation struct {
	ID                  int64           `gorm:"primaryKey"`
	CustomerID          int64           `gorm:"not null;uniqueIndex:idx_customer_slot,where:status <> 'cancelled'"`
	NumPeople           int             `gorm:"not null"`
	NumHighchairs       int             `gorm:"not null;default:0"`
	ReservationDatetime string          `gorm:"size:19;not null;index;uniqueIndex:idx_customer_slot,where:status <> 'cancelled'"`
	DateCreated         time.Time       `gorm:"not null"`
	Notes               string          `gorm:"type:text"`
	Status              schedule.Status `gorm:"size:16;not null;index"`
	// TableSetID is the set the booking was made against. Splitting that set
	// later leaves this reference untouched.
	TableSetID *int64 `gorm:"index"`
	UpdatedAt  time.Time

	// Associations
	Customer Customer             `gorm:"constraint:OnDelete:RESTRICT"`
	Tables   []ReservationAtTable `gorm:"foreignKey:ReservationID"`
}

// TableIDs lists the tables currently linked to the reservation.
func (r Reservation) TableIDs() []int64 {
	ids := make([]int64, len(r.Tables))
	for i, t := range r.Tables {
		ids[i] = t.TableID
	}
	return ids
}

// ReservationAtTable links a reservation to a physical table. The
// reservation's date-time is copied here so conflict scans stay on one index.
type ReservationAtTable struct {
	ReservationID       int64  `gorm:"primaryKey"`
	TableID             int64  `gorm:"primaryKey;index:idx_table_time"`
	ReservationDatetime string `gorm:"size:19;not null;index:idx_table_time"`
}
