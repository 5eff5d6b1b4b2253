package model

import "time"

// Customer is the holder of a reservation.
type Customer struct {
	ID          int64   `gorm:"primaryKey"`
	FirstName   string  `gorm:"size:128;not null;uniqueIndex:idx_customer_identity"`
	LastName    string  `gorm:"size:128;not null;uniqueIndex:idx_customer_identity"`
	PhoneNumber string  `gorm:"size:14;not null;uniqueIndex:idx_customer_identity"`
	Email       *string `gorm:"size:256"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
