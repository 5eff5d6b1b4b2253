package model

import (
	"time"

	"seating-backend/internal/geometry"
)

// TableSet is an immutable group of tables pushed together. A single table
// is represented by a TableSet with one member.
type TableSet struct {
	ID                    int64  `gorm:"primaryKey"`
	Name                  string `gorm:"size:128"`
	CombinedDefaultChairs int    `gorm:"not null"`
	CombinedMaxChairs     int    `gorm:"not null"`
	CreatedAt             time.Time

	// Associations
	Members []TableInTableSet `gorm:"foreignKey:TableSetID;constraint:OnDelete:RESTRICT"`
}

// Capacity returns the combined chair range fixed at creation.
func (s TableSet) Capacity() geometry.Capacity {
	return geometry.Capacity{DefaultChairs: s.CombinedDefaultChairs, MaxChairs: s.CombinedMaxChairs}
}

// TableIDs lists the member tables.
func (s TableSet) TableIDs() []int64 {
	ids := make([]int64, len(s.Members))
	for i, m := range s.Members {
		ids[i] = m.TableID
	}
	return ids
}

// TableInTableSet records membership of a table in a set.
type TableInTableSet struct {
	TableSetID int64 `gorm:"primaryKey"`
	TableID    int64 `gorm:"primaryKey;index"`
}
