package model

import (
	"time"

	"seating-backend/internal/geometry"
)

// Table is a physical seating unit.
type Table struct {
	ID            int64  `gorm:"primaryKey"`
	Label         string `gorm:"size:64"`
	DefaultChairs int    `gorm:"not null"`
	MaxChairs     int    `gorm:"not null"`

	TopLeftX     float64 `gorm:"not null"`
	TopLeftY     float64 `gorm:"not null"`
	TopRightX    float64 `gorm:"not null"`
	TopRightY    float64 `gorm:"not null"`
	BottomLeftX  float64 `gorm:"not null"`
	BottomLeftY  float64 `gorm:"not null"`
	BottomRightX float64 `gorm:"not null"`
	BottomRightY float64 `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName keeps the relation clear of the SQL keyword.
func (Table) TableName() string { return "dining_tables" }

// Corners returns the footprint of the table.
func (t Table) Corners() geometry.Corners {
	return geometry.Corners{
		TopLeft:     geometry.Point{X: t.TopLeftX, Y: t.TopLeftY},
		TopRight:    geometry.Point{X: t.TopRightX, Y: t.TopRightY},
		BottomLeft:  geometry.Point{X: t.BottomLeftX, Y: t.BottomLeftY},
		BottomRight: geometry.Point{X: t.BottomRightX, Y: t.BottomRightY},
	}
}

// SetCorners copies c into the coordinate columns.
func (t *Table) SetCorners(c geometry.Corners) {
	t.TopLeftX, t.TopLeftY = c.TopLeft.X, c.TopLeft.Y
	t.TopRightX, t.TopRightY = c.TopRight.X, c.TopRight.Y
	t.BottomLeftX, t.BottomLeftY = c.BottomLeft.X, c.BottomLeft.Y
	t.BottomRightX, t.BottomRightY = c.BottomRight.X, c.BottomRight.Y
}

// Capacity returns the table's chair range.
func (t Table) Capacity() geometry.Capacity {
	return geometry.Capacity{DefaultChairs: t.DefaultChairs, MaxChairs: t.MaxChairs}
}
