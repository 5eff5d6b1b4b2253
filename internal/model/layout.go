package model

import "time"

// Section is a named zone; it only has meaning once bound into a Layout.
type Section struct {
	ID        int64   `gorm:"primaryKey"`
	Name      *string `gorm:"size:128"`
	CreatedAt time.Time
}

// Layout is one alternative floor-plan configuration.
type Layout struct {
	ID        int64   `gorm:"primaryKey"`
	Name      *string `gorm:"size:128"`
	CreatedAt time.Time

	// Associations
	Sections []SectionInLayout `gorm:"foreignKey:LayoutID"`
}

// SectionInLayout binds a section to a numbered slot of a layout.
type SectionInLayout struct {
	LayoutID      int64   `gorm:"primaryKey;uniqueIndex:idx_layout_section_id"`
	SectionNumber int     `gorm:"primaryKey"`
	SectionID     int64   `gorm:"not null;uniqueIndex:idx_layout_section_id"`
	ServerName    *string `gorm:"size:128"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableInSection places a table directly into a slot. Rows are never
// deleted; RemovedAt ends a placement.
type TableInSection struct {
	ID            int64      `gorm:"primaryKey"`
	TableID       int64      `gorm:"not null;index"`
	LayoutID      int64      `gorm:"not null;index:idx_table_slot"`
	SectionNumber int        `gorm:"not null;index:idx_table_slot"`
	PlacedAt      time.Time  `gorm:"not null"`
	RemovedAt     *time.Time `gorm:"index"`
}

// TableSetInSection places a table set into a slot, with the same history
// semantics as TableInSection.
type TableSetInSection struct {
	ID            int64      `gorm:"primaryKey"`
	TableSetID    int64      `gorm:"not null;index"`
	LayoutID      int64      `gorm:"not null;index:idx_table_set_slot"`
	SectionNumber int        `gorm:"not null;index:idx_table_set_slot"`
	PlacedAt      time.Time  `gorm:"not null"`
	RemovedAt     *time.Time `gorm:"index"`
}
