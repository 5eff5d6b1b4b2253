package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"seating-backend/internal/apperr"
	"seating-backend/internal/model"
)

func (s *gormStore) CreateLayout(ctx context.Context, name *string) (*model.Layout, error) {
	layout := model.Layout{Name: trimmedOrNil(name)}
	if err := s.db.WithContext(ctx).Create(&layout).Error; err != nil {
		return nil, s.observe("create_layout", err)
	}
	s.metrics.ObserveOp("create_layout", "ok")
	return &layout, nil
}

func (s *gormStore) GetLayout(ctx context.Context, id int64) (*model.Layout, error) {
	var layout model.Layout
	err := s.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("section_number") }).
		First(&layout, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("layout", id)
	}
	if err != nil {
		return nil, classify(err, "get_layout")
	}
	return &layout, nil
}

func (s *gormStore) CreateSection(ctx context.Context, name *string) (*model.Section, error) {
	section := model.Section{Name: trimmedOrNil(name)}
	if err := s.db.WithContext(ctx).Create(&section).Error; err != nil {
		return nil, s.observe("create_section", err)
	}
	s.metrics.ObserveOp("create_section", "ok")
	return &section, nil
}

// AssignSectionToLayout binds sectionID to slot number of layoutID.
// Assigning the same section to the same number again only refreshes the
// server name.
func (s *gormStore) AssignSectionToLayout(ctx context.Context, sectionID, layoutID int64, number int, serverName *string) error {
	if number < 1 {
		return apperr.Field(apperr.ErrInvalidArgument, "section_number", "section number must be at least 1, got %d", number)
	}
	serverName = trimmedOrNil(serverName)

	return s.runTx(ctx, "assign_section", func(tx *gorm.DB, _ *txLocks) error {
		if err := mustExist(tx, &model.Layout{}, layoutID, "layout"); err != nil {
			return err
		}
		if err := mustExist(tx, &model.Section{}, sectionID, "section"); err != nil {
			return err
		}

		var bySlot model.SectionInLayout
		err := tx.Where("layout_id = ? AND section_number = ?", layoutID, number).First(&bySlot).Error
		switch {
		case err == nil && bySlot.SectionID != sectionID:
			return apperr.New(apperr.ErrDuplicateSectionNumber,
				"layout %d already uses section number %d for section %d", layoutID, number, bySlot.SectionID)
		case err == nil:
			if serverName == nil {
				return nil
			}
			return tx.Model(&model.SectionInLayout{}).
				Where("layout_id = ? AND section_number = ?", layoutID, number).
				Update("server_name", *serverName).Error
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		var bySection model.SectionInLayout
		err = tx.Where("layout_id = ? AND section_id = ?", layoutID, sectionID).First(&bySection).Error
		if err == nil {
			return apperr.New(apperr.ErrSectionAlreadyInLayout,
				"section %d is already number %d in layout %d", sectionID, bySection.SectionNumber, layoutID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Create(&model.SectionInLayout{
			LayoutID:      layoutID,
			SectionNumber: number,
			SectionID:     sectionID,
			ServerName:    serverName,
		}).Error
	})
}

// RemoveSectionFromLayout unbinds an empty slot.
func (s *gormStore) RemoveSectionFromLayout(ctx context.Context, layoutID int64, number int) error {
	defer s.slots.invalidate(layoutID)
	return s.runTx(ctx, "remove_section", func(tx *gorm.DB, _ *txLocks) error {
		if _, err := findSlot(tx, layoutID, number); err != nil {
			return err
		}
		var direct, viaSets int64
		if err := tx.Model(&model.TableInSection{}).
			Where("layout_id = ? AND section_number = ? AND removed_at IS NULL", layoutID, number).
			Count(&direct).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.TableSetInSection{}).
			Where("layout_id = ? AND section_number = ? AND removed_at IS NULL", layoutID, number).
			Count(&viaSets).Error; err != nil {
			return err
		}
		if direct+viaSets > 0 {
			return apperr.New(apperr.ErrSlotNotEmpty,
				"section %d of layout %d still holds %d placements", number, layoutID, direct+viaSets)
		}
		return tx.Where("layout_id = ? AND section_number = ?", layoutID, number).
			Delete(&model.SectionInLayout{}).Error
	})
}

func (s *gormStore) SetServerName(ctx context.Context, layoutID int64, number int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Field(apperr.ErrInvalidArgument, "server_name", "server name must not be empty")
	}
	return s.updateServerName(ctx, "set_server_name", layoutID, number, &name)
}

func (s *gormStore) ClearServerName(ctx context.Context, layoutID int64, number int) error {
	return s.updateServerName(ctx, "clear_server_name", layoutID, number, nil)
}

func (s *gormStore) updateServerName(ctx context.Context, op string, layoutID int64, number int, name *string) error {
	var value any = gorm.Expr("NULL")
	if name != nil {
		value = *name
	}
	res := s.db.WithContext(ctx).Model(&model.SectionInLayout{}).
		Where("layout_id = ? AND section_number = ?", layoutID, number).
		Update("server_name", value)
	if res.Error != nil {
		return s.observe(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return s.observe(op, apperr.NotFound("section slot", slotName(layoutID, number)))
	}
	return s.observe(op, nil)
}

// PlaceTableInSection places a table directly into a slot. Placing it again
// into the same slot is a no-op.
func (s *gormStore) PlaceTableInSection(ctx context.Context, tableID, layoutID int64, number int) error {
	defer s.slots.invalidate(layoutID)
	return s.runTx(ctx, "place_table", func(tx *gorm.DB, lk *txLocks) error {
		if _, err := findSlot(tx, layoutID, number); err != nil {
			return err
		}
		if _, err := loadTables(tx, []int64{tableID}); err != nil {
			return err
		}
		if err := lk.Tables(tableID); err != nil {
			return err
		}

		reach, err := activeReach(tx, layoutID)
		if err != nil {
			return err
		}
		for _, r := range reach[tableID] {
			switch {
			case r.number == number && r.viaSet == 0:
				return nil
			case r.number == number:
				return apperr.New(apperr.ErrOverlappingPlacement,
					"table %d is already in section %d through table set %d", tableID, number, r.viaSet)
			default:
				return alreadyPlaced(tableID, layoutID, r)
			}
		}

		return tx.Create(&model.TableInSection{
			TableID:       tableID,
			LayoutID:      layoutID,
			SectionNumber: number,
			PlacedAt:      s.opts.Now().UTC(),
		}).Error
	})
}

func (s *gormStore) RemoveTableFromSection(ctx context.Context, tableID, layoutID int64, number int) error {
	defer s.slots.invalidate(layoutID)
	return s.runTx(ctx, "remove_table", func(tx *gorm.DB, _ *txLocks) error {
		res := tx.Model(&model.TableInSection{}).
			Where("table_id = ? AND layout_id = ? AND section_number = ? AND removed_at IS NULL", tableID, layoutID, number).
			Update("removed_at", s.opts.Now().UTC())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("placement of table", tableID)
		}
		return nil
	})
}

// PlaceTableSetInSection places a table set into a slot. Every member table
// is checked as if it were placed on its own.
func (s *gormStore) PlaceTableSetInSection(ctx context.Context, tableSetID, layoutID int64, number int) error {
	defer s.slots.invalidate(layoutID)
	return s.runTx(ctx, "place_table_set", func(tx *gorm.DB, lk *txLocks) error {
		if _, err := findSlot(tx, layoutID, number); err != nil {
			return err
		}
		set, err := loadTableSet(tx, tableSetID)
		if err != nil {
			return err
		}
		if err := lk.Tables(set.TableIDs()...); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&model.TableSetInSection{}).
			Where("table_set_id = ? AND layout_id = ? AND section_number = ? AND removed_at IS NULL", tableSetID, layoutID, number).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		reach, err := activeReach(tx, layoutID)
		if err != nil {
			return err
		}
		for _, tableID := range uniqueSorted(set.TableIDs()) {
			for _, r := range reach[tableID] {
				if r.number == number {
					return apperr.New(apperr.ErrOverlappingPlacement,
						"table %d of set %d is already reachable in section %d", tableID, tableSetID, number)
				}
				return alreadyPlaced(tableID, layoutID, r)
			}
		}

		return tx.Create(&model.TableSetInSection{
			TableSetID:    tableSetID,
			LayoutID:      layoutID,
			SectionNumber: number,
			PlacedAt:      s.opts.Now().UTC(),
		}).Error
	})
}

func (s *gormStore) RemoveTableSetFromSection(ctx context.Context, tableSetID, layoutID int64, number int) error {
	defer s.slots.invalidate(layoutID)
	return s.runTx(ctx, "remove_table_set", func(tx *gorm.DB, _ *txLocks) error {
		res := tx.Model(&model.TableSetInSection{}).
			Where("table_set_id = ? AND layout_id = ? AND section_number = ? AND removed_at IS NULL", tableSetID, layoutID, number).
			Update("removed_at", s.opts.Now().UTC())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("placement of table set", tableSetID)
		}
		return nil
	})
}

// ResolveTablesForSlot returns the physical tables currently in a slot,
// sorted by id.
func (s *gormStore) ResolveTablesForSlot(ctx context.Context, layoutID int64, number int) ([]int64, error) {
	if ids, ok := s.slots.get(layoutID, number); ok {
		return ids, nil
	}
	gen := s.slots.generation(layoutID)

	db := s.db.WithContext(ctx)
	if _, err := findSlot(db, layoutID, number); err != nil {
		return nil, s.observe("resolve_slot", err)
	}
	reach, err := activeReach(db, layoutID)
	if err != nil {
		return nil, s.observe("resolve_slot", err)
	}

	ids := make([]int64, 0)
	for tableID, paths := range reach {
		inSlot := 0
		for _, r := range paths {
			if r.number == number {
				inSlot++
			}
		}
		if inSlot > 1 {
			return nil, s.observe("resolve_slot", apperr.New(apperr.ErrOverlappingPlacement,
				"table %d is reachable %d times in section %d of layout %d", tableID, inSlot, number, layoutID))
		}
		if inSlot == 1 {
			ids = append(ids, tableID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	s.slots.put(layoutID, number, gen, ids)
	s.metrics.ObserveOp("resolve_slot", "ok")
	return ids, nil
}

// reach is one active path by which a table sits in a layout slot.
type reach struct {
	number int
	viaSet int64 // zero for a direct placement
}

// activeReach maps every table reachable in layoutID to its active paths.
func activeReach(db *gorm.DB, layoutID int64) (map[int64][]reach, error) {
	var direct []model.TableInSection
	if err := db.Where("layout_id = ? AND removed_at IS NULL", layoutID).Find(&direct).Error; err != nil {
		return nil, err
	}
	var viaSets []model.TableSetInSection
	if err := db.Where("layout_id = ? AND removed_at IS NULL", layoutID).Find(&viaSets).Error; err != nil {
		return nil, err
	}

	out := make(map[int64][]reach)
	for _, p := range direct {
		out[p.TableID] = append(out[p.TableID], reach{number: p.SectionNumber})
	}
	if len(viaSets) == 0 {
		return out, nil
	}

	setIDs := make([]int64, len(viaSets))
	slotOfSet := make(map[int64][]int, len(viaSets))
	for i, p := range viaSets {
		setIDs[i] = p.TableSetID
		slotOfSet[p.TableSetID] = append(slotOfSet[p.TableSetID], p.SectionNumber)
	}
	var members []model.TableInTableSet
	if err := db.Where("table_set_id IN ?", setIDs).Find(&members).Error; err != nil {
		return nil, err
	}
	for _, m := range members {
		for _, n := range slotOfSet[m.TableSetID] {
			out[m.TableID] = append(out[m.TableID], reach{number: n, viaSet: m.TableSetID})
		}
	}
	return out, nil
}

func alreadyPlaced(tableID, layoutID int64, r reach) error {
	if r.viaSet != 0 {
		return apperr.New(apperr.ErrTableAlreadyPlaced,
			"table %d is already in section %d of layout %d through table set %d", tableID, r.number, layoutID, r.viaSet)
	}
	return apperr.New(apperr.ErrTableAlreadyPlaced,
		"table %d is already in section %d of layout %d", tableID, r.number, layoutID)
}

func findSlot(db *gorm.DB, layoutID int64, number int) (*model.SectionInLayout, error) {
	var slot model.SectionInLayout
	err := db.Where("layout_id = ? AND section_number = ?", layoutID, number).First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("section slot", slotName(layoutID, number))
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func mustExist(db *gorm.DB, dest any, id int64, resource string) error {
	err := db.Select("id").First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource, id)
	}
	return err
}

func slotName(layoutID int64, number int) string {
	return fmt.Sprintf("%d/%d", layoutID, number)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
