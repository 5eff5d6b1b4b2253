package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"seating-backend/internal/apperr"
	"seating-backend/internal/geometry"
	"seating-backend/internal/model"
)

// BuildTableSet groups the given tables. Duplicate ids are collapsed; the
// combined capacity is fixed at this point.
func (s *gormStore) BuildTableSet(ctx context.Context, tableIDs []int64, name string) (*model.TableSet, error) {
	ids := uniqueSorted(tableIDs)
	if len(ids) == 0 {
		return nil, apperr.New(apperr.ErrEmptyTableSet, "a table set needs at least one table")
	}
	var set *model.TableSet
	err := s.runTx(ctx, "build_table_set", func(tx *gorm.DB, _ *txLocks) error {
		tables, err := loadTables(tx, ids)
		if err != nil {
			return err
		}
		set, err = createTableSet(tx, tables, strings.TrimSpace(name))
		return err
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (s *gormStore) GetTableSet(ctx context.Context, id int64) (*model.TableSet, error) {
	set, err := loadTableSet(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, classify(err, "get_table_set")
	}
	return set, nil
}

// SplitTableSet breaks a set back into one singleton set per member. Active
// placements of the split set are ended and the singletons take over its
// slots. Reservations keep pointing at the original set.
func (s *gormStore) SplitTableSet(ctx context.Context, id int64) ([]model.TableSet, error) {
	var (
		singles  []model.TableSet
		affected []int64
	)
	err := s.runTx(ctx, "split_table_set", func(tx *gorm.DB, lk *txLocks) error {
		singles, affected = nil, nil

		set, err := loadTableSet(tx, id)
		if err != nil {
			return err
		}
		memberIDs := set.TableIDs()
		if len(memberIDs) == 1 {
			// Already a singleton; it stays where it is.
			singles = []model.TableSet{*set}
			return nil
		}
		if err := lk.Tables(memberIDs...); err != nil {
			return err
		}
		tables, err := loadTables(tx, memberIDs)
		if err != nil {
			return err
		}

		for _, t := range tables {
			single, err := findSingleton(tx, t.ID)
			if err != nil {
				return err
			}
			if single == nil {
				label := t.Label
				if label == "" {
					label = fmt.Sprintf("table %d", t.ID)
				}
				if single, err = createTableSet(tx, []model.Table{t}, label); err != nil {
					return err
				}
			}
			singles = append(singles, *single)
		}

		var placements []model.TableSetInSection
		if err := tx.Where("table_set_id = ? AND removed_at IS NULL", id).Find(&placements).Error; err != nil {
			return err
		}
		now := s.opts.Now().UTC()
		for _, p := range placements {
			if err := tx.Model(&model.TableSetInSection{}).Where("id = ?", p.ID).Update("removed_at", now).Error; err != nil {
				return fmt.Errorf("failed to end placement %d of table set %d: %w", p.ID, id, err)
			}
			for _, single := range singles {
				if err := tx.Create(&model.TableSetInSection{
					TableSetID:    single.ID,
					LayoutID:      p.LayoutID,
					SectionNumber: p.SectionNumber,
					PlacedAt:      now,
				}).Error; err != nil {
					return fmt.Errorf("failed to place table set %d: %w", single.ID, err)
				}
			}
			affected = append(affected, p.LayoutID)
		}
		return nil
	})
	s.slots.invalidate(affected...)
	if err != nil {
		return nil, err
	}
	return singles, nil
}

func createTableSet(tx *gorm.DB, tables []model.Table, name string) (*model.TableSet, error) {
	caps := make([]geometry.Capacity, len(tables))
	members := make([]model.TableInTableSet, len(tables))
	for i, t := range tables {
		caps[i] = t.Capacity()
		members[i] = model.TableInTableSet{TableID: t.ID}
	}
	combined := geometry.Combine(caps...)
	set := model.TableSet{
		Name:                  name,
		CombinedDefaultChairs: combined.DefaultChairs,
		CombinedMaxChairs:     combined.MaxChairs,
		Members:               members,
	}
	if err := tx.Create(&set).Error; err != nil {
		return nil, fmt.Errorf("failed to create table set: %w", err)
	}
	return &set, nil
}

// findSingleton returns the oldest one-member set holding tableID, if any.
func findSingleton(tx *gorm.DB, tableID int64) (*model.TableSet, error) {
	return findSetWithMembers(tx, []int64{tableID})
}

// findSetWithMembers returns the oldest set whose membership is exactly ids.
func findSetWithMembers(tx *gorm.DB, ids []int64) (*model.TableSet, error) {
	ids = uniqueSorted(ids)
	var setIDs []int64
	err := tx.Model(&model.TableInTableSet{}).
		Select("table_set_id").
		Group("table_set_id").
		Having("COUNT(*) = ? AND SUM(CASE WHEN table_id IN ? THEN 1 ELSE 0 END) = ?", len(ids), ids, len(ids)).
		Order("table_set_id").
		Limit(1).
		Pluck("table_set_id", &setIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up table set by members: %w", err)
	}
	if len(setIDs) == 0 {
		return nil, nil
	}
	return loadTableSet(tx, setIDs[0])
}
