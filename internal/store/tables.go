package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"seating-backend/internal/apperr"
	"seating-backend/internal/geometry"
	"seating-backend/internal/model"
)

func validateTableInput(in TableInput) error {
	if err := geometry.ValidateTableGeometry(in.Corners); err != nil {
		return err
	}
	return geometry.ValidateChairs(in.Capacity)
}

func (s *gormStore) CreateTable(ctx context.Context, in TableInput) (*model.Table, error) {
	if err := validateTableInput(in); err != nil {
		return nil, err
	}
	table := model.Table{
		Label:         strings.TrimSpace(in.Label),
		DefaultChairs: in.Capacity.DefaultChairs,
		MaxChairs:     in.Capacity.MaxChairs,
	}
	table.SetCorners(in.Corners)
	if err := s.db.WithContext(ctx).Create(&table).Error; err != nil {
		return nil, s.observe("create_table", err)
	}
	s.metrics.ObserveOp("create_table", "ok")
	return &table, nil
}

// UpdateTable replaces geometry and capacity. Combined capacities of existing
// table sets are left as they were when the sets were built.
func (s *gormStore) UpdateTable(ctx context.Context, id int64, in TableInput) (*model.Table, error) {
	if err := validateTableInput(in); err != nil {
		return nil, err
	}
	var table model.Table
	err := s.runTx(ctx, "update_table", func(tx *gorm.DB, _ *txLocks) error {
		tables, err := loadTables(tx, []int64{id})
		if err != nil {
			return err
		}
		table = tables[0]
		table.Label = strings.TrimSpace(in.Label)
		table.DefaultChairs = in.Capacity.DefaultChairs
		table.MaxChairs = in.Capacity.MaxChairs
		table.SetCorners(in.Corners)
		return tx.Save(&table).Error
	})
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func (s *gormStore) GetTable(ctx context.Context, id int64) (*model.Table, error) {
	tables, err := loadTables(s.db.WithContext(ctx), []int64{id})
	if err != nil {
		return nil, classify(err, "get_table")
	}
	return &tables[0], nil
}

func (s *gormStore) ListTables(ctx context.Context) ([]model.Table, error) {
	var tables []model.Table
	if err := s.db.WithContext(ctx).Order("id").Find(&tables).Error; err != nil {
		return nil, classify(err, "list_tables")
	}
	return tables, nil
}

// DeleteTable removes a table that nothing has ever referenced.
func (s *gormStore) DeleteTable(ctx context.Context, id int64) error {
	return s.runTx(ctx, "delete_table", func(tx *gorm.DB, lk *txLocks) error {
		if _, err := loadTables(tx, []int64{id}); err != nil {
			return err
		}
		if err := lk.Tables(id); err != nil {
			return err
		}
		refs := []struct {
			model any
			what  string
		}{
			{&model.TableInTableSet{}, "a table set"},
			{&model.TableInSection{}, "a section placement"},
			{&model.ReservationAtTable{}, "a reservation"},
		}
		for _, ref := range refs {
			var n int64
			if err := tx.Model(ref.model).Where("table_id = ?", id).Count(&n).Error; err != nil {
				return fmt.Errorf("failed to count references to table %d: %w", id, err)
			}
			if n > 0 {
				e := apperr.New(apperr.ErrTableInUse, "table %d is referenced by %s", id, ref.what)
				e.TableID = id
				return e
			}
		}
		return tx.Delete(&model.Table{}, id).Error
	})
}

// loadTables fetches the given tables in the order of ids. The first unknown
// id fails with TableNotFound.
func loadTables(db *gorm.DB, ids []int64) ([]model.Table, error) {
	var found []model.Table
	if err := db.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]model.Table, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	out := make([]model.Table, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			e := apperr.New(apperr.ErrTableNotFound, "table %d does not exist", id)
			e.TableID = id
			return nil, e
		}
		out = append(out, t)
	}
	return out, nil
}

func loadTableSet(db *gorm.DB, id int64) (*model.TableSet, error) {
	var set model.TableSet
	err := db.Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("table_id") }).First(&set, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("table set", id)
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}
