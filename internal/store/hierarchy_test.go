package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seating-backend/internal/apperr"
	"seating-backend/internal/model"
)

func TestPlaceTableInSection_PerLayoutExclusivity(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	layoutA := mustLayoutSlot(t, s, 1, 2)
	layoutB := mustLayoutSlot(t, s, 1)
	table := mustTable(t, s, 2, 4)

	require.NoError(t, s.PlaceTableInSection(ctx, table, layoutA, 1))
	requireCode(t, s.PlaceTableInSection(ctx, table, layoutA, 2), apperr.ErrTableAlreadyPlaced)
	require.NoError(t, s.PlaceTableInSection(ctx, table, layoutB, 1))

	// Same table, same slot: nothing changes.
	require.NoError(t, s.PlaceTableInSection(ctx, table, layoutA, 1))

	// Moving is an explicit remove then place.
	require.NoError(t, s.RemoveTableFromSection(ctx, table, layoutA, 1))
	require.NoError(t, s.PlaceTableInSection(ctx, table, layoutA, 2))
	requireCode(t, s.RemoveTableFromSection(ctx, table, layoutA, 1), apperr.ErrNotFound)

	ids, err := s.ResolveTablesForSlot(ctx, layoutA, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{table}, ids)
	ids, err = s.ResolveTablesForSlot(ctx, layoutA, 1)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPlaceTableInSection_Errors(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	layout := mustLayoutSlot(t, s, 1)
	table := mustTable(t, s, 2, 4)

	requireCode(t, s.PlaceTableInSection(ctx, table, layout, 7), apperr.ErrNotFound)
	requireCode(t, s.PlaceTableInSection(ctx, 9999, layout, 1), apperr.ErrTableNotFound)
	_, err := s.ResolveTablesForSlot(ctx, layout, 7)
	requireCode(t, err, apperr.ErrNotFound)
}

func TestPlacementThroughTableSets(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	layout := mustLayoutSlot(t, s, 1, 2)
	t1 := mustTable(t, s, 2, 4)
	t2 := mustTable(t, s, 2, 4)
	t3 := mustTable(t, s, 2, 4)
	t4 := mustTable(t, s, 2, 4)
	pair, err := s.BuildTableSet(ctx, []int64{t1, t2}, "pair")
	require.NoError(t, err)

	require.NoError(t, s.PlaceTableSetInSection(ctx, pair.ID, layout, 1))
	require.NoError(t, s.PlaceTableSetInSection(ctx, pair.ID, layout, 1))

	requireCode(t, s.PlaceTableInSection(ctx, t1, layout, 1), apperr.ErrOverlappingPlacement)
	requireCode(t, s.PlaceTableInSection(ctx, t2, layout, 2), apperr.ErrTableAlreadyPlaced)
	requireCode(t, s.PlaceTableSetInSection(ctx, pair.ID, layout, 2), apperr.ErrTableAlreadyPlaced)

	require.NoError(t, s.PlaceTableInSection(ctx, t3, layout, 2))
	other, err := s.BuildTableSet(ctx, []int64{t4, t3}, "")
	require.NoError(t, err)
	requireCode(t, s.PlaceTableSetInSection(ctx, other.ID, layout, 2), apperr.ErrOverlappingPlacement)

	ids, err := s.ResolveTablesForSlot(ctx, layout, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{t1, t2}, ids)

	require.NoError(t, s.RemoveTableSetFromSection(ctx, pair.ID, layout, 1))
	requireCode(t, s.RemoveTableSetFromSection(ctx, pair.ID, layout, 1), apperr.ErrNotFound)
	require.NoError(t, s.PlaceTableInSection(ctx, t1, layout, 1))
}

func TestResolveTablesForSlot_InvalidatedOnWrite(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	layout := mustLayoutSlot(t, s, 1, 2)
	t1 := mustTable(t, s, 2, 4)
	t2 := mustTable(t, s, 2, 4)

	require.NoError(t, s.PlaceTableInSection(ctx, t1, layout, 1))
	ids, err := s.ResolveTablesForSlot(ctx, layout, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{t1}, ids)

	// Served from the snapshot; mutating the result must not leak back.
	ids[0] = -1
	ids, err = s.ResolveTablesForSlot(ctx, layout, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{t1}, ids)

	require.NoError(t, s.PlaceTableInSection(ctx, t2, layout, 1))
	ids, err = s.ResolveTablesForSlot(ctx, layout, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{t1, t2}, ids)

	require.NoError(t, s.RemoveTableFromSection(ctx, t1, layout, 1))
	ids, err = s.ResolveTablesForSlot(ctx, layout, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{t2}, ids)
}

func TestResolveTablesForSlot_RejectsTwoPaths(t *testing.T) {
	s, gormDB := newTestStore(t)
	ctx := context.Background()
	layout := mustLayoutSlot(t, s, 1)
	t1 := mustTable(t, s, 2, 4)
	t2 := mustTable(t, s, 2, 4)
	pair, err := s.BuildTableSet(ctx, []int64{t1, t2}, "")
	require.NoError(t, err)
	require.NoError(t, s.PlaceTableSetInSection(ctx, pair.ID, layout, 1))

	// Bypass the write-time checks to simulate a contradictory history.
	require.NoError(t, gormDB.Create(&model.TableInSection{
		TableID: t1, LayoutID: layout, SectionNumber: 1, PlacedAt: fixedNow,
	}).Error)

	_, err = s.ResolveTablesForSlot(ctx, layout, 1)
	requireCode(t, err, apperr.ErrOverlappingPlacement)
}

func TestAssignSectionToLayout(t *testing.T) {
	s, gormDB := newTestStore(t)
	ctx := context.Background()
	layout, err := s.CreateLayout(ctx, nil)
	require.NoError(t, err)
	first, err := s.CreateSection(ctx, nil)
	require.NoError(t, err)
	second, err := s.CreateSection(ctx, nil)
	require.NoError(t, err)
	alice := "Alice"

	require.NoError(t, s.AssignSectionToLayout(ctx, first.ID, layout.ID, 1, nil))

	testCases := []struct {
		name      string
		sectionID int64
		layoutID  int64
		number    int
		sentinel  *apperr.Error
	}{
		{"number taken by another section", second.ID, layout.ID, 1, apperr.ErrDuplicateSectionNumber},
		{"section already under another number", first.ID, layout.ID, 2, apperr.ErrSectionAlreadyInLayout},
		{"unknown layout", first.ID, 9999, 1, apperr.ErrNotFound},
		{"unknown section", 9999, layout.ID, 3, apperr.ErrNotFound},
		{"non-positive number", second.ID, layout.ID, 0, apperr.ErrInvalidArgument},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			requireCode(t, s.AssignSectionToLayout(ctx, tc.sectionID, tc.layoutID, tc.number, nil), tc.sentinel)
		})
	}

	// Re-assigning the same pair only refreshes the server.
	require.NoError(t, s.AssignSectionToLayout(ctx, first.ID, layout.ID, 1, &alice))
	var slot model.SectionInLayout
	require.NoError(t, gormDB.Where("layout_id = ? AND section_number = ?", layout.ID, 1).First(&slot).Error)
	require.NotNil(t, slot.ServerName)
	assert.Equal(t, "Alice", *slot.ServerName)

	require.NoError(t, s.AssignSectionToLayout(ctx, second.ID, layout.ID, 2, nil))
	got, err := s.GetLayout(ctx, layout.ID)
	require.NoError(t, err)
	require.Len(t, got.Sections, 2)
	assert.Equal(t, first.ID, got.Sections[0].SectionID)
	assert.Equal(t, second.ID, got.Sections[1].SectionID)
}

func TestServerName(t *testing.T) {
	s, gormDB := newTestStore(t)
	ctx := context.Background()
	layout := mustLayoutSlot(t, s, 1)

	require.NoError(t, s.SetServerName(ctx, layout, 1, "  Bob "))
	var slot model.SectionInLayout
	require.NoError(t, gormDB.Where("layout_id = ? AND section_number = ?", layout, 1).First(&slot).Error)
	require.NotNil(t, slot.ServerName)
	assert.Equal(t, "Bob", *slot.ServerName)

	require.NoError(t, s.ClearServerName(ctx, layout, 1))
	slot = model.SectionInLayout{}
	require.NoError(t, gormDB.Where("layout_id = ? AND section_number = ?", layout, 1).First(&slot).Error)
	assert.Nil(t, slot.ServerName)

	requireCode(t, s.SetServerName(ctx, layout, 1, " "), apperr.ErrInvalidArgument)
	requireCode(t, s.SetServerName(ctx, layout, 5, "Bob"), apperr.ErrNotFound)
	requireCode(t, s.ClearServerName(ctx, 9999, 1), apperr.ErrNotFound)
}

func TestRemoveSectionFromLayout(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	layout := mustLayoutSlot(t, s, 1)
	table := mustTable(t, s, 2, 4)
	require.NoError(t, s.PlaceTableInSection(ctx, table, layout, 1))

	requireCode(t, s.RemoveSectionFromLayout(ctx, layout, 1), apperr.ErrSlotNotEmpty)
	require.NoError(t, s.RemoveTableFromSection(ctx, table, layout, 1))
	require.NoError(t, s.RemoveSectionFromLayout(ctx, layout, 1))
	requireCode(t, s.RemoveSectionFromLayout(ctx, layout, 1), apperr.ErrNotFound)
}
