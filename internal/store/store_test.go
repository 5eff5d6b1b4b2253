package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"seating-backend/internal/apperr"
	"seating-backend/internal/db"
	"seating-backend/internal/geometry"
)

var fixedNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

// newTestStore opens a private in-memory SQLite database with the full schema.
func newTestStore(t *testing.T, mutate ...func(*Options)) (Store, *gorm.DB) {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))

	opts := DefaultOptions()
	opts.Now = func() time.Time { return fixedNow }
	for _, m := range mutate {
		m(&opts)
	}
	return NewGormStore(gormDB, opts), gormDB
}

// A helper function to create a mock database connection.
func newMockStore(t *testing.T, mutate ...func(*Options)) (Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Now = func() time.Time { return fixedNow }
	for _, m := range mutate {
		m(&opts)
	}
	return NewGormStore(gormDB, opts), mock
}

func rectangle() geometry.Corners {
	return geometry.Corners{
		TopLeft:     geometry.Point{X: 0, Y: 10},
		TopRight:    geometry.Point{X: 2, Y: 10},
		BottomLeft:  geometry.Point{X: 0, Y: 0},
		BottomRight: geometry.Point{X: 2, Y: 0},
	}
}

func mustTable(t *testing.T, s Store, def, maxChairs int) int64 {
	t.Helper()
	table, err := s.CreateTable(context.Background(), TableInput{
		Corners:  rectangle(),
		Capacity: geometry.Capacity{DefaultChairs: def, MaxChairs: maxChairs},
	})
	require.NoError(t, err)
	return table.ID
}

func mustCustomer(t *testing.T, s Store, first, last, phone string) int64 {
	t.Helper()
	id, err := s.FindOrCreateCustomer(context.Background(), first, last, phone, nil)
	require.NoError(t, err)
	return id
}

func mustLayoutSlot(t *testing.T, s Store, numbers ...int) int64 {
	t.Helper()
	ctx := context.Background()
	layout, err := s.CreateLayout(ctx, nil)
	require.NoError(t, err)
	for _, n := range numbers {
		section, err := s.CreateSection(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, s.AssignSectionToLayout(ctx, section.ID, layout.ID, n, nil))
	}
	return layout.ID
}

func book(s Store, customerID int64, at string, party int, tables ...int64) (int64, error) {
	return s.BookReservation(context.Background(), BookingRequest{
		CustomerID: customerID,
		PartySize:  party,
		Datetime:   at,
		Tables:     TableSelection{TableIDs: tables},
	})
}

func requireCode(t *testing.T, err error, sentinel *apperr.Error) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, sentinel)
	e, ok := apperr.As(err)
	require.True(t, ok)
	return e
}
