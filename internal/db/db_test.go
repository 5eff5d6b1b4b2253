package db

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"seating-backend/config"
	"seating-backend/internal/model"
	"seating-backend/internal/schedule"
)

func newSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
	}
	db, err := Init(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestInitRejectsUnknownDriver(t *testing.T) {
	_, err := Init(&config.DatabaseConfig{Driver: "mysql"})
	assert.ErrorContains(t, err, `unsupported database driver "mysql"`)
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := newSQLite(t)
	require.NoError(t, Migrate(db))

	m := db.Migrator()
	assert.True(t, m.HasTable(&model.Table{}))
	assert.True(t, m.HasIndex(&model.Reservation{}, "idx_customer_slot"))
	assert.True(t, m.HasIndex(&model.TableInSection{}, "idx_active_table_placement"))
	assert.True(t, m.HasIndex(&model.TableSetInSection{}, "idx_active_table_set_placement"))
}

func TestActivePlacementIsUnique(t *testing.T) {
	db := newSQLite(t)
	now := time.Now().UTC()

	require.NoError(t, db.Create(&model.TableInSection{TableID: 1, LayoutID: 1, SectionNumber: 1, PlacedAt: now, RemovedAt: &now}).Error)
	require.NoError(t, db.Create(&model.TableInSection{TableID: 1, LayoutID: 1, SectionNumber: 2, PlacedAt: now}).Error)
	assert.Error(t, db.Create(&model.TableInSection{TableID: 1, LayoutID: 1, SectionNumber: 3, PlacedAt: now}).Error)
	// Another layout is a separate floor plan.
	assert.NoError(t, db.Create(&model.TableInSection{TableID: 1, LayoutID: 2, SectionNumber: 1, PlacedAt: now}).Error)
}

func TestCancelledReservationFreesCustomerSlot(t *testing.T) {
	db := newSQLite(t)
	customer := model.Customer{FirstName: "Ada", LastName: "Lovelace", PhoneNumber: "(555) 123-4567"}
	require.NoError(t, db.Create(&customer).Error)

	reservation := func(status schedule.Status) *model.Reservation {
		return &model.Reservation{
			CustomerID:          customer.ID,
			NumPeople:           2,
			ReservationDatetime: "2024-06-01 19:00:00",
			DateCreated:         time.Now().UTC(),
			Status:              status,
		}
	}
	require.NoError(t, db.Omit("Customer").Create(reservation(schedule.StatusCancelled)).Error)
	require.NoError(t, db.Omit("Customer").Create(reservation(schedule.StatusConfirmed)).Error)
	assert.Error(t, db.Omit("Customer").Create(reservation(schedule.StatusRequested)).Error)
}

func TestLogLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want logger.LogLevel
	}{
		{"silent", logger.Silent},
		{"ERROR", logger.Error},
		{"info", logger.Info},
		{"", logger.Warn},
		{"verbose", logger.Warn},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, logLevel(tc.in))
		})
	}
}
