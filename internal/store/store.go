package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"seating-backend/internal/metrics"
	"seating-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	CreateTable(ctx context.Context, in TableInput) (*model.Table, error)
	UpdateTable(ctx context.Context, id int64, in TableInput) (*model.Table, error)
	GetTable(ctx context.Context, id int64) (*model.Table, error)
	ListTables(ctx context.Context) ([]model.Table, error)
	DeleteTable(ctx context.Context, id int64) error

	BuildTableSet(ctx context.Context, tableIDs []int64, name string) (*model.TableSet, error)
	GetTableSet(ctx context.Context, id int64) (*model.TableSet, error)
	SplitTableSet(ctx context.Context, id int64) ([]model.TableSet, error)

	CreateLayout(ctx context.Context, name *string) (*model.Layout, error)
	GetLayout(ctx context.Context, id int64) (*model.Layout, error)
	CreateSection(ctx context.Context, name *string) (*model.Section, error)
	AssignSectionToLayout(ctx context.Context, sectionID, layoutID int64, number int, serverName *string) error
	RemoveSectionFromLayout(ctx context.Context, layoutID int64, number int) error
	SetServerName(ctx context.Context, layoutID int64, number int, name string) error
	ClearServerName(ctx context.Context, layoutID int64, number int) error
	PlaceTableInSection(ctx context.Context, tableID, layoutID int64, number int) error
	RemoveTableFromSection(ctx context.Context, tableID, layoutID int64, number int) error
	PlaceTableSetInSection(ctx context.Context, tableSetID, layoutID int64, number int) error
	RemoveTableSetFromSection(ctx context.Context, tableSetID, layoutID int64, number int) error
	ResolveTablesForSlot(ctx context.Context, layoutID int64, number int) ([]int64, error)

	FindOrCreateCustomer(ctx context.Context, firstName, lastName, phone string, email *string) (int64, error)
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)

	BookReservation(ctx context.Context, req BookingRequest) (int64, error)
	GetReservation(ctx context.Context, id int64) (*model.Reservation, error)
	CancelReservation(ctx context.Context, id int64) error
	ReassignReservationTables(ctx context.Context, id int64, sel TableSelection) error
	MarkSeated(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, id int64) error
	ListReservations(ctx context.Context, q ReservationQuery) ([]model.Reservation, error)

	Ping(ctx context.Context) error
}

// Options tune the scheduler and transaction behaviour of a store.
type Options struct {
	// ServiceDuration is how long a reservation occupies its tables. Zero or
	// negative restricts conflicts to identical timestamps.
	ServiceDuration time.Duration
	// HorizonPast and HorizonFuture bound range queries around Now. Zero
	// leaves that side unbounded.
	HorizonPast   time.Duration
	HorizonFuture time.Duration
	// ReadCommitted makes postgres transactions take per-table advisory
	// locks instead of running at SERIALIZABLE.
	ReadCommitted bool
	RetryAttempts int
	SlotCacheTTL  time.Duration
	Now           func() time.Time
	Metrics       *metrics.Metrics
}

// DefaultOptions mirror the configuration defaults.
func DefaultOptions() Options {
	return Options{
		ServiceDuration: 2 * time.Hour,
		RetryAttempts:   1,
		SlotCacheTTL:    10 * time.Minute,
		Now:             time.Now,
	}
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db      *gorm.DB
	opts    Options
	dialect string
	slots   *slotCache
	locks   *tableLocks
	metrics *metrics.Metrics
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, opts Options) Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RetryAttempts < 0 {
		opts.RetryAttempts = 0
	}
	if opts.SlotCacheTTL <= 0 {
		opts.SlotCacheTTL = 10 * time.Minute
	}
	return &gormStore{
		db:      db,
		opts:    opts,
		dialect: db.Dialector.Name(),
		slots:   newSlotCache(opts.SlotCacheTTL, opts.Metrics),
		locks:   newTableLocks(),
		metrics: opts.Metrics,
	}
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return classify(err, "opening connection pool")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return classify(err, "pinging database")
	}
	return nil
}
