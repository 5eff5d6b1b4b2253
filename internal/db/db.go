package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"seating-backend/config"
	"seating-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// SQLite allows a single writer; one connection keeps transactions
		// from tripping over each other's locks.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Println("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.EnableConstraints && cfg.Driver == "postgres" {
		log.Println("Constraints are enabled, applying postgres CHECK constraints...")
		if err := applyPostgresConstraints(db); err != nil {
			log.Printf("Warning: failed to apply some constraints: %v. Continuing without them.", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates the schema. Partial unique indexes keep at most
// one active placement of a table per layout; both postgres and sqlite
// support them.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Table{},
		&model.TableSet{},
		&model.TableInTableSet{},
		&model.Section{},
		&model.Layout{},
		&model.SectionInLayout{},
		&model.TableInSection{},
		&model.TableSetInSection{},
		&model.Customer{},
		&model.Reservation{},
		&model.ReservationAtTable{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	ddls := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_active_table_placement " +
			"ON table_in_sections (table_id, layout_id) WHERE removed_at IS NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_active_table_set_placement " +
			"ON table_set_in_sections (table_set_id, layout_id) WHERE removed_at IS NULL",
	}
	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func applyPostgresConstraints(db *gorm.DB) error {
	constraints := []struct {
		table, name, check string
	}{
		{"dining_tables", "dining_tables_geometry_valid",
			"top_left_x < top_right_x AND bottom_left_x < bottom_right_x AND " +
				"top_left_y > bottom_left_y AND top_right_y > bottom_right_y"},
		{"dining_tables", "dining_tables_chairs_valid",
			"default_chairs >= 1 AND max_chairs >= default_chairs"},
		{"reservations", "reservations_party_valid",
			"num_people >= 1 AND num_highchairs >= 0 AND num_highchairs <= num_people"},
		{"customers", "customers_phone_format",
			`phone_number ~ '^\(\d{3}\) \d{3}-\d{4}$'`},
	}

	for _, c := range constraints {
		ddls := []string{
			fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", c.table, c.name),
			fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);", c.table, c.name, c.check),
		}
		for _, ddl := range ddls {
			if err := db.Exec(ddl).Error; err != nil {
				return fmt.Errorf("DDL failed on %q: %w", ddl, err)
			}
		}
	}
	return nil
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}
