package database

import (
	"context"

	"foodbridge-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a GORM DB from DSN (Postgres or pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when using connection poolers (e.g. PgBouncer).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

// Models lists every persisted entity in migration order.
func Models() []interface{} {
	return []interface{}{
		&domain.ListingGroup{},
		&domain.ClearanceListing{},
		&domain.PickupRequest{},
		&domain.PickupRequestListing{},
		&domain.InventoryItem{},
		&domain.AuditLog{},
	}
}

// AutoMigrate creates or updates the tables for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Pinger reports database reachability for the health endpoint.
type Pinger struct {
	DB *gorm.DB
}

func (p Pinger) Ping(ctx context.Context) error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
