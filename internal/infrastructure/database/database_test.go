package database

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAutoMigrate_CreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{"ListingGroups", "ClearanceListings", "PickupRequests", "PickupRequestListings", "InventoryItems", "AuditLogs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestPinger(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	assert.NoError(t, Pinger{DB: db}.Ping(context.Background()))

	sqlDB, _ := db.DB()
	require.NoError(t, sqlDB.Close())
	assert.Error(t, Pinger{DB: db}.Ping(context.Background()))
}
