package db

import (
	"testing"

	"scoreserver/internal/db/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return gdb
}

func TestMigrate(t *testing.T) {
	prev := DB
	defer func() { DB = prev }()
	DB = openSQLite(t)

	require.NoError(t, Migrate())

	// Every table the engine touches must exist after migration.
	for _, model := range []any{
		&models.Gym{}, &models.Account{}, &models.Competition{},
		&models.Section{}, &models.SectionClimb{}, &models.Competitor{},
		&models.Score{}, &models.DoublesTeam{}, &models.DoublesInvite{},
		&models.FinalRanking{},
	} {
		assert.True(t, DB.Migrator().HasTable(model))
	}

	assert.NoError(t, Migrate(), "migration is idempotent")
}

func TestGetDB(t *testing.T) {
	prev := DB
	defer func() { DB = prev }()
	DB = openSQLite(t)

	assert.Same(t, DB, GetDB())
}
