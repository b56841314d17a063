// Package dbtest opens throwaway in-memory databases for engine tests.
package dbtest

import (
	"testing"
	"time"

	"scoreserver/internal/db/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory database scoped to one test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("Failed to get database handle: %v", err)
	}
	// A second connection would see a different empty :memory: database.
	sqlDB.SetMaxOpenConns(1)

	err = gdb.AutoMigrate(
		&models.Gym{},
		&models.Account{},
		&models.Competition{},
		&models.Section{},
		&models.SectionClimb{},
		&models.Competitor{},
		&models.Score{},
		&models.DoublesTeam{},
		&models.DoublesInvite{},
		&models.FinalRanking{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return gdb
}

// Int returns a pointer for optional integer columns.
func Int(v int) *int { return &v }

// Time returns a pointer for optional timestamp columns.
func Time(v time.Time) *time.Time { return &v }

// Competition inserts an active competition.
func Competition(t *testing.T, db *gorm.DB, name, slug string) *models.Competition {
	t.Helper()
	comp := models.Competition{Name: name, Slug: slug, IsActive: true}
	if err := db.Create(&comp).Error; err != nil {
		t.Fatalf("Failed to create competition: %v", err)
	}
	return &comp
}

// Section inserts a section belonging to a competition.
func Section(t *testing.T, db *gorm.DB, comp *models.Competition, name string) *models.Section {
	t.Helper()
	section := models.Section{Name: name, Slug: name, CompetitionID: &comp.ID}
	if err := db.Create(&section).Error; err != nil {
		t.Fatalf("Failed to create section: %v", err)
	}
	return &section
}

// Climb inserts a climb configuration into a section.
func Climb(t *testing.T, db *gorm.DB, section *models.Section, number, basePoints, penalty, cap int) *models.SectionClimb {
	t.Helper()
	sc := models.SectionClimb{
		SectionID:   section.ID,
		ClimbNumber: number,
	}
	if basePoints >= 0 {
		sc.BasePoints = Int(basePoints)
	}
	if penalty >= 0 {
		sc.PenaltyPerAttempt = Int(penalty)
	}
	if cap > 0 {
		sc.AttemptCap = Int(cap)
	}
	if err := db.Create(&sc).Error; err != nil {
		t.Fatalf("Failed to create section climb: %v", err)
	}
	return &sc
}

// Competitor inserts a competitor (with a backing account) into a
// competition. Pass nil for an account-shell competitor with no competition.
func Competitor(t *testing.T, db *gorm.DB, comp *models.Competition, name, gender string) *models.Competitor {
	t.Helper()
	account := models.Account{Email: name + "@example.test"}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	competitor := models.Competitor{Name: name, Gender: gender, AccountID: account.ID}
	if comp != nil {
		competitor.CompetitionID = &comp.ID
	}
	if err := db.Create(&competitor).Error; err != nil {
		t.Fatalf("Failed to create competitor: %v", err)
	}
	return &competitor
}

// Score inserts a raw score row.
func Score(t *testing.T, db *gorm.DB, competitor *models.Competitor, sc *models.SectionClimb, attempts int, topped bool) *models.Score {
	t.Helper()
	score := models.Score{
		CompetitorID:   competitor.ID,
		SectionClimbID: sc.ID,
		ClimbNumber:    sc.ClimbNumber,
		Attempts:       attempts,
		Topped:         topped,
		Flashed:        topped && attempts == 1,
	}
	if err := db.Create(&score).Error; err != nil {
		t.Fatalf("Failed to create score: %v", err)
	}
	return &score
}
