package competition

import (
	"errors"
	"time"

	"scoreserver/internal/db/models"

	"gorm.io/gorm"
)

// Current returns the active competition used by legacy single-competition
// flows: is_active, not yet ended, earliest start first (unscheduled comps
// sort ahead). Returns nil when nothing qualifies.
func Current(db *gorm.DB) (*models.Competition, error) {
	now := time.Now().UTC()

	var comp models.Competition
	err := db.
		Where("is_active = ?", true).
		Where("end_at IS NULL OR end_at >= ?", now).
		Order("start_at IS NOT NULL, start_at ASC").
		First(&comp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &comp, nil
}

// ByID returns the competition with the given id, or nil when absent.
func ByID(db *gorm.DB, id uint) (*models.Competition, error) {
	var comp models.Competition
	err := db.First(&comp, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &comp, nil
}

// BySlug returns the competition with the given slug, or nil when absent.
func BySlug(db *gorm.DB, slug string) (*models.Competition, error) {
	var comp models.Competition
	err := db.Where("slug = ?", slug).First(&comp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &comp, nil
}

// Resolve picks the competition scope for an engine call: explicit id wins,
// then slug, then the current active competition. A nil result with nil error
// means no competition could be resolved.
func Resolve(db *gorm.DB, id uint, slug string) (*models.Competition, error) {
	if id != 0 {
		return ByID(db, id)
	}
	if slug != "" {
		return BySlug(db, slug)
	}
	return Current(db)
}
