package scoring

import (
	"scoreserver/internal/db/models"

	"gorm.io/gorm"
)

// ResolveOutcome tags the result of a climb-number lookup. Callers must
// handle all three cases; "first match" is never picked implicitly.
type ResolveOutcome int

const (
	ResolveNotFound ResolveOutcome = iota
	ResolveUnique
	ResolveAmbiguous
)

// ClimbResolution is the result of resolving a bare climb number within a
// competition. Climb holds the single match for ResolveUnique; Candidates
// holds every match for ResolveAmbiguous (Climb is nil in that case).
type ClimbResolution struct {
	Outcome    ResolveOutcome
	Climb      *models.SectionClimb
	Candidates []models.SectionClimb
}

// ResolveClimbNumber finds the climb configurations matching a climb number
// within one competition, filtered to the competition's gym when it has one.
// The same number may legitimately exist in several sections; that comes back
// as ResolveAmbiguous so the caller decides what to do about it.
func ResolveClimbNumber(db *gorm.DB, comp *models.Competition, climbNumber int) (ClimbResolution, error) {
	q := db.
		Joins("JOIN sections ON sections.id = section_climbs.section_id").
		Where("section_climbs.climb_number = ?", climbNumber).
		Where("sections.competition_id = ?", comp.ID)
	if comp.GymID != nil {
		q = q.Where("section_climbs.gym_id = ?", *comp.GymID)
	}

	var matches []models.SectionClimb
	if err := q.Order("section_climbs.id ASC").Find(&matches).Error; err != nil {
		return ClimbResolution{}, err
	}

	switch len(matches) {
	case 0:
		return ClimbResolution{Outcome: ResolveNotFound}, nil
	case 1:
		return ClimbResolution{Outcome: ResolveUnique, Climb: &matches[0]}, nil
	default:
		return ClimbResolution{Outcome: ResolveAmbiguous, Candidates: matches}, nil
	}
}
