package scoring

import (
	"fmt"
	"sort"
	"time"

	"scoreserver/internal/competition"
	"scoreserver/internal/db/models"

	"gorm.io/gorm"
)

const (
	// DefaultAttemptCap applies when a climb has no cap configured.
	DefaultAttemptCap = 5

	// Attempts are clamped into [MinAttempts, MaxAttempts] at write time as a
	// safety bound against malformed input. Not a scoring rule.
	MinAttempts = 1
	MaxAttempts = 50
)

// ClampAttempts bounds an attempt count into [1, 50].
func ClampAttempts(attempts int) int {
	if attempts < MinAttempts {
		return MinAttempts
	}
	if attempts > MaxAttempts {
		return MaxAttempts
	}
	return attempts
}

// PointsForClimb computes the points a score earns against one climb
// configuration. Pure: no storage access.
//
//   - untopped climbs score 0 no matter the attempts
//   - a nil or unconfigured climb scores 0 (no config means no points)
//   - the first attempt carries no penalty; penalties accrue from the second
//     attempt up to the attempt cap, and attempts past the cap are free
//   - points never go below 0
func PointsForClimb(sc *models.SectionClimb, attempts int, topped bool) int {
	if !topped || sc == nil {
		return 0
	}
	if sc.BasePoints == nil && sc.PenaltyPerAttempt == nil {
		return 0
	}

	attempts = ClampAttempts(attempts)

	attemptCap := DefaultAttemptCap
	if sc.AttemptCap != nil && *sc.AttemptCap > 0 {
		attemptCap = *sc.AttemptCap
	}

	base := 0
	if sc.BasePoints != nil {
		base = *sc.BasePoints
	}
	penalty := 0
	if sc.PenaltyPerAttempt != nil {
		penalty = *sc.PenaltyPerAttempt
	}

	counted := attempts
	if counted > attemptCap {
		counted = attemptCap
	}
	penaltyAttempts := counted - 1
	if penaltyAttempts < 0 {
		penaltyAttempts = 0
	}

	points := base - penalty*penaltyAttempts
	if points < 0 {
		return 0
	}
	return points
}

// PointsFor resolves a climb by number within a competition scope and scores
// it. This is the legacy read path: it fails soft to 0 when no competition or
// configuration resolves, and takes the first match when the climb number is
// ambiguous. The write path must go through ResolveClimbNumber instead so
// ambiguity is rejected, never guessed.
func PointsFor(db *gorm.DB, climbNumber, attempts int, topped bool, competitionID uint) int {
	if !topped {
		return 0
	}

	comp, err := competition.Resolve(db, competitionID, "")
	if err != nil || comp == nil {
		return 0
	}

	res, err := ResolveClimbNumber(db, comp, climbNumber)
	if err != nil {
		return 0
	}

	switch res.Outcome {
	case ResolveUnique:
		return PointsForClimb(res.Climb, attempts, topped)
	case ResolveAmbiguous:
		return PointsForClimb(&res.Candidates[0], attempts, topped)
	default:
		return 0
	}
}

// ClimbConfigs loads every climb configuration reachable from a
// competition's sections, keyed by id. The leaderboard builder uses this to
// score a whole competition with one query.
func ClimbConfigs(db *gorm.DB, comp *models.Competition) (map[uint]*models.SectionClimb, error) {
	q := db.
		Joins("JOIN sections ON sections.id = section_climbs.section_id").
		Where("sections.competition_id = ?", comp.ID)
	if comp.GymID != nil {
		q = q.Where("section_climbs.gym_id = ?", *comp.GymID)
	}

	var climbs []models.SectionClimb
	if err := q.Find(&climbs).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]*models.SectionClimb, len(climbs))
	for i := range climbs {
		byID[climbs[i].ID] = &climbs[i]
	}
	return byID, nil
}

// CompetitorTotalPoints sums the points of every score the competitor holds.
// When competitionID is zero the competitor's own competition is used; a
// competitor outside any competition scores 0.
func CompetitorTotalPoints(db *gorm.DB, competitorID, competitionID uint) (int, error) {
	if competitionID == 0 {
		var c models.Competitor
		if err := db.First(&c, competitorID).Error; err != nil {
			return 0, nil
		}
		if c.CompetitionID == nil {
			return 0, nil
		}
		competitionID = *c.CompetitionID
	}

	comp, err := competition.ByID(db, competitionID)
	if err != nil || comp == nil {
		return 0, err
	}

	configs, err := ClimbConfigs(db, comp)
	if err != nil {
		return 0, err
	}

	var scores []models.Score
	if err := db.Where("competitor_id = ?", competitorID).Find(&scores).Error; err != nil {
		return 0, err
	}

	total := 0
	for _, s := range scores {
		sc, ok := configs[s.SectionClimbID]
		if !ok {
			// cross-competition or orphaned rows never count
			continue
		}
		total += PointsForClimb(sc, s.Attempts, s.Topped)
	}
	return total, nil
}

// ScoreView is one score row as returned to score-card clients. It carries
// both keys so clients can map unambiguously even with duplicated climb
// numbers.
type ScoreView struct {
	ClimbNumber    int  `json:"climb_number"`
	SectionClimbID uint `json:"section_climb_id"`
	Attempts       int  `json:"attempts"`
	Topped         bool `json:"topped"`
	Flashed        bool `json:"flashed"`
	Points         int  `json:"points"`
}

// ScoresForCompetitor lists every score the competitor holds, with points
// scoped to their competition. Unknown competitors get an empty list.
func ScoresForCompetitor(db *gorm.DB, competitorID uint) ([]ScoreView, error) {
	var c models.Competitor
	if err := db.First(&c, competitorID).Error; err != nil {
		return []ScoreView{}, nil
	}

	var configs map[uint]*models.SectionClimb
	if c.CompetitionID != nil {
		comp, err := competition.ByID(db, *c.CompetitionID)
		if err != nil {
			return nil, err
		}
		if comp != nil {
			configs, err = ClimbConfigs(db, comp)
			if err != nil {
				return nil, err
			}
		}
	}

	var scores []models.Score
	err := db.Where("competitor_id = ?", competitorID).
		Order("climb_number ASC, section_climb_id ASC").
		Find(&scores).Error
	if err != nil {
		return nil, err
	}

	out := make([]ScoreView, 0, len(scores))
	for _, s := range scores {
		out = append(out, ScoreView{
			ClimbNumber:    s.ClimbNumber,
			SectionClimbID: s.SectionClimbID,
			Attempts:       s.Attempts,
			Topped:         s.Topped,
			Flashed:        s.Flashed,
			Points:         PointsForClimb(configs[s.SectionClimbID], s.Attempts, s.Topped),
		})
	}
	return out, nil
}

// TopClimb is one entry of a competitor's best-climbs list.
type TopClimb struct {
	SectionClimbID uint       `json:"section_climb_id"`
	ClimbNumber    int        `json:"climb_number"`
	Colour         string     `json:"colour,omitempty"`
	Label          string     `json:"label"`
	Attempts       int        `json:"attempts"`
	Topped         bool       `json:"topped"`
	Points         int        `json:"points"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// TopClimbsForCompetitor returns the competitor's best climbs within a
// competition, ordered by points desc then attempts asc then climb number.
// Labels use the climb colour when configured ("Yellow #12").
func TopClimbsForCompetitor(db *gorm.DB, competitionID, competitorID uint, limit int) ([]TopClimb, error) {
	if limit < 1 {
		limit = 1
	}

	comp, err := competition.ByID(db, competitionID)
	if err != nil || comp == nil {
		return nil, err
	}

	var scores []models.Score
	if err := db.Where("competitor_id = ?", competitorID).Find(&scores).Error; err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, nil
	}

	configs, err := ClimbConfigs(db, comp)
	if err != nil {
		return nil, err
	}

	out := make([]TopClimb, 0, len(scores))
	for _, s := range scores {
		sc, ok := configs[s.SectionClimbID]
		if !ok {
			continue
		}

		label := fmt.Sprintf("Climb #%d", s.ClimbNumber)
		if sc.Colour != "" {
			label = fmt.Sprintf("%s #%d", sc.Colour, s.ClimbNumber)
		}

		updated := s.UpdatedAt
		out = append(out, TopClimb{
			SectionClimbID: s.SectionClimbID,
			ClimbNumber:    s.ClimbNumber,
			Colour:         sc.Colour,
			Label:          label,
			Attempts:       s.Attempts,
			Topped:         s.Topped,
			Points:         PointsForClimb(sc, s.Attempts, s.Topped),
			UpdatedAt:      &updated,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].Attempts != out[j].Attempts {
			return out[i].Attempts < out[j].Attempts
		}
		return out[i].ClimbNumber < out[j].ClimbNumber
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
