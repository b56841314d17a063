package scoring

import (
	"errors"
	"fmt"
	"time"

	"scoreserver/internal/competition"
	"scoreserver/internal/db/models"
	"scoreserver/internal/nats"

	natsG "github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Rejection classes of the score write path. Everything else in the engine
// fails soft; a score write that cannot be attributed safely must fail loud.
var (
	ErrInvalidCompetitorID   = errors.New("invalid competitor_id")
	ErrMissingClimbReference = errors.New("missing section_climb_id or climb_number")
	ErrCompetitorNotFound    = errors.New("competitor not found")
	ErrNotRegistered         = errors.New("competitor not registered for a competition")
	ErrCompetitionNotFound   = errors.New("competition not found")
	ErrCompetitionFinished   = errors.New("competition finished, scoring locked")
	ErrUnknownSectionClimb   = errors.New("unknown section_climb_id")
	ErrClimbNotInCompetition = errors.New("section_climb_id not in this competition")
	ErrUnknownClimbNumber    = errors.New("unknown climb number for this competition")
	ErrAmbiguousClimbNumber  = errors.New("ambiguous climb number in this competition, send section_climb_id instead")
)

// CacheInvalidator is the slice of the leaderboard cache the write path
// needs: blow everything away after a successful write.
type CacheInvalidator interface {
	InvalidateAll()
}

// SaveScoreRequest identifies the climb either by its configuration id
// (preferred, unambiguous) or by bare climb number (legacy).
type SaveScoreRequest struct {
	CompetitorID   uint
	SectionClimbID uint
	ClimbNumber    int
	Attempts       int
	Topped         bool
}

// SaveScoreResult echoes the normalized values actually stored plus the
// points this single score is worth.
type SaveScoreResult struct {
	CompetitorID   uint `json:"competitor_id"`
	SectionClimbID uint `json:"section_climb_id"`
	ClimbNumber    int  `json:"climb_number"`
	Attempts       int  `json:"attempts"`
	Topped         bool `json:"topped"`
	Flashed        bool `json:"flashed"`
	Points         int  `json:"points"`
}

// SaveScore validates and upserts one score row keyed by
// (competitor, section climb), invalidates the leaderboard cache and
// publishes the score event. The legacy by-number form is rejected when the
// number matches more than one section climb: a guessed section corrupts
// whose score gets credited, so the caller must disambiguate.
func SaveScore(db *gorm.DB, js natsG.JetStreamContext, cache CacheInvalidator, req SaveScoreRequest) (*SaveScoreResult, error) {
	if req.CompetitorID == 0 {
		return nil, ErrInvalidCompetitorID
	}
	if req.SectionClimbID == 0 && req.ClimbNumber <= 0 {
		return nil, ErrMissingClimbReference
	}

	var competitor models.Competitor
	if err := db.First(&competitor, req.CompetitorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompetitorNotFound
		}
		return nil, fmt.Errorf("failed to load competitor: %w", err)
	}
	if competitor.CompetitionID == nil {
		return nil, ErrNotRegistered
	}

	comp, err := competition.ByID(db, *competitor.CompetitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load competition: %w", err)
	}
	if comp == nil {
		return nil, ErrCompetitionNotFound
	}
	if comp.Finished(time.Now().UTC()) {
		return nil, ErrCompetitionFinished
	}

	sc, err := resolveWriteTarget(db, comp, req)
	if err != nil {
		return nil, err
	}

	attempts := ClampAttempts(req.Attempts)
	flashed := req.Topped && attempts == 1

	score := models.Score{
		CompetitorID:   req.CompetitorID,
		SectionClimbID: sc.ID,
		ClimbNumber:    sc.ClimbNumber,
		Attempts:       attempts,
		Topped:         req.Topped,
		Flashed:        flashed,
	}

	// The unique (competitor_id, section_climb_id) index is the backstop for
	// concurrent writes to the same key: last write wins.
	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "competitor_id"}, {Name: "section_climb_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"climb_number", "attempts", "topped", "flashed", "updated_at",
		}),
	}).Create(&score).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert score: %w", err)
	}

	if cache != nil {
		cache.InvalidateAll()
	}

	result := &SaveScoreResult{
		CompetitorID:   req.CompetitorID,
		SectionClimbID: sc.ID,
		ClimbNumber:    sc.ClimbNumber,
		Attempts:       attempts,
		Topped:         req.Topped,
		Flashed:        flashed,
		Points:         PointsForClimb(sc, attempts, req.Topped),
	}

	if js != nil {
		event := nats.ScoreSavedEvent{
			CompetitionID:  comp.ID,
			CompetitorID:   result.CompetitorID,
			SectionClimbID: result.SectionClimbID,
			ClimbNumber:    result.ClimbNumber,
			Attempts:       result.Attempts,
			Topped:         result.Topped,
			Flashed:        result.Flashed,
			Points:         result.Points,
		}
		if err := nats.PublishScoreSaved(js, event); err != nil {
			// The write already committed; the event stream is best effort.
			log.WithError(err).Warn("Failed to publish score event")
		}
	}

	return result, nil
}

func resolveWriteTarget(db *gorm.DB, comp *models.Competition, req SaveScoreRequest) (*models.SectionClimb, error) {
	if req.SectionClimbID != 0 {
		var sc models.SectionClimb
		if err := db.First(&sc, req.SectionClimbID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUnknownSectionClimb
			}
			return nil, fmt.Errorf("failed to load section climb: %w", err)
		}

		var section models.Section
		if err := db.First(&section, sc.SectionID).Error; err != nil {
			return nil, ErrClimbNotInCompetition
		}
		if section.CompetitionID == nil || *section.CompetitionID != comp.ID {
			return nil, ErrClimbNotInCompetition
		}
		return &sc, nil
	}

	res, err := ResolveClimbNumber(db, comp, req.ClimbNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve climb number: %w", err)
	}
	switch res.Outcome {
	case ResolveUnique:
		return res.Climb, nil
	case ResolveAmbiguous:
		return nil, ErrAmbiguousClimbNumber
	default:
		return nil, ErrUnknownClimbNumber
	}
}
