package temporal

import (
	"context"
	"fmt"
	"time"

	"scoreserver/internal/competition"
	"scoreserver/internal/db/models"
	"scoreserver/internal/leaderboard"
	"scoreserver/internal/nats"

	log "github.com/sirupsen/logrus"
)

// FinalizeCompetition archives a competition and persists its final
// standings: one FinalRanking row per leaderboard position per category.
// Rebuilding deletes any previous snapshot first, so the activity is safe to
// retry.
func FinalizeCompetition(ctx context.Context, competitionID uint) error {
	db := GetDB()

	comp, err := competition.ByID(db, competitionID)
	if err != nil {
		return fmt.Errorf("failed to load competition %d: %w", competitionID, err)
	}
	if comp == nil {
		log.Warnf("Competition %d vanished before finalization", competitionID)
		return nil
	}

	// Finalization reads the ledger directly; the live request cache has no
	// business serving a permanent snapshot.
	builder := leaderboard.NewBuilder(db, nil)

	if err := db.Where("competition_id = ?", comp.ID).Delete(&models.FinalRanking{}).Error; err != nil {
		return fmt.Errorf("failed to clear previous snapshot: %w", err)
	}

	var rankings []models.FinalRanking
	for _, category := range leaderboard.Categories {
		board, err := builder.Build(category, leaderboard.Scope{CompetitionID: comp.ID})
		if err != nil {
			return fmt.Errorf("failed to build %s board: %w", category, err)
		}

		if category == leaderboard.CategoryDoubles {
			for _, row := range board.Doubles {
				teamID := row.TeamID
				rankings = append(rankings, models.FinalRanking{
					CompetitionID: comp.ID,
					Category:      category,
					Position:      row.Position,
					Name:          row.Name,
					TeamID:        &teamID,
					TotalPoints:   row.TotalPoints,
				})
			}
			continue
		}

		for _, row := range board.Rows {
			competitorID := row.CompetitorID
			rankings = append(rankings, models.FinalRanking{
				CompetitionID: comp.ID,
				Category:      category,
				Position:      row.Position,
				Name:          row.Name,
				CompetitorID:  &competitorID,
				TotalPoints:   row.TotalPoints,
			})
		}
	}

	if len(rankings) > 0 {
		if err := db.Create(&rankings).Error; err != nil {
			return fmt.Errorf("failed to persist final rankings: %w", err)
		}
	}

	if err := db.Model(comp).Update("is_active", false).Error; err != nil {
		return fmt.Errorf("failed to archive competition: %w", err)
	}

	if js := GetJetStream(); js != nil {
		event := nats.CompetitionFinalizedEvent{
			CompetitionID: comp.ID,
			FinalizedAt:   time.Now().UTC(),
			Categories:    leaderboard.Categories,
		}
		if err := nats.PublishCompetitionFinalized(js, event); err != nil {
			log.WithError(err).Warn("Failed to publish finalized event")
		}
	}

	log.Printf("Finalized competition %d with %d ranking rows", comp.ID, len(rankings))
	return nil
}
