package doubles

import (
	"errors"
	"fmt"
	"time"

	"scoreserver/internal/db/models"

	"gorm.io/gorm"
)

var (
	ErrSameCompetitor  = errors.New("a doubles team needs two different competitors")
	ErrAlreadyPaired   = errors.New("competitor already belongs to a doubles team in this competition")
	ErrNotInThisComp   = errors.New("competitor does not belong to this competition")
	ErrInviteNotActive = errors.New("invite is not pending")
)

// TeamFor returns the team a competitor belongs to within a competition, or
// nil when they are unpaired.
func TeamFor(db *gorm.DB, competitionID, competitorID uint) (*models.DoublesTeam, error) {
	var team models.DoublesTeam
	err := db.
		Where("competition_id = ?", competitionID).
		Where("competitor_a_id = ? OR competitor_b_id = ?", competitorID, competitorID).
		First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// CreateTeam pairs two competitors for a competition. A competitor belongs
// to at most one team per competition; there is no team edit, cancel and
// re-invite replaces a pairing.
func CreateTeam(db *gorm.DB, competitionID, aID, bID uint) (*models.DoublesTeam, error) {
	if aID == bID {
		return nil, ErrSameCompetitor
	}

	for _, id := range []uint{aID, bID} {
		var c models.Competitor
		if err := db.First(&c, id).Error; err != nil {
			return nil, fmt.Errorf("failed to load competitor %d: %w", id, err)
		}
		if c.CompetitionID == nil || *c.CompetitionID != competitionID {
			return nil, ErrNotInThisComp
		}

		existing, err := TeamFor(db, competitionID, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrAlreadyPaired
		}
	}

	team := models.DoublesTeam{
		CompetitionID: competitionID,
		CompetitorAID: aID,
		CompetitorBID: bID,
	}
	if err := db.Create(&team).Error; err != nil {
		return nil, fmt.Errorf("failed to create doubles team: %w", err)
	}
	return &team, nil
}

// AcceptInvite turns a pending invite into a team. The invite flow, not a
// database constraint, is what enforces the one-team-per-competitor rule.
func AcceptInvite(db *gorm.DB, invite *models.DoublesInvite, inviteeCompetitorID uint) (*models.DoublesTeam, error) {
	if invite.Status != models.InvitePending {
		return nil, ErrInviteNotActive
	}

	team, err := CreateTeam(db, invite.CompetitionID, invite.InviterCompetitorID, inviteeCompetitorID)
	if err != nil {
		return nil, err
	}

	invite.Status = models.InviteAccepted
	now := time.Now().UTC()
	invite.AcceptedAt = &now
	if err := db.Save(invite).Error; err != nil {
		return nil, fmt.Errorf("failed to update invite: %w", err)
	}
	return team, nil
}
