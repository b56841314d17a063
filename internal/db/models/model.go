package models

import (
	"time"
)

// Gender categories used by Competitor and leaderboard filtering.
const (
	GenderMale      = "Male"
	GenderFemale    = "Female"
	GenderInclusive = "Inclusive"
)

// DoublesInvite status values.
const (
	InvitePending   = "pending"
	InviteAccepted  = "accepted"
	InviteDeclined  = "declined"
	InviteExpired   = "expired"
	InviteCancelled = "cancelled"
)

type Gym struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"size:160;not null;unique"`
	MapImage  string    `gorm:"size:200"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

type Account struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Email     string    `gorm:"size:255;not null;unique"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

type Competition struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:160;not null"`
	Slug      string `gorm:"size:160;not null;unique"`
	GymName   string `gorm:"size:160"`
	GymID     *uint  `gorm:"index"`
	Gym       *Gym   `gorm:"foreignKey:GymID"`
	StartAt   *time.Time
	EndAt     *time.Time
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Finished reports whether the competition's end time has passed.
func (c *Competition) Finished(now time.Time) bool {
	return c.EndAt != nil && c.EndAt.Before(now)
}

type Section struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"size:120;not null;uniqueIndex:uq_section_comp_name"`
	Slug          string `gorm:"size:120;not null"`
	StartClimb    int    `gorm:"not null;default:0"`
	EndClimb      int    `gorm:"not null;default:0"`
	GymID         *uint  `gorm:"index"`
	CompetitionID *uint  `gorm:"index;uniqueIndex:uq_section_comp_name"`
	Competition   *Competition
	// Polygon boundary as JSON: [{"x":12.34,"y":56.78},...] in % of map size.
	BoundaryPointsJSON string    `gorm:"type:text"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

// SectionClimb is the scoring configuration for one climb number within one
// section of one competition. Climb numbers are unique per section only; the
// same number may repeat across sections of the same competition.
type SectionClimb struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	SectionID   uint    `gorm:"not null;index;uniqueIndex:uq_section_climb"`
	Section     Section `gorm:"foreignKey:SectionID"`
	GymID       *uint   `gorm:"index"`
	ClimbNumber int     `gorm:"not null;index;uniqueIndex:uq_section_climb"`
	Colour      string  `gorm:"size:80"`

	// Per-climb scoring config, admin editable. Nil means unconfigured.
	BasePoints        *int
	PenaltyPerAttempt *int
	AttemptCap        *int

	// Map placement in % of image width/height.
	XPercent *float64
	YPercent *float64

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

type Competitor struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"size:120;not null"`
	Gender        string `gorm:"size:20;not null;default:Inclusive"`
	Email         string `gorm:"size:255"`
	CompetitionID *uint  `gorm:"index;uniqueIndex:uq_competition_account"`
	Competition   *Competition
	AccountID     uint      `gorm:"not null;index;uniqueIndex:uq_competition_account"`
	Account       Account   `gorm:"foreignKey:AccountID"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// Score is one attempt record per (competitor, section climb). The climb
// number is denormalized for the legacy by-number API and stats ordering.
type Score struct {
	ID             uint         `gorm:"primaryKey;autoIncrement"`
	CompetitorID   uint         `gorm:"not null;index;uniqueIndex:uq_competitor_section_climb"`
	Competitor     Competitor   `gorm:"foreignKey:CompetitorID"`
	SectionClimbID uint         `gorm:"not null;index;uniqueIndex:uq_competitor_section_climb"`
	SectionClimb   SectionClimb `gorm:"foreignKey:SectionClimbID"`
	ClimbNumber    int          `gorm:"not null;index"`
	Attempts       int          `gorm:"not null;default:0"`
	Topped         bool         `gorm:"not null;default:false"`
	Flashed        bool         `gorm:"not null;default:false"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime"`
}

type DoublesTeam struct {
	ID            uint        `gorm:"primaryKey;autoIncrement"`
	CompetitionID uint        `gorm:"not null;index"`
	Competition   Competition `gorm:"foreignKey:CompetitionID"`
	CompetitorAID uint        `gorm:"not null"`
	CompetitorBID uint        `gorm:"not null"`
	CreatedAt     time.Time   `gorm:"autoCreateTime"`
}

type DoublesInvite struct {
	ID                  uint      `gorm:"primaryKey;autoIncrement"`
	CompetitionID       uint      `gorm:"not null;index"`
	InviterCompetitorID uint      `gorm:"not null;index"`
	InviteeEmail        string    `gorm:"type:text;not null"`
	TokenHash           string    `gorm:"type:text;not null"`
	Status              string    `gorm:"type:text;not null"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	ExpiresAt           time.Time `gorm:"not null"`
	AcceptedAt          *time.Time
}

// FinalRanking is a persisted standings snapshot written when a competition
// is finalized. Singles rows carry a competitor, doubles rows a team.
type FinalRanking struct {
	ID            uint        `gorm:"primaryKey;autoIncrement"`
	CompetitionID uint        `gorm:"not null;index"`
	Competition   Competition `gorm:"foreignKey:CompetitionID"`
	Category      string      `gorm:"size:20;not null"`
	Position      int         `gorm:"not null"`
	Name          string      `gorm:"size:255;not null"`
	CompetitorID  *uint
	TeamID        *uint
	TotalPoints   int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}
