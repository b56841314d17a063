package leaderboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"scoreserver/internal/competition"
	"scoreserver/internal/db/models"
	"scoreserver/internal/scoring"

	"gorm.io/gorm"
)

// Normalized category keys. Every input string maps to exactly one of these.
const (
	CategoryAll       = "all"
	CategoryMale      = "male"
	CategoryFemale    = "female"
	CategoryInclusive = "inclusive"
	CategoryDoubles   = "doubles"
)

// Categories lists every normalized category key.
var Categories = []string{CategoryAll, CategoryMale, CategoryFemale, CategoryInclusive, CategoryDoubles}

// NormalizeCategory folds an arbitrary category string into a normalized
// key. Blank and the "everyone" aliases mean all; otherwise the first letter
// decides: m male, f female, d doubles, anything else inclusive. The result
// is part of the cache key, so this must stay deterministic and total.
func NormalizeCategory(raw string) string {
	k := strings.ToLower(strings.TrimSpace(raw))
	switch k {
	case "", "all", "overall", "singles", "none":
		return CategoryAll
	}
	switch {
	case strings.HasPrefix(k, "m"):
		return CategoryMale
	case strings.HasPrefix(k, "f"):
		return CategoryFemale
	case strings.HasPrefix(k, "d"):
		return CategoryDoubles
	default:
		return CategoryInclusive
	}
}

// CategoryLabel returns the human-readable label for a normalized category.
func CategoryLabel(category string) string {
	switch category {
	case CategoryMale:
		return "Male"
	case CategoryFemale:
		return "Female"
	case CategoryInclusive:
		return "Gender Inclusive"
	case CategoryDoubles:
		return "Doubles"
	default:
		return "All"
	}
}

// Row is one singles leaderboard entry. Derived, never persisted.
type Row struct {
	CompetitorID   uint       `json:"competitor_id"`
	Name           string     `json:"name"`
	Gender         string     `json:"gender"`
	Tops           int        `json:"tops"`
	AttemptsOnTops int        `json:"attempts_on_tops"`
	TotalPoints    int        `json:"total_points"`
	LastUpdate     *time.Time `json:"last_update,omitempty"`
	Position       int        `json:"position"`
}

// DoublesRow is one doubles leaderboard entry: a team ranked by the sum of
// its partners' singles totals.
type DoublesRow struct {
	TeamID      uint   `json:"team_id"`
	AID         uint   `json:"a_id"`
	BID         uint   `json:"b_id"`
	AName       string `json:"a_name"`
	BName       string `json:"b_name"`
	Name        string `json:"name"`
	TotalPoints int    `json:"total_points"`
	Position    int    `json:"position"`
}

// Board is a built leaderboard: singles categories fill Rows, the doubles
// category fills Doubles.
type Board struct {
	Category string       `json:"category"`
	Label    string       `json:"label"`
	Rows     []Row        `json:"rows"`
	Doubles  []DoublesRow `json:"doubles,omitempty"`
}

// Scope selects which competition a board is built for. Explicit ID wins,
// then slug; with neither set the current active competition is used.
type Scope struct {
	CompetitionID uint
	Slug          string
}

// Builder computes leaderboards from the score ledger, memoized through the
// cache. It never errors on missing data; empty competitions produce empty
// boards, because a leaderboard page must always render something.
type Builder struct {
	db    *gorm.DB
	cache *Cache
}

func NewBuilder(db *gorm.DB, cache *Cache) *Builder {
	return &Builder{db: db, cache: cache}
}

// Build returns the ranked board for a category string and competition
// scope, serving from cache when a fresh entry exists.
func (b *Builder) Build(category string, scope Scope) (*Board, error) {
	cat := NormalizeCategory(category)

	comp, err := competition.Resolve(b.db, scope.CompetitionID, scope.Slug)
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return &Board{Category: cat, Label: "No active competition", Rows: []Row{}}, nil
	}

	if board, ok := b.cache.Get(comp.ID, cat); ok {
		return board, nil
	}

	var board *Board
	if cat == CategoryDoubles {
		board, err = b.buildDoubles(comp)
	} else {
		board, err = b.buildSingles(comp, cat)
	}
	if err != nil {
		return nil, err
	}

	b.cache.Set(comp.ID, cat, board)
	return board, nil
}

func (b *Builder) buildSingles(comp *models.Competition, cat string) (*Board, error) {
	board := &Board{Category: cat, Label: CategoryLabel(cat), Rows: []Row{}}

	q := b.db.Where("competition_id = ?", comp.ID)
	switch cat {
	case CategoryMale:
		q = q.Where("gender = ?", models.GenderMale)
	case CategoryFemale:
		q = q.Where("gender = ?", models.GenderFemale)
	case CategoryInclusive:
		q = q.Where("gender = ?", models.GenderInclusive)
	}

	var competitors []models.Competitor
	if err := q.Find(&competitors).Error; err != nil {
		return nil, err
	}
	if len(competitors) == 0 {
		return board, nil
	}

	ids := make([]uint, len(competitors))
	for i, c := range competitors {
		ids[i] = c.ID
	}

	var scores []models.Score
	if err := b.db.Where("competitor_id IN ?", ids).Find(&scores).Error; err != nil {
		return nil, err
	}

	configs, err := scoring.ClimbConfigs(b.db, comp)
	if err != nil {
		return nil, err
	}

	byCompetitor := make(map[uint][]models.Score, len(competitors))
	for _, s := range scores {
		byCompetitor[s.CompetitorID] = append(byCompetitor[s.CompetitorID], s)
	}

	rows := make([]Row, 0, len(competitors))
	for _, c := range competitors {
		var tops, attemptsOnTops, total int
		var lastUpdate *time.Time

		for _, s := range byCompetitor[c.ID] {
			total += scoring.PointsForClimb(configs[s.SectionClimbID], s.Attempts, s.Topped)
			if s.Topped {
				tops++
				attemptsOnTops += s.Attempts
			}
			updated := s.UpdatedAt
			if lastUpdate == nil || updated.After(*lastUpdate) {
				lastUpdate = &updated
			}
		}

		rows = append(rows, Row{
			CompetitorID:   c.ID,
			Name:           c.Name,
			Gender:         c.Gender,
			Tops:           tops,
			AttemptsOnTops: attemptsOnTops,
			TotalPoints:    total,
			LastUpdate:     lastUpdate,
		})
	}

	// Higher points first; among equal points more tops, then fewer attempts
	// on tops. Name and id keep the order deterministic without affecting
	// rank equality.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalPoints != rows[j].TotalPoints {
			return rows[i].TotalPoints > rows[j].TotalPoints
		}
		if rows[i].Tops != rows[j].Tops {
			return rows[i].Tops > rows[j].Tops
		}
		if rows[i].AttemptsOnTops != rows[j].AttemptsOnTops {
			return rows[i].AttemptsOnTops < rows[j].AttemptsOnTops
		}
		ni, nj := strings.ToLower(rows[i].Name), strings.ToLower(rows[j].Name)
		if ni != nj {
			return ni < nj
		}
		return rows[i].CompetitorID < rows[j].CompetitorID
	})

	assignSinglesPositions(rows)
	board.Rows = rows
	return board, nil
}

// assignSinglesPositions walks the pre-sorted rows once and gives each run
// of equal (points, tops, attempts) keys the same dense rank: after a
// three-way tie at 1 the next distinct key ranks 2, not 4.
func assignSinglesPositions(rows []Row) {
	pos := 0
	var prev [3]int
	for i := range rows {
		key := [3]int{rows[i].TotalPoints, rows[i].Tops, rows[i].AttemptsOnTops}
		if i == 0 || key != prev {
			pos++
			prev = key
		}
		rows[i].Position = pos
	}
}

func (b *Builder) buildDoubles(comp *models.Competition) (*Board, error) {
	board := &Board{Category: CategoryDoubles, Label: CategoryLabel(CategoryDoubles), Rows: []Row{}}

	// Doubles derives from the unfiltered singles board. Request "all"
	// explicitly so the composition can never loop back into doubles.
	singles, err := b.Build(CategoryAll, Scope{CompetitionID: comp.ID})
	if err != nil {
		return nil, err
	}

	var teams []models.DoublesTeam
	if err := b.db.Where("competition_id = ?", comp.ID).Find(&teams).Error; err != nil {
		return nil, err
	}

	board.Doubles = doublesRowsFromSingles(singles.Rows, teams, false)
	return board, nil
}

// BuildDoublesRows builds doubles rows against an already-filtered singles
// row set, including a team only when both partners appear in it. This is
// how a gender-filtered page shows only teams entirely within the filter;
// the "doubles" category (built from unfiltered singles) includes every
// team instead. Ranking rules are shared between the two paths.
func (b *Builder) BuildDoublesRows(singlesRows []Row, competitionID uint) ([]DoublesRow, error) {
	var teams []models.DoublesTeam
	if err := b.db.Where("competition_id = ?", competitionID).Find(&teams).Error; err != nil {
		return nil, err
	}
	return doublesRowsFromSingles(singlesRows, teams, true), nil
}

func doublesRowsFromSingles(singles []Row, teams []models.DoublesTeam, requireBothPartners bool) []DoublesRow {
	points := make(map[uint]int, len(singles))
	names := make(map[uint]string, len(singles))
	for _, r := range singles {
		points[r.CompetitorID] = r.TotalPoints
		names[r.CompetitorID] = r.Name
	}

	rows := make([]DoublesRow, 0, len(teams))
	for _, t := range teams {
		_, aOK := points[t.CompetitorAID]
		_, bOK := points[t.CompetitorBID]
		if requireBothPartners && !(aOK && bOK) {
			continue
		}

		aName := names[t.CompetitorAID]
		if aName == "" {
			aName = fmt.Sprintf("#%d", t.CompetitorAID)
		}
		bName := names[t.CompetitorBID]
		if bName == "" {
			bName = fmt.Sprintf("#%d", t.CompetitorBID)
		}

		rows = append(rows, DoublesRow{
			TeamID:      t.ID,
			AID:         t.CompetitorAID,
			BID:         t.CompetitorBID,
			AName:       aName,
			BName:       bName,
			Name:        aName + " and " + bName,
			TotalPoints: points[t.CompetitorAID] + points[t.CompetitorBID],
		})
	}

	// Name is a sort tie-break only; teams with equal points share a rank
	// whatever their names.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalPoints != rows[j].TotalPoints {
			return rows[i].TotalPoints > rows[j].TotalPoints
		}
		ni, nj := strings.ToLower(rows[i].Name), strings.ToLower(rows[j].Name)
		if ni != nj {
			return ni < nj
		}
		return rows[i].TeamID < rows[j].TeamID
	})

	pos := 0
	prev := -1
	for i := range rows {
		if i == 0 || rows[i].TotalPoints != prev {
			pos++
			prev = rows[i].TotalPoints
		}
		rows[i].Position = pos
	}

	return rows
}
