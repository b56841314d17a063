package scoring

import (
	"testing"
	"time"

	"scoreserver/internal/db/dbtest"
	"scoreserver/internal/db/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	invalidations int
}

func (f *fakeCache) InvalidateAll() { f.invalidations++ }

func TestSaveScoreBySectionClimbID(t *testing.T) {
	db := dbtest.Open(t)
	comp := dbtest.Competition(t, db, "Boulder Blitz", "boulder-blitz")
	section := dbtest.Section(t, db, comp, "north-wall")
	sc := dbtest.Climb(t, db, section, 7, 1000, 100, 5)
	alex := dbtest.Competitor(t, db, comp, "Alex", models.GenderFemale)
	cache := &fakeCache{}

	result, err := SaveScore(db, nil, cache, SaveScoreRequest{
		CompetitorID:   alex.ID,
		SectionClimbID: sc.ID,
		Attempts:       3,
		Topped:         true,
	})
	require.NoError(t, err)
	assert.Equal(t, 800, result.Points)
	assert.Equal(t, 3, result.Attempts)
	assert.False(t, result.Flashed)
	assert.Equal(t, 7, result.ClimbNumber)
	assert.Equal(t, 1, cache.invalidations, "every accepted write blows the cache")

	var count int64
	db.Model(&models.Score{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestSaveScoreByClimbNumber(t *testing.T) {
	db := dbtest.Open(t)
	comp := dbtest.Competition(t, db, "Boulder Blitz", "boulder-blitz")
	section := dbtest.Section(t, db, comp, "north-wall")
	dbtest.Climb(t, db, section, 7, 1000, 100, 5)
	alex := dbtest.Competitor(t, db, comp, "Alex", models.GenderFemale)

	result, err := SaveScore(db, nil, &fakeCache{}, SaveScoreRequest{
		CompetitorID: alex.ID,
		ClimbNumber:  7,
		Attempts:     1,
		Topped:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1000, result.Points)
	assert.True(t, result.Flashed, "topped on the first attempt")
}

func TestSaveScoreUpsertIdempotence(t *testing.T) {
	db := dbtest.Open(t)
	comp := dbtest.Competition(t, db, "Boulder Blitz", "boulder-blitz")
	section := dbtest.Section(t, db, comp, "north-wall")
	sc := dbtest.Climb(t, db, section, 7, 1000, 100, 5)
	alex := dbtest.Competitor(t, db, comp, "Alex", models.GenderFemale)

	req := SaveScoreRequest{CompetitorID: alex.ID, SectionClimbID: sc.ID, Attempts: 1, Topped: true}
	_, err := SaveScore(db, nil, &fakeCache{}, req)
	require.NoError(t, err)

	req.Attempts = 4
	result, err := SaveScore(db, nil, &fakeCache{}, req)
	require.NoError(t, err)
	assert.Equal(t, 700, result.Points)
	assert.False(t, result.Flashed)

	var scores []models.Score
	require.NoError(t, db.Find(&scores).Error)
	require.Len(t, scores, 1, "one row per (competitor, section climb)")
	assert.Equal(t, 4, scores[0].Attempts, "second write wins")
	assert.False(t, scores[0].Flashed)
}

func TestSaveScoreAmbiguousClimbNumberRejected(t *testing.T) {
	db := dbtest.Open(t)
	comp := dbtest.Competition(t, db, "Boulder Blitz", "boulder-blitz")
	north := dbtest.Section(t, db, comp, "north-wall")
	south := dbtest.Section(t, db, comp, "south-wall")
	dbtest.Climb(t, db, north, 7, 1000, 100, 5)
	dbtest.Climb(t, db, south, 7, 300, 0, 5)
	alex := dbtest.Competitor(t, db, comp, "Alex", models.GenderFemale)
	cache := &fakeCache{}

	_, err := SaveScore(db, nil, cache, SaveScoreRequest{
		CompetitorID: alex.ID,
		ClimbNumber:  7,
		Attempts:     1,
		Topped:       true,
	})
	assert.ErrorIs(t, err, ErrAmbiguousClimbNumber)
	assert.Zero(t, cache.invalidations)

	var count int64
	db.Model(&models.Score{}).Count(&count)
	assert.EqualValues(t, 0, count, "rejected writes leave the ledger untouched")
}

func TestSaveScoreUnknownClimbNumber(t *testing.T) {
	db := dbtest.Open(t)
	comp := dbtest.Competition(t, db, "Boulder Blitz", "boulder-blitz")
	alex := dbtest.Competitor(t, db, comp, "Alex", models.GenderFemale)

	_, err := SaveScore(db, nil, &fakeCache{}, SaveScoreRequest{
		CompetitorID: alex.ID,
		ClimbNumber:  99,
		Attempts:     1,
		Topped:       true,
	})
	assert.ErrorIs(t, err, ErrUnknownClimbNumber)
}

func TestSaveScoreCrossCompetitionClimbRejected(t *testing.T) {
	db := dbtest.Open(t)
	comp := dbtest.Competition(t, db, "Boulder Blitz", "boulder-blitz")
	other := dbtest.Competition(t, db, "Other Comp", "other-comp")
	section := dbtest.Section(t, db, other, "north-wall")
	foreign := dbtest.Climb(t, db, section, 7, 1000, 100, 5)
	alex := dbtest.Competitor(t, db, comp, "Alex", models.GenderFemale)

	_, err := SaveScore(db, nil, &fakeCache{}, SaveScoreRequest{
		CompetitorID:   alex.ID,
		SectionClimbID: foreign.ID,
		Attempts:       1,
		Topped:         true,
	})
	assert.ErrorIs(t, err, ErrClimbNotInCompetition)
}

func TestSaveScoreFinishedCompetitionLocked(t *testing.T) {
	db := dbtest.Open(t)
	comp := dbtest.Competition(t, db, "Boulder Blitz", "boulder-blitz")
	comp.EndAt = dbtest.Time(time.Now().UTC().Add(-time.Hour))
	require.NoError(t, db.Save(comp).Error)

	section := dbtest.Section(t, db, comp, "north-wall")
	sc := dbtest.Climb(t, db, section, 7, 1000, 100, 5)
	alex := dbtest.Competitor(t, db, comp, "Alex", models.GenderFemale)

	_, err := SaveScore(db, nil, &fakeCache{}, SaveScoreRequest{
		CompetitorID:   alex.ID,
		SectionClimbID: sc.ID,
		Attempts:       1,
		Topped:         true,
	})
	assert.ErrorIs(t, err, ErrCompetitionFinished)
}

func TestSaveScoreValidation(t *testing.T) {
	db := dbtest.Open(t)
	comp := dbtest.Competition(t, db, "Boulder Blitz", "boulder-blitz")
	shell := dbtest.Competitor(t, db, nil, "Shell", models.GenderInclusive)
	alex := dbtest.Competitor(t, db, comp, "Alex", models.GenderFemale)

	_, err := SaveScore(db, nil, &fakeCache{}, SaveScoreRequest{ClimbNumber: 7, Attempts: 1})
	assert.ErrorIs(t, err, ErrInvalidCompetitorID)

	_, err = SaveScore(db, nil, &fakeCache{}, SaveScoreRequest{CompetitorID: alex.ID, Attempts: 1})
	assert.ErrorIs(t, err, ErrMissingClimbReference)

	_, err = SaveScore(db, nil, &fakeCache{}, SaveScoreRequest{CompetitorID: 9999, ClimbNumber: 7, Attempts: 1})
	assert.ErrorIs(t, err, ErrCompetitorNotFound)

	_, err = SaveScore(db, nil, &fakeCache{}, SaveScoreRequest{CompetitorID: shell.ID, ClimbNumber: 7, Attempts: 1})
	assert.ErrorIs(t, err, ErrNotRegistered)

	_, err = SaveScore(db, nil, &fakeCache{}, SaveScoreRequest{CompetitorID: alex.ID, SectionClimbID: 555, Attempts: 1})
	assert.ErrorIs(t, err, ErrUnknownSectionClimb)
}

func TestSaveScoreClampsAttempts(t *testing.T) {
	db := dbtest.Open(t)
	comp := dbtest.Competition(t, db, "Boulder Blitz", "boulder-blitz")
	section := dbtest.Section(t, db, comp, "north-wall")
	sc := dbtest.Climb(t, db, section, 7, 1000, 10, 50)
	alex := dbtest.Competitor(t, db, comp, "Alex", models.GenderFemale)

	result, err := SaveScore(db, nil, &fakeCache{}, SaveScoreRequest{
		CompetitorID:   alex.ID,
		SectionClimbID: sc.ID,
		Attempts:       200,
		Topped:         true,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, result.Attempts)

	result, err = SaveScore(db, nil, &fakeCache{}, SaveScoreRequest{
		CompetitorID:   alex.ID,
		SectionClimbID: sc.ID,
		Attempts:       0,
		Topped:         true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.True(t, result.Flashed, "clamped-to-one attempts count as a flash")
}
