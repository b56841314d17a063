package nats

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeJetStream records published messages. Embedding the interface keeps the
// fake small; only Publish is ever called.
type fakeJetStream struct {
	nats.JetStreamContext
	published map[string][]byte
	err       error
}

func (f *fakeJetStream) Publish(subject string, data []byte, _ ...nats.PubOpt) (*nats.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.published == nil {
		f.published = map[string][]byte{}
	}
	f.published[subject] = data
	return &nats.PubAck{Stream: "SCORES"}, nil
}

func TestPublishScoreSaved(t *testing.T) {
	js := &fakeJetStream{}

	event := ScoreSavedEvent{
		CompetitionID:  3,
		CompetitorID:   7,
		SectionClimbID: 21,
		ClimbNumber:    12,
		Attempts:       1,
		Topped:         true,
		Flashed:        true,
		Points:         1000,
	}
	require.NoError(t, PublishScoreSaved(js, event))

	data, ok := js.published["scores.saved.3"]
	require.True(t, ok, "subject carries the competition id")

	var decoded ScoreSavedEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event, decoded)
}

func TestPublishCompetitionFinalized(t *testing.T) {
	js := &fakeJetStream{}

	event := CompetitionFinalizedEvent{
		CompetitionID: 9,
		FinalizedAt:   time.Now().UTC().Truncate(time.Second),
		Categories:    []string{"all", "doubles"},
	}
	require.NoError(t, PublishCompetitionFinalized(js, event))

	data, ok := js.published["scores.finalized.9"]
	require.True(t, ok)

	var decoded CompetitionFinalizedEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event.CompetitionID, decoded.CompetitionID)
	assert.Equal(t, event.Categories, decoded.Categories)
}

func TestPublishError(t *testing.T) {
	js := &fakeJetStream{err: errors.New("stream gone")}

	err := PublishScoreSaved(js, ScoreSavedEvent{CompetitionID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scores.saved.1")
}
