package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// ScoreSavedEvent is published after every accepted score write so live
// views (and anything else on the stream) can react without polling.
type ScoreSavedEvent struct {
	CompetitionID  uint `json:"competition_id"`
	CompetitorID   uint `json:"competitor_id"`
	SectionClimbID uint `json:"section_climb_id"`
	ClimbNumber    int  `json:"climb_number"`
	Attempts       int  `json:"attempts"`
	Topped         bool `json:"topped"`
	Flashed        bool `json:"flashed"`
	Points         int  `json:"points"`
}

// CompetitionFinalizedEvent is published once a competition's final
// standings have been persisted.
type CompetitionFinalizedEvent struct {
	CompetitionID uint      `json:"competition_id"`
	FinalizedAt   time.Time `json:"finalized_at"`
	Categories    []string  `json:"categories"`
}

func PublishScoreSaved(js nats.JetStreamContext, event ScoreSavedEvent) error {
	subject := fmt.Sprintf("scores.saved.%d", event.CompetitionID)
	return publishJSON(js, subject, event)
}

func PublishCompetitionFinalized(js nats.JetStreamContext, event CompetitionFinalizedEvent) error {
	subject := fmt.Sprintf("scores.finalized.%d", event.CompetitionID)
	return publishJSON(js, subject, event)
}

func publishJSON(js nats.JetStreamContext, subject string, v any) error {
	messageBytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event for subject %s: %w", subject, err)
	}

	if _, err := js.Publish(subject, messageBytes); err != nil {
		return fmt.Errorf("failed to publish message to JetStream on %s: %w", subject, err)
	}

	return nil
}
