package temporal

import (
	"time"

	"go.temporal.io/sdk/workflow"
)

// CompetitionWorkflow waits out a competition's remaining runtime and then
// finalizes it: final standings are snapshotted for every category and the
// finalized event goes out on the stream. Started once per competition with
// an end time; a competition already past its end finalizes immediately.
func CompetitionWorkflow(ctx workflow.Context, competitionID uint, endAt time.Time) error {
	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute * 5,
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	if delay := endAt.Sub(workflow.Now(ctx)); delay > 0 {
		if err := workflow.Sleep(ctx, delay); err != nil {
			return err
		}
	}

	return workflow.ExecuteActivity(ctx, FinalizeCompetition, competitionID).Get(ctx, nil)
}
