package main

import (
	"context"
	"fmt"
	"time"

	"scoreserver/config"
	"scoreserver/internal/db"
	"scoreserver/internal/db/models"
	"scoreserver/internal/leaderboard"
	"scoreserver/internal/nats"
	"scoreserver/internal/server"
	temporal "scoreserver/internal/workflow"

	log "github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	natsConn, js, err := nats.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsConn.Close()

	if err := nats.ConfigureStream(js, &cfg.NATS.Stream); err != nil {
		log.Fatalf("Failed to configure JetStream: %v", err)
	}

	cache := leaderboard.NewCache(cfg.CacheMaxEntries(), time.Duration(cfg.CacheTTLSeconds())*time.Second)
	builder := leaderboard.NewBuilder(database, cache)

	temporal.StartWorker(cfg)

	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	if err := scheduleFinalizations(c, database); err != nil {
		log.Fatalf("Failed to schedule competition finalizations: %v", err)
	}

	srv := server.New(cfg, database, js, builder, cache)
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// scheduleFinalizations starts (or re-attaches to) one finalization workflow
// per active competition that has an end time. Workflow ids are stable per
// competition, so a restart does not double-schedule.
func scheduleFinalizations(c client.Client, database *gorm.DB) error {
	var comps []models.Competition
	err := database.
		Where("is_active = ?", true).
		Where("end_at IS NOT NULL").
		Find(&comps).Error
	if err != nil {
		return err
	}

	for _, comp := range comps {
		workflowID := fmt.Sprintf("competition-finalize-%d", comp.ID)
		_, err := c.ExecuteWorkflow(context.Background(), client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: temporal.TaskQueue,
		}, temporal.CompetitionWorkflow, comp.ID, comp.EndAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to start workflow for competition %d: %w", comp.ID, err)
		}
		log.Printf("Scheduled finalization for competition %d at %s", comp.ID, comp.EndAt)
	}

	return nil
}
