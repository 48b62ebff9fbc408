// Package cli wires configuration, storage and services into the
// missions command.
package cli

import (
	"context"
	"fmt"
	"log"

	"mission-progression-system/config"
	"mission-progression-system/engine"
	"mission-progression-system/models"
	"mission-progression-system/services"
	"mission-progression-system/utils"
	"mission-progression-system/workers"

	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// app holds the services every command shares.
type app struct {
	cfg         *config.Config
	db          *gorm.DB
	clock       clockwork.Clock
	catalog     *services.CatalogService
	profiles    *services.ProfileService
	progression *services.ProgressionService
	missions    *services.MissionService
	ingest      *services.IngestService
	reconcile   *services.ReconcileService
	stream      *services.LedgerStreamService
	syncWorker  *workers.ProfileSyncWorker
}

// newApp loads configuration, connects to postgres, migrates the schema and
// loads the mission catalog.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	var uploader services.ReportUploader
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Uploader(ctx, utils.R2Options{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			AccessKeySecret: cfg.R2.AccessKeySecret,
			Bucket:          cfg.R2.Bucket,
			CDNBaseURL:      cfg.R2.CDNBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize R2 client: %w", err)
		}
		uploader = r2
	} else {
		log.Println("⚠️  R2 not configured, reconciliation reports stay local")
	}

	clock := clockwork.NewRealClock()
	catalog := services.NewCatalogService(db)
	if err := catalog.Load(ctx); err != nil {
		return nil, err
	}
	profiles := services.NewProfileService(db)
	progression := services.NewProgressionService(db)

	// Without a sync feed the mirror never fills, so profile checks are off.
	var directory services.ProfileDirectory
	var syncWorker *workers.ProfileSyncWorker
	if cfg.SyncServiceURL != "" {
		syncWorker = workers.NewProfileSyncWorker(profiles, cfg.SyncServiceURL, cfg.SyncProfilesPath, cfg.ServiceToken, cfg.ProfileSyncInterval)
		directory = syncWorker
	} else {
		log.Println("⚠️  SYNC_SERVICE_URL not set, profile existence checks disabled")
	}

	ingest := services.NewIngestService(db, catalog, progression, directory, engine.DefaultRegistry(), clock)
	ingest.MaxClockSkew = cfg.MaxClockSkew

	return &app{
		cfg:         cfg,
		db:          db,
		clock:       clock,
		catalog:     catalog,
		profiles:    profiles,
		progression: progression,
		missions:    services.NewMissionService(db, catalog, progression, directory, clock),
		ingest:      ingest,
		reconcile:   services.NewReconcileService(db, clock, uploader),
		stream:      services.NewLedgerStreamService(db),
		syncWorker:  syncWorker,
	}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
