package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// Drift is a profile whose ledger sum disagrees with its progression XP.
type Drift struct {
	ProfileID     string `json:"profile_id"`
	LedgerXP      int64  `json:"ledger_xp"`
	ProgressionXP int64  `json:"progression_xp"`
	Delta         int64  `json:"delta"`
}

// ReconcileReport is the outcome of one ledger check.
type ReconcileReport struct {
	GeneratedAt     time.Time `json:"generated_at"`
	ProfilesChecked int       `json:"profiles_checked"`
	Drifts          []Drift   `json:"drifts"`
	ReportURL       string    `json:"report_url,omitempty"`
}

// OK reports whether every profile balanced.
func (r *ReconcileReport) OK() bool { return len(r.Drifts) == 0 }

// ReportUploader stores a finished report and returns where it can be read.
type ReportUploader interface {
	UploadJSON(ctx context.Context, key string, body []byte) (string, error)
}

// ReconcileService checks that each profile's ledger sums to its XP. Drift
// is reported, never corrected.
type ReconcileService struct {
	DB       *gorm.DB
	Clock    clockwork.Clock
	Uploader ReportUploader
}

func NewReconcileService(db *gorm.DB, clock clockwork.Clock, uploader ReportUploader) *ReconcileService {
	return &ReconcileService{DB: db, Clock: clock, Uploader: uploader}
}

const reconcileQuery = `
SELECT p.profile_id AS profile_id, p.xp AS progression_xp, COALESCE(l.total, 0) AS ledger_xp
FROM profile_progressions p
LEFT JOIN (
	SELECT profile_id, CAST(SUM(xp) AS BIGINT) AS total FROM mission_reward_ledger GROUP BY profile_id
) l ON l.profile_id = p.profile_id
WHERE p.deleted_at IS NULL
UNION ALL
SELECT l.profile_id AS profile_id, 0 AS progression_xp, CAST(SUM(l.xp) AS BIGINT) AS ledger_xp
FROM mission_reward_ledger l
WHERE NOT EXISTS (
	SELECT 1 FROM profile_progressions p WHERE p.profile_id = l.profile_id AND p.deleted_at IS NULL
)
GROUP BY l.profile_id`

type balanceRow struct {
	ProfileID     string
	ProgressionXP int64
	LedgerXP      int64
}

// Run compares every profile's totals. With upload set and an uploader
// configured, the report is also written to object storage.
func (s *ReconcileService) Run(ctx context.Context, upload bool) (*ReconcileReport, error) {
	var rows []balanceRow
	if err := s.DB.WithContext(ctx).Raw(reconcileQuery).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("reconcile ledger: %w", err)
	}

	report := &ReconcileReport{
		GeneratedAt:     s.Clock.Now().UTC(),
		ProfilesChecked: len(rows),
		Drifts:          []Drift{},
	}
	for _, r := range rows {
		if r.LedgerXP == r.ProgressionXP {
			continue
		}
		report.Drifts = append(report.Drifts, Drift{
			ProfileID:     r.ProfileID,
			LedgerXP:      r.LedgerXP,
			ProgressionXP: r.ProgressionXP,
			Delta:         r.ProgressionXP - r.LedgerXP,
		})
		log.Printf("[RECONCILE] ❌ %s: ledger=%d progression=%d", r.ProfileID, r.LedgerXP, r.ProgressionXP)
	}

	if upload && s.Uploader != nil {
		body, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		key := fmt.Sprintf("reconcile/%s.json", report.GeneratedAt.Format("20060102T150405Z"))
		url, err := s.Uploader.UploadJSON(ctx, key, body)
		if err != nil {
			return nil, fmt.Errorf("upload report: %w", err)
		}
		report.ReportURL = url
	}

	if report.OK() {
		log.Printf("[RECONCILE] ✅ %d profiles balanced", report.ProfilesChecked)
	} else {
		log.Printf("[RECONCILE] ⚠️ %d of %d profiles drifted", len(report.Drifts), report.ProfilesChecked)
	}
	return report, nil
}
