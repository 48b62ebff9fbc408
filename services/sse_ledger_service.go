package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"mission-progression-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// LedgerStreamService pushes new ledger entries to a connected client.
type LedgerStreamService struct {
	DB           *gorm.DB
	PollInterval time.Duration
}

func NewLedgerStreamService(db *gorm.DB) *LedgerStreamService {
	return &LedgerStreamService{DB: db, PollInterval: 2 * time.Second}
}

// LedgerCursor marks how far a stream has read: the newest created_at
// sent and the ids already sent at exactly that instant.
type LedgerCursor struct {
	At  time.Time
	IDs map[string]bool
}

// Advance moves the cursor past entries, which must be in created_at order.
func (c *LedgerCursor) Advance(entries []models.MissionRewardLedgerEntry) {
	for _, e := range entries {
		if !e.CreatedAt.Equal(c.At) {
			c.At = e.CreatedAt
			c.IDs = map[string]bool{}
		}
		if c.IDs == nil {
			c.IDs = map[string]bool{}
		}
		c.IDs[e.ID] = true
	}
}

// NewEntriesSince returns the profile's ledger entries the cursor has not
// seen, oldest first. Entries sharing the cursor's timestamp are included
// unless already sent.
func (s *LedgerStreamService) NewEntriesSince(profileID string, cur *LedgerCursor) ([]models.MissionRewardLedgerEntry, error) {
	var entries []models.MissionRewardLedgerEntry
	err := s.DB.
		Where("profile_id = ? AND created_at >= ?", profileID, cur.At).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	fresh := entries[:0]
	for _, e := range entries {
		if e.CreatedAt.Equal(cur.At) && cur.IDs[e.ID] {
			continue
		}
		fresh = append(fresh, e)
	}
	return fresh, nil
}

func (s *LedgerStreamService) latest(profileID string) *LedgerCursor {
	cur := &LedgerCursor{}
	var latest models.MissionRewardLedgerEntry
	err := s.DB.Where("profile_id = ?", profileID).Order("created_at DESC").First(&latest).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for profile %s: %v", profileID, err)
		}
		return cur
	}
	// Everything up to now is history; only later commits are pushed.
	var sameInstant []models.MissionRewardLedgerEntry
	if err := s.DB.Where("profile_id = ? AND created_at = ?", profileID, latest.CreatedAt).Find(&sameInstant).Error; err != nil {
		log.Printf("SSE init error for profile %s: %v", profileID, err)
		sameInstant = []models.MissionRewardLedgerEntry{latest}
	}
	cur.Advance(sameInstant)
	return cur
}

// StreamLedgerSSE streams ledger entries for the authenticated profile as
// `event: reward` messages.
func (s *LedgerStreamService) StreamLedgerSSE(c *fiber.Ctx) error {
	profileID, _ := c.Locals("user_id").(string)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	ctx := c.Context()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(s.PollInterval)
		defer ticker.Stop()

		cursor := s.latest(profileID)

		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.C:
				entries, err := s.NewEntriesSince(profileID, cursor)
				if err != nil {
					log.Printf("SSE query error for profile %s: %v", profileID, err)
					continue
				}
				if len(entries) == 0 {
					continue
				}
				cursor.Advance(entries)

				for _, e := range entries {
					payload, _ := json.Marshal(e)
					fmt.Fprintf(w, "event: reward\ndata: %s\n\n", payload)
				}
				if err := w.Flush(); err != nil {
					return
				}

			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}
