package engine

// Mission codes with built-in completion criteria.
const (
	MissionFirstMeasurement  = "first-measurement"
	MissionCompleteProfile   = "complete-profile"
	MissionInviteContact     = "invite-contact"
	MissionShareWishlist     = "share-wishlist"
	MissionWishlistBuilder   = "wishlist-builder"
	MissionMeasurementStreak = "measurement-streak"
	MissionWinterGifting     = "winter-gifting"
)

const (
	profileFieldTarget   = 5
	wishlistItemTarget   = 5
	measurementStreakLen = 3

	// maxSeenHashes bounds the dedup window kept in a progress blob.
	maxSeenHashes = 64
)

// CountProgress counts distinct qualifying events.
type CountProgress struct {
	Count int      `json:"count"`
	Seen  []string `json:"seen,omitempty"`
}

func (p *CountProgress) observe(hash string) bool {
	if containsHash(p.Seen, hash) {
		return false
	}
	p.Seen = appendHash(p.Seen, hash)
	p.Count++
	return true
}

// ProfileProgress tracks how complete the profile is.
type ProfileProgress struct {
	FieldCount             int  `json:"field_count"`
	CriticalFieldCompleted bool `json:"critical_field_completed"`
}

// StreakProgress tracks consecutive UTC days with a qualifying event.
type StreakProgress struct {
	Streak  int      `json:"streak"`
	LastDay string   `json:"last_day,omitempty"`
	Seen    []string `json:"seen,omitempty"`
}

func containsHash(seen []string, hash string) bool {
	for _, h := range seen {
		if h == hash {
			return true
		}
	}
	return false
}

func appendHash(seen []string, hash string) []string {
	seen = append(seen, hash)
	if len(seen) > maxSeenHashes {
		seen = seen[len(seen)-maxSeenHashes:]
	}
	return seen
}

func countOf(target int, match func(ItemCreated) bool) Criterion {
	return Typed(func(evt ItemCreated, p *CountProgress) (bool, bool) {
		changed := match(evt) && p.observe(evt.UniqueHash)
		return changed, p.Count >= target
	})
}

func completeProfile(evt ItemCreated, p *ProfileProgress) (bool, bool) {
	changed := false
	if evt.Category == "profile" {
		if evt.FieldCount > p.FieldCount {
			p.FieldCount = evt.FieldCount
			changed = true
		}
		if evt.CriticalFieldCompleted && !p.CriticalFieldCompleted {
			p.CriticalFieldCompleted = true
			changed = true
		}
	}
	return changed, p.CriticalFieldCompleted && p.FieldCount >= profileFieldTarget
}

func measurementStreak(evt ItemCreated, p *StreakProgress) (bool, bool) {
	done := p.Streak >= measurementStreakLen
	if evt.Source != "measurement" || containsHash(p.Seen, evt.UniqueHash) {
		return false, done
	}

	day := utcDay(evt.CreatedAt)
	dayKey := day.Format("2006-01-02")
	// Days before the current streak end cannot extend it.
	if p.LastDay > dayKey {
		return false, done
	}
	p.Seen = appendHash(p.Seen, evt.UniqueHash)

	switch {
	case p.LastDay == dayKey:
	case p.LastDay == day.AddDate(0, 0, -1).Format("2006-01-02"):
		p.Streak++
		p.LastDay = dayKey
	default:
		p.Streak = 1
		p.LastDay = dayKey
	}
	return true, p.Streak >= measurementStreakLen
}

// DefaultRegistry returns the criteria for every built-in mission.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(MissionFirstMeasurement, countOf(1, func(e ItemCreated) bool {
		return e.Source == "measurement"
	}))
	r.Register(MissionCompleteProfile, Typed(completeProfile))
	r.Register(MissionInviteContact, countOf(1, func(e ItemCreated) bool {
		return e.Source == "circle" && e.Subtype == "invite"
	}))
	r.Register(MissionShareWishlist, countOf(1, func(e ItemCreated) bool {
		return e.Source == "wishlist" && e.Subtype == "share"
	}))
	r.Register(MissionWishlistBuilder, countOf(wishlistItemTarget, func(e ItemCreated) bool {
		return e.Source == "wishlist" && e.Subtype == "item"
	}))
	r.Register(MissionMeasurementStreak, Typed(measurementStreak))
	r.Register(MissionWinterGifting, countOf(1, func(e ItemCreated) bool {
		return e.Source == "wishlist" && e.Category == "gift"
	}))
	return r
}
