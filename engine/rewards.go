package engine

// Booster is a temporary multiplier granted by a mission. The engine only
// records it; consumers of the ledger decide how to honour it.
type Booster struct {
	Kind          string  `json:"kind" yaml:"kind"`
	Multiplier    float64 `json:"multiplier" yaml:"multiplier"`
	DurationHours int     `json:"duration_hours" yaml:"duration_hours"`
}

// Rewards is the reward schedule attached to a mission definition.
// Nil pointers mean "not granted".
type Rewards struct {
	XP           *int64    `json:"xp,omitempty" yaml:"xp"`
	Badges       []string  `json:"badges,omitempty" yaml:"badges"`
	Unlocks      []string  `json:"unlocks,omitempty" yaml:"unlocks"`
	PremiumDays  *int      `json:"premium_days,omitempty" yaml:"premium_days"`
	FreezeTokens *int      `json:"freeze_tokens,omitempty" yaml:"freeze_tokens"`
	Boosters     []Booster `json:"boosters,omitempty" yaml:"boosters"`
}

// Grant is what a single claim pays out. Snapshot is copied verbatim into the
// ledger entry.
type Grant struct {
	XP           int64
	FreezeTokens int
	Snapshot     Rewards
}

// ComputeReward resolves the optional reward fields for one claim.
func ComputeReward(r Rewards) Grant {
	g := Grant{Snapshot: r}
	if r.XP != nil && *r.XP > 0 {
		g.XP = *r.XP
	}
	if r.FreezeTokens != nil && *r.FreezeTokens > 0 {
		g.FreezeTokens = *r.FreezeTokens
	}
	return g
}

// Totals is the reward-bearing part of a profile's progression.
type Totals struct {
	XP           int64
	Level        int
	FreezesOwned int
}

// ApplyReward adds g to t and recomputes the level from the new XP.
func ApplyReward(t Totals, g Grant) Totals {
	t.XP += g.XP
	t.FreezesOwned += g.FreezeTokens
	t.Level = LevelFor(t.XP)
	return t
}
