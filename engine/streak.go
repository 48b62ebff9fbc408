package engine

import "time"

// StreakState is the streak-related part of a profile's progression.
type StreakState struct {
	Current        int
	Best           int
	FreezesOwned   int
	FreezesUsed    int
	LastActiveDate *time.Time
}

// FreezesAvailable is the number of unused freeze tokens.
func (s StreakState) FreezesAvailable() int {
	if s.FreezesOwned <= s.FreezesUsed {
		return 0
	}
	return s.FreezesOwned - s.FreezesUsed
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SettleStreak records activity on the UTC day of at. Missed days are covered
// by unused freeze tokens when there are enough of them; otherwise the
// current streak drops to zero. Activity on or before the last active day
// changes nothing.
func SettleStreak(s StreakState, at time.Time) StreakState {
	day := utcDay(at)
	if s.LastActiveDate == nil {
		s.LastActiveDate = &day
		return s
	}
	last := utcDay(*s.LastActiveDate)
	if !day.After(last) {
		return s
	}

	missed := int(day.Sub(last)/(24*time.Hour)) - 1
	if missed > 0 {
		if s.FreezesAvailable() >= missed {
			s.FreezesUsed += missed
		} else {
			s.Current = 0
		}
	}
	s.LastActiveDate = &day
	return s
}

// IncrementStreak raises the current streak and keeps best in step.
func IncrementStreak(s StreakState) StreakState {
	s.Current++
	if s.Current > s.Best {
		s.Best = s.Current
	}
	return s
}
