package engine

// LevelStep is one row of the leveling table.
type LevelStep struct {
	Level int
	Floor int64
}

// levelTable is ordered by ascending floor. Tuning rewards means editing
// this table, not a curve.
var levelTable = []LevelStep{
	{Level: 1, Floor: 0},
	{Level: 2, Floor: 150},
	{Level: 3, Floor: 400},
	{Level: 4, Floor: 800},
	{Level: 5, Floor: 1400},
	{Level: 6, Floor: 2200},
	{Level: 7, Floor: 3200},
	{Level: 8, Floor: 4400},
	{Level: 9, Floor: 5800},
	{Level: 10, Floor: 7400},
}

// Levels returns a copy of the leveling table.
func Levels() []LevelStep {
	out := make([]LevelStep, len(levelTable))
	copy(out, levelTable)
	return out
}

// MaxLevel is the highest level defined by the table.
func MaxLevel() int {
	return levelTable[len(levelTable)-1].Level
}

func stepIndex(xp int64) int {
	idx := 0
	for i, step := range levelTable {
		if xp < step.Floor {
			break
		}
		idx = i
	}
	return idx
}

// LevelFor returns the highest level whose floor is at or below xp.
func LevelFor(xp int64) int {
	return levelTable[stepIndex(xp)].Level
}

// NextLevelFloor returns the xp floor of the level after the one xp is in.
// ok is false at the top of the table.
func NextLevelFloor(xp int64) (floor int64, ok bool) {
	idx := stepIndex(xp)
	if idx+1 >= len(levelTable) {
		return 0, false
	}
	return levelTable[idx+1].Floor, true
}

// ProgressToNextLevel returns how far xp is between its level floor and the
// next one, clamped to [0,1]. At the maximum level it is always 1.
func ProgressToNextLevel(xp int64) float64 {
	idx := stepIndex(xp)
	if idx+1 >= len(levelTable) {
		return 1
	}
	floor, next := levelTable[idx].Floor, levelTable[idx+1].Floor
	ratio := float64(xp-floor) / float64(next-floor)
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	}
	return ratio
}
