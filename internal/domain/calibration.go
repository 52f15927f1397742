package domain

// Thresholds are the minimum overall scores (0-100) for each hire signal
type Thresholds struct {
	StrongHire int `json:"strong_hire" yaml:"strong_hire"`
	Hire       int `json:"hire" yaml:"hire"`
	LeanHire   int `json:"lean_hire" yaml:"lean_hire"`
	LeanNoHire int `json:"lean_no_hire" yaml:"lean_no_hire"`
}

// Signal maps an overall score onto the thresholds
func (t Thresholds) Signal(overall int) HireSignal {
	switch {
	case overall >= t.StrongHire:
		return HireStrongHire
	case overall >= t.Hire:
		return HireHire
	case overall >= t.LeanHire:
		return HireLeanHire
	case overall >= t.LeanNoHire:
		return HireLeanNoHire
	default:
		return HireNoHire
	}
}

// Calibration maps difficulty tiers to hire-signal thresholds
type Calibration map[Difficulty]Thresholds

// DefaultCalibration returns the built-in table; harder tiers need lower scores
func DefaultCalibration() Calibration {
	return Calibration{
		DifficultyEasy:   {StrongHire: 90, Hire: 80, LeanHire: 70, LeanNoHire: 55},
		DifficultyMedium: {StrongHire: 85, Hire: 75, LeanHire: 65, LeanNoHire: 50},
		DifficultyHard:   {StrongHire: 80, Hire: 70, LeanHire: 60, LeanNoHire: 45},
	}
}

// Tier returns the thresholds used for a session. Adaptive sessions are
// judged at the tier they actually reached; others at their configured tier.
func (c Calibration) Tier(difficulty, reached Difficulty, adaptive bool) Thresholds {
	tier := difficulty
	if adaptive && reached.Valid() {
		tier = reached
	}
	if t, ok := c[tier]; ok {
		return t
	}
	if t, ok := DefaultCalibration()[tier]; ok {
		return t
	}
	return DefaultCalibration()[DifficultyMedium]
}

// Signal returns the hire signal for an overall score
func (c Calibration) Signal(overall int, difficulty, reached Difficulty, adaptive bool) HireSignal {
	return c.Tier(difficulty, reached, adaptive).Signal(overall)
}
