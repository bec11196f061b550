package risk

// Decision is the action a collaborator should take for a verdict.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionWarn  Decision = "warn"
	DecisionBlock Decision = "block"
)

// Policy carries the user's alerting and blocking toggles.
type Policy struct {
	AlertsEnabled   bool `json:"alertsEnabled"`
	BlockingEnabled bool `json:"blockingEnabled"`
}

// Decide maps a verdict onto an action. A deny-list match always blocks;
// ERROR verdicts never warn or block.
func (p Policy) Decide(v *Verdict) Decision {
	if v == nil {
		return DecisionAllow
	}
	switch v.RiskLevel {
	case LevelOverrideBlocked:
		return DecisionBlock
	case LevelHigh:
		if p.BlockingEnabled {
			return DecisionBlock
		}
		if p.AlertsEnabled {
			return DecisionWarn
		}
	case LevelMedium:
		if p.AlertsEnabled {
			return DecisionWarn
		}
	}
	return DecisionAllow
}
