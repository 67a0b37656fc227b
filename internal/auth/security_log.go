package auth

// Threat levels recorded on security audit rows.
const (
	ThreatLevelLow      = "LOW"
	ThreatLevelMedium   = "MEDIUM"
	ThreatLevelHigh     = "HIGH"
	ThreatLevelCritical = "CRITICAL"
)

// SecurityLog routes an audit record to security_audit_logs, which extends
// the base columns with a threat classification.
type SecurityLog struct {
	ThreatLevel string
	Blocked     bool
}

func (SecurityLog) TableName() string { return "security_audit_logs" }

func (l SecurityLog) Extra() ([]string, []any) {
	return []string{"threat_level", "blocked"}, []any{l.ThreatLevel, l.Blocked}
}
