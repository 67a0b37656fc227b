package shared

// Audit trail permissions declared for RBAC.
const (
	PermAuditView = "auditoria.view"
)

// AuditScopes lists all permissions related to the audit trail.
func AuditScopes() []string {
	return []string{
		PermAuditView,
	}
}
