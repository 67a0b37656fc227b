package shared

// Reconciliation and reporting permissions declared for RBAC.
const (
	PermConciliacionRun    = "conciliacion.run"
	PermConciliacionView   = "conciliacion.view"
	PermConciliacionExport = "conciliacion.export"

	PermReportesView   = "reportes.view"
	PermReportesExport = "reportes.export"
)

// ConciliacionScopes lists all permissions related to reconciliation and reporting.
func ConciliacionScopes() []string {
	return []string{
		PermConciliacionRun,
		PermConciliacionView,
		PermConciliacionExport,
		PermReportesView,
		PermReportesExport,
	}
}
