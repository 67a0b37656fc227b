package rbac

// Permission represents an atomic capability identified by a unique code.
// Codes follow the "<domain>.<verb>" convention, e.g. "conciliacion.run".
type Permission struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}
