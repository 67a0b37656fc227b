package shared

// Brokerage permissions declared for RBAC.
const (
	PermBrokerageView = "brokerage.view"
	PermBrokerageEdit = "brokerage.edit"
)

// BrokerageScopes lists all permissions related to brokerage entities.
func BrokerageScopes() []string {
	return []string{
		PermBrokerageView,
		PermBrokerageEdit,
	}
}
