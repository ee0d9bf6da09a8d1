package types

// AccountPlan is the SaaS plan of an administrator account
type AccountPlan string

const (
	AccountPlanFree AccountPlan = "free"
	AccountPlanPro  AccountPlan = "pro"
)

// GatewaySubscriptionStatus is the status the billing gateway reports for an account's SaaS subscription
type GatewaySubscriptionStatus string

const (
	GatewaySubscriptionStatusActive    GatewaySubscriptionStatus = "active"
	GatewaySubscriptionStatusOverdue   GatewaySubscriptionStatus = "overdue"
	GatewaySubscriptionStatusCancelled GatewaySubscriptionStatus = "cancelled"
	GatewaySubscriptionStatusExpired   GatewaySubscriptionStatus = "expired"
)

// RequiresDowngrade reports whether an account on a paid plan must fall back to free
func (s GatewaySubscriptionStatus) RequiresDowngrade() bool {
	switch s {
	case GatewaySubscriptionStatusOverdue, GatewaySubscriptionStatusCancelled, GatewaySubscriptionStatusExpired:
		return true
	}
	return false
}
