package types

// PaymentProvider identifies which gateway produced a payment or event.
type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "stripe"
	PaymentProviderToss   PaymentProvider = "toss"
)

// PlanType is the subscription tier a user is entitled to.
type PlanType string

const (
	PlanTypeFree PlanType = "free"
	PlanTypePro  PlanType = "pro"
	PlanTypeTeam PlanType = "team"
)

// SubscriptionStatus mirrors the gateway's subscription status strings.
// The reconciler stores whatever the gateway reports; only the values below
// are produced by our own transitions.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// PurchaseStatus is the lifecycle of a single content purchase.
// completed -> refunded | partially_refunded, no further transitions.
type PurchaseStatus string

const (
	PurchaseStatusCompleted         PurchaseStatus = "completed"
	PurchaseStatusRefunded          PurchaseStatus = "refunded"
	PurchaseStatusPartiallyRefunded PurchaseStatus = "partially_refunded"
)

// AccessType describes why a user may read a content item.
type AccessType string

const (
	AccessTypePurchased AccessType = "purchased"
)

// SubscriptionChangeReason labels subscription audit log entries.
type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonCheckout      SubscriptionChangeReason = "checkout"
	SubscriptionChangeReasonRenewal       SubscriptionChangeReason = "renewal"
	SubscriptionChangeReasonPaymentFailed SubscriptionChangeReason = "payment_failed"
	SubscriptionChangeReasonPlanChange    SubscriptionChangeReason = "plan_change"
	SubscriptionChangeReasonCanceled      SubscriptionChangeReason = "canceled"
)
