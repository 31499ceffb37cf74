package reconciler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/vibestack/billing/internal/models"
	"github.com/vibestack/billing/pkg/config"
	"github.com/vibestack/billing/pkg/logctx"
	"github.com/vibestack/billing/pkg/types"
)

// Reconciler consumes verified gateway events and applies the corresponding
// row mutations. Process returns an error only for failures the gateway
// should retry; unattributable events are logged and acknowledged.
type Reconciler interface {
	Process(ctx context.Context, event *stripe.Event) error
}

// Gateway is the query side of the payment gateway: webhook payloads for
// checkout sessions reference a subscription only by id.
type Gateway interface {
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

// SubscriptionStore is the slice of the subscription service used here.
type SubscriptionStore interface {
	Upsert(ctx context.Context, m *models.Subscription, reason types.SubscriptionChangeReason) error
	FindByCustomerID(ctx context.Context, customerID string) (*models.Subscription, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Subscription, error)
}

// PurchaseStore is the slice of the purchase service used here.
type PurchaseStore interface {
	RecordSinglePurchase(ctx context.Context, p *models.Purchase) error
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Purchase, error)
	ApplyRefund(ctx context.Context, p *models.Purchase, full bool) error
}

// EventLog records deliveries and enforces at-most-once processing.
type EventLog interface {
	Begin(ctx context.Context, provider, eventID, eventType string, payload []byte) (duplicate bool, err error)
	Finish(ctx context.Context, provider, eventID, userID string, procErr error)
}

type Service struct {
	cfg       *config.Config
	log       *zap.SugaredLogger
	gateway   Gateway
	subs      SubscriptionStore
	purchases PurchaseStore
	events    EventLog
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, gw Gateway, subs SubscriptionStore, purchases PurchaseStore, events EventLog) *Service {
	return &Service{cfg: cfg, log: log, gateway: gw, subs: subs, purchases: purchases, events: events}
}

// Metadata keys set by the storefront when it creates checkout sessions.
const (
	metaUserID       = "userId"
	metaPurchaseType = "purchaseType"
	metaContentID    = "contentId"

	purchaseTypeSingle = "single"
)

func (s *Service) Process(ctx context.Context, event *stripe.Event) error {
	provider := string(types.PaymentProviderStripe)

	duplicate, err := s.events.Begin(ctx, provider, event.ID, string(event.Type), event.Data.Raw)
	if err != nil {
		return err
	}
	if duplicate {
		logctx.FromCtx(ctx, s.log).Infow("webhook_event_duplicate", "event_id", event.ID, "type", event.Type)
		return nil
	}

	var userID string
	var procErr error

	switch event.Type {
	case "checkout.session.completed":
		userID, procErr = s.handleCheckoutCompleted(ctx, event.Data.Raw)
	case "invoice.payment_succeeded":
		userID, procErr = s.handleInvoicePaid(ctx, event.Data.Raw)
	case "invoice.payment_failed":
		userID, procErr = s.handleInvoiceFailed(ctx, event.Data.Raw)
	case "customer.subscription.updated":
		userID, procErr = s.handleSubscriptionUpdated(ctx, event.Data.Raw)
	case "customer.subscription.deleted":
		userID, procErr = s.handleSubscriptionDeleted(ctx, event.Data.Raw)
	case "charge.refunded":
		userID, procErr = s.handleChargeRefunded(ctx, event.Data.Raw)
	default:
		// Acknowledge unknown types so the gateway does not retry them.
		logctx.FromCtx(ctx, s.log).Infow("webhook_event_ignored", "event_id", event.ID, "type", event.Type)
	}

	s.events.Finish(ctx, provider, event.ID, userID, procErr)
	return procErr
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, raw json.RawMessage) (string, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return "", fmt.Errorf("decode checkout.session: %w", err)
	}

	userID := sess.Metadata[metaUserID]
	if userID == "" {
		// Cannot attribute the payment to a user; redelivery would not fix it.
		logctx.FromCtx(ctx, s.log).Warnw("checkout_missing_user_metadata", "session_id", sess.ID)
		return "", nil
	}

	if sess.Metadata[metaPurchaseType] == purchaseTypeSingle && sess.Metadata[metaContentID] != "" {
		if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
			// Malformed session; redelivery would not fix it, and without the
			// intent id there is nothing to correlate a refund against.
			logctx.FromCtx(ctx, s.log).Warnw("checkout_missing_payment_intent", "session_id", sess.ID, "user_id", userID)
			return userID, nil
		}
		p := &models.Purchase{
			UserID:            userID,
			ContentID:         sess.Metadata[metaContentID],
			Provider:          types.PaymentProviderStripe,
			CheckoutSessionID: sess.ID,
			PaymentIntentID:   sess.PaymentIntent.ID,
			Amount:            sess.AmountTotal,
			Currency:          string(sess.Currency),
		}
		return userID, s.purchases.RecordSinglePurchase(ctx, p)
	}

	if sess.Subscription != nil {
		sub, err := s.gateway.GetSubscription(ctx, sess.Subscription.ID)
		if err != nil {
			return userID, fmt.Errorf("fetch subscription %s: %w", sess.Subscription.ID, err)
		}
		return userID, s.applySubscription(ctx, userID, sub, types.SubscriptionChangeReasonCheckout)
	}

	logctx.FromCtx(ctx, s.log).Warnw("checkout_without_purchase_or_subscription", "session_id", sess.ID, "user_id", userID)
	return userID, nil
}

func (s *Service) handleInvoicePaid(ctx context.Context, raw json.RawMessage) (string, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return "", fmt.Errorf("decode invoice: %w", err)
	}
	if inv.Subscription == nil {
		// One-off invoice, nothing to reconcile.
		return "", nil
	}

	sub, err := s.gateway.GetSubscription(ctx, inv.Subscription.ID)
	if err != nil {
		return "", fmt.Errorf("fetch subscription %s: %w", inv.Subscription.ID, err)
	}

	userID := sub.Metadata[metaUserID]
	if userID == "" {
		customerID := ""
		if inv.Customer != nil {
			customerID = inv.Customer.ID
		}
		row, err := s.subs.FindByCustomerID(ctx, customerID)
		if err != nil {
			return "", err
		}
		if row == nil {
			logctx.FromCtx(ctx, s.log).Warnw("invoice_unresolved_customer", "invoice_id", inv.ID, "customer_id", customerID)
			return "", nil
		}
		userID = row.UserID
	}

	return userID, s.applySubscription(ctx, userID, sub, types.SubscriptionChangeReasonRenewal)
}

func (s *Service) handleInvoiceFailed(ctx context.Context, raw json.RawMessage) (string, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return "", fmt.Errorf("decode invoice: %w", err)
	}

	customerID := ""
	if inv.Customer != nil {
		customerID = inv.Customer.ID
	}
	row, err := s.subs.FindByCustomerID(ctx, customerID)
	if err != nil {
		return "", err
	}
	if row == nil {
		logctx.FromCtx(ctx, s.log).Warnw("invoice_failed_unresolved_customer", "invoice_id", inv.ID, "customer_id", customerID)
		return "", nil
	}

	// TODO: email the user when a renewal charge fails so they can fix the card.
	row.Status = types.SubscriptionStatusPastDue
	return row.UserID, s.subs.Upsert(ctx, row, types.SubscriptionChangeReasonPaymentFailed)
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, raw json.RawMessage) (string, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return "", fmt.Errorf("decode subscription: %w", err)
	}

	row, err := s.subs.FindBySubscriptionID(ctx, sub.ID)
	if err != nil {
		return "", err
	}
	if row == nil {
		// Subscription created or tracked outside this flow.
		logctx.FromCtx(ctx, s.log).Warnw("subscription_updated_untracked", "subscription_id", sub.ID)
		return "", nil
	}

	row.PlanType = s.classifyPlan(&sub)
	row.Status = types.SubscriptionStatus(sub.Status)
	row.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	row.CurrentPeriodStart = unixTimePtr(sub.CurrentPeriodStart)
	end := periodEndOrDefault(sub.CurrentPeriodEnd)
	row.CurrentPeriodEnd = &end
	if sub.Currency != "" {
		row.Currency = string(sub.Currency)
	}
	return row.UserID, s.subs.Upsert(ctx, row, types.SubscriptionChangeReasonPlanChange)
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, raw json.RawMessage) (string, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return "", fmt.Errorf("decode subscription: %w", err)
	}

	row, err := s.subs.FindBySubscriptionID(ctx, sub.ID)
	if err != nil {
		return "", err
	}
	if row == nil {
		logctx.FromCtx(ctx, s.log).Warnw("subscription_deleted_untracked", "subscription_id", sub.ID)
		return "", nil
	}

	// Cancellation is a state transition; the row is kept.
	row.Status = types.SubscriptionStatusCanceled
	row.PlanType = types.PlanTypeFree
	return row.UserID, s.subs.Upsert(ctx, row, types.SubscriptionChangeReasonCanceled)
}

func (s *Service) handleChargeRefunded(ctx context.Context, raw json.RawMessage) (string, error) {
	var ch stripe.Charge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return "", fmt.Errorf("decode charge: %w", err)
	}

	paymentIntentID := ""
	if ch.PaymentIntent != nil {
		paymentIntentID = ch.PaymentIntent.ID
	}
	p, err := s.purchases.FindByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return "", err
	}
	if p == nil {
		logctx.FromCtx(ctx, s.log).Warnw("refund_without_purchase", "charge_id", ch.ID, "payment_intent_id", paymentIntentID)
		return "", nil
	}

	return p.UserID, s.purchases.ApplyRefund(ctx, p, ch.Refunded)
}

// applySubscription maps gateway subscription detail onto the user's row.
func (s *Service) applySubscription(ctx context.Context, userID string, sub *stripe.Subscription, reason types.SubscriptionChangeReason) error {
	end := periodEndOrDefault(sub.CurrentPeriodEnd)
	row := &models.Subscription{
		UserID:               userID,
		StripeSubscriptionID: sub.ID,
		PlanType:             s.classifyPlan(sub),
		Status:               types.SubscriptionStatus(sub.Status),
		CurrentPeriodStart:   unixTimePtr(sub.CurrentPeriodStart),
		CurrentPeriodEnd:     &end,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		Currency:             string(sub.Currency),
	}
	if sub.Customer != nil {
		row.StripeCustomerID = sub.Customer.ID
	}
	return s.subs.Upsert(ctx, row, reason)
}
