package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vibestack/billing/internal/models"
	"github.com/vibestack/billing/pkg/config"
	"github.com/vibestack/billing/pkg/types"
)

type fakeGateway struct {
	sub   *stripe.Subscription
	err   error
	calls int
}

func (f *fakeGateway) GetSubscription(_ context.Context, _ string) (*stripe.Subscription, error) {
	f.calls++
	return f.sub, f.err
}

type subUpsert struct {
	row    *models.Subscription
	reason types.SubscriptionChangeReason
}

type fakeSubStore struct {
	byCustomer map[string]*models.Subscription
	bySubID    map[string]*models.Subscription
	upserts    []subUpsert
	upsertErr  error
}

func (f *fakeSubStore) Upsert(_ context.Context, m *models.Subscription, reason types.SubscriptionChangeReason) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, subUpsert{row: m, reason: reason})
	return nil
}

func (f *fakeSubStore) FindByCustomerID(_ context.Context, id string) (*models.Subscription, error) {
	return f.byCustomer[id], nil
}

func (f *fakeSubStore) FindBySubscriptionID(_ context.Context, id string) (*models.Subscription, error) {
	return f.bySubID[id], nil
}

type refundCall struct {
	p    *models.Purchase
	full bool
}

type fakePurchaseStore struct {
	recorded  []*models.Purchase
	byIntent  map[string]*models.Purchase
	refunds   []refundCall
	recordErr error
}

func (f *fakePurchaseStore) RecordSinglePurchase(_ context.Context, p *models.Purchase) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, p)
	return nil
}

func (f *fakePurchaseStore) FindByPaymentIntent(_ context.Context, id string) (*models.Purchase, error) {
	return f.byIntent[id], nil
}

func (f *fakePurchaseStore) ApplyRefund(_ context.Context, p *models.Purchase, full bool) error {
	f.refunds = append(f.refunds, refundCall{p: p, full: full})
	return nil
}

type fakeEventLog struct {
	duplicate  bool
	beginErr   error
	begun      int
	finished   int
	lastUserID string
	lastErr    error
}

func (f *fakeEventLog) Begin(_ context.Context, _, _, _ string, _ []byte) (bool, error) {
	f.begun++
	return f.duplicate, f.beginErr
}

func (f *fakeEventLog) Finish(_ context.Context, _, _, userID string, procErr error) {
	f.finished++
	f.lastUserID = userID
	f.lastErr = procErr
}

func testConfig() *config.Config {
	return &config.Config{Stripe: config.StripeConfig{
		TeamPriceIDs: []string{"price_team_usd", "price_team_krw"},
	}}
}

func newTestService(gw *fakeGateway, subs *fakeSubStore, purchases *fakePurchaseStore, events *fakeEventLog) *Service {
	return NewService(testConfig(), zap.NewNop().Sugar(), gw, subs, purchases, events)
}

func evt(t *testing.T, typ string, obj map[string]any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	return &stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventType(typ),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestProcess_SinglePurchaseCheckout(t *testing.T) {
	purchases := &fakePurchaseStore{}
	events := &fakeEventLog{}
	svc := newTestService(&fakeGateway{}, &fakeSubStore{}, purchases, events)

	err := svc.Process(context.Background(), evt(t, "checkout.session.completed", map[string]any{
		"id":             "cs_1",
		"amount_total":   1200,
		"currency":       "usd",
		"payment_intent": "pi_1",
		"metadata": map[string]string{
			"userId":       "u1",
			"purchaseType": "single",
			"contentId":    "c1",
		},
	}))
	require.NoError(t, err)

	require.Len(t, purchases.recorded, 1)
	p := purchases.recorded[0]
	require.Equal(t, "u1", p.UserID)
	require.Equal(t, "c1", p.ContentID)
	require.Equal(t, int64(1200), p.Amount)
	require.Equal(t, "usd", p.Currency)
	require.Equal(t, "pi_1", p.PaymentIntentID)
	require.Equal(t, "cs_1", p.CheckoutSessionID)
	require.Equal(t, types.PaymentProviderStripe, p.Provider)

	require.Equal(t, 1, events.finished)
	require.Equal(t, "u1", events.lastUserID)
}

func TestProcess_DuplicateEventIsSkipped(t *testing.T) {
	purchases := &fakePurchaseStore{}
	events := &fakeEventLog{duplicate: true}
	svc := newTestService(&fakeGateway{}, &fakeSubStore{}, purchases, events)

	err := svc.Process(context.Background(), evt(t, "checkout.session.completed", map[string]any{
		"id": "cs_1",
		"metadata": map[string]string{
			"userId": "u1", "purchaseType": "single", "contentId": "c1",
		},
	}))
	require.NoError(t, err)
	require.Empty(t, purchases.recorded)
	require.Zero(t, events.finished)
}

func TestProcess_CheckoutMissingUserMetadataIsNoop(t *testing.T) {
	purchases := &fakePurchaseStore{}
	svc := newTestService(&fakeGateway{}, &fakeSubStore{}, purchases, &fakeEventLog{})

	err := svc.Process(context.Background(), evt(t, "checkout.session.completed", map[string]any{
		"id":           "cs_1",
		"amount_total": 1200,
	}))
	require.NoError(t, err)
	require.Empty(t, purchases.recorded)
}

func TestProcess_CheckoutMissingPaymentIntentIsNoop(t *testing.T) {
	purchases := &fakePurchaseStore{}
	svc := newTestService(&fakeGateway{}, &fakeSubStore{}, purchases, &fakeEventLog{})

	err := svc.Process(context.Background(), evt(t, "checkout.session.completed", map[string]any{
		"id":           "cs_1",
		"amount_total": 1200,
		"metadata": map[string]string{
			"userId": "u1", "purchaseType": "single", "contentId": "c1",
		},
	}))
	require.NoError(t, err)
	require.Empty(t, purchases.recorded)
}

func TestProcess_PersistenceErrorPropagates(t *testing.T) {
	purchases := &fakePurchaseStore{recordErr: errors.New("connection refused")}
	events := &fakeEventLog{}
	svc := newTestService(&fakeGateway{}, &fakeSubStore{}, purchases, events)

	err := svc.Process(context.Background(), evt(t, "checkout.session.completed", map[string]any{
		"id":             "cs_1",
		"payment_intent": "pi_1",
		"metadata": map[string]string{
			"userId": "u1", "purchaseType": "single", "contentId": "c1",
		},
	}))
	require.Error(t, err)
	require.Equal(t, 1, events.finished)
	require.Error(t, events.lastErr)
}

func TestProcess_SubscriptionCheckoutFetchesGatewayAndUpserts(t *testing.T) {
	gw := &fakeGateway{sub: &stripe.Subscription{
		ID:                 "sub_1",
		Status:             stripe.SubscriptionStatusActive,
		Customer:           &stripe.Customer{ID: "cus_1"},
		Currency:           stripe.Currency("usd"),
		CurrentPeriodStart: time.Now().Unix(),
		// period end deliberately missing: the fallback must apply
	}}
	subs := &fakeSubStore{}
	svc := newTestService(gw, subs, &fakePurchaseStore{}, &fakeEventLog{})

	err := svc.Process(context.Background(), evt(t, "checkout.session.completed", map[string]any{
		"id":           "cs_2",
		"subscription": "sub_1",
		"metadata":     map[string]string{"userId": "u2"},
	}))
	require.NoError(t, err)
	require.Equal(t, 1, gw.calls)
	require.Len(t, subs.upserts, 1)

	row := subs.upserts[0].row
	require.Equal(t, "u2", row.UserID)
	require.Equal(t, "cus_1", row.StripeCustomerID)
	require.Equal(t, "sub_1", row.StripeSubscriptionID)
	require.Equal(t, types.SubscriptionStatusActive, row.Status)
	require.Equal(t, types.PlanTypePro, row.PlanType)
	require.Equal(t, types.SubscriptionChangeReasonCheckout, subs.upserts[0].reason)

	require.NotNil(t, row.CurrentPeriodEnd)
	require.WithinDuration(t, time.Now().Add(30*24*time.Hour), *row.CurrentPeriodEnd, time.Minute)
}

func TestProcess_InvoicePaidWithoutSubscriptionIsNoop(t *testing.T) {
	gw := &fakeGateway{}
	subs := &fakeSubStore{}
	svc := newTestService(gw, subs, &fakePurchaseStore{}, &fakeEventLog{})

	err := svc.Process(context.Background(), evt(t, "invoice.payment_succeeded", map[string]any{
		"id": "in_1",
	}))
	require.NoError(t, err)
	require.Zero(t, gw.calls)
	require.Empty(t, subs.upserts)
}

func TestProcess_InvoicePaidResolvesUserByCustomerLookup(t *testing.T) {
	gw := &fakeGateway{sub: &stripe.Subscription{
		ID:               "sub_3",
		Status:           stripe.SubscriptionStatusActive,
		Customer:         &stripe.Customer{ID: "cus_3"},
		CurrentPeriodEnd: time.Now().Add(30 * 24 * time.Hour).Unix(),
	}}
	subs := &fakeSubStore{byCustomer: map[string]*models.Subscription{
		"cus_3": {UserID: "u3", StripeCustomerID: "cus_3"},
	}}
	svc := newTestService(gw, subs, &fakePurchaseStore{}, &fakeEventLog{})

	err := svc.Process(context.Background(), evt(t, "invoice.payment_succeeded", map[string]any{
		"id":           "in_2",
		"customer":     "cus_3",
		"subscription": "sub_3",
	}))
	require.NoError(t, err)
	require.Len(t, subs.upserts, 1)
	require.Equal(t, "u3", subs.upserts[0].row.UserID)
	require.Equal(t, types.SubscriptionChangeReasonRenewal, subs.upserts[0].reason)
}

func TestProcess_InvoiceFailedMarksPastDue(t *testing.T) {
	subs := &fakeSubStore{byCustomer: map[string]*models.Subscription{
		"cus_4": {UserID: "u4", StripeCustomerID: "cus_4", Status: types.SubscriptionStatusActive, PlanType: types.PlanTypePro},
	}}
	svc := newTestService(&fakeGateway{}, subs, &fakePurchaseStore{}, &fakeEventLog{})

	err := svc.Process(context.Background(), evt(t, "invoice.payment_failed", map[string]any{
		"id":       "in_3",
		"customer": "cus_4",
	}))
	require.NoError(t, err)
	require.Len(t, subs.upserts, 1)
	require.Equal(t, types.SubscriptionStatusPastDue, subs.upserts[0].row.Status)
	// plan is untouched by a failed renewal
	require.Equal(t, types.PlanTypePro, subs.upserts[0].row.PlanType)
}

func TestProcess_InvoiceFailedUnknownCustomerIsNoop(t *testing.T) {
	subs := &fakeSubStore{}
	svc := newTestService(&fakeGateway{}, subs, &fakePurchaseStore{}, &fakeEventLog{})

	err := svc.Process(context.Background(), evt(t, "invoice.payment_failed", map[string]any{
		"id":       "in_4",
		"customer": "cus_unknown",
	}))
	require.NoError(t, err)
	require.Empty(t, subs.upserts)
}

func TestProcess_SubscriptionUpdatedClassifiesTeamPlan(t *testing.T) {
	subs := &fakeSubStore{bySubID: map[string]*models.Subscription{
		"sub_5": {UserID: "u5", StripeSubscriptionID: "sub_5", PlanType: types.PlanTypePro},
	}}
	svc := newTestService(&fakeGateway{}, subs, &fakePurchaseStore{}, &fakeEventLog{})

	err := svc.Process(context.Background(), evt(t, "customer.subscription.updated", map[string]any{
		"id":                   "sub_5",
		"status":               "active",
		"cancel_at_period_end": true,
		"items": map[string]any{
			"data": []map[string]any{
				{"price": map[string]any{"id": "price_team_usd"}},
			},
		},
	}))
	require.NoError(t, err)
	require.Len(t, subs.upserts, 1)

	row := subs.upserts[0].row
	require.Equal(t, types.PlanTypeTeam, row.PlanType)
	require.True(t, row.CancelAtPeriodEnd)
	require.Equal(t, types.SubscriptionStatusActive, row.Status)
}

func TestProcess_SubscriptionUpdatedUntrackedIsNoop(t *testing.T) {
	subs := &fakeSubStore{}
	svc := newTestService(&fakeGateway{}, subs, &fakePurchaseStore{}, &fakeEventLog{})

	err := svc.Process(context.Background(), evt(t, "customer.subscription.updated", map[string]any{
		"id": "sub_elsewhere",
	}))
	require.NoError(t, err)
	require.Empty(t, subs.upserts)
}

func TestProcess_SubscriptionDeletedCancelsButKeepsRow(t *testing.T) {
	subs := &fakeSubStore{bySubID: map[string]*models.Subscription{
		"sub_6": {UserID: "u6", StripeSubscriptionID: "sub_6", Status: types.SubscriptionStatusActive, PlanType: types.PlanTypeTeam},
	}}
	svc := newTestService(&fakeGateway{}, subs, &fakePurchaseStore{}, &fakeEventLog{})

	err := svc.Process(context.Background(), evt(t, "customer.subscription.deleted", map[string]any{
		"id": "sub_6",
	}))
	require.NoError(t, err)
	require.Len(t, subs.upserts, 1)
	require.Equal(t, types.SubscriptionStatusCanceled, subs.upserts[0].row.Status)
	require.Equal(t, types.PlanTypeFree, subs.upserts[0].row.PlanType)
	require.Equal(t, types.SubscriptionChangeReasonCanceled, subs.upserts[0].reason)
}

func TestProcess_ChargeFullyRefunded(t *testing.T) {
	p := &models.Purchase{ID: "p1", UserID: "u7", ContentID: "c7", PaymentIntentID: "pi_7"}
	purchases := &fakePurchaseStore{byIntent: map[string]*models.Purchase{"pi_7": p}}
	svc := newTestService(&fakeGateway{}, &fakeSubStore{}, purchases, &fakeEventLog{})

	err := svc.Process(context.Background(), evt(t, "charge.refunded", map[string]any{
		"id":             "ch_1",
		"payment_intent": "pi_7",
		"refunded":       true,
	}))
	require.NoError(t, err)
	require.Len(t, purchases.refunds, 1)
	require.True(t, purchases.refunds[0].full)
	require.Equal(t, "p1", purchases.refunds[0].p.ID)
}

func TestProcess_ChargePartiallyRefunded(t *testing.T) {
	p := &models.Purchase{ID: "p2", UserID: "u8", PaymentIntentID: "pi_8"}
	purchases := &fakePurchaseStore{byIntent: map[string]*models.Purchase{"pi_8": p}}
	svc := newTestService(&fakeGateway{}, &fakeSubStore{}, purchases, &fakeEventLog{})

	err := svc.Process(context.Background(), evt(t, "charge.refunded", map[string]any{
		"id":             "ch_2",
		"payment_intent": "pi_8",
		"refunded":       false,
	}))
	require.NoError(t, err)
	require.Len(t, purchases.refunds, 1)
	require.False(t, purchases.refunds[0].full)
}

func TestProcess_RefundWithoutPurchaseIsNoop(t *testing.T) {
	purchases := &fakePurchaseStore{}
	svc := newTestService(&fakeGateway{}, &fakeSubStore{}, purchases, &fakeEventLog{})

	err := svc.Process(context.Background(), evt(t, "charge.refunded", map[string]any{
		"id":             "ch_3",
		"payment_intent": "pi_unknown",
		"refunded":       true,
	}))
	require.NoError(t, err)
	require.Empty(t, purchases.refunds)
}

func TestProcess_UnknownEventTypeIsAccepted(t *testing.T) {
	events := &fakeEventLog{}
	svc := newTestService(&fakeGateway{}, &fakeSubStore{}, &fakePurchaseStore{}, events)

	err := svc.Process(context.Background(), evt(t, "customer.created", map[string]any{"id": "cus_9"}))
	require.NoError(t, err)
	require.Equal(t, 1, events.finished)
}
