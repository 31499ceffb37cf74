package reconciler

import (
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vibestack/billing/pkg/types"
)

func planService() *Service {
	return NewService(testConfig(), zap.NewNop().Sugar(), nil, nil, nil, nil)
}

func TestClassifyPlan_TeamPriceID(t *testing.T) {
	sub := &stripe.Subscription{Items: &stripe.SubscriptionItemList{
		Data: []*stripe.SubscriptionItem{{Price: &stripe.Price{ID: "price_team_krw"}}},
	}}
	require.Equal(t, types.PlanTypeTeam, planService().classifyPlan(sub))
}

func TestClassifyPlan_DefaultsToPro(t *testing.T) {
	svc := planService()

	sub := &stripe.Subscription{Items: &stripe.SubscriptionItemList{
		Data: []*stripe.SubscriptionItem{{Price: &stripe.Price{ID: "price_pro_usd"}}},
	}}
	require.Equal(t, types.PlanTypePro, svc.classifyPlan(sub))

	// no items at all
	require.Equal(t, types.PlanTypePro, svc.classifyPlan(&stripe.Subscription{}))
	require.Equal(t, types.PlanTypePro, svc.classifyPlan(nil))
}

func TestPeriodEndOrDefault(t *testing.T) {
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	require.Equal(t, time.Unix(ts, 0), periodEndOrDefault(ts))

	fallback := periodEndOrDefault(0)
	require.WithinDuration(t, time.Now().Add(30*24*time.Hour), fallback, time.Minute)
}

func TestUnixTimePtr(t *testing.T) {
	require.Nil(t, unixTimePtr(0))
	require.Nil(t, unixTimePtr(-1))

	ts := int64(1735689600)
	got := unixTimePtr(ts)
	require.NotNil(t, got)
	require.Equal(t, time.Unix(ts, 0), *got)
}
