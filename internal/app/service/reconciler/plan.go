package reconciler

import (
	"time"

	"github.com/stripe/stripe-go/v79"

	"github.com/vibestack/billing/pkg/types"
)

// subscriptionPeriodFallback keeps a row from ever lacking an expiry when the
// gateway omits the period end.
const subscriptionPeriodFallback = 30 * 24 * time.Hour

// classifyPlan derives the plan tier from the first line item's price id.
// Team price ids are configured per currency; everything else is pro.
func (s *Service) classifyPlan(sub *stripe.Subscription) types.PlanType {
	if sub != nil && sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item != nil && item.Price != nil && s.cfg.IsTeamPrice(item.Price.ID) {
			return types.PlanTypeTeam
		}
	}
	return types.PlanTypePro
}

func unixTimePtr(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0)
	return &t
}

func periodEndOrDefault(ts int64) time.Time {
	if ts > 0 {
		return time.Unix(ts, 0)
	}
	return time.Now().Add(subscriptionPeriodFallback)
}
