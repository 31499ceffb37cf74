package reconciler

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/vibestack/billing/internal/app/service/purchase"
	"github.com/vibestack/billing/internal/app/service/subscription"
	"github.com/vibestack/billing/internal/app/service/webhooklog"
	"github.com/vibestack/billing/internal/platform/stripegw"
	"github.com/vibestack/billing/pkg/config"
)

// Module exposes the reconciler via Fx, binding the concrete platform and
// service types to the narrow interfaces the reconciler consumes.
var Module = fx.Options(
	fx.Provide(func(
		cfg *config.Config,
		log *zap.SugaredLogger,
		gw *stripegw.Client,
		subs *subscription.Service,
		purchases *purchase.Service,
		events *webhooklog.Service,
	) Reconciler {
		return NewService(cfg, log, gw, subs, purchases, events)
	}),
)
