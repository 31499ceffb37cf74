package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/vibestack/billing/internal/app/api/server"
	"github.com/vibestack/billing/internal/app/service/purchase"
	"github.com/vibestack/billing/internal/app/service/reconciler"
	"github.com/vibestack/billing/internal/app/service/subscription"
	"github.com/vibestack/billing/internal/app/service/webhooklog"
	"github.com/vibestack/billing/internal/platform/db"
	"github.com/vibestack/billing/internal/platform/stripegw"
	"github.com/vibestack/billing/internal/platform/tossgw"
	"github.com/vibestack/billing/pkg/config"
	"github.com/vibestack/billing/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	stripegw.Module,
	tossgw.Module,
	server.Module,
	subscription.Module,
	purchase.Module,
	webhooklog.Module,
	reconciler.Module,
)
