package webhooklog

import "go.uber.org/fx"

// Module exposes the webhook event log service via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
