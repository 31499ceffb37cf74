package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/vibestack/billing/internal/app/service/reconciler"
	cfgpkg "github.com/vibestack/billing/pkg/config"
	"github.com/vibestack/billing/pkg/logctx"
)

const webhookBodyLimit = 1 << 20 // 1MiB, Stripe events are far smaller

// @Summary      Stripe Webhook
// @Description  Receives signed Stripe events and reconciles subscriptions, purchases and credits.
// @Tags         Webhook
// @Accept       json
// @Produce      plain
// @Param        Stripe-Signature header string true "Stripe signature header"
// @Success      200  {string}  string  ""
// @Failure      400  {string}  string  "Webhook Error: <message>"
// @Failure      500  {string}  string  "Webhook handler error"
// @Router       /api/stripe/webhook [post]
// ApiStripeWebhook verifies the event signature against the raw body before
// any payload field is interpreted. Responses follow the gateway contract:
// 400 is never retried, 500 triggers redelivery.
func ApiStripeWebhook(rec reconciler.Reconciler, cfg *cfgpkg.Config, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
		if err != nil {
			logctx.FromGin(c, log).Errorw("webhook_body_read_failed", "error", err.Error())
			c.String(http.StatusBadRequest, "Webhook Error: failed to read body")
			return
		}

		sigHeader := c.GetHeader("Stripe-Signature")
		event, err := webhook.ConstructEventWithOptions(
			body,
			sigHeader,
			cfg.Stripe.WebhookSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
		)
		if err != nil {
			logctx.FromGin(c, log).Warnw("webhook_signature_invalid", "error", err.Error())
			c.String(http.StatusBadRequest, "Webhook Error: "+err.Error())
			return
		}

		logctx.FromGin(c, log).Infow("webhook_stripe_received", "event_id", event.ID, "type", event.Type)

		if err := rec.Process(c.Request.Context(), &event); err != nil {
			logctx.FromGin(c, log).Errorw("webhook_stripe_handle_error", "event_id", event.ID, "error", err.Error())
			c.String(http.StatusInternalServerError, "Webhook handler error")
			return
		}
		c.Status(http.StatusOK)
	}
}
