package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vibestack/billing/internal/app/service/purchase"
	"github.com/vibestack/billing/internal/models"
	"github.com/vibestack/billing/internal/platform/tossgw"
	"github.com/vibestack/billing/pkg/logctx"
	"github.com/vibestack/billing/pkg/response"
	"github.com/vibestack/billing/pkg/types"
)

type tossCheckoutRequest struct {
	PaymentKey string `json:"payment_key" binding:"required"`
	OrderID    string `json:"order_id" binding:"required"`
	Amount     int64  `json:"amount" binding:"required"`
	UserID     string `json:"user_id" binding:"required"`
	ContentID  string `json:"content_id" binding:"required"`
}

// @Summary      Toss Checkout Confirmation
// @Description  Confirms an approved Toss payment and records the purchase, access grant and credits.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body handlers.tossCheckoutRequest true "Checkout confirmation request"
// @Success      200  {object}  response.APIResponse[models.Purchase]
// @Router       /api/toss/checkout [post]
func ApiTossCheckout(toss *tossgw.Client, purchases *purchase.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req tossCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		payment, err := toss.ConfirmPayment(c.Request.Context(), req.PaymentKey, req.OrderID, req.Amount)
		if err != nil {
			logctx.FromGin(c, log).Errorw("toss_confirm_failed", "order_id", req.OrderID, "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if !strings.EqualFold(payment.Status, "DONE") {
			logctx.FromGin(c, log).Warnw("toss_payment_not_done", "order_id", req.OrderID, "status", payment.Status)
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "payment not completed"))
			return
		}

		p := &models.Purchase{
			UserID:    req.UserID,
			ContentID: req.ContentID,
			Provider:  types.PaymentProviderToss,
			// Toss has no separate intent id; the payment key fills both
			// correlation columns.
			PaymentIntentID:   payment.PaymentKey,
			CheckoutSessionID: payment.OrderID,
			Amount:            payment.TotalAmount,
			Currency:          payment.Currency,
		}
		if err := purchases.RecordSinglePurchase(c.Request.Context(), p); err != nil {
			logctx.FromGin(c, log).Errorw("toss_purchase_record_failed", "order_id", req.OrderID, "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		c.JSON(http.StatusOK, response.OKT(p))
	}
}
