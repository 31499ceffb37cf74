package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vibestack/billing/internal/app/service/purchase"
	subsvc "github.com/vibestack/billing/internal/app/service/subscription"
	"github.com/vibestack/billing/internal/app/service/webhooklog"
	"github.com/vibestack/billing/pkg/response"
)

// @Summary      Scan purchases
// @Description  Filtered, paginated purchase listing for the back-office.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body purchase.ScanPurchasesRequest true "Scan request"
// @Success      200  {object}  response.APIResponse[purchase.ScanPurchasesResponse]
// @Router       /api/v1/admin/purchase/scan [post]
func ApiAdminScanPurchases(purchases *purchase.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req purchase.ScanPurchasesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := purchases.Scan(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get subscription
// @Description  Returns a user's subscription row, or null when none exists.
// @Tags         Admin
// @Produce      json
// @Param        user_id query string true "User id"
// @Success      200  {object}  response.APIResponse[models.Subscription]
// @Router       /api/v1/admin/subscription [get]
func ApiAdminGetSubscription(subs *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		sub, err := subs.GetByUserID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      List webhook events
// @Description  Returns recent gateway events attributed to a user, newest first.
// @Tags         Admin
// @Produce      json
// @Param        user_id query string true "User id"
// @Param        limit   query int    false "Max rows (default 50)"
// @Success      200  {object}  response.APIResponse[[]models.WebhookEvent]
// @Router       /api/v1/admin/webhook_events [get]
func ApiAdminListWebhookEvents(events *webhooklog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		limit := 0
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		rows, err := events.ListByUser(c.Request.Context(), userID, limit)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

func RegisterAdminRoutes(r gin.IRouter, purchases *purchase.Service, subs *subsvc.Service, events *webhooklog.Service) {
	r.POST("/purchase/scan", ApiAdminScanPurchases(purchases))
	r.GET("/subscription", ApiAdminGetSubscription(subs))
	r.GET("/webhook_events", ApiAdminListWebhookEvents(events))
}
