package webhooklog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vibestack/billing/internal/models"
	"github.com/vibestack/billing/pkg/logctx"
	"github.com/vibestack/billing/pkg/tool"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Begin records an incoming gateway event before any processing. It returns
// duplicate=true when the (provider, event id) pair was already recorded as
// received or handled, in which case the caller must skip processing: delivery
// retries of an already applied event are acknowledged without side effects.
// A row left in handle_failed marks an attempt whose mutations did not apply,
// so its redelivery is reset to received and processed again.
//
// The insert is synchronous on purpose; this row is the idempotency key.
func (s *Service) Begin(ctx context.Context, provider, eventID, eventType string, payload []byte) (duplicate bool, err error) {
	row := &models.WebhookEvent{
		ID:              tool.GenerateUUIDV7(),
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       eventType,
		Data:            datatypes.JSON(payload),
		Status:          models.WebhookEventStatusReceived,
	}
	if tid, ok := ctx.Value("traceID").(string); ok {
		row.TraceID = tid
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, fmt.Errorf("failed to record webhook event: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	// The status guard keeps concurrent redeliveries from both claiming the
	// retry: only one update flips handle_failed back to received.
	claim := s.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ? AND status = ?",
			provider, eventID, models.WebhookEventStatusHandleFailed).
		UpdateColumn("status", models.WebhookEventStatusReceived)
	if claim.Error != nil {
		return false, fmt.Errorf("failed to reclaim webhook event: %w", claim.Error)
	}
	return claim.RowsAffected == 0, nil
}

// Finish updates the event row with the processing outcome. Errors are logged
// but not surfaced: the outcome of the mutation handlers, not of this audit
// write, decides the HTTP response.
func (s *Service) Finish(ctx context.Context, provider, eventID, userID string, procErr error) {
	go func() {
		status := models.WebhookEventStatusHandled
		resMap := map[string]any{}
		if procErr != nil {
			status = models.WebhookEventStatusHandleFailed
			resMap["error"] = procErr.Error()
		}
		resBytes, _ := json.Marshal(resMap)
		result := datatypes.JSON(resBytes)

		updates := map[string]any{
			"status": status,
			"result": result,
		}
		if userID != "" {
			updates["user_id"] = lo.ToPtr(userID)
		}

		if err := s.db.Model(&models.WebhookEvent{}).
			Where("provider = ? AND provider_event_id = ?", provider, eventID).
			Updates(updates).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to update webhook event log: %v", err)
		}
	}()
}

// ListByUser returns the most recent events attributed to a user, newest
// first. Used by the admin API.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*models.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []*models.WebhookEvent
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
