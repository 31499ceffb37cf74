package subscription

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vibestack/billing/internal/models"
	"github.com/vibestack/billing/pkg/logctx"
	"github.com/vibestack/billing/pkg/tool"
	"github.com/vibestack/billing/pkg/types"
)

// Service owns the subscriptions table: one logical row per user, keyed on
// user_id. Every write goes through Upsert so the unique constraint and the
// audit log are applied uniformly.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// Upsert writes the subscription row for m.UserID, creating it if absent.
// Fields not set on m keep their zero value in the stored row, so callers
// load-and-modify via the Find helpers when they only change some fields.
func (s *Service) Upsert(ctx context.Context, m *models.Subscription, reason types.SubscriptionChangeReason) error {
	var original models.Subscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", m.UserID).First(&original).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to get original subscription: %w", err)
		}
	}

	if original.ID != "" {
		m.ID = original.ID
		m.CreatedAt = original.CreatedAt
		// Save writes every column; callers building a fresh row from gateway
		// data must not wipe the stored extra payload.
		if len(m.Extra) == 0 {
			m.Extra = original.Extra
		}
	} else if m.ID == "" {
		m.ID = tool.GenerateUUIDV7()
	}

	before := func() *models.Subscription {
		if original.ID == "" {
			return nil
		}
		cp := original
		return &cp
	}()

	if err := s.db.WithContext(ctx).Save(m).Error; err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	// async audit log
	go func(b *models.Subscription, a *models.Subscription) {
		entry := &models.SubscriptionLog{
			ID:     tool.GenerateUUIDV7(),
			UserID: a.UserID,
			Reason: reason,
			Before: datatypes.NewJSONType(b),
			After:  datatypes.NewJSONType(a),
			Extra:  datatypes.JSONMap{},
		}
		if err := s.db.Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}(before, m)

	return nil
}

// GetByUserID returns the user's subscription row, or nil when none exists.
func (s *Service) GetByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	return s.findOne(ctx, "user_id = ?", userID)
}

// FindByCustomerID resolves the owning subscription by the gateway customer
// id. Returns nil (no error) when no row matches; callers treat that as an
// unattributable event.
func (s *Service) FindByCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	return s.findOne(ctx, "stripe_customer_id = ?", customerID)
}

// FindBySubscriptionID resolves the owning subscription by the gateway
// subscription id. Returns nil (no error) when no row matches.
func (s *Service) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	return s.findOne(ctx, "stripe_subscription_id = ?", subscriptionID)
}

func (s *Service) findOne(ctx context.Context, query string, arg string) (*models.Subscription, error) {
	if arg == "" {
		return nil, nil
	}
	var m models.Subscription
	if err := s.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}
	return &m, nil
}
