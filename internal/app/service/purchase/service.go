package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vibestack/billing/internal/models"
	"github.com/vibestack/billing/pkg/logctx"
	"github.com/vibestack/billing/pkg/tool"
	"github.com/vibestack/billing/pkg/types"
)

// Service owns the purchases and user_contents tables plus the credits column
// on users. The three writes of a completed single purchase are one database
// transaction: a paid purchase can never exist without its access grant.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// RecordSinglePurchase inserts the purchase row, grants content access and
// credits the user's ledger, all in one transaction. A conflicting
// payment-intent id means the purchase was already applied (gateway replay):
// the whole set of writes is skipped and nil is returned.
func (s *Service) RecordSinglePurchase(ctx context.Context, p *models.Purchase) error {
	if p.UserID == "" || p.ContentID == "" {
		return fmt.Errorf("purchase requires user_id and content_id")
	}
	// An empty intent id would collide on the unique index with every other
	// empty-intent purchase and be swallowed as a replay.
	if p.PaymentIntentID == "" {
		return fmt.Errorf("purchase requires payment_intent_id")
	}
	if p.ID == "" {
		p.ID = tool.GenerateUUIDV7()
	}
	p.Status = types.PurchaseStatusCompleted

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_intent_id"}},
			DoNothing: true,
		}).Create(p)
		if res.Error != nil {
			return fmt.Errorf("failed to insert purchase: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			logctx.FromCtx(ctx, s.log).Warnw("purchase_replayed",
				"payment_intent_id", p.PaymentIntentID, "user_id", p.UserID)
			return nil
		}

		grant := &models.UserContent{
			ID:         tool.GenerateUUIDV7(),
			UserID:     p.UserID,
			ContentID:  p.ContentID,
			AccessType: types.AccessTypePurchased,
			GrantedAt:  time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "content_id"}},
			DoNothing: true,
		}).Create(grant).Error; err != nil {
			return fmt.Errorf("failed to grant content access: %w", err)
		}

		// amount is in minor units; the credits ledger is in major units.
		credit := float64(p.Amount) / 100
		if err := tx.Model(&models.User{}).
			Where("clerk_user_id = ?", p.UserID).
			UpdateColumn("purchase_credits", gorm.Expr("purchase_credits + ?", credit)).Error; err != nil {
			return fmt.Errorf("failed to increment purchase credits: %w", err)
		}

		return nil
	})
}

// FindByPaymentIntent returns the purchase correlated to a gateway payment
// intent, or nil when none exists.
func (s *Service) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Purchase, error) {
	if paymentIntentID == "" {
		return nil, nil
	}
	var p models.Purchase
	if err := s.db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query purchase: %w", err)
	}
	return &p, nil
}

// ApplyRefund transitions the purchase status and, on a full refund, revokes
// the content access grant. Partial refunds keep the grant.
func (s *Service) ApplyRefund(ctx context.Context, p *models.Purchase, full bool) error {
	now := time.Now()
	status := types.PurchaseStatusPartiallyRefunded
	if full {
		status = types.PurchaseStatusRefunded
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Purchase{}).
			Where("id = ?", p.ID).
			Updates(map[string]any{"status": status, "refunded_at": now}).Error; err != nil {
			return fmt.Errorf("failed to update purchase status: %w", err)
		}

		if !full {
			return nil
		}

		if err := tx.Where("user_id = ? AND content_id = ? AND access_type = ?",
			p.UserID, p.ContentID, types.AccessTypePurchased).
			Delete(&models.UserContent{}).Error; err != nil {
			return fmt.Errorf("failed to revoke content access: %w", err)
		}
		return nil
	})
}

type ScanPurchasesRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPurchasesResponse struct {
	Items []*models.Purchase `json:"items"`
	Total int64              `json:"total"`
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// Scan implements paginated admin listing with filters.
func (s *Service) Scan(ctx context.Context, req *ScanPurchasesRequest) (*ScanPurchasesResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Purchase{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count purchases: %w", err)
	}

	var rows []*models.Purchase
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}

	return &ScanPurchasesResponse{Items: rows, Total: total}, nil
}
