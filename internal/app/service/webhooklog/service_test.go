package webhooklog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vibestack/billing/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.WebhookEvent{}))
	return db
}

func eventStatus(t *testing.T, db *gorm.DB, provider, eventID string) models.WebhookEventStatus {
	t.Helper()
	var row models.WebhookEvent
	require.NoError(t, db.Where("provider = ? AND provider_event_id = ?", provider, eventID).First(&row).Error)
	return row.Status
}

func waitForStatus(t *testing.T, db *gorm.DB, provider, eventID string, want models.WebhookEventStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		return eventStatus(t, db, provider, eventID) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBegin_FirstDeliveryIsNotDuplicate(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, zap.NewNop().Sugar())

	dup, err := svc.Begin(context.Background(), "stripe", "evt_1", "checkout.session.completed", []byte(`{}`))
	require.NoError(t, err)
	require.False(t, dup)
	require.Equal(t, models.WebhookEventStatusReceived, eventStatus(t, db, "stripe", "evt_1"))
}

func TestBegin_HandledEventIsDuplicate(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, zap.NewNop().Sugar())
	ctx := context.Background()

	dup, err := svc.Begin(ctx, "stripe", "evt_1", "checkout.session.completed", []byte(`{}`))
	require.NoError(t, err)
	require.False(t, dup)

	svc.Finish(ctx, "stripe", "evt_1", "u1", nil)
	waitForStatus(t, db, "stripe", "evt_1", models.WebhookEventStatusHandled)

	dup, err = svc.Begin(ctx, "stripe", "evt_1", "checkout.session.completed", []byte(`{}`))
	require.NoError(t, err)
	require.True(t, dup)
}

func TestBegin_InFlightEventIsDuplicate(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, zap.NewNop().Sugar())
	ctx := context.Background()

	dup, err := svc.Begin(ctx, "stripe", "evt_1", "invoice.payment_succeeded", []byte(`{}`))
	require.NoError(t, err)
	require.False(t, dup)

	dup, err = svc.Begin(ctx, "stripe", "evt_1", "invoice.payment_succeeded", []byte(`{}`))
	require.NoError(t, err)
	require.True(t, dup)
	require.Equal(t, models.WebhookEventStatusReceived, eventStatus(t, db, "stripe", "evt_1"))
}

// A delivery whose handler failed must be reprocessed when the gateway
// redelivers it; only a successful attempt seals the event.
func TestBegin_FailedEventIsReprocessedOnRedelivery(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, zap.NewNop().Sugar())
	ctx := context.Background()

	dup, err := svc.Begin(ctx, "stripe", "evt_1", "checkout.session.completed", []byte(`{}`))
	require.NoError(t, err)
	require.False(t, dup)

	svc.Finish(ctx, "stripe", "evt_1", "", errors.New("connection refused"))
	waitForStatus(t, db, "stripe", "evt_1", models.WebhookEventStatusHandleFailed)

	dup, err = svc.Begin(ctx, "stripe", "evt_1", "checkout.session.completed", []byte(`{}`))
	require.NoError(t, err)
	require.False(t, dup)
	require.Equal(t, models.WebhookEventStatusReceived, eventStatus(t, db, "stripe", "evt_1"))

	svc.Finish(ctx, "stripe", "evt_1", "u1", nil)
	waitForStatus(t, db, "stripe", "evt_1", models.WebhookEventStatusHandled)

	dup, err = svc.Begin(ctx, "stripe", "evt_1", "checkout.session.completed", []byte(`{}`))
	require.NoError(t, err)
	require.True(t, dup)
}

func TestFinish_AttributesUser(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, zap.NewNop().Sugar())
	ctx := context.Background()

	_, err := svc.Begin(ctx, "stripe", "evt_1", "charge.refunded", []byte(`{}`))
	require.NoError(t, err)
	svc.Finish(ctx, "stripe", "evt_1", "u9", nil)
	waitForStatus(t, db, "stripe", "evt_1", models.WebhookEventStatusHandled)

	rows, err := svc.ListByUser(ctx, "u9", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "evt_1", rows[0].ProviderEventID)
}
