package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"splitledger/internal/events"
	"splitledger/internal/logger"
	"splitledger/internal/models"
	"splitledger/internal/pagination"
	"splitledger/internal/testutil"
)

// recordingPublisher captures published messages and can be told to fail.
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*events.NotificationMessage
	err  error
}

func (p *recordingPublisher) PublishNotification(_ context.Context, msg *events.NotificationMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestEmitBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("stores_unread_and_publishes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		pub := &recordingPublisher{}
		svc := NewNotificationService(db, pub)
		bob := testutil.CreateTestUser(t, db)
		carol := testutil.CreateTestUser(t, db)

		err := svc.EmitBatch(ctx, []NotificationInput{
			{UserID: bob.ID, Message: "first", Kind: models.NotificationReminder},
			{UserID: carol.ID, Message: "second", Kind: models.NotificationAlert},
		})
		testutil.AssertNoError(t, err)

		var stored []models.Notification
		if err := db.Order("message ASC").Find(&stored).Error; err != nil {
			t.Fatalf("failed to load notifications: %v", err)
		}
		if len(stored) != 2 {
			t.Fatalf("expected 2 notifications, got %d", len(stored))
		}
		for _, n := range stored {
			if n.Read {
				t.Errorf("notification %q should start unread", n.Message)
			}
		}
		if len(pub.msgs) != 2 {
			t.Fatalf("expected 2 published messages, got %d", len(pub.msgs))
		}
		if pub.msgs[1].RoutingKey() != "notification.alert" {
			t.Errorf("expected routing key notification.alert, got %s", pub.msgs[1].RoutingKey())
		}
	})

	t.Run("empty_batch_is_noop", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewNotificationService(db, nil)

		testutil.AssertNoError(t, svc.EmitBatch(ctx, nil))
	})

	t.Run("rejects_unknown_kind", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewNotificationService(db, nil)
		user := testutil.CreateTestUser(t, db)

		err := svc.Emit(ctx, NotificationInput{UserID: user.ID, Message: "hi", Kind: "sms"})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("publish_failure_is_logged_not_returned", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		core, logs := observer.New(zap.ErrorLevel)
		defer logger.Replace(zap.New(core))()

		svc := NewNotificationService(db, &recordingPublisher{err: errors.New("broker down")})
		user := testutil.CreateTestUser(t, db)

		err := svc.Emit(ctx, NotificationInput{UserID: user.ID, Message: "hi", Kind: models.NotificationReminder})
		testutil.AssertNoError(t, err)

		if n := logs.FilterMessage("failed to publish notification").Len(); n != 1 {
			t.Errorf("expected 1 publish failure log, got %d", n)
		}
		count, err := svc.GetUnreadCount(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if count != 1 {
			t.Errorf("expected the notification to be stored, unread count %d", count)
		}
	})
}

func TestGetUserNotifications(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewNotificationService(db, nil)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)

	for _, msg := range []string{"one", "two", "three"} {
		testutil.AssertNoError(t, svc.Emit(ctx, NotificationInput{UserID: user.ID, Message: msg, Kind: models.NotificationReminder}))
	}
	testutil.AssertNoError(t, svc.Emit(ctx, NotificationInput{UserID: other.ID, Message: "not yours", Kind: models.NotificationAlert}))

	result, err := svc.GetUserNotifications(ctx, user.ID, pagination.PageRequest{Page: 1, PageSize: 2})
	testutil.AssertNoError(t, err)

	if result.TotalItems != 3 {
		t.Errorf("expected 3 notifications, got %d", result.TotalItems)
	}
	if result.TotalPages != 2 {
		t.Errorf("expected 2 pages, got %d", result.TotalPages)
	}
	if len(result.Data) != 2 || result.Data[0].Message != "three" {
		t.Errorf("expected newest first, got %+v", result.Data)
	}
}

func TestMarkAsRead(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (NotificationServicer, *models.User, *models.Notification, func()) {
		db := testutil.SetupTestDB(t)
		svc := NewNotificationService(db, nil)
		user := testutil.CreateTestUser(t, db)
		testutil.AssertNoError(t, svc.Emit(ctx, NotificationInput{UserID: user.ID, Message: "hi", Kind: models.NotificationAlert}))
		var n models.Notification
		if err := db.First(&n).Error; err != nil {
			t.Fatalf("failed to load notification: %v", err)
		}
		return svc, user, &n, func() { testutil.TeardownTestDB(t, db) }
	}

	t.Run("owner_marks_read", func(t *testing.T) {
		svc, user, n, done := setup(t)
		defer done()

		got, err := svc.MarkAsRead(ctx, user.ID, n.ID)
		testutil.AssertNoError(t, err)
		if !got.Read {
			t.Error("expected notification to be read")
		}

		count, err := svc.GetUnreadCount(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if count != 0 {
			t.Errorf("expected 0 unread, got %d", count)
		}

		// second call is a no-op
		_, err = svc.MarkAsRead(ctx, user.ID, n.ID)
		testutil.AssertNoError(t, err)
	})

	t.Run("other_user_not_found", func(t *testing.T) {
		svc, _, n, done := setup(t)
		defer done()

		_, err := svc.MarkAsRead(ctx, "01900000-0000-7000-8000-000000000000", n.ID)
		testutil.AssertAppError(t, err, "NOTIFICATION_NOT_FOUND")
	})
}
