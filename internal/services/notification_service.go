package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	apperrors "splitledger/internal/errors"
	"splitledger/internal/events"
	"splitledger/internal/logger"
	"splitledger/internal/metrics"
	"splitledger/internal/models"
	"splitledger/internal/pagination"
)

const notificationBatchSize = 100

// notificationService stores notifications and fans them out.
type notificationService struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewNotificationService creates a new NotificationServicer. A nil publisher
// disables fan-out.
func NewNotificationService(db *gorm.DB, publisher events.Publisher) NotificationServicer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &notificationService{db: db, publisher: publisher}
}

// Emit stores a single notification.
func (s *notificationService) Emit(ctx context.Context, in NotificationInput) error {
	return s.EmitBatch(ctx, []NotificationInput{in})
}

// EmitBatch stores every notification in one insert, unread, then offers each
// to the publisher. Publish failures are logged and dropped.
func (s *notificationService) EmitBatch(ctx context.Context, batch []NotificationInput) error {
	if len(batch) == 0 {
		return nil
	}

	rows := make([]models.Notification, 0, len(batch))
	for _, in := range batch {
		if in.UserID == "" || strings.TrimSpace(in.Message) == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "notification needs a user and a message")
		}
		if in.Kind != models.NotificationReminder && in.Kind != models.NotificationAlert {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown notification kind")
		}
		rows = append(rows, models.Notification{UserID: in.UserID, Message: in.Message, Kind: in.Kind})
	}

	if err := s.db.WithContext(ctx).CreateInBatches(&rows, notificationBatchSize).Error; err != nil {
		metrics.NotificationFailures.WithLabelValues("store").Inc()
		return storeErr(err, nil, nil)
	}

	for i := range rows {
		metrics.NotificationsEmitted.WithLabelValues(string(rows[i].Kind)).Inc()
		s.publish(ctx, &rows[i])
	}
	return nil
}

func (s *notificationService) publish(ctx context.Context, n *models.Notification) {
	msg := &events.NotificationMessage{
		ID:        n.ID,
		UserID:    n.UserID,
		Kind:      string(n.Kind),
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
	if err := s.publisher.PublishNotification(ctx, msg); err != nil {
		metrics.NotificationFailures.WithLabelValues("publish").Inc()
		logger.Get().Errorw("failed to publish notification",
			"error", err,
			"notification_id", n.ID,
			"user_id", n.UserID,
		)
	}
}

// GetUserNotifications returns the user's notifications, newest first.
func (s *notificationService) GetUserNotifications(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Notification], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, storeErr(err, nil, nil)
	}

	var notifications []models.Notification
	err := base.Order("created_at DESC").Order("id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&notifications).Error
	if err != nil {
		return nil, storeErr(err, nil, nil)
	}

	result := pagination.NewPageResponse(notifications, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetUnreadCount counts the user's unread notifications.
func (s *notificationService) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, storeErr(err, nil, nil)
	}
	return count, nil
}

// MarkAsRead flips read to true. Marking an already read notification is a no-op.
func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	var n models.Notification
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&n).Error
	if err != nil {
		return nil, storeErr(err, apperrors.ErrNotificationNotFound, nil)
	}
	if n.Read {
		return &n, nil
	}

	if err := s.db.WithContext(ctx).Model(&n).Update("read", true).Error; err != nil {
		return nil, storeErr(err, nil, nil)
	}
	n.Read = true
	return &n, nil
}
