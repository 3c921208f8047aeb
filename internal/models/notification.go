package models

// NotificationKind separates gentle reminders from budget alerts.
type NotificationKind string

const (
	NotificationReminder NotificationKind = "reminder"
	NotificationAlert    NotificationKind = "alert"
)

// Notification is an append-only message for one user. Read only moves from
// false to true.
type Notification struct {
	Base
	UserID  string           `gorm:"type:uuid;not null;index:idx_notification_user_read" json:"user_id"`
	Message string           `gorm:"not null" json:"message"`
	Kind    NotificationKind `gorm:"type:varchar(16);not null" json:"kind"`
	Read    bool             `gorm:"not null;index:idx_notification_user_read" json:"read"`
}
