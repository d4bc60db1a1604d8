package marketplace

import (
	"context"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/swapspot/swapspot/internal/db"
	apperrors "github.com/swapspot/swapspot/internal/errors"
)

const (
	NotificationTypeTradeProposal = "TRADE_PROPOSAL"
	NotificationTypeTradeUpdate   = "TRADE_UPDATE"
	NotificationTypeTradeComplete = "TRADE_COMPLETE"
	NotificationTypeModeration    = "MODERATION"
)

type notificationStore interface {
	InsertNotification(ctx context.Context, n *db.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]*db.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int64, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

type Notifications struct {
	store  notificationStore
	logger *log.Entry
}

func NewNotifications(store notificationStore) *Notifications {
	return &Notifications{
		store:  store,
		logger: log.WithField("object", "Notifications"),
	}
}

// Notify stores a notification. Failures are returned but callers on hot
// paths may choose to log and continue; a missed notification must not fail
// the action that caused it.
func (n *Notifications) Notify(ctx context.Context, userID, title, message, kind string, data db.DataMap) (*db.Notification, error) {
	notification := &db.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    kind,
		Data:    data,
	}
	if err := n.store.InsertNotification(ctx, notification); err != nil {
		return nil, apperrors.WrapStore("insert notification", err)
	}
	return notification, nil
}

func (n *Notifications) List(ctx context.Context, userID string, limit int) ([]*db.Notification, error) {
	notifications, err := n.store.ListNotifications(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.WrapStore("list notifications", err)
	}
	return notifications, nil
}

func (n *Notifications) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := n.store.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, apperrors.WrapStore("count unread notifications", err)
	}
	return count, nil
}

func (n *Notifications) MarkRead(ctx context.Context, id string) error {
	if err := n.store.MarkNotificationRead(ctx, id); err != nil {
		return apperrors.WrapStore("mark notification read", err)
	}
	return nil
}
