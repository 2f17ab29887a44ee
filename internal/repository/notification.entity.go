package repository

import (
	"time"

	"github.com/dakar-humidity/alert-gateway/internal/model"
)

type NotificationEntity struct {
	ID                int64      `db:"id"                 gorm:"primaryKey;autoIncrement;column:id"`
	Message           string     `db:"message"            gorm:"column:message;type:text;not null"`
	Recipient         string     `db:"recipient"          gorm:"column:recipient;size:50;not null;index"`
	NotificationType  string     `db:"notification_type"  gorm:"column:notification_type;size:20;not null"`
	Status            string     `db:"status"             gorm:"column:status;size:20;not null;index;check:notifications_outcome_check,(status = 'pending' AND provider_reference IS NULL AND error_detail IS NULL AND sent_at IS NULL) OR (status = 'sent' AND provider_reference IS NOT NULL AND error_detail IS NULL) OR (status = 'failed' AND provider_reference IS NULL AND error_detail IS NOT NULL AND sent_at IS NULL)"`
	ProviderReference *string    `db:"provider_reference" gorm:"column:provider_reference;size:100;index"`
	ErrorDetail       *string    `db:"error_detail"       gorm:"column:error_detail;type:text"`
	CreatedAt         time.Time  `db:"created_at"         gorm:"column:created_at;autoCreateTime;index"`
	SentAt            *time.Time `db:"sent_at"            gorm:"column:sent_at"`
}

func (NotificationEntity) TableName() string {
	return "notifications"
}

func toNotificationModel(e *NotificationEntity) *model.Notification {
	if e == nil {
		return nil
	}
	return &model.Notification{
		ID:                e.ID,
		Message:           e.Message,
		Recipient:         e.Recipient,
		NotificationType:  model.NotificationType(e.NotificationType),
		Status:            model.NotificationStatus(e.Status),
		ProviderReference: e.ProviderReference,
		ErrorDetail:       e.ErrorDetail,
		CreatedAt:         e.CreatedAt,
		SentAt:            e.SentAt,
	}
}

func toNotificationModels(entities []*NotificationEntity) []*model.Notification {
	models := make([]*model.Notification, len(entities))
	for i, e := range entities {
		models[i] = toNotificationModel(e)
	}
	return models
}
