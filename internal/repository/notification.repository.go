package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dakar-humidity/alert-gateway/internal/model"
	"github.com/dakar-humidity/alert-gateway/pkg/pg"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// NotificationRepository persists notifications. Terminal fields are written
// once: UpdateTerminal only matches rows that are still pending.
type NotificationRepository struct {
	*pg.DB
}

func NewNotificationRepository(db *pg.DB) *NotificationRepository {
	return &NotificationRepository{
		db,
	}
}

func (r *NotificationRepository) Create(ctx context.Context, message, recipient string, typ model.NotificationType) (*model.Notification, error) {
	entity := &NotificationEntity{
		Message:          message,
		Recipient:        recipient,
		NotificationType: string(typ),
		Status:           string(model.NotificationStatusPending),
	}

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, fmt.Errorf("%w: create notification: %w", model.ErrStorage, err)
	}

	return toNotificationModel(entity), nil
}

// UpdateTerminal moves a pending notification to sent or failed. A second call
// on the same id fails with model.ErrAlreadyFinalized and changes nothing.
func (r *NotificationRepository) UpdateTerminal(ctx context.Context, id int64, u model.TerminalUpdate) (*model.Notification, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	var updated NotificationEntity
	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		res := r.Write(ctx).Model(&NotificationEntity{}).
			Where("id = ? AND status = ?", id, string(model.NotificationStatusPending)).
			Updates(map[string]any{
				"status":             string(u.Status),
				"provider_reference": u.ProviderReference,
				"error_detail":       u.ErrorDetail,
				"sent_at":            u.SentAt,
			})
		if res.Error != nil {
			return fmt.Errorf("%w: update notification %d: %w", model.ErrStorage, id, res.Error)
		}

		if err := r.Write(ctx).Where("id = ?", id).Take(&updated).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id=%d", model.ErrNotFound, id)
			}
			return fmt.Errorf("%w: reload notification %d: %w", model.ErrStorage, id, err)
		}

		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: id=%d status=%s", model.ErrAlreadyFinalized, id, updated.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toNotificationModel(&updated), nil
}

func (r *NotificationRepository) Get(ctx context.Context, id int64) (*model.Notification, error) {
	var entity NotificationEntity
	if err := r.Read(ctx).Where("id = ?", id).Take(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id=%d", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get notification %d: %w", model.ErrStorage, id, err)
	}
	return toNotificationModel(&entity), nil
}

// List returns one page of notifications, newest first, and the total number
// of rows matching the filter.
func (r *NotificationRepository) List(ctx context.Context, f model.NotificationFilter) ([]*model.Notification, int64, error) {
	q := r.Read(ctx).Model(&NotificationEntity{})

	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}

	// Count before pagination
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: count notifications: %w", model.ErrStorage, err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*NotificationEntity
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: list notifications: %w", model.ErrStorage, err)
	}

	return toNotificationModels(entities), total, nil
}
