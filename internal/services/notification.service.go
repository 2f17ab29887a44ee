package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	gateway "github.com/dakar-humidity/alert-gateway/internal/gateways"
	"github.com/dakar-humidity/alert-gateway/internal/model"
	"github.com/dakar-humidity/alert-gateway/pkg/logger"
	"github.com/dakar-humidity/alert-gateway/pkg/prom"
)

const DefaultSendTimeout = 15 * time.Second

const emptyReferenceDetail = "provider returned empty reference"

type NotificationRepository interface {
	Create(ctx context.Context, message, recipient string, typ model.NotificationType) (*model.Notification, error)
	UpdateTerminal(ctx context.Context, id int64, u model.TerminalUpdate) (*model.Notification, error)
	Get(ctx context.Context, id int64) (*model.Notification, error)
	List(ctx context.Context, f model.NotificationFilter) ([]*model.Notification, int64, error) // results, totalCount
}

type ChannelResolver interface {
	Resolve(t model.NotificationType) (gateway.Channel, error)
}

// NotificationService is the only writer of a notification's terminal state.
type NotificationService struct {
	repo        NotificationRepository
	channels    ChannelResolver
	sendTimeout time.Duration
	now         func() time.Time
}

func NewNotificationService(repo NotificationRepository, channels ChannelResolver, sendTimeout time.Duration) *NotificationService {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &NotificationService{
		repo:        repo,
		channels:    channels,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}
}

// Dispatch records a pending notification, makes one delivery attempt and
// records its outcome. A failed delivery is returned as a failed record with
// a nil error. Configuration and validation problems are reported before
// anything is written; storage failures are returned as model.ErrStorage.
func (s *NotificationService) Dispatch(ctx context.Context, req model.DispatchRequest) (*model.Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	channel, err := s.channels.Resolve(req.Type)
	if err != nil {
		prom.AddDispatch(string(req.Type), "aborted", 0)
		return nil, err
	}
	if err := channel.Validate(); err != nil {
		prom.AddDispatch(string(req.Type), "aborted", 0)
		return nil, err
	}

	n, err := s.repo.Create(ctx, req.Message, req.Recipient, req.Type)
	if err != nil {
		prom.AddDispatch(string(req.Type), "aborted", 0)
		return nil, err
	}

	// The caller going away must not strand the record in pending.
	detached := context.WithoutCancel(ctx)
	sendCtx, cancel := context.WithTimeout(detached, s.sendTimeout)
	defer cancel()

	start := time.Now()
	ref, sendErr := channel.Send(sendCtx, req.Message, req.Recipient)
	elapsed := time.Since(start).Seconds()

	if sendErr == nil && ref == "" {
		// a sent record needs a reference; without one the attempt is unverifiable
		sendErr = model.NewDeliveryError(emptyReferenceDetail, nil)
	}

	var update model.TerminalUpdate
	if sendErr != nil {
		detail := sendErr.Error()
		update = model.TerminalUpdate{Status: model.NotificationStatusFailed, ErrorDetail: &detail}
		logger.Warn("Notification delivery failed", "id", n.ID, "recipient", n.Recipient, "type", n.NotificationType, "error", sendErr)
	} else {
		sentAt := s.now()
		update = model.TerminalUpdate{Status: model.NotificationStatusSent, ProviderReference: &ref, SentAt: &sentAt}
	}

	final, err := s.repo.UpdateTerminal(detached, n.ID, update)
	if err != nil {
		logger.Error("Data integrity: delivery outcome not recorded",
			"id", n.ID, "recipient", n.Recipient, "status", update.Status,
			"provider_reference", ref, "send_error", sendErr, "error", err)
		prom.AddDispatch(string(req.Type), "unrecorded", elapsed)
		if errors.Is(err, model.ErrStorage) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: finalize notification %d: %w", model.ErrStorage, n.ID, err)
	}

	prom.AddDispatch(string(req.Type), string(final.Status), elapsed)
	logger.Info("Notification dispatched", "id", final.ID, "status", final.Status, "recipient", final.Recipient)

	return final, nil
}

func (s *NotificationService) Get(ctx context.Context, id int64) (*model.Notification, error) {
	return s.repo.Get(ctx, id)
}

func (s *NotificationService) List(ctx context.Context, f model.NotificationFilter) ([]*model.Notification, int64, error) {
	return s.repo.List(ctx, f)
}
