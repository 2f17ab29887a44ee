package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/dakar-humidity/alert-gateway/internal/model"
	xhttp "github.com/dakar-humidity/alert-gateway/pkg/http"
)

type NotificationService interface {
	Dispatch(ctx context.Context, req model.DispatchRequest) (*model.Notification, error)
	Get(ctx context.Context, id int64) (*model.Notification, error)
	List(ctx context.Context, f model.NotificationFilter) ([]*model.Notification, int64, error)
}

type NotificationHandler struct {
	svc NotificationService
}

func RegisterNotificationRoutes(r *xhttp.Router, h *NotificationHandler) {
	r.POST("/notifications/send_sms", h.SendSMS)
	r.GET("/notifications", h.ListNotifications)
	r.GET("/notifications/{id}", h.GetNotification)
}

func NewNotificationHandler(svc NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

type sendSMSRequest struct {
	Message string `json:"message"`
	To      string `json:"to"`
}

type sendSMSResponse struct {
	SID            string                   `json:"sid"`
	NotificationID int64                    `json:"notification_id"`
	Status         model.NotificationStatus `json:"status"`
}

type deliveryFailedResponse struct {
	Detail         string `json:"detail"`
	NotificationID int64  `json:"notification_id"`
}

type listResponse struct {
	Total         int64                 `json:"total"`
	Notifications []*model.Notification `json:"notifications"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *NotificationHandler) SendSMS(ctx *xhttp.RequestCtx) {
	req := sendSMSRequest{Message: query(ctx, "message"), To: query(ctx, "to")}
	if len(ctx.PostBody()) > 0 && strings.HasPrefix(string(ctx.Request.Header.ContentType()), "application/json") {
		var body sendSMSRequest
		if err := readJSON(ctx, &body); err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		if req.Message == "" {
			req.Message = body.Message
		}
		if req.To == "" {
			req.To = body.To
		}
	}
	if strings.TrimSpace(req.Message) == "" || strings.TrimSpace(req.To) == "" {
		writeError(ctx, xhttp.StatusBadRequest, "message and to are required")
		return
	}

	n, err := h.svc.Dispatch(ctx, model.DispatchRequest{
		Message:   req.Message,
		Recipient: strings.TrimSpace(req.To),
		Type:      model.NotificationTypeSMS,
	})
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}

	if n.Status != model.NotificationStatusSent {
		detail := "delivery failed"
		if n.ErrorDetail != nil {
			detail = *n.ErrorDetail
		}
		writeJSON(ctx, xhttp.StatusInternalServerError, deliveryFailedResponse{Detail: detail, NotificationID: n.ID})
		return
	}

	sid := ""
	if n.ProviderReference != nil {
		sid = *n.ProviderReference
	}
	writeJSON(ctx, xhttp.StatusOK, sendSMSResponse{SID: sid, NotificationID: n.ID, Status: n.Status})
}

func (h *NotificationHandler) ListNotifications(ctx *xhttp.RequestCtx) {
	var f model.NotificationFilter

	if v := query(ctx, "skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "skip must be an integer")
			return
		}
		f.Offset = n
	}
	if v := query(ctx, "limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "limit must be an integer")
			return
		}
		f.Limit = n
	}
	if v := query(ctx, "status"); v != "" {
		status := model.NotificationStatus(strings.TrimSpace(v))
		if !status.Valid() {
			writeError(ctx, xhttp.StatusBadRequest, "unknown status "+strconv.Quote(v))
			return
		}
		f.Status = &status
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []*model.Notification{}
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse{Total: total, Notifications: items})
}

func (h *NotificationHandler) GetNotification(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "id must be an integer")
		return
	}

	n, err := h.svc.Get(ctx, id)
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(ctx, xhttp.StatusNotFound, "Notification not found")
		return
	case err != nil:
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, n)
}
