package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/invest-access/internal/api/dto"
	"github.com/spec-kit/invest-access/internal/service"
)

// SyncHandler exposes event fan-out and notification inboxes.
type SyncHandler struct {
	sync *service.SyncService
}

// NewSyncHandler constructs handler.
func NewSyncHandler(sync *service.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// TriggerUpdate handles POST /sync/events.
func (h *SyncHandler) TriggerUpdate(c *fiber.Ctx) error {
	var req dto.SyncEventRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	e, err := h.sync.TriggerUpdate(c.UserContext(), caller(c), req.Event())
	if err != nil {
		return err
	}
	return respond(c, http.StatusAccepted, e)
}

// SyncDashboard handles POST /sync/dashboards/:userId.
func (h *SyncHandler) SyncDashboard(c *fiber.Ctx) error {
	e, err := h.sync.SyncDashboard(c.UserContext(), caller(c), c.Params("userId"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusAccepted, e)
}

// SendNotification handles POST /notifications.
func (h *SyncHandler) SendNotification(c *fiber.Ctx) error {
	var req dto.NotificationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	n, err := h.sync.SendNotification(c.UserContext(), caller(c), req.Notification())
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, n)
}

// Notifications handles GET /notifications.
func (h *SyncHandler) Notifications(c *fiber.Ctx) error {
	items, err := h.sync.Notifications(c.UserContext(), caller(c), limitQuery(c, 20))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, nonNil(items))
}
