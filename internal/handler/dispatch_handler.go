package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"smscast/internal/domain"
	"smscast/internal/plan"
	"smscast/internal/queue"
	"smscast/internal/service"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type DispatchService interface {
	Create(ctx context.Context, params service.CreateParams) (*service.CreateResult, error)
	GetSummary(ctx context.Context, batchID string) (*service.BatchSummary, error)
	Cancel(ctx context.Context, batchID string) error
	IngestReceipt(ctx context.Context, msg queue.ReceiptMessage) error
	Preview(ctx context.Context, template string, recipients []domain.Recipient) ([]plan.Preview, error)
	Placeholders() []string
	ListHistory(ctx context.Context, limit int) ([]*domain.HistoryEntry, error)
}

type DispatchHandler struct {
	service DispatchService
}

func NewDispatchHandler(service DispatchService) (*DispatchHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	return &DispatchHandler{service: service}, nil
}

func RegisterDispatchRoutes(router fiber.Router, service DispatchService) error {
	h, err := NewDispatchHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/dispatches", h.CreateDispatch)
	v1.Get("/dispatches", h.ListDispatches)
	v1.Get("/dispatches/:id", h.GetDispatch)
	v1.Post("/dispatches/:id/cancel", h.CancelDispatch)
	v1.Get("/placeholders", h.GetPlaceholders)
	v1.Post("/preview", h.PreviewDispatch)
	v1.Post("/receipts", h.IngestReceipt)

	return nil
}

type recipientRequest struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Nickname   string            `json:"nickname"`
	Phone      string            `json:"phone"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type createDispatchRequest struct {
	Template   string             `json:"template"`
	Recipients []recipientRequest `json:"recipients"`
	GroupIDs   []string           `json:"groupIds"`
}

type createDispatchResponse struct {
	BatchID        string `json:"batchId"`
	RecipientCount int    `json:"recipientCount"`
	TotalUnits     int    `json:"totalUnits"`
	Skipped        int    `json:"skipped"`
}

type countsResponse struct {
	Pending   int `json:"pending"`
	Sending   int `json:"sending"`
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

type unitStatusResponse struct {
	UnitID        string     `json:"unitId"`
	State         string     `json:"state"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
	DeliveredAt   *time.Time `json:"deliveredAt,omitempty"`
	FailureReason *string    `json:"failureReason,omitempty"`
}

type dispatchSummaryResponse struct {
	BatchID        string               `json:"batchId"`
	Template       string               `json:"template"`
	RecipientCount int                  `json:"recipientCount"`
	TotalUnits     int                  `json:"totalUnits"`
	Settled        bool                 `json:"settled"`
	Counts         countsResponse       `json:"counts"`
	Units          []unitStatusResponse `json:"units,omitempty"`
}

type previewRequest struct {
	Template   string             `json:"template"`
	Recipients []recipientRequest `json:"recipients"`
}

type previewItemResponse struct {
	RecipientID string `json:"recipientId"`
	Body        string `json:"body"`
	PartCount   int    `json:"partCount"`
}

type receiptRequest struct {
	UnitID string `json:"unitId"`
	Event  string `json:"event"`
	Reason string `json:"reason,omitempty"`
}

type historyItemResponse struct {
	BatchID        string    `json:"batchId"`
	Template       string    `json:"template"`
	RecipientCount int       `json:"recipientCount"`
	TotalUnits     int       `json:"totalUnits"`
	SentCount      int       `json:"sentCount"`
	DeliveredCount int       `json:"deliveredCount"`
	FailedCount    int       `json:"failedCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (h *DispatchHandler) CreateDispatch(c *fiber.Ctx) error {
	var req createDispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Create(c.Context(), service.CreateParams{
		Template:   req.Template,
		Recipients: toDomainRecipients(req.Recipients),
		GroupIDs:   req.GroupIDs,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(createDispatchResponse{
		BatchID:        result.BatchID,
		RecipientCount: result.RecipientCount,
		TotalUnits:     result.TotalUnits,
		Skipped:        result.Skipped,
	})
}

func (h *DispatchHandler) GetDispatch(c *fiber.Ctx) error {
	batchID := strings.TrimSpace(c.Params("id"))
	summary, err := h.service.GetSummary(c.Context(), batchID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toSummaryResponse(summary))
}

func (h *DispatchHandler) CancelDispatch(c *fiber.Ctx) error {
	batchID := strings.TrimSpace(c.Params("id"))
	if err := h.service.Cancel(c.Context(), batchID); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"batchId": batchID,
		"status":  "cancel_requested",
	})
}

func (h *DispatchHandler) ListDispatches(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit < 1 || limit > maxHistoryLimit {
		return toHTTPError(fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxHistoryLimit))
	}

	entries, err := h.service.ListHistory(c.Context(), limit)
	if err != nil {
		return toHTTPError(err)
	}

	items := make([]historyItemResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, historyItemResponse{
			BatchID:        entry.BatchID,
			Template:       entry.Template,
			RecipientCount: entry.RecipientCount,
			TotalUnits:     entry.TotalUnits,
			SentCount:      entry.SentCount,
			DeliveredCount: entry.DeliveredCount,
			FailedCount:    entry.FailedCount,
			CreatedAt:      entry.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": items})
}

func (h *DispatchHandler) GetPlaceholders(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"placeholders": h.service.Placeholders(),
	})
}

func (h *DispatchHandler) PreviewDispatch(c *fiber.Ctx) error {
	var req previewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	previews, err := h.service.Preview(c.Context(), req.Template, toDomainRecipients(req.Recipients))
	if err != nil {
		return toHTTPError(err)
	}

	items := make([]previewItemResponse, 0, len(previews))
	for _, p := range previews {
		items = append(items, previewItemResponse{
			RecipientID: p.Recipient.ID,
			Body:        p.Rendered,
			PartCount:   len(plan.Split(p.Rendered, plan.DefaultPartLimit)),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"previews": items})
}

func (h *DispatchHandler) IngestReceipt(c *fiber.Ctx) error {
	var req receiptRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	err := h.service.IngestReceipt(c.Context(), queue.ReceiptMessage{
		UnitID: req.UnitID,
		Event:  req.Event,
		Reason: req.Reason,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func toDomainRecipients(reqs []recipientRequest) []domain.Recipient {
	recipients := make([]domain.Recipient, 0, len(reqs))
	for _, r := range reqs {
		recipients = append(recipients, domain.Recipient{
			ID:         strings.TrimSpace(r.ID),
			Name:       strings.TrimSpace(r.Name),
			Nickname:   strings.TrimSpace(r.Nickname),
			Phone:      strings.TrimSpace(r.Phone),
			Attributes: r.Attributes,
		})
	}
	return recipients
}

func toSummaryResponse(summary *service.BatchSummary) dispatchSummaryResponse {
	units := make([]unitStatusResponse, 0, len(summary.Statuses))
	for _, st := range summary.Statuses {
		item := unitStatusResponse{
			UnitID:      st.UnitID,
			State:       st.State.String(),
			SentAt:      st.SentAt,
			DeliveredAt: st.DeliveredAt,
		}
		if st.FailureReason != nil {
			reason := st.FailureReason.String()
			item.FailureReason = &reason
		}
		units = append(units, item)
	}

	return dispatchSummaryResponse{
		BatchID:        summary.BatchID,
		Template:       summary.Template,
		RecipientCount: summary.RecipientCount,
		TotalUnits:     summary.TotalUnits,
		Settled:        summary.Settled,
		Counts: countsResponse{
			Pending:   summary.Counts.Pending,
			Sending:   summary.Counts.Sending,
			Sent:      summary.Counts.Sent,
			Delivered: summary.Counts.Delivered,
			Failed:    summary.Counts.Failed,
		},
		Units: units,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrCanceled):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
