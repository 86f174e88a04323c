package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"

	"clubdesk/internal/adapters/http/middleware"
	"clubdesk/internal/config"
	"clubdesk/internal/core/domain"
	"clubdesk/internal/core/services"
	"clubdesk/internal/pkg/pagination"
	"clubdesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// SignatureHeader carries the provider's HMAC over the webhook body
const SignatureHeader = "X-Webhook-Signature"

// PaymentHandler handles payment endpoints and the provider webhook
type PaymentHandler struct {
	paymentService *services.PaymentService
	cfg            *config.Config
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *services.PaymentService, cfg *config.Config) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		cfg:            cfg,
	}
}

// Webhook ingests a provider payment event. The signature is an
// HMAC-SHA256 of the raw body, hex encoded. Reconciliation is
// idempotent, so the provider may deliver the same event repeatedly.
// @Summary Provider webhook
// @Description Receive a signed payment event from the payment provider
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /webhooks/payments [post]
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	body := c.Body()

	if !h.verifySignature(body, c.Get(SignatureHeader)) {
		log.Printf("❌ Webhook signature verification failed from %s", c.IP())
		return response.Unauthorized(c, "Invalid signature")
	}

	var event services.ProviderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return response.BadRequest(c, "Malformed event payload")
	}

	if err := h.paymentService.Reconcile(c.Context(), &event); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid event")
		case errors.Is(err, domain.ErrMemberNotFound):
			return response.BadRequest(c, "Unknown member")
		case errors.Is(err, domain.ErrRefMismatch):
			return response.Conflict(c, "Reference already bound to another member")
		default:
			// 5xx tells the provider to redeliver later
			return response.InternalServerError(c, "Reconciliation failed")
		}
	}

	return response.Success(c, "Event processed", nil)
}

func (h *PaymentHandler) verifySignature(body []byte, signature string) bool {
	if h.cfg.Payment.WebhookSecret == "" || signature == "" {
		return false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.cfg.Payment.WebhookSecret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}

// MyPayments lists the authenticated member's payment history
// @Summary My payments
// @Description List the authenticated member's payments, newest first
// @Tags Payments
// @Accept json
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /payments/me [get]
func (h *PaymentHandler) MyPayments(c *fiber.Ctx) error {
	member := middleware.CurrentMember(c)
	if member == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	payments, total, err := h.paymentService.ListByMember(c.Context(), member.ID, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list payments")
	}

	return response.Success(c, "Payments retrieved", pagination.NewResponse(payments, params, total))
}

// CheckoutRequest opens a pending payment awaiting provider settlement
type CheckoutRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	ExternalRef string `json:"external_ref"`
	Description string `json:"description"`
}

// Checkout records a pending dues payment for the authenticated
// member. The external reference comes from the provider's checkout
// session; the webhook settles it later.
// @Summary Start checkout
// @Description Record a pending payment for the provider checkout session
// @Tags Payments
// @Accept json
// @Produce json
// @Param body body CheckoutRequest true "Checkout data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /payments/checkout [post]
func (h *PaymentHandler) Checkout(c *fiber.Ctx) error {
	member := middleware.CurrentMember(c)
	if member == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	payment, err := h.paymentService.CreatePending(c.Context(), member.ID,
		req.AmountCents, req.Currency, req.ExternalRef, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid checkout data")
		case errors.Is(err, domain.ErrConflict):
			return response.Conflict(c, "Reference already recorded")
		case errors.Is(err, domain.ErrMemberNotFound):
			return response.NotFound(c, "Member not found")
		default:
			return response.InternalServerError(c, "Failed to record pending payment")
		}
	}

	return response.Created(c, "Pending payment recorded", fiber.Map{
		"payment": payment,
	})
}

// ListByMember lists a member's payments (admin)
// @Summary List member payments
// @Description List payments for a member, newest first
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path int true "Member ID"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /admin/members/{id}/payments [get]
func (h *PaymentHandler) ListByMember(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid member id")
	}

	params := pagination.GetParams(c)
	payments, total, err := h.paymentService.ListByMember(c.Context(), uint(id), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list payments")
	}

	return response.Success(c, "Payments retrieved", pagination.NewResponse(payments, params, total))
}

// ManualPaymentRequest represents an admin-entered payment
type ManualPaymentRequest struct {
	MemberID    uint   `json:"member_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

// RecordManual records a cash or check payment (admin)
// @Summary Record manual payment
// @Description Record an offline payment and extend the member's dues
// @Tags Payments
// @Accept json
// @Produce json
// @Param body body ManualPaymentRequest true "Payment data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/payments/manual [post]
func (h *PaymentHandler) RecordManual(c *fiber.Ctx) error {
	var req ManualPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.MemberID == 0 {
		return response.BadRequest(c, "Member id is required")
	}

	payment, err := h.paymentService.RecordManual(c.Context(), middleware.CurrentActor(c),
		req.MemberID, req.AmountCents, req.Currency, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMemberNotFound):
			return response.NotFound(c, "Member not found")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid payment data")
		default:
			return response.InternalServerError(c, "Failed to record payment")
		}
	}

	return response.Created(c, "Payment recorded", fiber.Map{
		"payment": payment,
	})
}

// WaiveRequest represents a dues waiver
type WaiveRequest struct {
	MemberID    uint   `json:"member_id"`
	Description string `json:"description"`
}

// Waive waives one billing period for a member (admin)
// @Summary Waive dues
// @Description Record a zero-amount waiver covering one billing period
// @Tags Payments
// @Accept json
// @Produce json
// @Param body body WaiveRequest true "Waiver data"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/payments/waive [post]
func (h *PaymentHandler) Waive(c *fiber.Ctx) error {
	var req WaiveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.MemberID == 0 {
		return response.BadRequest(c, "Member id is required")
	}

	payment, err := h.paymentService.Waive(c.Context(), middleware.CurrentActor(c), req.MemberID, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMemberNotFound):
			return response.NotFound(c, "Member not found")
		default:
			return response.InternalServerError(c, "Failed to record waiver")
		}
	}

	return response.Created(c, "Dues waived", fiber.Map{
		"payment": payment,
	})
}

// Refund marks a completed payment refunded (admin)
// @Summary Refund payment
// @Description Mark a completed payment as refunded
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /admin/payments/{id}/refund [post]
func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid payment id")
	}

	payment, err := h.paymentService.RefundManual(c.Context(), middleware.CurrentActor(c), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound):
			return response.NotFound(c, "Payment not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			return response.UnprocessableEntity(c, "Only completed payments can be refunded")
		default:
			return response.InternalServerError(c, "Failed to refund payment")
		}
	}

	return response.Success(c, "Payment refunded", fiber.Map{
		"payment": payment,
	})
}
