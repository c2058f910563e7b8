package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"buildline/config"
	"buildline/internal/models"
	"buildline/internal/repository"
	"buildline/internal/service"
	"buildline/pkg/checkout"
)

// CheckoutWebhookHandler is the card-rail verifier: it authenticates gateway
// webhooks and drives the payment state machine. Gateways redeliver events,
// so every path here must tolerate duplicates and out-of-order arrival.
type CheckoutWebhookHandler struct {
	cfg         *config.Config
	paymentRepo *repository.PaymentRepository
	dispatchSvc *service.DispatchService
}

func NewCheckoutWebhookHandler(cfg *config.Config, paymentRepo *repository.PaymentRepository, dispatchSvc *service.DispatchService) *CheckoutWebhookHandler {
	return &CheckoutWebhookHandler{cfg: cfg, paymentRepo: paymentRepo, dispatchSvc: dispatchSvc}
}

const signatureTolerance = 5 * time.Minute

func (h *CheckoutWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	sig := c.GetHeader("Checkout-Signature")
	if err := checkout.VerifySignature(body, sig, h.cfg.Checkout.WebhookSecret, signatureTolerance); err != nil {
		slog.Warn("checkout webhook: bad signature", "remote", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}
	ev, err := checkout.ParseEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	switch ev.Type {
	case checkout.EventCheckoutCompleted:
		h.handleCompleted(c, ev)
	case checkout.EventCheckoutExpired:
		h.handleExpired(c, ev)
	case checkout.EventChargeFailed:
		h.handleChargeFailed(c, ev)
	default:
		c.JSON(http.StatusOK, gin.H{"accepted": true, "ignored": true})
	}
}

func (h *CheckoutWebhookHandler) handleCompleted(c *gin.Context, ev *checkout.Event) {
	sess, err := ev.Session()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session object"})
		return
	}
	if sess.PaymentStatus != "" && sess.PaymentStatus != "paid" {
		c.JSON(http.StatusOK, gin.H{"accepted": true, "ignored": true})
		return
	}
	paymentID, ok := sess.PaymentID()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment_id missing from session metadata"})
		return
	}

	alreadyVerified, err := h.paymentRepo.MarkVerified(paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		if errors.Is(err, repository.ErrStaleTransition) {
			slog.Warn("checkout webhook: completed event for settled payment", "payment_id", paymentID)
			c.JSON(http.StatusOK, gin.H{"accepted": true, "stale": true})
			return
		}
		slog.Error("checkout webhook: verify failed", "payment_id", paymentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if alreadyVerified {
		// Duplicate delivery; the work item already exists or is being created.
		slog.Info("checkout webhook: duplicate completion", "payment_id", paymentID)
		c.JSON(http.StatusOK, gin.H{"accepted": true})
		return
	}

	payment, err := h.paymentRepo.GetByID(paymentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment load failed"})
		return
	}
	var meta models.PaymentMeta
	if payment.Metadata != "" {
		_ = json.Unmarshal([]byte(payment.Metadata), &meta)
	}
	req, err := h.dispatchSvc.Dispatch(c.Request.Context(), payment, meta.RequestText, meta.Tier)
	if err != nil {
		// Payment stays VERIFIED; dispatch can be retried on its own.
		slog.Error("checkout webhook: dispatch failed", "payment_id", paymentID, "error", err)
		c.JSON(http.StatusOK, gin.H{"accepted": true, "dispatched": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": true, "issue_number": req.IssueNumber, "issue_url": req.IssueURL})
}

func (h *CheckoutWebhookHandler) handleExpired(c *gin.Context, ev *checkout.Event) {
	sess, err := ev.Session()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session object"})
		return
	}
	paymentID, ok := sess.PaymentID()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"accepted": true, "ignored": true})
		return
	}
	if err := h.paymentRepo.MarkExpired(paymentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		if errors.Is(err, repository.ErrStaleTransition) {
			// Expiry raced a successful verification; verified wins.
			slog.Warn("checkout webhook: expiry after verification", "payment_id", paymentID)
			c.JSON(http.StatusOK, gin.H{"accepted": true, "stale": true})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	slog.Info("checkout webhook: session expired", "payment_id", paymentID)
	c.JSON(http.StatusOK, gin.H{"accepted": true})
}

func (h *CheckoutWebhookHandler) handleChargeFailed(c *gin.Context, ev *checkout.Event) {
	ch, err := ev.Charge()
	if err != nil || (ch.PaymentIntent == "" && ch.ID == "") {
		c.JSON(http.StatusOK, gin.H{"accepted": true, "ignored": true})
		return
	}
	ref := ch.PaymentIntent
	if ref == "" {
		ref = ch.ID
	}
	payment, err := h.paymentRepo.GetByRefContains(ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Info("checkout webhook: charge failure for unknown payment", "ref", ref)
			c.JSON(http.StatusOK, gin.H{"accepted": true})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if err := h.paymentRepo.MarkFailed(payment.ID); err != nil && !errors.Is(err, repository.ErrStaleTransition) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	slog.Info("checkout webhook: charge failed", "payment_id", payment.ID)
	c.JSON(http.StatusOK, gin.H{"accepted": true})
}
