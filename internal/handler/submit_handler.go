package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"buildline/config"
	"buildline/internal/domain"
	"buildline/internal/models"
	"buildline/internal/pricing"
	"buildline/internal/repository"
	"buildline/pkg/checkout"
)

type SubmitHandler struct {
	cfg         *config.Config
	paymentRepo *repository.PaymentRepository
	checkout    *checkout.Client
}

func NewSubmitHandler(cfg *config.Config, paymentRepo *repository.PaymentRepository, co *checkout.Client) *SubmitHandler {
	return &SubmitHandler{cfg: cfg, paymentRepo: paymentRepo, checkout: co}
}

// Submit accepts a paid build request: prices the tier, inserts a PENDING
// payment and hands back whatever the chosen rail needs to complete payment
// (a checkout URL for card, a receiving address for token transfer).
func (h *SubmitHandler) Submit(c *gin.Context) {
	var req struct {
		RequestText string `json:"request_text"`
		Method      string `json:"payment_method"`
		Tier        string `json:"tier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.RequestText = strings.TrimSpace(req.RequestText)
	if req.RequestText == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request_text required"})
		return
	}
	if len([]rune(req.RequestText)) > h.cfg.Queue.MaxRequestChars {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request_text too long"})
		return
	}
	if req.Tier == "" {
		req.Tier = domain.TierStandard
	}
	if !domain.ValidTier(req.Tier) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown tier"})
		return
	}
	if !domain.ValidMethod(req.Method) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment method"})
		return
	}
	if req.Method == domain.MethodTokenTransfer && h.cfg.Chain.ReceivingAddress == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "token payments not configured"})
		return
	}

	amountCents, err := pricing.Price(req.Tier)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown tier"})
		return
	}

	meta, _ := json.Marshal(models.PaymentMeta{RequestText: req.RequestText, Tier: req.Tier})
	pay := &models.Payment{
		ExternalRef: "req-" + uuid.New().String(),
		AmountCents: amountCents,
		Currency:    strings.ToUpper(h.cfg.Checkout.Currency),
		Method:      req.Method,
		Priority:    req.Tier,
		Status:      domain.PaymentPending,
		Metadata:    string(meta),
	}
	if err := h.paymentRepo.Create(pay); err != nil {
		slog.Error("submit: payment insert failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment record creation failed"})
		return
	}

	if req.Method == domain.MethodTokenTransfer {
		c.JSON(http.StatusOK, gin.H{
			"payment_id":        pay.ID,
			"receiving_address": h.cfg.Chain.ReceivingAddress,
			"amount_cents":      amountCents,
			"amount_tokens":     tokenUnits(amountCents, h.cfg.Chain.TokenDecimals),
		})
		return
	}

	// Amounts are already in the gateway's minor unit; passed through unscaled.
	session, err := h.checkout.CreateSession(c.Request.Context(), checkout.SessionParams{
		AmountCents: amountCents,
		Currency:    h.cfg.Checkout.Currency,
		Name:        "Build request (" + req.Tier + ")",
		PaymentID:   pay.ID,
		Reference:   pay.ExternalRef,
		SuccessURL:  h.cfg.Checkout.SuccessURL,
		CancelURL:   h.cfg.Checkout.CancelURL,
	})
	if err != nil {
		_ = h.paymentRepo.MarkFailed(pay.ID)
		slog.Error("submit: checkout session failed", "payment_id", pay.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create checkout session"})
		return
	}
	if err := h.paymentRepo.SetExternalRef(pay.ID, session.ID); err != nil {
		slog.Error("submit: external ref update failed", "payment_id", pay.ID, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"payment_id":   pay.ID,
		"checkout_url": session.URL,
	})
}

// tokenUnits converts cents to token base units exactly once:
// cents * 10^decimals / 100, in integer arithmetic.
func tokenUnits(cents int64, decimals int) uint64 {
	if decimals >= 2 {
		mult := uint64(1)
		for i := 0; i < decimals-2; i++ {
			mult *= 10
		}
		return uint64(cents) * mult
	}
	div := int64(1)
	for i := 0; i < 2-decimals; i++ {
		div *= 10
	}
	return uint64(cents / div)
}
