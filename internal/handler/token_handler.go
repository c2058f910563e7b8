package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"buildline/config"
	"buildline/internal/domain"
	"buildline/internal/models"
	"buildline/internal/repository"
	"buildline/internal/service"
	"buildline/pkg/chain"
)

// TokenVerifyHandler is the token-transfer verifier: the client pays on chain
// and submits the transaction signature; the handler checks the finalized
// transfer against the ledger row before promoting it.
type TokenVerifyHandler struct {
	cfg         *config.Config
	paymentRepo *repository.PaymentRepository
	requestRepo *repository.RequestRepository
	chain       *chain.Client
	dispatchSvc *service.DispatchService
}

func NewTokenVerifyHandler(cfg *config.Config, paymentRepo *repository.PaymentRepository, requestRepo *repository.RequestRepository, cc *chain.Client, dispatchSvc *service.DispatchService) *TokenVerifyHandler {
	return &TokenVerifyHandler{
		cfg:         cfg,
		paymentRepo: paymentRepo,
		requestRepo: requestRepo,
		chain:       cc,
		dispatchSvc: dispatchSvc,
	}
}

func (h *TokenVerifyHandler) Verify(c *gin.Context) {
	var req struct {
		PaymentID   uint   `json:"payment_id" binding:"required"`
		TxSignature string `json:"tx_signature" binding:"required"`
		RequestText string `json:"request_text"`
		Tier        string `json:"tier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.paymentRepo.GetByID(req.PaymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment load failed"})
		return
	}
	if payment.Status == domain.PaymentVerified {
		// Duplicate submission; don't touch the chain again.
		resp := gin.H{"verified": true}
		if existing, err := h.requestRepo.GetByPaymentID(payment.ID); err == nil && existing != nil {
			resp["issue_number"] = existing.IssueNumber
			resp["issue_url"] = existing.IssueURL
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	receiving := h.cfg.Chain.ReceivingAddress
	if receiving == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "receiving address not configured"})
		return
	}

	tx, err := h.chain.GetTransaction(c.Request.Context(), req.TxSignature)
	if err != nil {
		if errors.Is(err, chain.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "transfer not found on chain"})
			return
		}
		slog.Error("token verify: chain lookup failed", "payment_id", payment.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "chain lookup failed"})
		return
	}
	if tx.Failed {
		c.JSON(http.StatusNotFound, gin.H{"error": "transfer failed on chain"})
		return
	}

	expected := tokenUnits(payment.AmountCents, h.cfg.Chain.TokenDecimals)
	sender := ""
	for _, tr := range tx.Transfers {
		if tr.To == receiving && tr.Amount == expected {
			sender = tr.From
			break
		}
	}
	if sender == "" {
		_ = h.paymentRepo.MarkFailed(payment.ID)
		slog.Warn("token verify: transfer mismatch", "payment_id", payment.ID, "signature", req.TxSignature, "expected", expected)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "transfer does not match payment"})
		return
	}

	// Record the on-chain signature as the real external ref.
	if err := h.paymentRepo.SetExternalRef(payment.ID, req.TxSignature); err != nil {
		slog.Error("token verify: external ref update failed", "payment_id", payment.ID, "error", err)
	}
	alreadyVerified, err := h.paymentRepo.MarkVerified(payment.ID)
	if err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "payment already settled"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if alreadyVerified {
		c.JSON(http.StatusOK, gin.H{"verified": true, "sender_address": sender})
		return
	}

	text := req.RequestText
	tier := req.Tier
	if text == "" || tier == "" {
		var meta models.PaymentMeta
		if payment.Metadata != "" {
			_ = json.Unmarshal([]byte(payment.Metadata), &meta)
		}
		if text == "" {
			text = meta.RequestText
		}
		if tier == "" {
			tier = meta.Tier
		}
	}
	dispatched, err := h.dispatchSvc.Dispatch(c.Request.Context(), payment, text, tier)
	if err != nil {
		slog.Error("token verify: dispatch failed", "payment_id", payment.ID, "error", err)
		c.JSON(http.StatusOK, gin.H{"verified": true, "dispatched": false, "sender_address": sender})
		return
	}
	slog.Info("token verify: payment verified", "payment_id", payment.ID, "issue", dispatched.IssueNumber, "sender", sender)
	c.JSON(http.StatusOK, gin.H{
		"verified":       true,
		"issue_number":   dispatched.IssueNumber,
		"issue_url":      dispatched.IssueURL,
		"sender_address": sender,
	})
}
