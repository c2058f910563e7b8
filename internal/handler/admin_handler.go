package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"buildline/config"
	"buildline/internal/auth"
	"buildline/internal/domain"
	"buildline/internal/repository"
	"buildline/internal/service"
)

type AdminHandler struct {
	cfg         *config.Config
	paymentRepo *repository.PaymentRepository
	requestRepo *repository.RequestRepository
	dispatchSvc *service.DispatchService
}

func NewAdminHandler(cfg *config.Config, paymentRepo *repository.PaymentRepository, requestRepo *repository.RequestRepository, dispatchSvc *service.DispatchService) *AdminHandler {
	return &AdminHandler{cfg: cfg, paymentRepo: paymentRepo, requestRepo: requestRepo, dispatchSvc: dispatchSvc}
}

// Login exchanges the admin password for a bearer token.
func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password required"})
		return
	}
	if h.cfg.Auth.AdminPasswordHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin access not configured"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.Auth.AdminPasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := auth.GenerateToken(&h.cfg.Auth, domain.RoleAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// GetPayment returns one ledger row with its linked request, for operators.
func (h *AdminHandler) GetPayment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}
	payment, err := h.paymentRepo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	req, _ := h.requestRepo.GetByPaymentID(payment.ID)
	c.JSON(http.StatusOK, gin.H{"payment": payment, "request": req})
}

// RetryDispatch re-runs work-item creation for a verified payment whose
// dispatch failed. Idempotent: an already-linked work item is returned as-is.
func (h *AdminHandler) RetryDispatch(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}
	req, err := h.dispatchSvc.Retry(c.Request.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		case errors.Is(err, repository.ErrStaleTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "payment is not verified"})
		case errors.Is(err, service.ErrDispatchFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": "dispatch failed; safe to retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "retry failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"issue_number": req.IssueNumber, "issue_url": req.IssueURL})
}
