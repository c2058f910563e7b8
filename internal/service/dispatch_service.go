package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"buildline/internal/domain"
	"buildline/internal/models"
	"buildline/internal/pricing"
	"buildline/internal/repository"
	"buildline/pkg/tracker"
)

// ErrDispatchFailed reports a failed work-item creation after a successful
// payment verification. The payment stays VERIFIED; retrying dispatch alone
// is safe.
var ErrDispatchFailed = errors.New("work-item dispatch failed")

// DispatchService turns a newly verified payment into exactly one tracker
// issue. Callers own the idempotency boundary: Dispatch must only be invoked
// by the verifier that observed alreadyVerified=false.
type DispatchService struct {
	tracker     tracker.Client
	requestRepo *repository.RequestRepository
	paymentRepo *repository.PaymentRepository
	timeout     time.Duration
}

func NewDispatchService(tc tracker.Client, requestRepo *repository.RequestRepository, paymentRepo *repository.PaymentRepository) *DispatchService {
	return &DispatchService{
		tracker:     tc,
		requestRepo: requestRepo,
		paymentRepo: paymentRepo,
		timeout:     30 * time.Second,
	}
}

// Dispatch creates the work item for a verified payment and persists the
// Request row linking it back. The tracker call is bounded by its own timeout
// and holds no ledger lock while blocking.
func (s *DispatchService) Dispatch(ctx context.Context, payment *models.Payment, requestText, tier string) (*models.Request, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	labels := []string{domain.LabelReady}
	if l := pricing.TierLabel(tier); l != "" {
		labels = append(labels, l)
	}
	body := fmt.Sprintf("%s\n\n---\nTier: %s\nPayment: #%d (%s)", requestText, tier, payment.ID, payment.Method)
	issue, err := s.tracker.CreateIssue(ctx, requestText, body, labels)
	if err != nil {
		slog.Error("dispatch: issue creation failed", "payment_id", payment.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	req := &models.Request{
		PaymentID:   payment.ID,
		IssueNumber: issue.Number,
		IssueURL:    issue.URL,
		RequestText: requestText,
		Priority:    tier,
	}
	if err := s.requestRepo.Create(req); err != nil {
		// The issue exists but the link write failed; Retry finds the gap.
		slog.Error("dispatch: request link failed", "payment_id", payment.ID, "issue", issue.Number, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	slog.Info("dispatched work item", "payment_id", payment.ID, "issue", issue.Number, "tier", tier)
	return req, nil
}

// Retry re-runs dispatch for a verified payment whose work item may be
// missing. Idempotent: an existing linked request is returned as-is.
func (s *DispatchService) Retry(ctx context.Context, paymentID uint) (*models.Request, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentVerified {
		return nil, repository.ErrStaleTransition
	}
	existing, err := s.requestRepo.GetByPaymentID(paymentID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IssueNumber > 0 {
		return existing, nil
	}
	var meta models.PaymentMeta
	if err := unmarshalMeta(payment.Metadata, &meta); err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, payment, meta.RequestText, meta.Tier)
}

func unmarshalMeta(raw string, out interface{}) error {
	if raw == "" {
		return errors.New("payment metadata missing")
	}
	return json.Unmarshal([]byte(raw), out)
}
