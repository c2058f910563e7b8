package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildline/internal/domain"
	"buildline/internal/models"
	"buildline/internal/repository"
	"buildline/internal/service"
	"buildline/pkg/checkout"
)

type webhookFixture struct {
	engine  *gin.Engine
	payRepo *repository.PaymentRepository
	reqRepo *repository.RequestRepository
	tracker *fakeTracker
	secret  string
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	cfg := testConfig()
	db := setupTestDB(t)
	payRepo := repository.NewPaymentRepository(db)
	reqRepo := repository.NewRequestRepository(db)
	ft := &fakeTracker{}
	dispatchSvc := service.NewDispatchService(ft, reqRepo, payRepo)
	h := NewCheckoutWebhookHandler(cfg, payRepo, dispatchSvc)

	engine := gin.New()
	engine.POST("/api/v1/webhooks/checkout", h.Handle)
	return &webhookFixture{
		engine:  engine,
		payRepo: payRepo,
		reqRepo: reqRepo,
		tracker: ft,
		secret:  cfg.Checkout.WebhookSecret,
	}
}

func (f *webhookFixture) pendingPayment(t *testing.T, ref string) *models.Payment {
	p := &models.Payment{
		ExternalRef: ref,
		AmountCents: 500,
		Currency:    "USD",
		Method:      domain.MethodCard,
		Priority:    domain.TierStandard,
		Status:      domain.PaymentPending,
		Metadata:    `{"request_text":"add dark mode","tier":"standard"}`,
	}
	require.NoError(t, f.payRepo.Create(p))
	return p
}

func sessionEvent(eventType string, paymentID uint, sessionID string) []byte {
	payload, _ := json.Marshal(map[string]interface{}{
		"id":   "evt_1",
		"type": eventType,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":             sessionID,
				"payment_status": "paid",
				"metadata":       map[string]string{"payment_id": fmt.Sprint(paymentID)},
			},
		},
	})
	return payload
}

func (f *webhookFixture) deliver(payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/checkout", bytes.NewReader(payload))
	req.Header.Set("Checkout-Signature", signature)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func (f *webhookFixture) sign(payload []byte) string {
	return checkout.SignPayload(time.Now(), payload, f.secret)
}

func TestCheckoutWebhook_BadSignature(t *testing.T) {
	f := newWebhookFixture(t)
	p := f.pendingPayment(t, "cs_sig")
	payload := sessionEvent(checkout.EventCheckoutCompleted, p.ID, "cs_sig")

	t.Run("garbage header", func(t *testing.T) {
		rec := f.deliver(payload, "t=1,v1=deadbeef")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		rec := f.deliver(payload, checkout.SignPayload(time.Now(), payload, "wrong"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		rec := f.deliver(payload, checkout.SignPayload(time.Now().Add(-time.Hour), payload, f.secret))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	// no ledger mutation on any rejected path
	got, err := f.payRepo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, got.Status)
	assert.Equal(t, 0, f.tracker.createdCount())
}

func TestCheckoutWebhook_Completed(t *testing.T) {
	f := newWebhookFixture(t)
	p := f.pendingPayment(t, "cs_done")
	payload := sessionEvent(checkout.EventCheckoutCompleted, p.ID, "cs_done")

	rec := f.deliver(payload, f.sign(payload))
	assert.Equal(t, http.StatusOK, rec.Code)

	got, err := f.payRepo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentVerified, got.Status)
	require.NotNil(t, got.VerifiedAt)

	req, err := f.reqRepo.GetByPaymentID(p.ID)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "add dark mode", req.RequestText)
	assert.Equal(t, 1, f.tracker.createdCount())
}

func TestCheckoutWebhook_DuplicateDelivery(t *testing.T) {
	f := newWebhookFixture(t)
	p := f.pendingPayment(t, "cs_dup")
	payload := sessionEvent(checkout.EventCheckoutCompleted, p.ID, "cs_dup")

	first := f.deliver(payload, f.sign(payload))
	second := f.deliver(payload, f.sign(payload))
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, f.tracker.createdCount())
}

func TestCheckoutWebhook_ConcurrentDelivery(t *testing.T) {
	f := newWebhookFixture(t)
	p := f.pendingPayment(t, "cs_race")
	payload := sessionEvent(checkout.EventCheckoutCompleted, p.ID, "cs_race")

	const n = 8
	var wg sync.WaitGroup
	codes := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := f.deliver(payload, f.sign(payload))
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	// exactly one work item despite n concurrent deliveries
	assert.Equal(t, 1, f.tracker.createdCount())
}

func TestCheckoutWebhook_UnknownPayment(t *testing.T) {
	f := newWebhookFixture(t)
	payload := sessionEvent(checkout.EventCheckoutCompleted, 4242, "cs_missing")

	rec := f.deliver(payload, f.sign(payload))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutWebhook_Expired(t *testing.T) {
	t.Run("pending session expires", func(t *testing.T) {
		f := newWebhookFixture(t)
		p := f.pendingPayment(t, "cs_exp")
		payload := sessionEvent(checkout.EventCheckoutExpired, p.ID, "cs_exp")

		rec := f.deliver(payload, f.sign(payload))
		assert.Equal(t, http.StatusOK, rec.Code)

		got, err := f.payRepo.GetByID(p.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentExpired, got.Status)
	})

	t.Run("expiry after verification preserves verified", func(t *testing.T) {
		f := newWebhookFixture(t)
		p := f.pendingPayment(t, "cs_exp_race")

		done := sessionEvent(checkout.EventCheckoutCompleted, p.ID, "cs_exp_race")
		rec := f.deliver(done, f.sign(done))
		require.Equal(t, http.StatusOK, rec.Code)

		expired := sessionEvent(checkout.EventCheckoutExpired, p.ID, "cs_exp_race")
		rec = f.deliver(expired, f.sign(expired))
		assert.Equal(t, http.StatusOK, rec.Code)

		got, err := f.payRepo.GetByID(p.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentVerified, got.Status)
		assert.Equal(t, 1, f.tracker.createdCount())
	})
}

func TestCheckoutWebhook_ChargeFailed(t *testing.T) {
	f := newWebhookFixture(t)
	p := f.pendingPayment(t, "cs_charge_xyz789")

	payload, _ := json.Marshal(map[string]interface{}{
		"id":   "evt_2",
		"type": checkout.EventChargeFailed,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":             "ch_1",
				"payment_intent": "charge_xyz",
			},
		},
	})
	rec := f.deliver(payload, f.sign(payload))
	assert.Equal(t, http.StatusOK, rec.Code)

	got, err := f.payRepo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, got.Status)
}

func TestCheckoutWebhook_IgnoredEventType(t *testing.T) {
	f := newWebhookFixture(t)
	p := f.pendingPayment(t, "cs_other")

	payload, _ := json.Marshal(map[string]interface{}{
		"id":   "evt_3",
		"type": "invoice.paid",
		"data": map[string]interface{}{"object": map[string]interface{}{}},
	})
	rec := f.deliver(payload, f.sign(payload))
	assert.Equal(t, http.StatusOK, rec.Code)

	got, err := f.payRepo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, got.Status)
	assert.Equal(t, 0, f.tracker.createdCount())
}
