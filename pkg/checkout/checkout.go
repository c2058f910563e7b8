// Package checkout is a minimal client for a Stripe-compatible card gateway:
// hosted checkout session creation plus signed webhook verification. Only the
// endpoints and fields this service consumes are modeled.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Webhook event types the service reacts to; everything else is ignored.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventChargeFailed      = "charge.failed"
)

type Client struct {
	BaseURL   string
	SecretKey string
	client    *http.Client
}

func NewClient(secretKey string) *Client {
	return &Client{
		BaseURL:   "https://api.stripe.com",
		SecretKey: secretKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type SessionParams struct {
	AmountCents int64 // already in the gateway's charge unit; never rescaled here
	Currency    string
	Name        string
	PaymentID   uint
	Reference   string
	SuccessURL  string
	CancelURL   string
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateSession creates a hosted checkout session. The internal payment id
// rides along in the session metadata so the completion webhook can find its
// ledger row.
func (c *Client) CreateSession(ctx context.Context, p SessionParams) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", p.Reference)
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", p.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(p.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", p.Name)
	form.Set("metadata[payment_id]", strconv.FormatUint(uint64(p.PaymentID), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.SecretKey, "")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("checkout session: %d %s", resp.StatusCode, string(body))
	}
	var out Session
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Event is a webhook envelope; Data.Object holds the type-specific payload.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	if ev.Type == "" {
		return nil, errors.New("event type missing")
	}
	return &ev, nil
}

// CheckoutSession is the session object inside checkout.session.* events.
type CheckoutSession struct {
	ID            string            `json:"id"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

func (e *Event) Session() (*CheckoutSession, error) {
	var s CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// PaymentID extracts the internal payment id from the session metadata.
func (s *CheckoutSession) PaymentID() (uint, bool) {
	raw, ok := s.Metadata["payment_id"]
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Charge is the object inside charge.* events; only the reference fields are kept.
type Charge struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
}

func (e *Event) Charge() (*Charge, error) {
	var ch Charge
	if err := json.Unmarshal(e.Data.Object, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// SignPayload produces the signature header value for a payload at a given
// timestamp. Exposed so tests and local tooling can mint valid deliveries.
func SignPayload(ts time.Time, payload []byte, secret string) string {
	mac := computeHMAC(ts.Unix(), payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), mac)
}

// VerifySignature checks an incoming signature header (t=<unix>,v1=<hex>)
// against the raw payload. Deliveries older than tolerance are rejected to
// blunt replay. Returns ErrInvalidSignature on any mismatch.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	var ts int64
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			n, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return ErrInvalidSignature
			}
			ts = n
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return ErrInvalidSignature
	}
	if tolerance > 0 {
		age := time.Since(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return ErrInvalidSignature
		}
	}
	expected := computeHMAC(ts, payload, secret)
	for _, sig := range sigs {
		if hmacEqual(sig, expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}
