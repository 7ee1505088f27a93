package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/config"
)

const (
	fieldMerchantID = "merchant_id"
	fieldPaymentID  = "m_payment_id"
	fieldAmount     = "amount"
	fieldItemName   = "item_name"
	fieldReturnURL  = "return_url"
	fieldCancelURL  = "cancel_url"
	fieldNotifyURL  = "notify_url"
	fieldStatus     = "payment_status"
	fieldGross      = "amount_gross"
	fieldSignature  = "signature"

	paymentIDPrefix = "job-"
)

// Redirect describes one hosted checkout for a job's call-out fee.
type Redirect struct {
	JobID       int64
	AmountCents int64
	ItemName    string
	ReturnURL   string
	CancelURL   string
	NotifyURL   string
}

// Builder renders signed gateway redirects and verifies gateway callbacks.
// Both directions use HMAC-SHA256 over the sorted form encoding of every
// field except the signature.
type Builder struct {
	gatewayURL string
	merchantID string
	key        []byte
	publicBase string
}

// NewBuilder creates a builder from payment settings.
func NewBuilder(cfg config.PaymentConfig) *Builder {
	return &Builder{
		gatewayURL: cfg.GetPaymentGatewayURL(),
		merchantID: cfg.GetPaymentMerchantID(),
		key:        []byte(cfg.GetPaymentSigningKey()),
		publicBase: strings.TrimRight(cfg.GetPublicBaseURL(), "/"),
	}
}

// Redirect describes the checkout for job.
func (b *Builder) Redirect(job domain.Job) Redirect {
	id := strconv.FormatInt(job.ID, 10)
	return Redirect{
		JobID:       job.ID,
		AmountCents: job.AmountCents,
		ItemName:    fmt.Sprintf("FixMate call-out fee (job #%d)", job.ID),
		ReturnURL:   b.publicBase + "/api/v1/payments/return?job=" + id,
		CancelURL:   b.publicBase + "/api/v1/payments/cancel?job=" + id,
		NotifyURL:   b.publicBase + "/api/v1/payments/notify",
	}
}

// URL renders the signed gateway URL for r.
func (b *Builder) URL(r Redirect) (string, error) {
	if r.AmountCents <= 0 {
		return "", apperr.Validation("nothing to pay for this job")
	}
	gateway, err := url.Parse(b.gatewayURL)
	if err != nil {
		return "", fmt.Errorf("parse payment gateway url: %w", err)
	}

	values := url.Values{}
	values.Set(fieldMerchantID, b.merchantID)
	values.Set(fieldPaymentID, PaymentID(r.JobID))
	values.Set(fieldAmount, FormatAmount(r.AmountCents))
	values.Set(fieldItemName, r.ItemName)
	values.Set(fieldReturnURL, r.ReturnURL)
	values.Set(fieldCancelURL, r.CancelURL)
	values.Set(fieldNotifyURL, r.NotifyURL)
	values.Set(fieldSignature, b.sign(values))

	gateway.RawQuery = values.Encode()
	return gateway.String(), nil
}

// PaymentURL returns the signed checkout URL for job.
func (b *Builder) PaymentURL(job domain.Job) (string, error) {
	return b.URL(b.Redirect(job))
}

// Verify checks the signature carried in values.
func (b *Builder) Verify(values url.Values) error {
	received, err := hex.DecodeString(values.Get(fieldSignature))
	if err != nil || len(received) == 0 {
		return apperr.Unauthorized("missing or malformed payment signature")
	}
	expected, _ := hex.DecodeString(b.sign(values))
	if !hmac.Equal(received, expected) {
		return apperr.Unauthorized("invalid payment signature")
	}
	if merchant := values.Get(fieldMerchantID); merchant != "" && merchant != b.merchantID {
		return apperr.Unauthorized("payment notification for another merchant")
	}
	return nil
}

func (b *Builder) sign(values url.Values) string {
	unsigned := url.Values{}
	for k, v := range values {
		if k != fieldSignature {
			unsigned[k] = v
		}
	}
	mac := hmac.New(sha256.New, b.key)
	_, _ = mac.Write([]byte(unsigned.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentID is the merchant reference sent to the gateway for a job.
func PaymentID(jobID int64) string {
	return paymentIDPrefix + strconv.FormatInt(jobID, 10)
}

// ParsePaymentID extracts the job id from a merchant reference.
func ParsePaymentID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, paymentIDPrefix), 10, 64)
	if err != nil || id <= 0 || !strings.HasPrefix(raw, paymentIDPrefix) {
		return 0, apperr.Validation("unknown payment reference")
	}
	return id, nil
}

// FormatAmount renders cents as a rand amount with two decimals.
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// ParseAmount reads a rand amount with at most two decimals into cents.
func ParseAmount(raw string) (int64, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(raw), ".")
	if len(frac) > 2 {
		return 0, apperr.Validation("invalid amount")
	}
	for len(frac) < 2 {
		frac += "0"
	}
	rands, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || rands < 0 {
		return 0, apperr.Validation("invalid amount")
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || cents < 0 {
		return 0, apperr.Validation("invalid amount")
	}
	return rands*100 + cents, nil
}
