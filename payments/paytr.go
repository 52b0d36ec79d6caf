package payments

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/satis-shop/satis-api/config"
	"github.com/satis-shop/satis-api/models"
	"github.com/satis-shop/satis-api/utils"
	"github.com/shopspring/decimal"
)

// PayTRProvider integrates the PayTR iFrame/redirect payment page
type PayTRProvider struct {
	cfg        config.PayTRConfig
	successURL string
	failureURL string
}

// NewPayTRProvider creates a PayTR provider from cfg
func NewPayTRProvider(cfg *config.Config) *PayTRProvider {
	return &PayTRProvider{
		cfg:        cfg.PayTR,
		successURL: cfg.PaymentSuccessURL,
		failureURL: cfg.PaymentFailureURL,
	}
}

func (p *PayTRProvider) Name() string { return ProviderPayTR }

func (p *PayTRProvider) configured() bool {
	return p.cfg.MerchantID != "" && p.cfg.MerchantKey != "" && p.cfg.MerchantSalt != ""
}

// Charge is not available for the redirect integration
func (p *PayTRProvider) Charge(context.Context, decimal.Decimal, string, string) (*ChargeResult, error) {
	return nil, fmt.Errorf("paytr: %w", ErrNotImplemented)
}

// Initiate renders the auto-submitting form posting to the PayTR payment page
func (p *PayTRProvider) Initiate(_ context.Context, order *models.Order, amount decimal.Decimal, currency string, r *http.Request) (*ChargeResult, error) {
	if !p.configured() || p.cfg.BaseURL == "" {
		return &ChargeResult{
			Success: false,
			Message: "PayTR konfigürasyonu eksik. MERCHANT_ID, MERCHANT_KEY, MERCHANT_SALT ve BASE_URL gerekli.",
		}, nil
	}

	var buf bytes.Buffer
	err := paytrFormTemplate.Execute(&buf, paytrForm{
		Action:        p.cfg.BaseURL + "/odeme",
		MerchantID:    p.cfg.MerchantID,
		MerchantOID:   fmt.Sprint(order.ID),
		UserIP:        utils.RemoteIP(r),
		PaymentAmount: utils.ToKurus(amount),
		Currency:      currency,
		OkURL:         utils.AbsoluteURL(r, p.successURL),
		FailURL:       utils.AbsoluteURL(r, p.failureURL),
		CallbackURL:   utils.AbsoluteURL(r, p.cfg.CallbackURL),
	})
	if err != nil {
		return nil, fmt.Errorf("paytr: render form: %w", err)
	}

	return &ChargeResult{
		Success:          true,
		RequiresRedirect: true,
		FormHTML:         buf.String(),
		ProviderRef:      fmt.Sprintf("PAYTR-%d", order.ID),
	}, nil
}

// VerifyCallback checks the MD5 signature of merchant_oid, merchant_salt, status and total_amount.
// The merchant_oid doubles as the provider reference.
func (p *PayTRProvider) VerifyCallback(r *http.Request) CallbackResult {
	merchantOID := r.PostFormValue("merchant_oid")
	if !p.configured() {
		return CallbackResult{Message: "PayTR konfigürasyonu eksik", OrderRef: merchantOID}
	}

	status := r.PostFormValue("status")
	totalAmount := r.PostFormValue("total_amount")
	provided := r.PostFormValue("hash")
	if merchantOID == "" || status == "" || totalAmount == "" || provided == "" {
		return CallbackResult{Message: "Zorunlu alanlar eksik", OrderRef: merchantOID}
	}

	expected := PayTRSignature(merchantOID, p.cfg.MerchantSalt, status, totalAmount)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		return CallbackResult{Message: "İmza geçersiz", OrderRef: merchantOID}
	}
	if status != "success" {
		return CallbackResult{Message: "Ödeme başarısız", OrderRef: merchantOID}
	}
	return CallbackResult{OK: true, ProviderRef: merchantOID, Message: "PayTR ödeme başarılı", OrderRef: merchantOID}
}

// PayTRSignature returns the hex MD5 of merchantOID, salt, status and totalAmount
func PayTRSignature(merchantOID, salt, status, totalAmount string) string {
	sum := md5.Sum([]byte(merchantOID + salt + status + totalAmount))
	return hex.EncodeToString(sum[:])
}
