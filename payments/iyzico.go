package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/satis-shop/satis-api/config"
	"github.com/satis-shop/satis-api/models"
	"github.com/satis-shop/satis-api/utils"
	"github.com/shopspring/decimal"
)

// IyzicoProvider integrates the Iyzico checkout form
type IyzicoProvider struct {
	cfg config.IyzicoConfig
}

// NewIyzicoProvider creates an Iyzico provider from the Iyzico section of cfg
func NewIyzicoProvider(cfg *config.Config) *IyzicoProvider {
	return &IyzicoProvider{cfg: cfg.Iyzico}
}

func (p *IyzicoProvider) Name() string { return ProviderIyzico }

// Charge is not available for the checkout-form integration
func (p *IyzicoProvider) Charge(context.Context, decimal.Decimal, string, string) (*ChargeResult, error) {
	return nil, fmt.Errorf("iyzico: %w", ErrNotImplemented)
}

// Initiate renders the auto-submitting checkout form
func (p *IyzicoProvider) Initiate(_ context.Context, order *models.Order, amount decimal.Decimal, currency string, r *http.Request) (*ChargeResult, error) {
	if p.cfg.APIKey == "" || p.cfg.Secret == "" || p.cfg.BaseURL == "" {
		return &ChargeResult{
			Success: false,
			Message: "İyzico konfigürasyonu eksik. API_KEY, SECRET ve BASE_URL gerekli.",
		}, nil
	}

	var buf bytes.Buffer
	err := iyzicoFormTemplate.Execute(&buf, iyzicoForm{
		Action:         p.cfg.BaseURL + "/payment/iyzipos/checkoutform/initialize",
		ConversationID: fmt.Sprint(order.ID),
		Price:          amount.StringFixed(2),
		Currency:       currency,
		CallbackURL:    utils.AbsoluteURL(r, p.cfg.CallbackURL),
	})
	if err != nil {
		return nil, fmt.Errorf("iyzico: render form: %w", err)
	}

	return &ChargeResult{
		Success:          true,
		RequiresRedirect: true,
		FormHTML:         buf.String(),
		ProviderRef:      fmt.Sprintf("IYZICO-%d", order.ID),
	}, nil
}

// VerifyCallback checks the HMAC-SHA256 signature of paymentId, conversationId and status
func (p *IyzicoProvider) VerifyCallback(r *http.Request) CallbackResult {
	conversationID := r.PostFormValue("conversationId")
	if p.cfg.APIKey == "" || p.cfg.Secret == "" {
		return CallbackResult{Message: "İyzico konfigürasyonu eksik", OrderRef: conversationID}
	}

	status := r.PostFormValue("status")
	paymentID := r.PostFormValue("paymentId")
	provided := r.PostFormValue("hash")
	if status == "" || paymentID == "" || conversationID == "" || provided == "" {
		return CallbackResult{Message: "Zorunlu alanlar eksik", OrderRef: conversationID}
	}

	expected := IyzicoSignature(p.cfg.Secret, paymentID, conversationID, status)
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return CallbackResult{Message: "İmza geçersiz", OrderRef: conversationID}
	}

	if status != "success" {
		return CallbackResult{Message: "Ödeme başarısız", OrderRef: conversationID}
	}
	return CallbackResult{OK: true, ProviderRef: paymentID, Message: "İyzico ödeme başarılı", OrderRef: conversationID}
}

// IyzicoSignature returns the hex HMAC-SHA256 of paymentID, conversationID and status keyed by secret
func IyzicoSignature(secret, paymentID, conversationID, status string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(paymentID + conversationID + status))
	return hex.EncodeToString(mac.Sum(nil))
}
