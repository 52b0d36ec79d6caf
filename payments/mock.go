package payments

import (
	"context"
	"fmt"
	"net/http"

	"github.com/satis-shop/satis-api/models"
	"github.com/shopspring/decimal"
)

// MockProvider always succeeds and performs no verification
type MockProvider struct{}

// NewMockProvider creates a mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Name() string { return ProviderMock }

// Charge always succeeds
func (p *MockProvider) Charge(_ context.Context, _ decimal.Decimal, _, orderRef string) (*ChargeResult, error) {
	return &ChargeResult{Success: true, ProviderRef: "MOCK-" + orderRef, Message: "OK"}, nil
}

// Initiate succeeds immediately without a redirect
func (p *MockProvider) Initiate(_ context.Context, order *models.Order, _ decimal.Decimal, _ string, _ *http.Request) (*ChargeResult, error) {
	return &ChargeResult{
		Success:     true,
		ProviderRef: fmt.Sprintf("MOCK-%d", order.ID),
		Message:     "Mock ödeme başarılı",
	}, nil
}

// VerifyCallback accepts anything; mock payments never send callbacks so no order is referenced
func (p *MockProvider) VerifyCallback(_ *http.Request) CallbackResult {
	return CallbackResult{OK: true, Message: "Mock callback"}
}
