// Package payments hides provider-specific request and webhook shapes behind
// a single Provider contract.
package payments

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/satis-shop/satis-api/config"
	"github.com/satis-shop/satis-api/models"
	"github.com/shopspring/decimal"
)

// Provider names
const (
	ProviderMock   = "mock"
	ProviderIyzico = "iyzico"
	ProviderPayTR  = "paytr"
)

// ErrNotImplemented is returned by server-to-server charges the sandbox integrations do not support yet
var ErrNotImplemented = errors.New("payment provider does not support direct charges")

// ChargeResult is the outcome of starting or performing a payment
type ChargeResult struct {
	Success          bool
	ProviderRef      string
	Message          string
	RequiresRedirect bool
	FormHTML         string // auto-submitting form for redirect providers
}

// CallbackResult is the outcome of verifying an inbound provider webhook.
// OrderRef is filled whenever the payload carried one, even if verification failed.
type CallbackResult struct {
	OK          bool
	ProviderRef string
	Message     string
	OrderRef    string
}

// Provider is implemented by every payment integration
type Provider interface {
	// Name returns the lowercase provider name stored on settled orders
	Name() string

	// Charge performs a direct charge without a redirect
	Charge(ctx context.Context, amount decimal.Decimal, currency, orderRef string) (*ChargeResult, error)

	// Initiate starts a payment for order; redirect providers return a form to render
	Initiate(ctx context.Context, order *models.Order, amount decimal.Decimal, currency string, r *http.Request) (*ChargeResult, error)

	// VerifyCallback authenticates a webhook and extracts the order and transaction references
	VerifyCallback(r *http.Request) CallbackResult
}

// Registry resolves providers by name, keeping one instance per name
type Registry struct {
	cfg   *config.Config
	mu    sync.Mutex
	cache map[string]Provider
}

var registryInstance *Registry

// NewRegistry creates a registry that builds providers from cfg
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		cfg:   cfg,
		cache: make(map[string]Provider),
	}
}

// InitRegistry initializes the global provider registry
func InitRegistry(cfg *config.Config) *Registry {
	registryInstance = NewRegistry(cfg)
	return registryInstance
}

// GetRegistry returns the initialized provider registry
func GetRegistry() *Registry {
	return registryInstance
}

// SetRegistry sets the global registry (primarily for testing)
func SetRegistry(r *Registry) {
	registryInstance = r
}

// NormalizeName lowercases name and maps unknown or empty names to mock
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case ProviderIyzico, ProviderPayTR, ProviderMock:
		return name
	default:
		return ProviderMock
	}
}

// Get returns the cached provider for name, creating it on first use
func (r *Registry) Get(name string) Provider {
	name = NormalizeName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.cache[name]; ok {
		return p
	}

	var p Provider
	switch name {
	case ProviderIyzico:
		p = NewIyzicoProvider(r.cfg)
	case ProviderPayTR:
		p = NewPayTRProvider(r.cfg)
	default:
		p = NewMockProvider()
	}
	r.cache[name] = p
	return p
}

// Active returns the provider selected by PAYMENT_PROVIDER
func (r *Registry) Active() Provider {
	return r.Get(r.cfg.PaymentProvider)
}

// Register replaces the cached instance for name
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[NormalizeName(name)] = p
}
